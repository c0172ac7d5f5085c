package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"liquidityKeeper/internal/amm/evm"
	"liquidityKeeper/internal/chain"
	"liquidityKeeper/internal/config"
)

type positionStatus struct {
	PositionID  string `json:"position_id"`
	Owner       string `json:"owner"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	Liquidity   string `json:"liquidity"`
	TokensOwed0 string `json:"tokens_owed0"`
	TokensOwed1 string `json:"tokens_owed1"`
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <position-id>",
		Short: "Show a position's live state",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	addCommonFlags(cmd)
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Registry == "" {
		return fmt.Errorf("registry address is required")
	}

	positionID, ok := new(big.Int).SetString(args[0], 10)
	if !ok {
		return fmt.Errorf("invalid position id %q", args[0])
	}

	registry, err := parseAddress(cfg.Registry)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	ctx := context.Background()
	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	var factory common.Address
	if cfg.Factory != "" {
		factory, err = parseAddress(cfg.Factory)
		if err != nil {
			return fmt.Errorf("factory: %w", err)
		}
	}
	surface := evm.NewSurface(client, factory, registry, nil)

	owner, err := surface.OwnerOf(ctx, positionID)
	if err != nil {
		return err
	}
	info, err := surface.Position(ctx, positionID)
	if err != nil {
		return err
	}

	status := positionStatus{
		PositionID:  positionID.String(),
		Owner:       owner.Hex(),
		Token0:      info.Token0.Hex(),
		Token1:      info.Token1.Hex(),
		Fee:         info.Fee,
		TickLower:   info.TickLower,
		TickUpper:   info.TickUpper,
		Liquidity:   info.Liquidity.String(),
		TokensOwed0: info.TokensOwed0.String(),
		TokensOwed1: info.TokensOwed1.String(),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(status)
}
