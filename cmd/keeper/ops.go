package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityKeeper/internal/amm/evm"
	"liquidityKeeper/internal/chain"
	"liquidityKeeper/internal/config"
	"liquidityKeeper/internal/engine"
	"liquidityKeeper/internal/notify"
	"liquidityKeeper/internal/notify/postgres"
	"liquidityKeeper/internal/token"
)

type runtime struct {
	ctx     context.Context
	stop    context.CancelFunc
	logger  *zap.Logger
	client  *chain.Client
	engine  *engine.Engine
	caller  common.Address
	cleanup []func()
}

func (r *runtime) close() {
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		r.cleanup[i]()
	}
	r.client.Close()
	r.logger.Sync()
	r.stop()
}

// newRuntime wires config, logger, chain client, sinks, and the engine
// for one CLI invocation.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	client, err := chain.NewSigningClient(ctx, cfg.RPCURL, cfg.PrivateKey)
	if err != nil {
		stop()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	token0, err := parseAddress(cfg.Token0)
	if err != nil {
		client.Close()
		stop()
		return nil, fmt.Errorf("token0: %w", err)
	}
	token1, err := parseAddress(cfg.Token1)
	if err != nil {
		client.Close()
		stop()
		return nil, fmt.Errorf("token1: %w", err)
	}
	factory, err := parseAddress(cfg.Factory)
	if err != nil {
		client.Close()
		stop()
		return nil, fmt.Errorf("factory: %w", err)
	}
	registry, err := parseAddress(cfg.Registry)
	if err != nil {
		client.Close()
		stop()
		return nil, fmt.Errorf("registry: %w", err)
	}

	surface := evm.NewSurface(client, factory, registry, logger)

	sinks := notify.Multi{
		notify.NewLogSink(logger),
		notify.NewJsonlSink(cfg.NotifyOut),
	}
	var cleanup []func()
	if cfg.PgDSN != "" {
		pgSink, err := postgres.NewSink(ctx, cfg.PgDSN)
		if err != nil {
			client.Close()
			stop()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sinks = append(sinks, pgSink)
		cleanup = append(cleanup, pgSink.Close)
	}

	eng, err := engine.New(engine.Config{
		Token0:          token0,
		Token1:          token1,
		Fee:             cfg.Fee,
		Custody:         client.Sender(),
		RegistryAddress: registry,
		Factory:         surface,
		Pools:           surface,
		Registry:        surface,
		Assets:          token.NewERC20Transferer(client),
		Sink:            sinks,
		Logger:          logger,
	})
	if err != nil {
		client.Close()
		stop()
		return nil, err
	}

	return &runtime{
		ctx:     ctx,
		stop:    stop,
		logger:  logger,
		client:  client,
		engine:  eng,
		caller:  client.Sender(),
		cleanup: cleanup,
	}, nil
}

func newOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new position over a tick range",
		RunE:  runOpen,
	}
	addCommonFlags(cmd)
	cmd.Flags().Int32("tick-lower", 0, "requested lower tick")
	cmd.Flags().Int32("tick-upper", 0, "requested upper tick")
	cmd.Flags().String("amount0", "0", "desired token0 amount")
	cmd.Flags().String("amount1", "0", "desired token1 amount")
	cmd.Flags().String("min0", "0", "minimum token0 amount")
	cmd.Flags().String("min1", "0", "minimum token1 amount")
	cmd.Flags().Duration("deadline", 10*time.Minute, "deadline from now")
	return cmd
}

func runOpen(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	lower, _ := cmd.Flags().GetInt32("tick-lower")
	upper, _ := cmd.Flags().GetInt32("tick-upper")
	amount0, err := parseBigFlag(cmd, "amount0")
	if err != nil {
		return err
	}
	amount1, err := parseBigFlag(cmd, "amount1")
	if err != nil {
		return err
	}
	min0, err := parseBigFlag(cmd, "min0")
	if err != nil {
		return err
	}
	min1, err := parseBigFlag(cmd, "min1")
	if err != nil {
		return err
	}

	res, err := rt.engine.Open(rt.ctx, rt.caller, engine.OpenParams{
		TickLower: lower,
		TickUpper: upper,
		Desired0:  amount0,
		Desired1:  amount1,
		Min0:      min0,
		Min1:      min1,
		Deadline:  deadlineFlag(cmd),
	})
	if err != nil {
		return err
	}

	rt.logger.Info("open complete",
		zap.String("position_id", res.PositionID.String()),
		zap.String("liquidity", res.Liquidity.String()),
		zap.String("used0", res.Used0.String()),
		zap.String("used1", res.Used1.String()),
	)
	return nil
}

func newIncreaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "increase",
		Short: "Add liquidity to an existing position",
		RunE:  runIncrease,
	}
	addCommonFlags(cmd)
	cmd.Flags().String("position", "", "position id")
	cmd.Flags().String("amount0", "0", "desired token0 amount")
	cmd.Flags().String("amount1", "0", "desired token1 amount")
	cmd.Flags().String("min0", "0", "minimum token0 amount")
	cmd.Flags().String("min1", "0", "minimum token1 amount")
	cmd.Flags().Duration("deadline", 10*time.Minute, "deadline from now")
	return cmd
}

func runIncrease(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	positionID, err := parseBigFlag(cmd, "position")
	if err != nil {
		return err
	}
	amount0, err := parseBigFlag(cmd, "amount0")
	if err != nil {
		return err
	}
	amount1, err := parseBigFlag(cmd, "amount1")
	if err != nil {
		return err
	}
	min0, err := parseBigFlag(cmd, "min0")
	if err != nil {
		return err
	}
	min1, err := parseBigFlag(cmd, "min1")
	if err != nil {
		return err
	}

	res, err := rt.engine.IncreaseLiquidity(rt.ctx, rt.caller, engine.IncreaseParams{
		PositionID: positionID,
		Desired0:   amount0,
		Desired1:   amount1,
		Min0:       min0,
		Min1:       min1,
		Deadline:   deadlineFlag(cmd),
	})
	if err != nil {
		return err
	}

	rt.logger.Info("increase complete",
		zap.String("position_id", positionID.String()),
		zap.String("liquidity_delta", res.LiquidityDelta.String()),
		zap.String("used0", res.Used0.String()),
		zap.String("used1", res.Used1.String()),
	)
	return nil
}

func newDecreaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrease",
		Short: "Remove liquidity, leaving the proceeds owed to the position",
		RunE:  runDecrease,
	}
	addCommonFlags(cmd)
	cmd.Flags().String("position", "", "position id")
	cmd.Flags().String("liquidity", "0", "liquidity to remove")
	cmd.Flags().String("min0", "0", "minimum token0 amount")
	cmd.Flags().String("min1", "0", "minimum token1 amount")
	cmd.Flags().Duration("deadline", 10*time.Minute, "deadline from now")
	return cmd
}

func runDecrease(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	positionID, err := parseBigFlag(cmd, "position")
	if err != nil {
		return err
	}
	liquidity, err := parseBigFlag(cmd, "liquidity")
	if err != nil {
		return err
	}
	min0, err := parseBigFlag(cmd, "min0")
	if err != nil {
		return err
	}
	min1, err := parseBigFlag(cmd, "min1")
	if err != nil {
		return err
	}

	res, err := rt.engine.DecreaseLiquidity(rt.ctx, rt.caller, engine.DecreaseParams{
		PositionID: positionID,
		Liquidity:  liquidity,
		Min0:       min0,
		Min1:       min1,
		Deadline:   deadlineFlag(cmd),
	})
	if err != nil {
		return err
	}

	rt.logger.Info("decrease complete",
		zap.String("position_id", positionID.String()),
		zap.String("owed0", res.Owed0.String()),
		zap.String("owed1", res.Owed1.String()),
	)
	return nil
}

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Sweep owed amounts to a recipient",
		RunE:  runCollect,
	}
	addCommonFlags(cmd)
	cmd.Flags().String("position", "", "position id")
	cmd.Flags().String("recipient", "", "recipient address (defaults to sender)")
	cmd.Flags().String("max0", "0", "maximum token0 to collect")
	cmd.Flags().String("max1", "0", "maximum token1 to collect")
	return cmd
}

func runCollect(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	positionID, err := parseBigFlag(cmd, "position")
	if err != nil {
		return err
	}
	max0, err := parseBigFlag(cmd, "max0")
	if err != nil {
		return err
	}
	max1, err := parseBigFlag(cmd, "max1")
	if err != nil {
		return err
	}

	recipient := rt.caller
	if raw, _ := cmd.Flags().GetString("recipient"); raw != "" {
		recipient, err = parseAddress(raw)
		if err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
	}

	res, err := rt.engine.Collect(rt.ctx, rt.caller, engine.CollectParams{
		PositionID: positionID,
		Recipient:  recipient,
		Max0:       max0,
		Max1:       max1,
	})
	if err != nil {
		return err
	}

	rt.logger.Info("collect complete",
		zap.String("position_id", positionID.String()),
		zap.String("recipient", recipient.Hex()),
		zap.String("collected0", res.Collected0.String()),
		zap.String("collected1", res.Collected1.String()),
	)
	return nil
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func parseBigFlag(cmd *cobra.Command, name string) (*big.Int, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s value %q", name, raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%s must not be negative", name)
	}
	return value, nil
}

func deadlineFlag(cmd *cobra.Command) *big.Int {
	window, _ := cmd.Flags().GetDuration("deadline")
	return big.NewInt(time.Now().Add(window).Unix())
}
