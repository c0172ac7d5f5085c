// Package evm backs the AMM capability surface with on-chain contract
// calls: the factory and pool for reads, the position manager for reads
// and state-changing transactions.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"liquidityKeeper/internal/amm"
	"liquidityKeeper/internal/chain"
)

// Surface implements amm.Factory, amm.PoolReader, and amm.Registry over
// a chain client. Read calls are retried at the transport level; state
// changes are sent once and never retried.
type Surface struct {
	client   *chain.Client
	factory  common.Address
	registry common.Address
	logger   *zap.Logger

	maxRetries   int
	retryBackoff time.Duration
}

func NewSurface(client *chain.Client, factory, registry common.Address, logger *zap.Logger) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Surface{
		client:       client,
		factory:      factory,
		registry:     registry,
		logger:       logger,
		maxRetries:   3,
		retryBackoff: 250 * time.Millisecond,
	}
}

// Address returns the position manager address, the spender for
// engine-granted allowances.
func (s *Surface) Address() common.Address {
	return s.registry
}

// PoolFor returns the pool address for the pair and fee tier.
func (s *Surface) PoolFor(ctx context.Context, token0, token1 common.Address, fee uint32) (common.Address, error) {
	factoryABI, err := FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}

	values, err := s.call(ctx, s.factory, factoryABI, "getPool", token0, token1, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}, fmt.Errorf("getPool: %w", err)
	}
	return asAddress(values[0])
}

// TickSpacing returns the pool's tick spacing.
func (s *Surface) TickSpacing(ctx context.Context, pool common.Address) (int32, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return 0, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := s.call(ctx, pool, poolABI, "tickSpacing")
	if err != nil {
		return 0, fmt.Errorf("tickSpacing: %w", err)
	}
	spacing, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("tickSpacing: %w", err)
	}
	return int24FromBig(spacing)
}

// OwnerOf returns the position's current owner.
func (s *Surface) OwnerOf(ctx context.Context, positionID *big.Int) (common.Address, error) {
	mgrABI, err := PositionManagerABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse position manager abi: %w", err)
	}

	values, err := s.call(ctx, s.registry, mgrABI, "ownerOf", positionID)
	if err != nil {
		return common.Address{}, fmt.Errorf("ownerOf: %w", err)
	}
	return asAddress(values[0])
}

// Position returns the live position record.
func (s *Surface) Position(ctx context.Context, positionID *big.Int) (amm.PositionInfo, error) {
	mgrABI, err := PositionManagerABI()
	if err != nil {
		return amm.PositionInfo{}, fmt.Errorf("parse position manager abi: %w", err)
	}

	values, err := s.call(ctx, s.registry, mgrABI, "positions", positionID)
	if err != nil {
		return amm.PositionInfo{}, fmt.Errorf("positions: %w", err)
	}
	if len(values) != 12 {
		return amm.PositionInfo{}, fmt.Errorf("positions: expected 12 fields, got %d", len(values))
	}

	info := amm.PositionInfo{}
	if info.Nonce, err = asBigInt(values[0]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("nonce: %w", err)
	}
	if info.Operator, err = asAddress(values[1]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("operator: %w", err)
	}
	if info.Token0, err = asAddress(values[2]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("token0: %w", err)
	}
	if info.Token1, err = asAddress(values[3]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("token1: %w", err)
	}
	fee, err := asBigInt(values[4])
	if err != nil {
		return amm.PositionInfo{}, fmt.Errorf("fee: %w", err)
	}
	info.Fee = uint32(fee.Uint64())
	lower, err := asBigInt(values[5])
	if err != nil {
		return amm.PositionInfo{}, fmt.Errorf("tick lower: %w", err)
	}
	if info.TickLower, err = int24FromBig(lower); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("tick lower: %w", err)
	}
	upper, err := asBigInt(values[6])
	if err != nil {
		return amm.PositionInfo{}, fmt.Errorf("tick upper: %w", err)
	}
	if info.TickUpper, err = int24FromBig(upper); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("tick upper: %w", err)
	}
	if info.Liquidity, err = asBigInt(values[7]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("liquidity: %w", err)
	}
	if info.FeeGrowthInside0LastX128, err = asBigInt(values[8]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("fee growth 0: %w", err)
	}
	if info.FeeGrowthInside1LastX128, err = asBigInt(values[9]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("fee growth 1: %w", err)
	}
	if info.TokensOwed0, err = asBigInt(values[10]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("tokens owed 0: %w", err)
	}
	if info.TokensOwed1, err = asBigInt(values[11]); err != nil {
		return amm.PositionInfo{}, fmt.Errorf("tokens owed 1: %w", err)
	}
	return info, nil
}

type mintCall struct {
	Token0         common.Address
	Token1         common.Address
	Fee            *big.Int
	TickLower      *big.Int
	TickUpper      *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
	Deadline       *big.Int
}

// Mint sends a mint transaction and reads the outcome from the position
// manager's IncreaseLiquidity event in the receipt.
func (s *Surface) Mint(ctx context.Context, params amm.MintParams) (amm.MintResult, error) {
	mgrABI, err := PositionManagerABI()
	if err != nil {
		return amm.MintResult{}, fmt.Errorf("parse position manager abi: %w", err)
	}

	input, err := mgrABI.Pack("mint", mintCall{
		Token0:         params.Token0,
		Token1:         params.Token1,
		Fee:            big.NewInt(int64(params.Fee)),
		TickLower:      big.NewInt(int64(params.TickLower)),
		TickUpper:      big.NewInt(int64(params.TickUpper)),
		Amount0Desired: params.Amount0Desired,
		Amount1Desired: params.Amount1Desired,
		Amount0Min:     params.Amount0Min,
		Amount1Min:     params.Amount1Min,
		Recipient:      params.Recipient,
		Deadline:       params.Deadline,
	})
	if err != nil {
		return amm.MintResult{}, fmt.Errorf("pack mint: %w", err)
	}

	receipt, err := s.client.Transact(ctx, s.registry, input, nil)
	if err != nil {
		return amm.MintResult{}, fmt.Errorf("mint: %w", err)
	}

	positionID, values, err := s.decodeEvent(mgrABI, receipt, "IncreaseLiquidity")
	if err != nil {
		return amm.MintResult{}, fmt.Errorf("mint receipt: %w", err)
	}

	result := amm.MintResult{PositionID: positionID}
	if result.Liquidity, err = asBigInt(values[0]); err != nil {
		return amm.MintResult{}, fmt.Errorf("mint liquidity: %w", err)
	}
	if result.Used0, err = asBigInt(values[1]); err != nil {
		return amm.MintResult{}, fmt.Errorf("mint amount0: %w", err)
	}
	if result.Used1, err = asBigInt(values[2]); err != nil {
		return amm.MintResult{}, fmt.Errorf("mint amount1: %w", err)
	}
	return result, nil
}

type increaseCall struct {
	TokenId        *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Deadline       *big.Int
}

// IncreaseLiquidity sends an increase transaction and decodes the
// realized delta from the receipt.
func (s *Surface) IncreaseLiquidity(ctx context.Context, params amm.IncreaseParams) (amm.IncreaseResult, error) {
	mgrABI, err := PositionManagerABI()
	if err != nil {
		return amm.IncreaseResult{}, fmt.Errorf("parse position manager abi: %w", err)
	}

	input, err := mgrABI.Pack("increaseLiquidity", increaseCall{
		TokenId:        params.PositionID,
		Amount0Desired: params.Amount0Desired,
		Amount1Desired: params.Amount1Desired,
		Amount0Min:     params.Amount0Min,
		Amount1Min:     params.Amount1Min,
		Deadline:       params.Deadline,
	})
	if err != nil {
		return amm.IncreaseResult{}, fmt.Errorf("pack increaseLiquidity: %w", err)
	}

	receipt, err := s.client.Transact(ctx, s.registry, input, nil)
	if err != nil {
		return amm.IncreaseResult{}, fmt.Errorf("increaseLiquidity: %w", err)
	}

	_, values, err := s.decodeEvent(mgrABI, receipt, "IncreaseLiquidity")
	if err != nil {
		return amm.IncreaseResult{}, fmt.Errorf("increase receipt: %w", err)
	}

	result := amm.IncreaseResult{}
	if result.Liquidity, err = asBigInt(values[0]); err != nil {
		return amm.IncreaseResult{}, fmt.Errorf("increase liquidity: %w", err)
	}
	if result.Used0, err = asBigInt(values[1]); err != nil {
		return amm.IncreaseResult{}, fmt.Errorf("increase amount0: %w", err)
	}
	if result.Used1, err = asBigInt(values[2]); err != nil {
		return amm.IncreaseResult{}, fmt.Errorf("increase amount1: %w", err)
	}
	return result, nil
}

type decreaseCall struct {
	TokenId    *big.Int
	Liquidity  *big.Int
	Amount0Min *big.Int
	Amount1Min *big.Int
	Deadline   *big.Int
}

// DecreaseLiquidity sends a decrease transaction and decodes the owed
// amounts from the receipt.
func (s *Surface) DecreaseLiquidity(ctx context.Context, params amm.DecreaseParams) (amm.DecreaseResult, error) {
	mgrABI, err := PositionManagerABI()
	if err != nil {
		return amm.DecreaseResult{}, fmt.Errorf("parse position manager abi: %w", err)
	}

	input, err := mgrABI.Pack("decreaseLiquidity", decreaseCall{
		TokenId:    params.PositionID,
		Liquidity:  params.Liquidity,
		Amount0Min: params.Amount0Min,
		Amount1Min: params.Amount1Min,
		Deadline:   params.Deadline,
	})
	if err != nil {
		return amm.DecreaseResult{}, fmt.Errorf("pack decreaseLiquidity: %w", err)
	}

	receipt, err := s.client.Transact(ctx, s.registry, input, nil)
	if err != nil {
		return amm.DecreaseResult{}, fmt.Errorf("decreaseLiquidity: %w", err)
	}

	_, values, err := s.decodeEvent(mgrABI, receipt, "DecreaseLiquidity")
	if err != nil {
		return amm.DecreaseResult{}, fmt.Errorf("decrease receipt: %w", err)
	}

	result := amm.DecreaseResult{}
	if result.Owed0, err = asBigInt(values[1]); err != nil {
		return amm.DecreaseResult{}, fmt.Errorf("decrease amount0: %w", err)
	}
	if result.Owed1, err = asBigInt(values[2]); err != nil {
		return amm.DecreaseResult{}, fmt.Errorf("decrease amount1: %w", err)
	}
	return result, nil
}

type collectCall struct {
	TokenId    *big.Int
	Recipient  common.Address
	Amount0Max *big.Int
	Amount1Max *big.Int
}

// Collect sends a collect transaction and decodes the swept amounts from
// the receipt.
func (s *Surface) Collect(ctx context.Context, params amm.CollectParams) (amm.CollectResult, error) {
	mgrABI, err := PositionManagerABI()
	if err != nil {
		return amm.CollectResult{}, fmt.Errorf("parse position manager abi: %w", err)
	}

	input, err := mgrABI.Pack("collect", collectCall{
		TokenId:    params.PositionID,
		Recipient:  params.Recipient,
		Amount0Max: params.Amount0Max,
		Amount1Max: params.Amount1Max,
	})
	if err != nil {
		return amm.CollectResult{}, fmt.Errorf("pack collect: %w", err)
	}

	receipt, err := s.client.Transact(ctx, s.registry, input, nil)
	if err != nil {
		return amm.CollectResult{}, fmt.Errorf("collect: %w", err)
	}

	_, values, err := s.decodeEvent(mgrABI, receipt, "Collect")
	if err != nil {
		return amm.CollectResult{}, fmt.Errorf("collect receipt: %w", err)
	}

	result := amm.CollectResult{}
	if result.Collected0, err = asBigInt(values[1]); err != nil {
		return amm.CollectResult{}, fmt.Errorf("collect amount0: %w", err)
	}
	if result.Collected1, err = asBigInt(values[2]); err != nil {
		return amm.CollectResult{}, fmt.Errorf("collect amount1: %w", err)
	}
	return result, nil
}

func (s *Surface) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var output []byte
	err = withRetry(ctx, s.logger, s.maxRetries, s.retryBackoff, func(ctx context.Context) error {
		var callErr error
		output, callErr = s.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("call %s: empty return", method)
	}

	values, err := contractABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// decodeEvent finds the named position manager event in the receipt and
// returns the indexed tokenId plus the unpacked data fields.
func (s *Surface) decodeEvent(mgrABI abi.ABI, receipt *types.Receipt, name string) (*big.Int, []interface{}, error) {
	event, ok := mgrABI.Events[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown event %s", name)
	}

	for _, log := range receipt.Logs {
		if log.Address != s.registry || len(log.Topics) < 2 || log.Topics[0] != event.ID {
			continue
		}
		values, err := mgrABI.Unpack(name, log.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("unpack %s: %w", name, err)
		}
		tokenID := new(big.Int).SetBytes(log.Topics[1].Bytes())
		return tokenID, values, nil
	}
	return nil, nil, fmt.Errorf("event %s not found in receipt %s", name, receipt.TxHash.Hex())
}
