// Package amm defines the narrow capability surface this engine consumes
// from a V3-style AMM: pool lookup, tick spacing, and the position registry.
package amm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Factory resolves pool instances for token pairs.
type Factory interface {
	// PoolFor returns the pool address for the pair and fee tier, or the
	// zero address if no such pool has been created.
	PoolFor(ctx context.Context, token0, token1 common.Address, fee uint32) (common.Address, error)
}

// PoolReader exposes per-pool immutable parameters.
type PoolReader interface {
	TickSpacing(ctx context.Context, pool common.Address) (int32, error)
}

// PositionInfo mirrors the registry's per-position record.
type PositionInfo struct {
	Nonce                    *big.Int
	Operator                 common.Address
	Token0                   common.Address
	Token1                   common.Address
	Fee                      uint32
	TickLower                int32
	TickUpper                int32
	Liquidity                *big.Int
	FeeGrowthInside0LastX128 *big.Int
	FeeGrowthInside1LastX128 *big.Int
	TokensOwed0              *big.Int
	TokensOwed1              *big.Int
}

// MintParams are the inputs for minting a new position.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            uint32
	TickLower      int32
	TickUpper      int32
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
	Deadline       *big.Int
}

// MintResult carries the registry's mint outcome.
type MintResult struct {
	PositionID *big.Int
	Liquidity  *big.Int
	Used0      *big.Int
	Used1      *big.Int
}

// IncreaseParams are the inputs for adding liquidity to a position.
type IncreaseParams struct {
	PositionID     *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Deadline       *big.Int
}

// IncreaseResult carries the realized liquidity delta and consumed amounts.
type IncreaseResult struct {
	Liquidity *big.Int
	Used0     *big.Int
	Used1     *big.Int
}

// DecreaseParams are the inputs for removing liquidity from a position.
type DecreaseParams struct {
	PositionID *big.Int
	Liquidity  *big.Int
	Amount0Min *big.Int
	Amount1Min *big.Int
	Deadline   *big.Int
}

// DecreaseResult carries the amounts newly owed to the position.
type DecreaseResult struct {
	Owed0 *big.Int
	Owed1 *big.Int
}

// CollectParams are the inputs for sweeping owed amounts.
type CollectParams struct {
	PositionID *big.Int
	Recipient  common.Address
	Amount0Max *big.Int
	Amount1Max *big.Int
}

// CollectResult carries the amounts actually transferred out.
type CollectResult struct {
	Collected0 *big.Int
	Collected1 *big.Int
}

// Registry is the authoritative position ledger. Every read reflects live
// state; callers must not cache ownership or liquidity across calls.
type Registry interface {
	OwnerOf(ctx context.Context, positionID *big.Int) (common.Address, error)
	Position(ctx context.Context, positionID *big.Int) (PositionInfo, error)
	Mint(ctx context.Context, params MintParams) (MintResult, error)
	IncreaseLiquidity(ctx context.Context, params IncreaseParams) (IncreaseResult, error)
	DecreaseLiquidity(ctx context.Context, params DecreaseParams) (DecreaseResult, error)
	Collect(ctx context.Context, params CollectParams) (CollectResult, error)
}
