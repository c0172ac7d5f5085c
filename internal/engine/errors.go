package engine

import "errors"

// Validation and reconciliation failures surfaced by the engine. All are
// immediate and non-retriable; the engine never retries anything itself.
var (
	// ErrZeroLiquidity means the caller supplied no meaningful amount or
	// liquidity for an operation that requires one.
	ErrZeroLiquidity = errors.New("zero liquidity")

	// ErrInvalidTicks means the requested range is malformed or falls
	// outside global bounds after alignment.
	ErrInvalidTicks = errors.New("invalid ticks")

	// ErrPoolNotInitialized means no pool exists yet for the configured
	// pair and fee tier.
	ErrPoolNotInitialized = errors.New("pool not initialized")

	// ErrNotOwner means the caller does not currently own the position.
	ErrNotOwner = errors.New("not position owner")

	// ErrInvalidPosition means the position's tokens or fee tier do not
	// match this engine's configured pair.
	ErrInvalidPosition = errors.New("position does not match configured pair")

	// ErrNoLiquidityAdded means the registry reported a zero liquidity
	// delta for an increase.
	ErrNoLiquidityAdded = errors.New("no liquidity added")

	// ErrNoLiquidityRemoved means a decrease produced no owed amounts.
	ErrNoLiquidityRemoved = errors.New("no liquidity removed")

	// ErrNothingToCollect means a collect swept zero of both assets.
	ErrNothingToCollect = errors.New("nothing to collect")

	// ErrExcessLiquidityRemoval means the requested removal exceeds the
	// position's current liquidity.
	ErrExcessLiquidityRemoval = errors.New("removal exceeds position liquidity")

	// ErrReentrancy means an entry point was invoked while another
	// operation on the same engine was in progress.
	ErrReentrancy = errors.New("reentrant call")
)
