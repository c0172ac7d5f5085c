// Package engine implements the position lifecycle: open, increase,
// decrease, and collect against a V3-style AMM, with strict ownership and
// pool-identity checks on every mutating call.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityKeeper/internal/amm"
	"liquidityKeeper/internal/notify"
	"liquidityKeeper/internal/tick"
	"liquidityKeeper/internal/token"
)

// Config fixes the engine's identity at construction. None of it is
// mutated afterwards.
type Config struct {
	Token0          common.Address
	Token1          common.Address
	Fee             uint32
	Custody         common.Address
	RegistryAddress common.Address

	Factory  amm.Factory
	Pools    amm.PoolReader
	Registry amm.Registry
	Assets   token.Transferer
	Sink     notify.Sink
	Logger   *zap.Logger
}

// Engine manages concentrated-liquidity positions for a single fixed
// token pair and fee tier.
type Engine struct {
	cfg    Config
	logger *zap.Logger
	busy   atomic.Bool
}

func New(cfg Config) (*Engine, error) {
	if cfg.Factory == nil || cfg.Pools == nil || cfg.Registry == nil || cfg.Assets == nil {
		return nil, fmt.Errorf("factory, pools, registry, and assets are required")
	}
	if cfg.Token0 == cfg.Token1 {
		return nil, fmt.Errorf("token0 and token1 must differ")
	}
	if cfg.Sink == nil {
		cfg.Sink = notify.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: cfg.Logger}, nil
}

// OpenParams describe a new position request.
type OpenParams struct {
	TickLower int32
	TickUpper int32
	Desired0  *big.Int
	Desired1  *big.Int
	Min0      *big.Int
	Min1      *big.Int
	Deadline  *big.Int
}

// OpenResult reports the minted position and the amounts the AMM consumed.
type OpenResult struct {
	PositionID *big.Int
	Liquidity  *big.Int
	Used0      *big.Int
	Used1      *big.Int
}

// IncreaseParams describe a liquidity top-up.
type IncreaseParams struct {
	PositionID *big.Int
	Desired0   *big.Int
	Desired1   *big.Int
	Min0       *big.Int
	Min1       *big.Int
	Deadline   *big.Int
}

// IncreaseResult reports the realized delta and consumed amounts.
type IncreaseResult struct {
	LiquidityDelta *big.Int
	Used0          *big.Int
	Used1          *big.Int
}

// DecreaseParams describe a liquidity removal.
type DecreaseParams struct {
	PositionID *big.Int
	Liquidity  *big.Int
	Min0       *big.Int
	Min1       *big.Int
	Deadline   *big.Int
}

// DecreaseResult reports the amounts now owed to the position.
type DecreaseResult struct {
	Owed0 *big.Int
	Owed1 *big.Int
}

// CollectParams describe an owed-balance sweep.
type CollectParams struct {
	PositionID *big.Int
	Recipient  common.Address
	Max0       *big.Int
	Max1       *big.Int
}

// CollectResult reports the amounts transferred to the recipient.
type CollectResult struct {
	Collected0 *big.Int
	Collected1 *big.Int
}

// Open aligns the requested range to the pool's tick spacing, pulls the
// desired amounts from the caller, and mints a new position. Unused
// amounts are refunded and both allowances are reset before returning.
func (e *Engine) Open(ctx context.Context, caller common.Address, p OpenParams) (OpenResult, error) {
	if err := e.acquire(); err != nil {
		return OpenResult{}, err
	}
	defer e.release()

	if isZero(p.Desired0) && isZero(p.Desired1) {
		return OpenResult{}, fmt.Errorf("open: %w", ErrZeroLiquidity)
	}

	// The requested range must already sit inside the global bounds:
	// alignment clamps at the extremes, and clamping a request that
	// extends past them would narrow the caller's stated exposure.
	requested := tick.Range{Lower: p.TickLower, Upper: p.TickUpper}
	if err := requested.Validate(); err != nil {
		return OpenResult{}, fmt.Errorf("open: %v: %w", err, ErrInvalidTicks)
	}

	pool, err := e.resolvePool(ctx)
	if err != nil {
		return OpenResult{}, err
	}

	spacing, err := e.cfg.Pools.TickSpacing(ctx, pool)
	if err != nil {
		return OpenResult{}, fmt.Errorf("read tick spacing: %w", err)
	}

	aligned, err := tick.AlignRange(requested, spacing)
	if err != nil {
		return OpenResult{}, fmt.Errorf("align range: %v: %w", err, ErrInvalidTicks)
	}
	if err := aligned.Validate(); err != nil {
		return OpenResult{}, fmt.Errorf("aligned range: %v: %w", err, ErrInvalidTicks)
	}

	if err := e.pullPair(ctx, caller, p.Desired0, p.Desired1); err != nil {
		return OpenResult{}, err
	}
	if err := e.authorizePair(ctx, p.Desired0, p.Desired1); err != nil {
		e.refundPair(ctx, caller, p.Desired0, p.Desired1)
		return OpenResult{}, err
	}

	minted, err := e.cfg.Registry.Mint(ctx, amm.MintParams{
		Token0:         e.cfg.Token0,
		Token1:         e.cfg.Token1,
		Fee:            e.cfg.Fee,
		TickLower:      aligned.Lower,
		TickUpper:      aligned.Upper,
		Amount0Desired: orZero(p.Desired0),
		Amount1Desired: orZero(p.Desired1),
		Amount0Min:     orZero(p.Min0),
		Amount1Min:     orZero(p.Min1),
		Recipient:      caller,
		Deadline:       orZero(p.Deadline),
	})
	if err != nil {
		e.clearAuthorizations(ctx)
		e.refundPair(ctx, caller, p.Desired0, p.Desired1)
		return OpenResult{}, fmt.Errorf("mint position: %w", err)
	}

	e.refundPair(ctx, caller, remainder(p.Desired0, minted.Used0), remainder(p.Desired1, minted.Used1))
	e.clearAuthorizations(ctx)

	e.logger.Info("position opened",
		zap.String("caller", caller.Hex()),
		zap.String("position_id", bigStr(minted.PositionID)),
		zap.Int32("tick_lower", aligned.Lower),
		zap.Int32("tick_upper", aligned.Upper),
		zap.String("liquidity", bigStr(minted.Liquidity)),
	)

	e.publish(ctx, caller, minted.PositionID, notify.KindMinted, notify.MintedData{
		TickLower: aligned.Lower,
		TickUpper: aligned.Upper,
		Liquidity: bigStr(minted.Liquidity),
		Used0:     bigStr(minted.Used0),
		Used1:     bigStr(minted.Used1),
	})

	return OpenResult{
		PositionID: minted.PositionID,
		Liquidity:  minted.Liquidity,
		Used0:      minted.Used0,
		Used1:      minted.Used1,
	}, nil
}

// IncreaseLiquidity adds to an existing position. The caller must own the
// position and its pool identity must match the engine's pair.
func (e *Engine) IncreaseLiquidity(ctx context.Context, caller common.Address, p IncreaseParams) (IncreaseResult, error) {
	if err := e.acquire(); err != nil {
		return IncreaseResult{}, err
	}
	defer e.release()

	if isZero(p.Desired0) && isZero(p.Desired1) {
		return IncreaseResult{}, fmt.Errorf("increase: %w", ErrZeroLiquidity)
	}
	if err := e.assertOwnership(ctx, p.PositionID, caller); err != nil {
		return IncreaseResult{}, err
	}
	if _, err := e.assertPoolIdentity(ctx, p.PositionID); err != nil {
		return IncreaseResult{}, err
	}

	if err := e.pullPair(ctx, caller, p.Desired0, p.Desired1); err != nil {
		return IncreaseResult{}, err
	}
	if err := e.authorizePair(ctx, p.Desired0, p.Desired1); err != nil {
		e.refundPair(ctx, caller, p.Desired0, p.Desired1)
		return IncreaseResult{}, err
	}

	added, err := e.cfg.Registry.IncreaseLiquidity(ctx, amm.IncreaseParams{
		PositionID:     p.PositionID,
		Amount0Desired: orZero(p.Desired0),
		Amount1Desired: orZero(p.Desired1),
		Amount0Min:     orZero(p.Min0),
		Amount1Min:     orZero(p.Min1),
		Deadline:       orZero(p.Deadline),
	})
	if err != nil {
		e.clearAuthorizations(ctx)
		e.refundPair(ctx, caller, p.Desired0, p.Desired1)
		return IncreaseResult{}, fmt.Errorf("increase liquidity: %w", err)
	}

	e.refundPair(ctx, caller, remainder(p.Desired0, added.Used0), remainder(p.Desired1, added.Used1))
	e.clearAuthorizations(ctx)

	if isZero(added.Liquidity) {
		return IncreaseResult{}, fmt.Errorf("position %s: %w", bigStr(p.PositionID), ErrNoLiquidityAdded)
	}

	e.logger.Info("liquidity increased",
		zap.String("caller", caller.Hex()),
		zap.String("position_id", bigStr(p.PositionID)),
		zap.String("liquidity_delta", bigStr(added.Liquidity)),
	)

	e.publish(ctx, caller, p.PositionID, notify.KindIncreased, notify.IncreasedData{
		LiquidityDelta: bigStr(added.Liquidity),
		Used0:          bigStr(added.Used0),
		Used1:          bigStr(added.Used1),
	})

	return IncreaseResult{
		LiquidityDelta: added.Liquidity,
		Used0:          added.Used0,
		Used1:          added.Used1,
	}, nil
}

// DecreaseLiquidity converts part of a position's liquidity into owed
// amounts. Nothing is transferred; a later Collect sweeps the owed
// balance, so a caller can decrease now and batch collection later.
func (e *Engine) DecreaseLiquidity(ctx context.Context, caller common.Address, p DecreaseParams) (DecreaseResult, error) {
	if err := e.acquire(); err != nil {
		return DecreaseResult{}, err
	}
	defer e.release()

	if isZero(p.Liquidity) {
		return DecreaseResult{}, fmt.Errorf("decrease: %w", ErrZeroLiquidity)
	}
	if err := e.assertOwnership(ctx, p.PositionID, caller); err != nil {
		return DecreaseResult{}, err
	}
	info, err := e.assertPoolIdentity(ctx, p.PositionID)
	if err != nil {
		return DecreaseResult{}, err
	}
	if orZero(p.Liquidity).Cmp(orZero(info.Liquidity)) > 0 {
		return DecreaseResult{}, fmt.Errorf("position %s holds %s: %w",
			bigStr(p.PositionID), bigStr(info.Liquidity), ErrExcessLiquidityRemoval)
	}

	removed, err := e.cfg.Registry.DecreaseLiquidity(ctx, amm.DecreaseParams{
		PositionID: p.PositionID,
		Liquidity:  p.Liquidity,
		Amount0Min: orZero(p.Min0),
		Amount1Min: orZero(p.Min1),
		Deadline:   orZero(p.Deadline),
	})
	if err != nil {
		return DecreaseResult{}, fmt.Errorf("decrease liquidity: %w", err)
	}
	if isZero(removed.Owed0) && isZero(removed.Owed1) {
		return DecreaseResult{}, fmt.Errorf("position %s: %w", bigStr(p.PositionID), ErrNoLiquidityRemoved)
	}

	e.logger.Info("liquidity decreased",
		zap.String("caller", caller.Hex()),
		zap.String("position_id", bigStr(p.PositionID)),
		zap.String("liquidity_removed", bigStr(p.Liquidity)),
	)

	e.publish(ctx, caller, p.PositionID, notify.KindDecreased, notify.DecreasedData{
		LiquidityRemoved: bigStr(p.Liquidity),
		Owed0:            bigStr(removed.Owed0),
		Owed1:            bigStr(removed.Owed1),
	})

	return DecreaseResult{Owed0: removed.Owed0, Owed1: removed.Owed1}, nil
}

// Collect sweeps up to Max0/Max1 of the position's owed balance to the
// recipient. Caps let a caller take fees while leaving principal owed.
func (e *Engine) Collect(ctx context.Context, caller common.Address, p CollectParams) (CollectResult, error) {
	if err := e.acquire(); err != nil {
		return CollectResult{}, err
	}
	defer e.release()

	if err := e.assertOwnership(ctx, p.PositionID, caller); err != nil {
		return CollectResult{}, err
	}
	if _, err := e.assertPoolIdentity(ctx, p.PositionID); err != nil {
		return CollectResult{}, err
	}

	collected, err := e.cfg.Registry.Collect(ctx, amm.CollectParams{
		PositionID: p.PositionID,
		Recipient:  p.Recipient,
		Amount0Max: orZero(p.Max0),
		Amount1Max: orZero(p.Max1),
	})
	if err != nil {
		return CollectResult{}, fmt.Errorf("collect: %w", err)
	}
	if isZero(collected.Collected0) && isZero(collected.Collected1) {
		return CollectResult{}, fmt.Errorf("position %s: %w", bigStr(p.PositionID), ErrNothingToCollect)
	}

	e.logger.Info("position collected",
		zap.String("caller", caller.Hex()),
		zap.String("position_id", bigStr(p.PositionID)),
		zap.String("recipient", p.Recipient.Hex()),
		zap.String("collected0", bigStr(collected.Collected0)),
		zap.String("collected1", bigStr(collected.Collected1)),
	)

	e.publish(ctx, caller, p.PositionID, notify.KindCollected, notify.CollectedData{
		Recipient:  p.Recipient.Hex(),
		Collected0: bigStr(collected.Collected0),
		Collected1: bigStr(collected.Collected1),
	})

	return CollectResult{Collected0: collected.Collected0, Collected1: collected.Collected1}, nil
}

func (e *Engine) acquire() error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	return nil
}

func (e *Engine) release() {
	e.busy.Store(false)
}

func (e *Engine) resolvePool(ctx context.Context) (common.Address, error) {
	pool, err := e.cfg.Factory.PoolFor(ctx, e.cfg.Token0, e.cfg.Token1, e.cfg.Fee)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve pool: %w", err)
	}
	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("pair %s/%s fee %d: %w",
			e.cfg.Token0.Hex(), e.cfg.Token1.Hex(), e.cfg.Fee, ErrPoolNotInitialized)
	}
	return pool, nil
}

// assertOwnership re-reads current ownership from the registry. Ownership
// is transferable, so it is never cached across calls.
func (e *Engine) assertOwnership(ctx context.Context, positionID *big.Int, caller common.Address) error {
	owner, err := e.cfg.Registry.OwnerOf(ctx, positionID)
	if err != nil {
		return fmt.Errorf("read position owner: %w", err)
	}
	if owner != caller {
		return fmt.Errorf("position %s owned by %s: %w", bigStr(positionID), owner.Hex(), ErrNotOwner)
	}
	return nil
}

// assertPoolIdentity re-reads the position record and checks it belongs
// to this engine's pair and fee tier.
func (e *Engine) assertPoolIdentity(ctx context.Context, positionID *big.Int) (amm.PositionInfo, error) {
	info, err := e.cfg.Registry.Position(ctx, positionID)
	if err != nil {
		return amm.PositionInfo{}, fmt.Errorf("read position: %w", err)
	}
	if info.Token0 != e.cfg.Token0 || info.Token1 != e.cfg.Token1 || info.Fee != e.cfg.Fee {
		return amm.PositionInfo{}, fmt.Errorf("position %s: %w", bigStr(positionID), ErrInvalidPosition)
	}
	return info, nil
}

// pullPair moves the nonzero desired amounts from the caller into engine
// custody. If the second pull fails the first is refunded, so a failed
// call never strands caller funds.
func (e *Engine) pullPair(ctx context.Context, caller common.Address, amount0, amount1 *big.Int) error {
	if !isZero(amount0) {
		if err := e.cfg.Assets.PullFrom(ctx, e.cfg.Token0, caller, e.cfg.Custody, amount0); err != nil {
			return fmt.Errorf("pull token0: %w", err)
		}
	}
	if !isZero(amount1) {
		if err := e.cfg.Assets.PullFrom(ctx, e.cfg.Token1, caller, e.cfg.Custody, amount1); err != nil {
			if !isZero(amount0) {
				e.refund(ctx, e.cfg.Token0, caller, amount0)
			}
			return fmt.Errorf("pull token1: %w", err)
		}
	}
	return nil
}

// authorizePair grants the registry an exact allowance for each nonzero
// amount. Allowances are never unbounded.
func (e *Engine) authorizePair(ctx context.Context, amount0, amount1 *big.Int) error {
	if !isZero(amount0) {
		if err := e.cfg.Assets.AuthorizeExact(ctx, e.cfg.Token0, e.cfg.RegistryAddress, amount0); err != nil {
			return fmt.Errorf("authorize token0: %w", err)
		}
	}
	if !isZero(amount1) {
		if err := e.cfg.Assets.AuthorizeExact(ctx, e.cfg.Token1, e.cfg.RegistryAddress, amount1); err != nil {
			return fmt.Errorf("authorize token1: %w", err)
		}
	}
	return nil
}

// clearAuthorizations resets both allowances to zero. A residual
// allowance would be a latent privilege the registry could spend later.
func (e *Engine) clearAuthorizations(ctx context.Context) {
	if err := e.cfg.Assets.AuthorizeExact(ctx, e.cfg.Token0, e.cfg.RegistryAddress, big.NewInt(0)); err != nil {
		e.logger.Warn("reset token0 allowance", zap.Error(err))
	}
	if err := e.cfg.Assets.AuthorizeExact(ctx, e.cfg.Token1, e.cfg.RegistryAddress, big.NewInt(0)); err != nil {
		e.logger.Warn("reset token1 allowance", zap.Error(err))
	}
}

func (e *Engine) refundPair(ctx context.Context, to common.Address, amount0, amount1 *big.Int) {
	if !isZero(amount0) {
		e.refund(ctx, e.cfg.Token0, to, amount0)
	}
	if !isZero(amount1) {
		e.refund(ctx, e.cfg.Token1, to, amount1)
	}
}

func (e *Engine) refund(ctx context.Context, asset, to common.Address, amount *big.Int) {
	if err := e.cfg.Assets.Push(ctx, asset, to, amount); err != nil {
		e.logger.Error("refund failed",
			zap.String("asset", asset.Hex()),
			zap.String("to", to.Hex()),
			zap.String("amount", bigStr(amount)),
			zap.Error(err),
		)
	}
}

func (e *Engine) publish(ctx context.Context, caller common.Address, positionID *big.Int, kind notify.Kind, data interface{}) {
	n := notify.Notification{
		Kind:       kind,
		Caller:     caller.Hex(),
		PositionID: bigStr(positionID),
		EmittedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Data:       data,
	}
	if err := e.cfg.Sink.Publish(ctx, n); err != nil {
		e.logger.Warn("publish notification", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

func bigStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// remainder returns desired-used, clamped to zero.
func remainder(desired, used *big.Int) *big.Int {
	rem := new(big.Int).Sub(orZero(desired), orZero(used))
	if rem.Sign() < 0 {
		return big.NewInt(0)
	}
	return rem
}
