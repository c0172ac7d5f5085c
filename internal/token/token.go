// Package token defines the reserve-asset transfer primitive the engine
// uses to move balances between the caller, its own custody, and the AMM.
package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transferer moves and authorizes reserve-asset balances.
type Transferer interface {
	// PullFrom moves amount of asset from owner to destination. Fails if
	// the owner's balance or prior authorization is insufficient.
	PullFrom(ctx context.Context, asset, owner, destination common.Address, amount *big.Int) error

	// AuthorizeExact sets spender's allowance on asset to exactly amount.
	// Never grants an unbounded allowance.
	AuthorizeExact(ctx context.Context, asset, spender common.Address, amount *big.Int) error

	// Push transfers amount of asset out of engine custody to destination.
	Push(ctx context.Context, asset, destination common.Address, amount *big.Int) error
}
