package token

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"liquidityKeeper/internal/chain"
)

const erc20ABIJSON = `[
  {"inputs": [{"type": "address"}, {"type": "address"}, {"type": "uint256"}], "name": "transferFrom", "outputs": [{"type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"type": "address"}, {"type": "uint256"}], "name": "approve", "outputs": [{"type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"type": "address"}, {"type": "uint256"}], "name": "transfer", "outputs": [{"type": "bool"}], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// ERC20Transferer moves ERC-20 balances through signed transactions. The
// engine's custody address is the client's signing address.
type ERC20Transferer struct {
	client *chain.Client
}

func NewERC20Transferer(client *chain.Client) *ERC20Transferer {
	return &ERC20Transferer{client: client}
}

// PullFrom moves amount from owner to destination via transferFrom. The
// owner must have approved the custody address beforehand.
func (t *ERC20Transferer) PullFrom(ctx context.Context, asset, owner, destination common.Address, amount *big.Int) error {
	return t.send(ctx, asset, "transferFrom", owner, destination, amount)
}

// AuthorizeExact sets the spender's allowance to exactly amount.
func (t *ERC20Transferer) AuthorizeExact(ctx context.Context, asset, spender common.Address, amount *big.Int) error {
	return t.send(ctx, asset, "approve", spender, amount)
}

// Push transfers amount out of custody to destination.
func (t *ERC20Transferer) Push(ctx context.Context, asset, destination common.Address, amount *big.Int) error {
	return t.send(ctx, asset, "transfer", destination, amount)
}

func (t *ERC20Transferer) send(ctx context.Context, asset common.Address, method string, args ...interface{}) error {
	tokenABI, err := erc20ABIInstance()
	if err != nil {
		return fmt.Errorf("parse erc20 abi: %w", err)
	}

	input, err := tokenABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	if _, err := t.client.Transact(ctx, asset, input, nil); err != nil {
		return fmt.Errorf("%s on %s: %w", method, asset.Hex(), err)
	}
	return nil
}
