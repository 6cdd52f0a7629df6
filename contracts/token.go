package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TokenContract wraps the ERC20 token an event settles in
type TokenContract struct {
	backend Backend
	address common.Address
	abi     abi.ABI
}

func NewTokenContract(backend Backend, address common.Address, parsed abi.ABI) *TokenContract {
	return &TokenContract{
		backend: backend,
		address: address,
		abi:     parsed,
	}
}

// BalanceOf calls balanceOf(holder) on the token contract
func (tc *TokenContract) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	out, err := callView(ctx, tc.backend, tc.abi, tc.address, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: %w", errUnexpectedResult)
	}
	return balance, nil
}
