package contracts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// transact signs and sends one transaction, then waits for its receipt. A context
// deadline only stops the wait; a sent transaction cannot be recalled.
func (g *Gateway) transact(ctx context.Context, s *Session, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}

	chainID, err := s.Backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	nonce, err := s.Backend.PendingNonceAt(ctx, s.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce for %s: %w", s.Identity.Hex(), err)
	}

	gas, err := s.Backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.Identity,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas = uint64(float64(gas) * g.gasMultiplier)

	head, err := s.Backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	var txData types.TxData
	if head.BaseFee != nil {
		tip, err := s.Backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas tip cap: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		txData = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      data,
		}
	} else {
		gasPrice, err := s.Backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		txData = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &to,
			Value:    value,
			Data:     data,
		}
	}

	signed, err := s.Signer(s.Identity, types.NewTx(txData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSignerDeclined, err)
	}

	if err := s.Backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	log.Printf("Submitted transaction %s to %s (nonce %d, gas %d)", signed.Hash().Hex(), to.Hex(), nonce, gas)

	receipt, err := g.waitMined(ctx, s.Backend, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s: %w", signed.Hash().Hex(), errTxReverted)
	}

	log.Printf("Transaction %s confirmed in block %v", signed.Hash().Hex(), receipt.BlockNumber)
	return receipt, nil
}

func (g *Gateway) waitMined(ctx context.Context, backend Backend, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(g.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stopped waiting for transaction %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
