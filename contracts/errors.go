package contracts

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"eventbook-client/models"
)

// JSON-RPC error code nodes use for "execution reverted".
const revertErrorCode = 3

var (
	errNoContract       = errors.New("empty result from contract call")
	errUnexpectedResult = errors.New("unexpected contract result")
	errTxReverted       = errors.New("transaction reverted")
	errSignerDeclined   = errors.New("signer declined transaction")
)

// classifyRead maps a failed view call onto the error taxonomy. Reverts and
// addresses without code mean the handle or index does not exist; anything the
// node did not answer is a connectivity failure.
func classifyRead(op string, err error) error {
	switch {
	case errors.Is(err, errNoContract), errors.Is(err, errUnexpectedResult):
		return models.NewError(models.KindNotFound, op, "data unavailable", err)
	case isRevert(err):
		return models.NewError(models.KindNotFound, op, revertReason(err), err)
	default:
		return models.NewError(models.KindConnectivity, op, "ledger unreachable", err)
	}
}

// classifyWrite maps a failed transaction onto the error taxonomy. Anything the
// node answered with an error object is a rejection.
func classifyWrite(op string, err error) error {
	var rpcErr rpc.Error
	switch {
	case errors.Is(err, errSignerDeclined):
		return models.NewError(models.KindAuthorization, op, "signer declined", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.NewError(models.KindConnectivity, op, "stopped waiting for confirmation", err)
	case errors.Is(err, errTxReverted):
		return models.NewError(models.KindSubmission, op, "rejected by ledger", err)
	case isRevert(err), errors.As(err, &rpcErr):
		return models.NewError(models.KindSubmission, op, revertReason(err), err)
	default:
		return models.NewError(models.KindConnectivity, op, "ledger unreachable", err)
	}
}

func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// revertReason decodes the Error(string) payload of a revert when the node returned one.
func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(s); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
		return dataErr.Error()
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Error()
	}
	return "execution reverted"
}
