package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"eventbook-client/models"
)

// EventContract wraps the per-event contract interactions
type EventContract struct {
	backend Backend
	address common.Address
	abi     abi.ABI
}

// NewEventContract binds an event contract at address
func NewEventContract(backend Backend, address common.Address, parsed abi.ABI) *EventContract {
	return &EventContract{
		backend: backend,
		address: address,
		abi:     parsed,
	}
}

// EventData calls getEventData() on the event contract
func (ec *EventContract) EventData(ctx context.Context) (models.EventTerms, error) {
	out, err := callView(ctx, ec.backend, ec.abi, ec.address, "getEventData")
	if err != nil {
		return models.EventTerms{}, err
	}
	if len(out) != 5 {
		return models.EventTerms{}, fmt.Errorf("getEventData returned %d values: %w", len(out), errUnexpectedResult)
	}

	name, okName := out[0].(string)
	price, okPrice := out[1].(*big.Int)
	capacity, okCapacity := out[2].(*big.Int)
	charge, okCharge := out[3].(*big.Int)
	token, okToken := out[4].(common.Address)
	if !okName || !okPrice || !okCapacity || !okCharge || !okToken {
		return models.EventTerms{}, fmt.Errorf("getEventData: %w", errUnexpectedResult)
	}
	if !capacity.IsUint64() {
		return models.EventTerms{}, fmt.Errorf("seating capacity %s out of range: %w", capacity, errUnexpectedResult)
	}

	return models.EventTerms{
		Name:               name,
		TicketPrice:        price,
		SeatingCapacity:    capacity.Uint64(),
		CancellationCharge: charge,
		Token:              token,
	}, nil
}

// TotalTicketsSold calls totalTicketsSold() on the event contract
func (ec *EventContract) TotalTicketsSold(ctx context.Context) (uint64, error) {
	out, err := callView(ctx, ec.backend, ec.abi, ec.address, "totalTicketsSold")
	if err != nil {
		return 0, err
	}
	sold, ok := out[0].(*big.Int)
	if !ok || !sold.IsUint64() {
		return 0, fmt.Errorf("totalTicketsSold: %w", errUnexpectedResult)
	}
	return sold.Uint64(), nil
}

// Ticket calls tickets(index) on the event contract
func (ec *EventContract) Ticket(ctx context.Context, index uint64) (models.Ticket, error) {
	out, err := callView(ctx, ec.backend, ec.abi, ec.address, "tickets", new(big.Int).SetUint64(index))
	if err != nil {
		return models.Ticket{}, err
	}
	if len(out) != 3 {
		return models.Ticket{}, fmt.Errorf("tickets returned %d values: %w", len(out), errUnexpectedResult)
	}

	id, okID := out[0].(*big.Int)
	buyer, okBuyer := out[1].(common.Address)
	attended, okAttended := out[2].(bool)
	if !okID || !okBuyer || !okAttended || !id.IsUint64() {
		return models.Ticket{}, fmt.Errorf("tickets: %w", errUnexpectedResult)
	}

	return models.Ticket{
		ID:       id.Uint64(),
		Buyer:    buyer,
		Attended: attended,
	}, nil
}

// ReserveTicketData packs the payable reserveTicket() call
func (ec *EventContract) ReserveTicketData() ([]byte, error) {
	callData, err := ec.abi.Pack("reserveTicket")
	if err != nil {
		return nil, fmt.Errorf("failed to pack reserveTicket call data: %w", err)
	}
	return callData, nil
}

// callView packs method, calls it against to and unpacks the outputs
func callView(ctx context.Context, backend Backend, parsed abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	callData, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call data: %w", method, err)
	}

	result, err := backend.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%s at %s: %w", method, to.Hex(), errNoContract)
	}

	out, err := parsed.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %v: %w", method, err, errUnexpectedResult)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values: %w", method, errUnexpectedResult)
	}
	return out, nil
}
