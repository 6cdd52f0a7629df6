package models

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CreateEventCommand is the artist's intent to create a new event. Amounts are in wei.
type CreateEventCommand struct {
	Name               string
	TicketPrice        *big.Int
	SeatingCapacity    int64
	CancellationCharge *big.Int
	Token              common.Address
}

// Validate checks the command before anything is sent to the ledger.
func (c CreateEventCommand) Validate() error {
	const op = "create event"
	switch {
	case strings.TrimSpace(c.Name) == "":
		return NewError(KindValidation, op, "event name is required", nil)
	case c.TicketPrice == nil || c.TicketPrice.Sign() < 0:
		return NewError(KindValidation, op, "ticket price must be zero or greater", nil)
	case c.SeatingCapacity < 1:
		return NewError(KindValidation, op, "seating capacity must be at least 1", nil)
	case c.CancellationCharge == nil || c.CancellationCharge.Sign() < 0:
		return NewError(KindValidation, op, "cancellation charge must be zero or greater", nil)
	case c.Token == (common.Address{}):
		return NewError(KindValidation, op, "token address is required", nil)
	}
	return nil
}

// Terms returns the event terms the ledger is expected to store for this command.
func (c CreateEventCommand) Terms() EventTerms {
	return EventTerms{
		Name:               c.Name,
		TicketPrice:        new(big.Int).Set(c.TicketPrice),
		SeatingCapacity:    uint64(c.SeatingCapacity),
		CancellationCharge: new(big.Int).Set(c.CancellationCharge),
		Token:              c.Token,
	}
}

// PurchaseCommand is a buyer's intent to reserve one ticket for an event.
type PurchaseCommand struct {
	Event common.Address
}

func (c PurchaseCommand) Validate() error {
	if c.Event == (common.Address{}) {
		return NewError(KindValidation, "purchase ticket", "event address is required", nil)
	}
	return nil
}
