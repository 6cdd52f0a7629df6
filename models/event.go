package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventTerms represents the on-chain terms of one event, as returned by getEventData()
type EventTerms struct {
	Name               string         `json:"name"`
	TicketPrice        *big.Int       `json:"ticket_price"`
	SeatingCapacity    uint64         `json:"seating_capacity"`
	CancellationCharge *big.Int       `json:"cancellation_charge"`
	Token              common.Address `json:"token_address"`
}

// Event is one artist-hosted event contract and its cached terms
type Event struct {
	Address common.Address `json:"address"`
	Terms   EventTerms     `json:"terms"`
}

// Ticket represents one reservation against an event. IDs are dense and 0-based per event.
type Ticket struct {
	ID       uint64         `json:"ticket_id"`
	Buyer    common.Address `json:"buyer"`
	Attended bool           `json:"attended"`
}

// Equal reports whether two sets of terms carry the same values.
func (t EventTerms) Equal(o EventTerms) bool {
	return t.Name == o.Name &&
		cmpAmount(t.TicketPrice, o.TicketPrice) == 0 &&
		t.SeatingCapacity == o.SeatingCapacity &&
		cmpAmount(t.CancellationCharge, o.CancellationCharge) == 0 &&
		t.Token == o.Token
}

func cmpAmount(a, b *big.Int) int {
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	return a.Cmp(b)
}
