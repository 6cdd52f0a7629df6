package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// SessionState is the position of a session in its lifecycle.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateCatalogLoaded
	StateEventSelected
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateCatalogLoaded:
		return "CATALOG_LOADED"
	case StateEventSelected:
		return "EVENT_SELECTED"
	default:
		return "DISCONNECTED"
	}
}

// ViewState is the snapshot of ledger data the presentation layer renders.
type ViewState struct {
	SessionID uuid.UUID      `json:"session_id"`
	State     SessionState   `json:"state"`
	Identity  common.Address `json:"identity"`
	Events    []Event        `json:"events"`
	Selected  *Event         `json:"selected,omitempty"`
	SoldCount uint64         `json:"sold_count"`
	Tickets   []Ticket       `json:"tickets"`
}
