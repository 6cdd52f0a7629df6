package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Submission kinds
const (
	SubmissionCreateEvent   = "CREATE_EVENT"
	SubmissionReserveTicket = "RESERVE_TICKET"
)

// Submission status constants
const (
	SubmissionConfirmed = "CONFIRMED"
	SubmissionFailed    = "FAILED"
)

// Submission is what the ledger returned for one confirmed mutating transaction
type Submission struct {
	Event       common.Address `json:"event_address"`
	TxHash      common.Hash    `json:"transaction_hash"`
	BlockNumber uint64         `json:"block_number"`
}

// SubmissionRecord is an audit entry for one mutating intent sent to the ledger
type SubmissionRecord struct {
	ID              uuid.UUID `json:"id" db:"id"`
	SessionID       uuid.UUID `json:"session_id" db:"session_id"`
	Kind            string    `json:"kind" db:"kind"`
	Identity        string    `json:"identity" db:"identity"`
	EventAddress    string    `json:"event_address" db:"event_address"`
	TransactionHash string    `json:"transaction_hash" db:"transaction_hash"`
	Amount          string    `json:"amount" db:"amount"`
	Status          string    `json:"status" db:"status"`
	Error           string    `json:"error,omitempty" db:"error"`
	SubmittedAt     time.Time `json:"submitted_at" db:"submitted_at"`
}
