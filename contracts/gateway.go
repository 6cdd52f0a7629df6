package contracts

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"eventbook-client/models"
)

const (
	defaultGasMultiplier = 1.2
	defaultReceiptPoll   = 2 * time.Second
)

// Gateway translates session intents into EventFactory and Event contract calls.
// It holds no ledger state and never retries.
type Gateway struct {
	factory       common.Address
	factoryABI    abi.ABI
	eventABI      abi.ABI
	tokenABI      abi.ABI
	gasMultiplier float64
	receiptPoll   time.Duration
}

type Option func(*Gateway)

// WithGasMultiplier scales the node's gas estimate before signing.
func WithGasMultiplier(m float64) Option {
	return func(g *Gateway) {
		if m >= 1 {
			g.gasMultiplier = m
		}
	}
}

// WithReceiptPollInterval sets how often receipts are polled while waiting for confirmation.
func WithReceiptPollInterval(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.receiptPoll = d
		}
	}
}

// NewGateway creates a Gateway for the EventFactory deployed at factory
func NewGateway(factory common.Address, opts ...Option) (*Gateway, error) {
	factoryABI, err := abi.JSON(strings.NewReader(EventFactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse event factory ABI: %w", err)
	}
	eventABI, err := abi.JSON(strings.NewReader(EventABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse event ABI: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	g := &Gateway{
		factory:       factory,
		factoryABI:    factoryABI,
		eventABI:      eventABI,
		tokenABI:      tokenABI,
		gasMultiplier: defaultGasMultiplier,
		receiptPoll:   defaultReceiptPoll,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ListArtistEvents returns the handles of every event owned by artist. An artist
// with no events yields an empty slice.
func (g *Gateway) ListArtistEvents(ctx context.Context, s *Session, artist common.Address) ([]common.Address, error) {
	const op = "list artist events"
	if s == nil || s.Backend == nil {
		return nil, models.NewError(models.KindConnectivity, op, "no ledger connection", nil)
	}

	handles, err := NewFactoryContract(s.Backend, g.factory, g.factoryABI).ArtistEvents(ctx, artist)
	if err != nil {
		return nil, classifyRead(op, err)
	}
	if handles == nil {
		handles = []common.Address{}
	}
	return handles, nil
}

// FetchEventTerms reads the terms of one event
func (g *Gateway) FetchEventTerms(ctx context.Context, s *Session, handle common.Address) (models.EventTerms, error) {
	const op = "fetch event terms"
	if s == nil || s.Backend == nil {
		return models.EventTerms{}, models.NewError(models.KindConnectivity, op, "no ledger connection", nil)
	}

	terms, err := NewEventContract(s.Backend, handle, g.eventABI).EventData(ctx)
	if err != nil {
		return models.EventTerms{}, classifyRead(op, fmt.Errorf("event %s: %w", handle.Hex(), err))
	}
	return terms, nil
}

// FetchSoldCount reads how many tickets an event has sold
func (g *Gateway) FetchSoldCount(ctx context.Context, s *Session, handle common.Address) (uint64, error) {
	const op = "fetch sold count"
	if s == nil || s.Backend == nil {
		return 0, models.NewError(models.KindConnectivity, op, "no ledger connection", nil)
	}

	sold, err := NewEventContract(s.Backend, handle, g.eventABI).TotalTicketsSold(ctx)
	if err != nil {
		return 0, classifyRead(op, fmt.Errorf("event %s: %w", handle.Hex(), err))
	}
	return sold, nil
}

// FetchTicket reads one ticket by its index. The ledger rejects indexes at or
// beyond the sold count.
func (g *Gateway) FetchTicket(ctx context.Context, s *Session, handle common.Address, index int64) (models.Ticket, error) {
	const op = "fetch ticket"
	if index < 0 {
		return models.Ticket{}, models.NewError(models.KindNotFound, op, fmt.Sprintf("ticket index %d out of range", index), nil)
	}
	if s == nil || s.Backend == nil {
		return models.Ticket{}, models.NewError(models.KindConnectivity, op, "no ledger connection", nil)
	}

	ticket, err := NewEventContract(s.Backend, handle, g.eventABI).Ticket(ctx, uint64(index))
	if err != nil {
		return models.Ticket{}, classifyRead(op, fmt.Errorf("event %s ticket %d: %w", handle.Hex(), index, err))
	}
	return ticket, nil
}

// FetchTokenBalance reads holder's balance of an ERC20 token
func (g *Gateway) FetchTokenBalance(ctx context.Context, s *Session, token, holder common.Address) (*big.Int, error) {
	const op = "fetch token balance"
	if s == nil || s.Backend == nil {
		return nil, models.NewError(models.KindConnectivity, op, "no ledger connection", nil)
	}

	balance, err := NewTokenContract(s.Backend, token, g.tokenABI).BalanceOf(ctx, holder)
	if err != nil {
		return nil, classifyRead(op, fmt.Errorf("token %s: %w", token.Hex(), err))
	}
	return balance, nil
}

// CreateEvent submits a new event for artist and waits for the ledger to confirm it.
// The command is validated before anything is sent.
func (g *Gateway) CreateEvent(ctx context.Context, s *Session, artist common.Address, cmd models.CreateEventCommand) (models.Submission, error) {
	const op = "create event"
	if err := cmd.Validate(); err != nil {
		return models.Submission{}, err
	}
	if !s.CanSign() {
		return models.Submission{}, models.NewError(models.KindAuthorization, op, "no connected signer", nil)
	}

	factory := NewFactoryContract(s.Backend, g.factory, g.factoryABI)
	callData, err := factory.CreateEventData(artist, cmd)
	if err != nil {
		return models.Submission{}, models.NewError(models.KindValidation, op, "malformed parameters", err)
	}

	log.Printf("Creating event %q for artist %s", cmd.Name, artist.Hex())
	receipt, err := g.transact(ctx, s, g.factory, nil, callData)
	if err != nil {
		log.Printf("Failed to create event %q: %v", cmd.Name, err)
		return models.Submission{}, classifyWrite(op, err)
	}

	eventAddress, err := factory.CreatedEvent(receipt, artist)
	if err != nil {
		return models.Submission{}, models.NewError(models.KindSubmission, op, "confirmed without an event address", err)
	}

	log.Printf("Successfully created event %s in transaction %s", eventAddress.Hex(), receipt.TxHash.Hex())
	return submissionFrom(eventAddress, receipt.TxHash, receipt.BlockNumber), nil
}

// ReserveTicket submits a purchase carrying payment wei and waits for confirmation
func (g *Gateway) ReserveTicket(ctx context.Context, s *Session, handle common.Address, payment *big.Int) (models.Submission, error) {
	const op = "reserve ticket"
	if payment == nil || payment.Sign() < 0 {
		return models.Submission{}, models.NewError(models.KindValidation, op, "payment must be zero or greater", nil)
	}
	if !s.CanSign() {
		return models.Submission{}, models.NewError(models.KindAuthorization, op, "no connected signer", nil)
	}

	callData, err := NewEventContract(s.Backend, handle, g.eventABI).ReserveTicketData()
	if err != nil {
		return models.Submission{}, models.NewError(models.KindValidation, op, "malformed parameters", err)
	}

	log.Printf("Reserving ticket for event %s, payment %s wei, buyer %s", handle.Hex(), payment, s.Identity.Hex())
	receipt, err := g.transact(ctx, s, handle, payment, callData)
	if err != nil {
		log.Printf("Failed to reserve ticket for event %s: %v", handle.Hex(), err)
		return models.Submission{}, classifyWrite(op, err)
	}

	log.Printf("Successfully reserved ticket for event %s in transaction %s", handle.Hex(), receipt.TxHash.Hex())
	return submissionFrom(handle, receipt.TxHash, receipt.BlockNumber), nil
}

func submissionFrom(event common.Address, txHash common.Hash, block *big.Int) models.Submission {
	sub := models.Submission{Event: event, TxHash: txHash}
	if block != nil && block.IsUint64() {
		sub.BlockNumber = block.Uint64()
	}
	return sub
}

func bigFromInt64(v int64) *big.Int {
	return big.NewInt(v)
}
