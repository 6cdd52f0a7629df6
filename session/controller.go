package session

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"eventbook-client/contracts"
	"eventbook-client/models"
)

const defaultConcurrency = 8

// Controller drives one user session through
// Disconnected -> Connected -> CatalogLoaded -> EventSelected.
//
// Every mutation is followed by a full re-read of the aggregate it touched before
// the intent returns; the view is never updated speculatively. A failed intent
// leaves the state where it was.
type Controller struct {
	id      uuid.UUID
	ledger  Ledger
	backend contracts.Backend
	wallet  Wallet
	journal Recorder

	catalog *Catalog
	roster  *Roster

	// mutating guards the single in-flight createEvent/reserveTicket.
	mutating atomic.Bool
	// epoch changes whenever the connected identity does; results fetched under
	// an older epoch are never published.
	epoch atomic.Uint64

	mu      sync.RWMutex
	state   models.SessionState
	session *contracts.Session
}

type ControllerOption func(*controllerConfig)

type controllerConfig struct {
	concurrency int
	journal     Recorder
}

// WithConcurrency bounds the read fan-out of catalog and roster refreshes.
func WithConcurrency(n int) ControllerOption {
	return func(c *controllerConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRecorder sends an audit record for every mutating submission to r.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *controllerConfig) {
		c.journal = r
	}
}

// NewController creates a disconnected session. backend is the read capability
// handed to the gateway once the wallet connects.
func NewController(ledger Ledger, backend contracts.Backend, wallet Wallet, opts ...ControllerOption) *Controller {
	cfg := controllerConfig{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Controller{
		id:      uuid.New(),
		ledger:  ledger,
		backend: backend,
		wallet:  wallet,
		journal: cfg.journal,
		catalog: NewCatalog(ledger, cfg.concurrency),
		roster:  NewRoster(ledger, cfg.concurrency),
		state:   models.StateDisconnected,
	}
}

func (c *Controller) ID() uuid.UUID { return c.id }

func (c *Controller) State() models.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connect asks the wallet for a connection. A different identity than the one
// previously connected discards the cached catalog and selection.
func (c *Controller) Connect(ctx context.Context) error {
	if err := c.wallet.RequestConnection(ctx); err != nil {
		log.Printf("Wallet connection failed: %v", err)
		if models.KindOf(err) == models.KindUnknown {
			return models.NewError(models.KindAuthorization, "connect wallet", "connection denied", err)
		}
		return err
	}
	identity, ok := c.wallet.CurrentIdentity()
	if !ok {
		return models.NewError(models.KindAuthorization, "connect wallet", "wallet returned no identity", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Identity != identity {
		c.epoch.Add(1)
		c.catalog.Reset()
		c.roster.Clear()
		c.state = models.StateConnected
	}
	c.session = &contracts.Session{
		Backend:  c.backend,
		Identity: identity,
		Signer:   c.wallet.Signer(),
	}
	if c.state == models.StateDisconnected {
		c.state = models.StateConnected
	}
	log.Printf("Session %s connected as %s", c.id, identity.Hex())
	return nil
}

// LoadCatalog refreshes the connected artist's events.
func (c *Controller) LoadCatalog(ctx context.Context) error {
	const op = "load catalog"
	s, epoch, err := c.require(op, models.StateConnected)
	if err != nil {
		return err
	}
	if err := c.catalog.Refresh(ctx, s, s.Identity, c.current(epoch)); err != nil {
		return err
	}
	return c.afterCatalogRefresh(op, epoch)
}

// current reports whether the identity connected at epoch is still connected.
func (c *Controller) current(epoch uint64) func() bool {
	return func() bool { return c.epoch.Load() == epoch }
}

// afterCatalogRefresh advances to CatalogLoaded and drops a selection whose event
// is no longer in the catalog.
func (c *Controller) afterCatalogRefresh(op string, epoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch.Load() != epoch {
		return errSuperseded(op)
	}
	if selected, ok := c.roster.Selected(); ok {
		if _, still := c.catalog.Lookup(selected.Address); !still {
			c.roster.Clear()
			c.state = models.StateCatalogLoaded
			return nil
		}
	}
	if c.state < models.StateCatalogLoaded {
		c.state = models.StateCatalogLoaded
	}
	return nil
}

// SelectEvent loads the tickets of one catalog event.
func (c *Controller) SelectEvent(ctx context.Context, handle common.Address) error {
	const op = "select event"
	s, epoch, err := c.require(op, models.StateCatalogLoaded)
	if err != nil {
		return err
	}
	event, ok := c.catalog.Lookup(handle)
	if !ok {
		return models.NewError(models.KindNotFound, op, fmt.Sprintf("event %s is not in the catalog", handle.Hex()), nil)
	}

	if err := c.roster.Select(ctx, s, event, c.current(epoch)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch.Load() != epoch {
		return errSuperseded(op)
	}
	if _, ok := c.roster.Selected(); ok && c.state >= models.StateCatalogLoaded {
		c.state = models.StateEventSelected
	}
	return nil
}

// CreateEvent submits cmd for the connected artist and reloads the catalog.
func (c *Controller) CreateEvent(ctx context.Context, cmd models.CreateEventCommand) (models.Submission, error) {
	const op = "create event"
	if err := cmd.Validate(); err != nil {
		return models.Submission{}, err
	}
	s, epoch, err := c.require(op, models.StateCatalogLoaded)
	if err != nil {
		return models.Submission{}, err
	}
	if !s.CanSign() {
		return models.Submission{}, models.NewError(models.KindAuthorization, op, "connected wallet cannot sign", nil)
	}
	release, err := c.beginMutation(op)
	if err != nil {
		return models.Submission{}, err
	}
	defer release()

	// the artist is the connected identity
	sub, err := c.ledger.CreateEvent(ctx, s, s.Identity, cmd)
	c.record(ctx, s, models.SubmissionCreateEvent, sub, cmd.TicketPrice, err)
	if err != nil {
		return models.Submission{}, err
	}

	if err := c.catalog.Refresh(ctx, s, s.Identity, c.current(epoch)); err != nil {
		return sub, fmt.Errorf("event created in transaction %s but catalog refresh failed: %w", sub.TxHash.Hex(), err)
	}
	if err := c.afterCatalogRefresh(op, epoch); err != nil {
		return sub, fmt.Errorf("event created in transaction %s but catalog refresh failed: %w", sub.TxHash.Hex(), err)
	}
	return sub, nil
}

// PurchaseTicket reserves one ticket for the selected event, paying its current
// price, and reloads the roster.
func (c *Controller) PurchaseTicket(ctx context.Context, cmd models.PurchaseCommand) (models.Submission, error) {
	const op = "purchase ticket"
	if err := cmd.Validate(); err != nil {
		return models.Submission{}, err
	}
	s, epoch, err := c.require(op, models.StateEventSelected)
	if err != nil {
		return models.Submission{}, err
	}
	selected, ok := c.roster.Selected()
	if !ok || selected.Address != cmd.Event {
		return models.Submission{}, models.NewError(models.KindState, op, fmt.Sprintf("event %s is not selected", cmd.Event.Hex()), nil)
	}
	if !s.CanSign() {
		return models.Submission{}, models.NewError(models.KindAuthorization, op, "connected wallet cannot sign", nil)
	}
	release, err := c.beginMutation(op)
	if err != nil {
		return models.Submission{}, err
	}
	defer release()

	terms, err := c.ledger.FetchEventTerms(ctx, s, cmd.Event)
	if err != nil {
		return models.Submission{}, err
	}

	sub, err := c.ledger.ReserveTicket(ctx, s, cmd.Event, terms.TicketPrice)
	c.record(ctx, s, models.SubmissionReserveTicket, models.Submission{Event: cmd.Event, TxHash: sub.TxHash}, terms.TicketPrice, err)
	if err != nil {
		return models.Submission{}, err
	}

	event := models.Event{Address: cmd.Event, Terms: terms}
	if err := c.roster.RefreshAfterPurchase(ctx, s, event, c.current(epoch)); err != nil {
		return sub, fmt.Errorf("ticket reserved in transaction %s but roster refresh failed: %w", sub.TxHash.Hex(), err)
	}
	return sub, nil
}

// Balance returns the connected identity's balance of the selected event's token.
func (c *Controller) Balance(ctx context.Context) (common.Address, *big.Int, error) {
	s, _, err := c.require("fetch balance", models.StateEventSelected)
	if err != nil {
		return common.Address{}, nil, err
	}
	selected, ok := c.roster.Selected()
	if !ok {
		return common.Address{}, nil, models.NewError(models.KindState, "fetch balance", "no event selected", nil)
	}
	balance, err := c.ledger.FetchTokenBalance(ctx, s, selected.Terms.Token, s.Identity)
	if err != nil {
		return common.Address{}, nil, err
	}
	return selected.Terms.Token, balance, nil
}

// View returns a snapshot for rendering.
func (c *Controller) View() models.ViewState {
	c.mu.RLock()
	state := c.state
	var identity common.Address
	if c.session != nil {
		identity = c.session.Identity
	}
	c.mu.RUnlock()

	selected, sold, tickets := c.roster.Snapshot()
	return models.ViewState{
		SessionID: c.id,
		State:     state,
		Identity:  identity,
		Events:    c.catalog.Events(),
		Selected:  selected,
		SoldCount: sold,
		Tickets:   tickets,
	}
}

// require returns the current session and its identity epoch if the controller
// has reached at least min.
func (c *Controller) require(op string, min models.SessionState) (*contracts.Session, uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil || c.state == models.StateDisconnected {
		return nil, 0, models.NewError(models.KindAuthorization, op, "wallet not connected", nil)
	}
	if c.state < min {
		return nil, 0, models.NewError(models.KindState, op, fmt.Sprintf("requires %s, session is %s", min, c.state), nil)
	}
	return c.session, c.epoch.Load(), nil
}

func (c *Controller) beginMutation(op string) (func(), error) {
	if !c.mutating.CompareAndSwap(false, true) {
		return nil, models.NewError(models.KindConflict, op, "another submission is still pending", nil)
	}
	return func() { c.mutating.Store(false) }, nil
}

// record writes an audit entry. Journal failures are logged and never fail the intent.
func (c *Controller) record(ctx context.Context, s *contracts.Session, kind string, sub models.Submission, amount *big.Int, subErr error) {
	if c.journal == nil {
		return
	}
	rec := models.SubmissionRecord{
		ID:          uuid.New(),
		SessionID:   c.id,
		Kind:        kind,
		Identity:    s.Identity.Hex(),
		Status:      models.SubmissionConfirmed,
		Amount:      "0",
		SubmittedAt: time.Now().UTC(),
	}
	if amount != nil {
		rec.Amount = amount.String()
	}
	if sub.Event != (common.Address{}) {
		rec.EventAddress = sub.Event.Hex()
	}
	if sub.TxHash != (common.Hash{}) {
		rec.TransactionHash = sub.TxHash.Hex()
	}
	if subErr != nil {
		rec.Status = models.SubmissionFailed
		rec.Error = subErr.Error()
	}
	if err := c.journal.Record(ctx, rec); err != nil {
		log.Printf("Warning: failed to record %s submission: %v", kind, err)
	}
}
