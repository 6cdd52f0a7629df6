package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"eventbook-client/contracts"
	"eventbook-client/models"
)

// Roster caches the tickets of the selected event. The exposed ticket slice always
// has exactly soldCount entries with IDs 0..soldCount-1.
type Roster struct {
	ledger Ledger
	limit  int

	// fetchMu serializes roster fetches.
	fetchMu sync.Mutex

	mu        sync.RWMutex
	initiated uint64
	published uint64
	event     *models.Event
	soldCount uint64
	tickets   []models.Ticket
}

func NewRoster(ledger Ledger, concurrency int) *Roster {
	return &Roster{ledger: ledger, limit: concurrency}
}

// maxRosterTickets bounds how many tickets one roster will fetch.
const maxRosterTickets = 1 << 20

// Select loads event's sold count and tickets and publishes them as one unit.
// When selections overlap, the most recently initiated one that succeeds wins:
// a result is dropped if a newer selection has already been published. current,
// when non-nil, must still hold at publish time.
func (r *Roster) Select(ctx context.Context, s *contracts.Session, event models.Event, current func() bool) error {
	r.mu.Lock()
	r.initiated++
	gen := r.initiated
	r.mu.Unlock()

	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()

	sold, tickets, err := r.fetch(ctx, s, event)
	if err != nil {
		log.Printf("Failed to load tickets for event %s: %v", event.Address.Hex(), err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if current != nil && !current() {
		log.Printf("Dropping roster for event %s: session identity changed", event.Address.Hex())
		return errSuperseded("select event")
	}
	if gen < r.published {
		log.Printf("Dropping superseded roster for event %s", event.Address.Hex())
		return nil
	}
	ev := event
	r.event = &ev
	r.soldCount = sold
	r.tickets = tickets
	r.published = gen
	return nil
}

// RefreshAfterPurchase reloads the roster after a confirmed reservation.
func (r *Roster) RefreshAfterPurchase(ctx context.Context, s *contracts.Session, event models.Event, current func() bool) error {
	return r.Select(ctx, s, event, current)
}

func (r *Roster) fetch(ctx context.Context, s *contracts.Session, event models.Event) (uint64, []models.Ticket, error) {
	sold, err := r.ledger.FetchSoldCount(ctx, s, event.Address)
	if err != nil {
		return 0, nil, err
	}
	if sold > event.Terms.SeatingCapacity || sold > maxRosterTickets {
		return 0, nil, models.NewError(models.KindNotFound, "fetch sold count",
			fmt.Sprintf("ledger reports %d tickets sold for capacity %d", sold, event.Terms.SeatingCapacity), nil)
	}

	tickets, err := fetchAll(ctx, int(sold), r.limit, func(ctx context.Context, i int) (models.Ticket, error) {
		ticket, err := r.ledger.FetchTicket(ctx, s, event.Address, int64(i))
		if err != nil {
			return models.Ticket{}, err
		}
		if ticket.ID != uint64(i) {
			return models.Ticket{}, models.NewError(models.KindNotFound, "fetch ticket",
				fmt.Sprintf("ledger returned ticket %d at index %d", ticket.ID, i), nil)
		}
		return ticket, nil
	})
	if err != nil {
		return 0, nil, err
	}
	return sold, tickets, nil
}

// Selected returns the event the roster currently describes.
func (r *Roster) Selected() (models.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.event == nil {
		return models.Event{}, false
	}
	return *r.event, true
}

// Snapshot returns the selected event, its sold count and a copy of its tickets.
func (r *Roster) Snapshot() (*models.Event, uint64, []models.Ticket) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.event == nil {
		return nil, 0, []models.Ticket{}
	}
	ev := *r.event
	return &ev, r.soldCount, append([]models.Ticket{}, r.tickets...)
}

// Clear drops the selection. Selections already in flight are superseded.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initiated++
	r.published = r.initiated
	r.event = nil
	r.soldCount = 0
	r.tickets = nil
}
