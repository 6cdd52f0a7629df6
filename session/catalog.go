package session

import (
	"context"
	"log"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"eventbook-client/contracts"
	"eventbook-client/models"
)

// Catalog caches an artist's events and their terms. It is only ever replaced
// wholesale from the ledger; there is no local insert.
type Catalog struct {
	ledger Ledger
	limit  int

	// refreshMu serializes refreshes so one never overwrites another mid-flight.
	refreshMu sync.Mutex

	mu     sync.RWMutex
	artist common.Address
	events []models.Event
	loaded bool
}

func NewCatalog(ledger Ledger, concurrency int) *Catalog {
	return &Catalog{ledger: ledger, limit: concurrency}
}

// Refresh lists artist's events and reads every event's terms. The catalog is
// replaced only if every read succeeds and current, when non-nil, still holds at
// publish time; otherwise the previous catalog stays.
func (c *Catalog) Refresh(ctx context.Context, s *contracts.Session, artist common.Address, current func() bool) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	handles, err := c.ledger.ListArtistEvents(ctx, s, artist)
	if err != nil {
		log.Printf("Failed to list events for artist %s: %v", artist.Hex(), err)
		return err
	}

	events, err := fetchAll(ctx, len(handles), c.limit, func(ctx context.Context, i int) (models.Event, error) {
		terms, err := c.ledger.FetchEventTerms(ctx, s, handles[i])
		if err != nil {
			return models.Event{}, err
		}
		return models.Event{Address: handles[i], Terms: terms}, nil
	})
	if err != nil {
		log.Printf("Failed to refresh catalog for artist %s: %v", artist.Hex(), err)
		return err
	}

	c.mu.Lock()
	if current != nil && !current() {
		c.mu.Unlock()
		log.Printf("Dropping catalog for artist %s: session identity changed", artist.Hex())
		return errSuperseded("refresh catalog")
	}
	c.artist = artist
	c.events = events
	c.loaded = true
	c.mu.Unlock()

	log.Printf("Catalog refreshed for artist %s: %d events", artist.Hex(), len(events))
	return nil
}

// Events returns a copy of the cached events in ledger order.
func (c *Catalog) Events() []models.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Event{}, c.events...)
}

// Loaded reports whether a refresh has ever succeeded.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Catalog) Lookup(handle common.Address) (models.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ev := range c.events {
		if ev.Address == handle {
			return ev, true
		}
	}
	return models.Event{}, false
}

// Reset drops the cached catalog, e.g. when the connected identity changes.
// Refreshes still in flight are expected to fail their current check.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artist = common.Address{}
	c.events = nil
	c.loaded = false
}
