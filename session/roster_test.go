package session

import (
	"context"
	"errors"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eventbook-client/contracts"
	"eventbook-client/models"
)

func rosterEvent(hex string) models.Event {
	return models.Event{Address: common.HexToAddress(hex), Terms: models.EventTerms{Name: hex, TicketPrice: big.NewInt(1), SeatingCapacity: 100}}
}

func expectTickets(ledger *MockLedger, event common.Address, buyer common.Address, n int) {
	for i := 0; i < n; i++ {
		ledger.On("FetchTicket", mock.Anything, mock.Anything, event, int64(i)).
			Return(models.Ticket{ID: uint64(i), Buyer: buyer}, nil)
	}
}

func TestRosterSelectLoadsTicketsInOrder(t *testing.T) {
	ev := rosterEvent("0xe1")
	buyer := common.HexToAddress("0xb0b")
	ledger := new(MockLedger)
	ledger.On("FetchSoldCount", mock.Anything, mock.Anything, ev.Address).Return(uint64(5), nil)
	expectTickets(ledger, ev.Address, buyer, 5)

	roster := NewRoster(ledger, 2)
	require.NoError(t, roster.Select(context.Background(), &contracts.Session{}, ev, nil))

	selected, sold, tickets := roster.Snapshot()
	require.NotNil(t, selected)
	assert.Equal(t, ev.Address, selected.Address)
	assert.Equal(t, uint64(5), sold)
	require.Len(t, tickets, 5)
	for i, tk := range tickets {
		assert.Equal(t, uint64(i), tk.ID)
	}
}

func TestRosterRejectsMismatchedTicketID(t *testing.T) {
	ev := rosterEvent("0xe1")
	ledger := new(MockLedger)
	ledger.On("FetchSoldCount", mock.Anything, mock.Anything, ev.Address).Return(uint64(2), nil)
	ledger.On("FetchTicket", mock.Anything, mock.Anything, ev.Address, int64(0)).Return(models.Ticket{ID: 0}, nil)
	ledger.On("FetchTicket", mock.Anything, mock.Anything, ev.Address, int64(1)).Return(models.Ticket{ID: 7}, nil)

	roster := NewRoster(ledger, 4)
	err := roster.Select(context.Background(), &contracts.Session{}, ev, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, ok := roster.Selected()
	assert.False(t, ok)
}

func TestRosterFailedSelectKeepsPreviousSelection(t *testing.T) {
	a, b := rosterEvent("0xa1"), rosterEvent("0xb1")
	ledger := new(MockLedger)
	ledger.On("FetchSoldCount", mock.Anything, mock.Anything, a.Address).Return(uint64(1), nil)
	expectTickets(ledger, a.Address, common.HexToAddress("0x01"), 1)
	ledger.On("FetchSoldCount", mock.Anything, mock.Anything, b.Address).
		Return(uint64(0), models.NewError(models.KindConnectivity, "fetch sold count", "ledger unreachable", errors.New("eof")))

	roster := NewRoster(ledger, 4)
	ctx := context.Background()
	require.NoError(t, roster.Select(ctx, &contracts.Session{}, a, nil))
	assert.ErrorIs(t, roster.Select(ctx, &contracts.Session{}, b, nil), models.ErrConnectivity)

	selected, sold, tickets := roster.Snapshot()
	require.NotNil(t, selected)
	assert.Equal(t, a.Address, selected.Address)
	assert.Equal(t, uint64(1), sold)
	assert.Len(t, tickets, 1)
}

func TestRosterOverlappingSelectsDoNotMix(t *testing.T) {
	a, b := rosterEvent("0xa1"), rosterEvent("0xb1")
	buyerA, buyerB := common.HexToAddress("0xaa"), common.HexToAddress("0xbb")

	startedA := make(chan struct{})
	releaseA := make(chan struct{})
	ledger := new(MockLedger)
	ledger.On("FetchSoldCount", mock.Anything, mock.Anything, a.Address).
		Run(func(mock.Arguments) {
			close(startedA)
			<-releaseA
		}).
		Return(uint64(3), nil)
	expectTickets(ledger, a.Address, buyerA, 3)
	ledger.On("FetchSoldCount", mock.Anything, mock.Anything, b.Address).Return(uint64(2), nil)
	expectTickets(ledger, b.Address, buyerB, 2)

	roster := NewRoster(ledger, 4)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, roster.Select(ctx, &contracts.Session{}, a, nil))
	}()
	<-startedA
	go func() {
		defer wg.Done()
		assert.NoError(t, roster.Select(ctx, &contracts.Session{}, b, nil))
	}()
	close(releaseA)
	wg.Wait()

	selected, sold, tickets := roster.Snapshot()
	require.NotNil(t, selected)
	assert.Equal(t, b.Address, selected.Address)
	assert.Equal(t, uint64(2), sold)
	require.Len(t, tickets, 2)
	for _, tk := range tickets {
		assert.Equal(t, buyerB, tk.Buyer)
	}
}

func TestRosterClearSupersedesInFlightSelect(t *testing.T) {
	ev := rosterEvent("0xe1")
	started := make(chan struct{})
	release := make(chan struct{})
	ledger := new(MockLedger)
	ledger.On("FetchSoldCount", mock.Anything, mock.Anything, ev.Address).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(uint64(1), nil)
	expectTickets(ledger, ev.Address, common.HexToAddress("0x01"), 1)

	roster := NewRoster(ledger, 4)
	done := make(chan error, 1)
	go func() { done <- roster.Select(context.Background(), &contracts.Session{}, ev, nil) }()
	<-started
	roster.Clear()
	close(release)
	require.NoError(t, <-done)

	selected, sold, tickets := roster.Snapshot()
	assert.Nil(t, selected)
	assert.Zero(t, sold)
	assert.Empty(t, tickets)
}

func TestFetchAllPreservesOrder(t *testing.T) {
	got, err := fetchAll(context.Background(), 20, 3, func(_ context.Context, i int) (int, error) {
		return i * i, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, i*i, v)
	}

	empty, err := fetchAll(context.Background(), 0, 3, func(context.Context, int) (int, error) {
		return 0, errors.New("never called")
	})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFetchAllFailsAsAUnit(t *testing.T) {
	boom := errors.New("boom")
	got, err := fetchAll(context.Background(), 10, 4, func(_ context.Context, i int) (int, error) {
		if i == 6 {
			return 0, boom
		}
		return i, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestRosterRejectsImplausibleSoldCount(t *testing.T) {
	for name, sold := range map[string]uint64{
		"beyond capacity": 101,
		"beyond int":      math.MaxUint64,
	} {
		t.Run(name, func(t *testing.T) {
			ev := rosterEvent("0xe1")
			ledger := new(MockLedger)
			ledger.On("FetchSoldCount", mock.Anything, mock.Anything, ev.Address).Return(sold, nil)

			roster := NewRoster(ledger, 4)
			err := roster.Select(context.Background(), &contracts.Session{}, ev, nil)
			assert.ErrorIs(t, err, models.ErrNotFound)
			ledger.AssertNotCalled(t, "FetchTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			_, ok := roster.Selected()
			assert.False(t, ok)
		})
	}
}

func TestRosterDropsResultForReplacedSession(t *testing.T) {
	ev := rosterEvent("0xe1")
	ledger := new(MockLedger)
	ledger.On("FetchSoldCount", mock.Anything, mock.Anything, ev.Address).Return(uint64(1), nil)
	expectTickets(ledger, ev.Address, common.HexToAddress("0x01"), 1)

	roster := NewRoster(ledger, 4)
	err := roster.Select(context.Background(), &contracts.Session{}, ev, func() bool { return false })
	assert.ErrorIs(t, err, models.ErrConflict)

	selected, sold, tickets := roster.Snapshot()
	assert.Nil(t, selected)
	assert.Zero(t, sold)
	assert.Empty(t, tickets)
}
