package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eventbook-client/contracts"
	"eventbook-client/models"
)

func TestCatalogKeepsLedgerOrder(t *testing.T) {
	artist := common.HexToAddress("0xa11ce")
	handles := []common.Address{common.HexToAddress("0x03"), common.HexToAddress("0x01"), common.HexToAddress("0x02")}
	ledger := new(MockLedger)
	ledger.On("ListArtistEvents", mock.Anything, mock.Anything, artist).Return(handles, nil)
	for _, h := range handles {
		ledger.On("FetchEventTerms", mock.Anything, mock.Anything, h).Return(models.EventTerms{Name: h.Hex()}, nil)
	}

	catalog := NewCatalog(ledger, 2)
	require.NoError(t, catalog.Refresh(context.Background(), &contracts.Session{}, artist, nil))

	events := catalog.Events()
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, handles[i], ev.Address)
		assert.Equal(t, handles[i].Hex(), ev.Terms.Name)
	}
	assert.True(t, catalog.Loaded())
}

func TestCatalogListFailureKeepsPrevious(t *testing.T) {
	artist := common.HexToAddress("0xa11ce")
	handle := common.HexToAddress("0x01")
	ledger := new(MockLedger)
	ledger.On("ListArtistEvents", mock.Anything, mock.Anything, artist).Return([]common.Address{handle}, nil).Once()
	ledger.On("ListArtistEvents", mock.Anything, mock.Anything, artist).
		Return(nil, models.NewError(models.KindConnectivity, "list artist events", "ledger unreachable", errors.New("dial tcp"))).Once()
	ledger.On("FetchEventTerms", mock.Anything, mock.Anything, handle).Return(models.EventTerms{Name: "Gala"}, nil)

	catalog := NewCatalog(ledger, 4)
	ctx := context.Background()
	require.NoError(t, catalog.Refresh(ctx, &contracts.Session{}, artist, nil))
	assert.ErrorIs(t, catalog.Refresh(ctx, &contracts.Session{}, artist, nil), models.ErrConnectivity)

	events := catalog.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Gala", events[0].Terms.Name)
}

func TestCatalogEventsIsACopy(t *testing.T) {
	artist := common.HexToAddress("0xa11ce")
	handle := common.HexToAddress("0x01")
	ledger := new(MockLedger)
	ledger.On("ListArtistEvents", mock.Anything, mock.Anything, artist).Return([]common.Address{handle}, nil)
	ledger.On("FetchEventTerms", mock.Anything, mock.Anything, handle).Return(models.EventTerms{Name: "Gala"}, nil)

	catalog := NewCatalog(ledger, 4)
	require.NoError(t, catalog.Refresh(context.Background(), &contracts.Session{}, artist, nil))

	events := catalog.Events()
	events[0].Terms.Name = "changed"
	got, ok := catalog.Lookup(handle)
	require.True(t, ok)
	assert.Equal(t, "Gala", got.Terms.Name)

	catalog.Reset()
	assert.False(t, catalog.Loaded())
	assert.Empty(t, catalog.Events())
}

func TestCatalogRefreshesDoNotOverlap(t *testing.T) {
	artist := common.HexToAddress("0xa11ce")
	first, second := common.HexToAddress("0x01"), common.HexToAddress("0x02")

	started := make(chan struct{})
	release := make(chan struct{})
	var secondListed atomic.Bool
	ledger := new(MockLedger)
	ledger.On("ListArtistEvents", mock.Anything, mock.Anything, artist).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]common.Address{first}, nil).Once()
	ledger.On("ListArtistEvents", mock.Anything, mock.Anything, artist).
		Run(func(mock.Arguments) { secondListed.Store(true) }).
		Return([]common.Address{first, second}, nil).Once()
	ledger.On("FetchEventTerms", mock.Anything, mock.Anything, first).Return(models.EventTerms{Name: "first"}, nil)
	ledger.On("FetchEventTerms", mock.Anything, mock.Anything, second).Return(models.EventTerms{Name: "second"}, nil)

	catalog := NewCatalog(ledger, 4)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, catalog.Refresh(ctx, &contracts.Session{}, artist, nil))
	}()
	<-started
	go func() {
		defer wg.Done()
		assert.NoError(t, catalog.Refresh(ctx, &contracts.Session{}, artist, nil))
	}()

	// the second refresh waits for the first to finish
	assert.Never(t, secondListed.Load, 50*time.Millisecond, 5*time.Millisecond)
	close(release)
	wg.Wait()

	events := catalog.Events()
	require.Len(t, events, 2)
	assert.Equal(t, first, events[0].Address)
	assert.Equal(t, "first", events[0].Terms.Name)
	assert.Equal(t, second, events[1].Address)
	assert.Equal(t, "second", events[1].Terms.Name)
	ledger.AssertNumberOfCalls(t, "ListArtistEvents", 2)
}

func TestCatalogDropsResultForReplacedSession(t *testing.T) {
	artist := common.HexToAddress("0xa11ce")
	handle := common.HexToAddress("0x01")
	ledger := new(MockLedger)
	ledger.On("ListArtistEvents", mock.Anything, mock.Anything, artist).Return([]common.Address{handle}, nil)
	ledger.On("FetchEventTerms", mock.Anything, mock.Anything, handle).Return(models.EventTerms{Name: "Gala"}, nil)

	catalog := NewCatalog(ledger, 4)
	err := catalog.Refresh(context.Background(), &contracts.Session{}, artist, func() bool { return false })
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.False(t, catalog.Loaded())
	assert.Empty(t, catalog.Events())
}
