package session

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"eventbook-client/contracts"
	"eventbook-client/models"
)

// MockLedger mocks the gateway
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) ListArtistEvents(ctx context.Context, s *contracts.Session, artist common.Address) ([]common.Address, error) {
	args := m.Called(ctx, s, artist)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]common.Address), args.Error(1)
}

func (m *MockLedger) FetchEventTerms(ctx context.Context, s *contracts.Session, handle common.Address) (models.EventTerms, error) {
	args := m.Called(ctx, s, handle)
	return args.Get(0).(models.EventTerms), args.Error(1)
}

func (m *MockLedger) CreateEvent(ctx context.Context, s *contracts.Session, artist common.Address, cmd models.CreateEventCommand) (models.Submission, error) {
	args := m.Called(ctx, s, artist, cmd)
	return args.Get(0).(models.Submission), args.Error(1)
}

func (m *MockLedger) FetchSoldCount(ctx context.Context, s *contracts.Session, handle common.Address) (uint64, error) {
	args := m.Called(ctx, s, handle)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) FetchTicket(ctx context.Context, s *contracts.Session, handle common.Address, index int64) (models.Ticket, error) {
	args := m.Called(ctx, s, handle, index)
	return args.Get(0).(models.Ticket), args.Error(1)
}

func (m *MockLedger) ReserveTicket(ctx context.Context, s *contracts.Session, handle common.Address, payment *big.Int) (models.Submission, error) {
	args := m.Called(ctx, s, handle, payment)
	return args.Get(0).(models.Submission), args.Error(1)
}

func (m *MockLedger) FetchTokenBalance(ctx context.Context, s *contracts.Session, token, holder common.Address) (*big.Int, error) {
	args := m.Called(ctx, s, token, holder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

// MockWallet mocks the wallet connection
type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) RequestConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockWallet) CurrentIdentity() (common.Address, bool) {
	args := m.Called()
	return args.Get(0).(common.Address), args.Bool(1)
}

func (m *MockWallet) Signer() bind.SignerFn {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(bind.SignerFn)
}

// MockRecorder mocks the submission journal
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, rec models.SubmissionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
