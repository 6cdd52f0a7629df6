package session

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"eventbook-client/contracts"
	"eventbook-client/models"
)

// Ledger is the gateway surface the session needs. *contracts.Gateway implements it.
type Ledger interface {
	ListArtistEvents(ctx context.Context, s *contracts.Session, artist common.Address) ([]common.Address, error)
	FetchEventTerms(ctx context.Context, s *contracts.Session, handle common.Address) (models.EventTerms, error)
	CreateEvent(ctx context.Context, s *contracts.Session, artist common.Address, cmd models.CreateEventCommand) (models.Submission, error)
	FetchSoldCount(ctx context.Context, s *contracts.Session, handle common.Address) (uint64, error)
	FetchTicket(ctx context.Context, s *contracts.Session, handle common.Address, index int64) (models.Ticket, error)
	ReserveTicket(ctx context.Context, s *contracts.Session, handle common.Address, payment *big.Int) (models.Submission, error)
	FetchTokenBalance(ctx context.Context, s *contracts.Session, token, holder common.Address) (*big.Int, error)
}

// Wallet supplies the connected identity and, optionally, a signer.
type Wallet interface {
	RequestConnection(ctx context.Context) error
	CurrentIdentity() (common.Address, bool)
	Signer() bind.SignerFn
}

// Recorder receives an audit entry for every mutating submission.
type Recorder interface {
	Record(ctx context.Context, rec models.SubmissionRecord) error
}

var _ Ledger = (*contracts.Gateway)(nil)

func errSuperseded(op string) error {
	return models.NewError(models.KindConflict, op, "session identity changed while the request was in flight", nil)
}

// fetchAll runs fetch for indexes 0..n-1 with at most limit in flight and
// returns the results in index order. Nothing is returned unless every fetch succeeds.
func fetchAll[T any](ctx context.Context, n, limit int, fetch func(ctx context.Context, i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	if n == 0 {
		return out, nil
	}
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			v, err := fetch(gctx, i)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
