package journal

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"eventbook-client/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS ledger_submissions (
		id               UUID PRIMARY KEY,
		session_id       UUID NOT NULL,
		kind             TEXT NOT NULL,
		identity         TEXT NOT NULL,
		event_address    TEXT NOT NULL DEFAULT '',
		transaction_hash TEXT NOT NULL DEFAULT '',
		amount           TEXT NOT NULL DEFAULT '0',
		status           TEXT NOT NULL,
		error            TEXT NOT NULL DEFAULT '',
		submitted_at     TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS ledger_submissions_identity_idx
		ON ledger_submissions (identity, submitted_at DESC);
`

const maxLimit = 200

// Journal is an append-only audit log of mutating submissions. Nothing in it is
// ever read back into session state.
type Journal struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Journal {
	return &Journal{db: db}
}

// Connect opens a pool and checks it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("Successfully connected to the database!")
	return pool, nil
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create submissions table: %w", err)
	}
	return nil
}

func (j *Journal) Record(ctx context.Context, rec models.SubmissionRecord) error {
	query := `
		INSERT INTO ledger_submissions (id, session_id, kind, identity, event_address, transaction_hash, amount, status, error, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := j.db.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.Kind,
		rec.Identity,
		rec.EventAddress,
		rec.TransactionHash,
		rec.Amount,
		rec.Status,
		rec.Error,
		rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission %s: %w", rec.ID, err)
	}
	return nil
}

// Filter narrows Recent. Empty fields match everything.
type Filter struct {
	Identity string
	Kind     string
	Limit    int
}

// EffectiveLimit is the row cap Recent applies: Limit when within (0, 200], otherwise 50.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > maxLimit {
		return 50
	}
	return f.Limit
}

// Recent returns matching submissions, newest first.
func (j *Journal) Recent(ctx context.Context, f Filter) ([]models.SubmissionRecord, error) {
	query, args := recentQuery(f)

	rows, err := j.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	records := []models.SubmissionRecord{}
	for rows.Next() {
		var rec models.SubmissionRecord
		err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Kind,
			&rec.Identity,
			&rec.EventAddress,
			&rec.TransactionHash,
			&rec.Amount,
			&rec.Status,
			&rec.Error,
			&rec.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}
	return records, nil
}

func recentQuery(f Filter) (string, []interface{}) {
	query := `
		SELECT id, session_id, kind, identity, event_address, transaction_hash, amount, status, error, submitted_at
		FROM ledger_submissions
		WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if f.Identity != "" {
		query += " AND identity = $" + strconv.Itoa(argIndex)
		args = append(args, f.Identity)
		argIndex++
	}

	if f.Kind != "" {
		query += " AND kind = $" + strconv.Itoa(argIndex)
		args = append(args, f.Kind)
		argIndex++
	}

	query += " ORDER BY submitted_at DESC LIMIT $" + strconv.Itoa(argIndex)
	args = append(args, f.EffectiveLimit())
	return query, args
}
