package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRevisionClosed is returned when feedback is recorded on a revision that already has it.
var ErrRevisionClosed = errors.New("revision already has feedback")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the board repositories so a status change, its revision and
// the revision's assets can be committed together.
type Store interface {
	Tickets() TicketRepository
	Revisions() RevisionRepository
	Assets() RevisionAssetRepository
	// WithinTx runs fn against a transactional Store. Returning an error
	// rolls back every write made through it. Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewStore builds a Store over the pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Tickets() TicketRepository {
	return &ticketRepository{db: s.db}
}

func (s *pgStore) Revisions() RevisionRepository {
	return &revisionRepository{db: s.db}
}

func (s *pgStore) Assets() RevisionAssetRepository {
	return &revisionAssetRepository{db: s.db}
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgStore{pool: s.pool, db: tx, inTx: true})
	})
}
