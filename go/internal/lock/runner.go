package lock

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Domain namespaces advisory lock keys so different entity families never
// contend. Exactly one domain is held at a time; there is no nested locking.
type Domain uint8

const (
	DomainDraft Domain = 1
)

// Key packs (domain, id) into the int64 key space of pg_advisory_xact_lock.
// Ids must stay below 2^56.
func Key(domain Domain, id int64) int64 {
	return int64(domain)<<56 | (id & 0x00FFFFFFFFFFFFFF)
}

// Beginner starts transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Runner is the single entry point for the per-entity critical section: it
// opens a transaction, takes the transaction-scoped advisory lock, runs fn,
// and commits or rolls back. The lock is released with the transaction.
type Runner struct {
	db Beginner
}

func NewRunner(db Beginner) *Runner {
	return &Runner{db: db}
}

// WithLock executes fn inside a transaction that exclusively holds the
// (domain, id) lock. If fn returns an error the tx rolls back, else it commits.
func (r *Runner) WithLock(ctx context.Context, domain Domain, id int64, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", Key(domain, id)); err != nil {
		return fmt.Errorf("failed to acquire %d/%d advisory lock: %w", domain, id, err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithTx executes fn inside a plain transaction, for writes outside any lock
// domain.
func (r *Runner) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
