package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openleague/draftroom/go/internal/errs"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx. Mutating
// methods take pgx.Tx so nothing can write outside the caller's transaction;
// reads take a Querier and run against whichever handle the caller holds.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the typed persistence layer for the draft aggregate: drafts,
// order, picks, pick assets, selections, queues, chess clocks, operation
// records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Reader returns the pool as a Querier for reads outside any transaction.
// Values read this way are hints; authoritative reads happen under the DRAFT
// lock.
func (s *Store) Reader() Querier {
	return s.pool
}

// Unique constraint names, shared with the schema.
const (
	constraintPickNumber     = "ux_draft_picks_draft_pick_number"
	constraintPickPlayer     = "ux_draft_picks_draft_player"
	constraintPickIdemKey    = "ux_draft_picks_roster_idem_key"
	constraintSelectionAsset = "ux_vet_selections_draft_asset"
	constraintSelectionPick  = "ux_vet_selections_draft_pick_number"
)

// mapUniqueViolation turns a unique-constraint failure into the domain
// conflict it signals. A lost optimistic race is a client-visible CONFLICT,
// not an internal error.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintPickNumber:
		return errs.Conflict(errs.CodePickAlreadyMade, "pick number already consumed")
	case constraintPickPlayer:
		return errs.Conflict(errs.CodePlayerAlreadyDrafted, "player already drafted")
	case constraintSelectionAsset:
		return errs.Conflict(errs.CodeAssetAlreadySelected, "pick asset already selected")
	case constraintSelectionPick:
		return errs.Conflict(errs.CodePickAlreadyMade, "pick number already consumed")
	}
	return err
}
