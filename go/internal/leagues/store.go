package leagues

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/models"
)

// Querier is the query surface shared by the pool and open transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store handles all league-related database operations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new league store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Reader returns the pool-backed query surface for reads outside a transaction.
func (s *Store) Reader() Querier {
	return s.pool
}

const leagueColumns = `id, name, mode, status, season, commissioner_user_id, created_at, updated_at`

func scanLeague(row pgx.Row) (*models.League, error) {
	var l models.League
	err := row.Scan(&l.ID, &l.Name, &l.Mode, &l.Status, &l.Season, &l.CommissionerUserID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound(errs.CodeLeagueNotFound, "league not found")
		}
		return nil, fmt.Errorf("failed to scan league: %w", err)
	}
	return &l, nil
}

// GetLeague retrieves a league by ID.
func (s *Store) GetLeague(ctx context.Context, q Querier, id int64) (*models.League, error) {
	row := q.QueryRow(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1`, id)
	return scanLeague(row)
}

// RequireMember returns Forbidden unless the user owns a roster in the league
// or is its commissioner.
func (s *Store) RequireMember(ctx context.Context, q Querier, leagueID, userID int64) error {
	var ok bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rosters WHERE league_id = $1 AND user_id = $2
		) OR EXISTS (
			SELECT 1 FROM leagues WHERE id = $1 AND commissioner_user_id = $2
		)`, leagueID, userID,
	).Scan(&ok)
	if err != nil {
		return fmt.Errorf("failed to check league membership: %w", err)
	}
	if !ok {
		return errs.Forbidden(errs.CodeNotLeagueMember, "user %d is not a member of league %d", userID, leagueID)
	}
	return nil
}

// RequireCommissioner returns Forbidden unless the user is the league's
// commissioner.
func (s *Store) RequireCommissioner(ctx context.Context, q Querier, leagueID, userID int64) error {
	league, err := s.GetLeague(ctx, q, leagueID)
	if err != nil {
		return err
	}
	if league.CommissionerUserID != userID {
		return errs.Forbidden(errs.CodeNotCommissioner, "user %d is not the commissioner of league %d", userID, leagueID)
	}
	return nil
}

// SetStatus flips the league's lifecycle status inside the caller's
// transaction.
func (s *Store) SetStatus(ctx context.Context, tx pgx.Tx, leagueID int64, status models.LeagueStatus) error {
	tag, err := tx.Exec(ctx,
		`UPDATE leagues SET status = $2, updated_at = now() WHERE id = $1`,
		leagueID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update league status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.CodeLeagueNotFound, "league not found")
	}
	return nil
}
