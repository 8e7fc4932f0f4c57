package rosters

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

// Store handles all roster-related database operations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new roster store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Reader returns the pool-backed query surface for reads outside a transaction.
func (s *Store) Reader() Querier {
	return s.pool
}

const rosterColumns = `id, league_id, name, user_id, created_at`

func scanRoster(row pgx.Row) (*models.Roster, error) {
	var r models.Roster
	err := row.Scan(&r.ID, &r.LeagueID, &r.Name, &r.UserID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound(errs.CodeRosterNotFound, "roster not found")
		}
		return nil, fmt.Errorf("failed to scan roster: %w", err)
	}
	return &r, nil
}

// GetRoster retrieves a roster by ID. A nil UserID marks an orphaned roster
// whose turns the scheduler picks immediately.
func (s *Store) GetRoster(ctx context.Context, q Querier, id int64) (*models.Roster, error) {
	row := q.QueryRow(ctx, `SELECT `+rosterColumns+` FROM rosters WHERE id = $1`, id)
	return scanRoster(row)
}

// ListByLeague returns the league's rosters ordered by ID.
func (s *Store) ListByLeague(ctx context.Context, q Querier, leagueID int64) ([]models.Roster, error) {
	rows, err := q.Query(ctx, `SELECT `+rosterColumns+` FROM rosters WHERE league_id = $1 ORDER BY id`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rosters: %w", err)
	}
	defer rows.Close()

	var out []models.Roster
	for rows.Next() {
		r, err := scanRoster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rosters: %w", err)
	}
	return out, nil
}

// GetByLeagueAndUser resolves the roster a user drafts with in a league, nil
// when the user owns none there.
func (s *Store) GetByLeagueAndUser(ctx context.Context, q Querier, leagueID, userID int64) (*models.Roster, error) {
	var r models.Roster
	err := q.QueryRow(ctx,
		`SELECT `+rosterColumns+` FROM rosters WHERE league_id = $1 AND user_id = $2 ORDER BY id LIMIT 1`,
		leagueID, userID,
	).Scan(&r.ID, &r.LeagueID, &r.Name, &r.UserID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve user roster: %w", err)
	}
	return &r, nil
}

// PopulateFromDraftPicks copies a completed draft's player picks into
// roster_players at week 0 of the given season. Reciprocal matchup rows and
// asset selections carry no player and are skipped. Runs inside the
// completing pick's transaction.
func (s *Store) PopulateFromDraftPicks(ctx context.Context, tx pgx.Tx, draftID int64, season int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO roster_players (roster_id, player_id, season, week, acquisition_type, acquired_at)
		SELECT dp.roster_id, dp.player_id, $2, 0, $3, now()
		FROM draft_picks dp
		WHERE dp.draft_id = $1 AND dp.pick_number > 0 AND dp.player_id IS NOT NULL
		ON CONFLICT (roster_id, player_id, season, week) DO NOTHING`,
		draftID, season, models.AcquisitionTypeDraft,
	)
	if err != nil {
		return fmt.Errorf("failed to populate rosters from draft picks: %w", err)
	}
	return nil
}
