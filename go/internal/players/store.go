package players

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

// Store handles all player-related database operations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new player store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Reader returns the pool-backed query surface for reads outside a transaction.
func (s *Store) Reader() Querier {
	return s.pool
}

const playerColumns = `id, external_id, full_name, class, position, team, years_exp, adp, active, created_at`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(
		&p.ID,
		&p.ExternalID,
		&p.FullName,
		&p.Class,
		&p.Position,
		&p.Team,
		&p.YearsExp,
		&p.ADP,
		&p.Active,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound(errs.CodePlayerNotFound, "player not found")
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return &p, nil
}

// GetPlayer retrieves a player by ID.
func (s *Store) GetPlayer(ctx context.Context, q Querier, id int64) (*models.Player, error) {
	row := q.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

// GetPlayerByExternalID retrieves a player by its upstream feed identifier.
func (s *Store) GetPlayerByExternalID(ctx context.Context, q Querier, externalID string) (*models.Player, error) {
	row := q.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE external_id = $1`, externalID)
	return scanPlayer(row)
}

// GetPlayersByIDs retrieves the given players keyed by ID. Missing IDs are
// simply absent from the result.
func (s *Store) GetPlayersByIDs(ctx context.Context, q Querier, ids []int64) (map[int64]*models.Player, error) {
	out := make(map[int64]*models.Player, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := q.Query(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query players by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read players by ids: %w", err)
	}
	return out, nil
}

// poolPredicate maps a pool to its SQL membership test over the players table.
func poolPredicate(pool models.PlayerPool) (string, error) {
	switch pool {
	case models.PlayerPoolVeteran:
		return `(class = 'NFL' AND (years_exp IS NULL OR years_exp > 0))`, nil
	case models.PlayerPoolRookie:
		return `(class = 'NFL' AND years_exp = 0)`, nil
	case models.PlayerPoolCollege:
		return `(class = 'COLLEGE')`, nil
	default:
		return "", errs.Validation(errs.CodePoolIneligible, "unknown player pool: %s", pool)
	}
}

func poolFilter(pools []models.PlayerPool) (string, error) {
	if len(pools) == 0 {
		pools = []models.PlayerPool{models.PlayerPoolVeteran, models.PlayerPoolRookie}
	}
	preds := make([]string, 0, len(pools))
	for _, p := range pools {
		pred, err := poolPredicate(p)
		if err != nil {
			return "", err
		}
		preds = append(preds, pred)
	}
	return "(" + strings.Join(preds, " OR ") + ")", nil
}

// ListAvailable returns undrafted, active, pool-eligible players in ADP order.
// Unranked players sort after ranked ones, ties break on ID for a stable
// board.
func (s *Store) ListAvailable(ctx context.Context, q Querier, draftID int64, pools []models.PlayerPool, limit int) ([]models.Player, error) {
	filter, err := poolFilter(pools)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + playerColumns + `
		FROM players
		WHERE active = TRUE
		  AND ` + filter + `
		  AND NOT EXISTS (
			SELECT 1 FROM draft_picks dp
			WHERE dp.draft_id = $1 AND dp.player_id = players.id
		  )
		ORDER BY adp ASC NULLS LAST, id ASC
		LIMIT $2`

	rows, err := q.Query(ctx, query, draftID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query available players: %w", err)
	}
	defer rows.Close()

	var out []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read available players: %w", err)
	}
	return out, nil
}

// BestAvailable returns the top-ranked undrafted player for the given pools,
// nil when every eligible player has been taken.
func (s *Store) BestAvailable(ctx context.Context, q Querier, draftID int64, pools []models.PlayerPool) (*models.Player, error) {
	list, err := s.ListAvailable(ctx, q, draftID, pools, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// UpsertPlayerRequest contains all data needed to create or refresh a player.
type UpsertPlayerRequest struct {
	ExternalID string
	FullName   string
	Class      string
	Position   string
	Team       *string
	YearsExp   *int
	ADP        *float64
	Active     bool
}

// UpsertPlayers writes a batch of players in one round trip. Rows are
// keyed by external ID; existing rows get their profile and ADP
// refreshed. The batch runs in a single implicit transaction, so a
// failed row rolls back the whole call. Used by the seed tooling and
// feed refreshes.
func (s *Store) UpsertPlayers(ctx context.Context, reqs []UpsertPlayerRequest) error {
	batch := &pgx.Batch{}
	for _, req := range reqs {
		batch.Queue(`
			INSERT INTO players (external_id, full_name, class, position, team, years_exp, adp, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (external_id) DO UPDATE SET
				full_name = EXCLUDED.full_name,
				class = EXCLUDED.class,
				position = EXCLUDED.position,
				team = EXCLUDED.team,
				years_exp = EXCLUDED.years_exp,
				adp = EXCLUDED.adp,
				active = EXCLUDED.active`,
			req.ExternalID,
			req.FullName,
			req.Class,
			req.Position,
			req.Team,
			req.YearsExp,
			req.ADP,
			req.Active,
		)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for _, req := range reqs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert player %s: %w", req.ExternalID, err)
		}
	}
	return results.Close()
}
