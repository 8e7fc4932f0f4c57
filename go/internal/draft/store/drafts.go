package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/models"
)

const draftColumns = `id, league_id, draft_type, status, rounds, pick_time_seconds,
	current_pick, current_round, current_roster_id, pick_deadline, scheduled_start,
	order_confirmed, settings, draft_state, overnight_pause_enabled,
	overnight_pause_start, overnight_pause_end, overnight_pause_timezone,
	started_at, completed_at, created_at, updated_at`

type CreateDraftRequest struct {
	LeagueID               int64                `json:"league_id"`
	DraftType              models.DraftType     `json:"draft_type"`
	Rounds                 int                  `json:"rounds"`
	PickTimeSeconds        int                  `json:"pick_time_seconds"`
	ScheduledStart         *time.Time           `json:"scheduled_start,omitempty"`
	Settings               models.DraftSettings `json:"settings"`
	OvernightPauseEnabled  bool                 `json:"overnight_pause_enabled"`
	OvernightPauseStart    string               `json:"overnight_pause_start,omitempty"`
	OvernightPauseEnd      string               `json:"overnight_pause_end,omitempty"`
	OvernightPauseTimezone string               `json:"overnight_pause_timezone,omitempty"`
}

// NextStateParams is the partial update applied when a pick lands: counters,
// picker, deadline, status, and the transient state blob.
type NextStateParams struct {
	Status          models.DraftStatus
	CurrentPick     int
	CurrentRound    int
	CurrentRosterID *int64
	PickDeadline    *time.Time
	CompletedAt     *time.Time
	State           models.DraftState
}

// NextDeadline is the earliest pending pick deadline across active drafts.
type NextDeadline struct {
	DraftID  int64
	Deadline time.Time
}

func scanDraft(row pgx.Row) (*models.Draft, error) {
	var d models.Draft
	err := row.Scan(
		&d.ID, &d.LeagueID, &d.DraftType, &d.Status, &d.Rounds, &d.PickTimeSeconds,
		&d.CurrentPick, &d.CurrentRound, &d.CurrentRosterID, &d.PickDeadline, &d.ScheduledStart,
		&d.OrderConfirmed, &d.Settings, &d.State, &d.OvernightPauseEnabled,
		&d.OvernightPauseStart, &d.OvernightPauseEnd, &d.OvernightPauseTimezone,
		&d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound(errs.CodeDraftNotFound, "draft not found")
		}
		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}
	return &d, nil
}

func (s *Store) CreateDraft(ctx context.Context, tx pgx.Tx, req CreateDraftRequest) (*models.Draft, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO drafts (
			league_id, draft_type, status, rounds, pick_time_seconds,
			current_pick, current_round, scheduled_start, order_confirmed,
			settings, draft_state, overnight_pause_enabled, overnight_pause_start,
			overnight_pause_end, overnight_pause_timezone
		) VALUES ($1, $2, $3, $4, $5, 1, 1, $6, false, $7, '{}'::jsonb, $8, $9, $10, $11)
		RETURNING `+draftColumns,
		req.LeagueID, req.DraftType, models.DraftStatusNotStarted, req.Rounds,
		req.PickTimeSeconds, req.ScheduledStart, req.Settings,
		req.OvernightPauseEnabled, req.OvernightPauseStart, req.OvernightPauseEnd,
		req.OvernightPauseTimezone,
	)
	draft, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	return draft, nil
}

func (s *Store) GetDraft(ctx context.Context, q Querier, id int64) (*models.Draft, error) {
	row := q.QueryRow(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id)
	return scanDraft(row)
}

// GetDraftForUpdate re-reads the draft row with a row lock. Every mutation
// under the DRAFT advisory lock starts here so stale hints never drive a
// write.
func (s *Store) GetDraftForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Draft, error) {
	row := tx.QueryRow(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1 FOR UPDATE`, id)
	return scanDraft(row)
}

// UpdateDraft writes back every mutable column. Lifecycle operations mutate
// the model they re-read under FOR UPDATE and persist it whole.
func (s *Store) UpdateDraft(ctx context.Context, tx pgx.Tx, d *models.Draft) error {
	tag, err := tx.Exec(ctx, `
		UPDATE drafts SET
			status = $2, rounds = $3, pick_time_seconds = $4, current_pick = $5,
			current_round = $6, current_roster_id = $7, pick_deadline = $8,
			scheduled_start = $9, order_confirmed = $10, settings = $11,
			draft_state = $12, overnight_pause_enabled = $13, overnight_pause_start = $14,
			overnight_pause_end = $15, overnight_pause_timezone = $16,
			started_at = $17, completed_at = $18, updated_at = now()
		WHERE id = $1`,
		d.ID, d.Status, d.Rounds, d.PickTimeSeconds, d.CurrentPick,
		d.CurrentRound, d.CurrentRosterID, d.PickDeadline,
		d.ScheduledStart, d.OrderConfirmed, d.Settings,
		d.State, d.OvernightPauseEnabled, d.OvernightPauseStart,
		d.OvernightPauseEnd, d.OvernightPauseTimezone,
		d.StartedAt, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.CodeDraftNotFound, "draft not found")
	}
	return nil
}

// ApplyNextState is the hot-path partial update used when a pick advances
// the draft.
func (s *Store) ApplyNextState(ctx context.Context, tx pgx.Tx, draftID int64, p NextStateParams) error {
	tag, err := tx.Exec(ctx, `
		UPDATE drafts SET
			status = $2, current_pick = $3, current_round = $4, current_roster_id = $5,
			pick_deadline = $6, completed_at = $7, draft_state = $8, updated_at = now()
		WHERE id = $1`,
		draftID, p.Status, p.CurrentPick, p.CurrentRound, p.CurrentRosterID,
		p.PickDeadline, p.CompletedAt, p.State,
	)
	if err != nil {
		return fmt.Errorf("failed to apply next pick state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.CodeDraftNotFound, "draft not found")
	}
	return nil
}

// DeleteDraft cascade-deletes the draft's child rows and detaches current
// pick assets. League assets outlive the draft, the draft reference does not.
func (s *Store) DeleteDraft(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, err := tx.Exec(ctx, `UPDATE draft_pick_assets SET draft_id = NULL WHERE draft_id = $1`, id); err != nil {
		return fmt.Errorf("failed to detach pick assets: %w", err)
	}
	for _, stmt := range []string{
		`DELETE FROM draft_chess_clocks WHERE draft_id = $1`,
		`DELETE FROM draft_queue WHERE draft_id = $1`,
		`DELETE FROM vet_draft_pick_selections WHERE draft_id = $1`,
		`DELETE FROM draft_picks WHERE draft_id = $1`,
		`DELETE FROM draft_order WHERE draft_id = $1`,
		`DELETE FROM draft_operations WHERE draft_id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete draft children: %w", err)
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.CodeDraftNotFound, "draft not found")
	}
	return nil
}

// FetchDueDrafts enumerates in-progress drafts that need a tick: expired
// deadline, autodraft enabled for the current picker, or an orphaned current
// roster.
func (s *Store) FetchDueDrafts(ctx context.Context, limit int32) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id
		FROM drafts d
		JOIN draft_order o ON o.draft_id = d.id AND o.roster_id = d.current_roster_id
		JOIN rosters r ON r.id = d.current_roster_id
		WHERE d.status = $1
		  AND (d.pick_deadline < now() OR o.is_autodraft_enabled OR r.user_id IS NULL)
		ORDER BY d.pick_deadline NULLS FIRST
		LIMIT $2`,
		models.DraftStatusInProgress, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due drafts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due draft id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FetchNextDeadline returns the earliest pending deadline, or nil when no
// in-progress draft has one.
func (s *Store) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, pick_deadline
		FROM drafts
		WHERE status = $1 AND pick_deadline IS NOT NULL
		ORDER BY pick_deadline ASC
		LIMIT 1`,
		models.DraftStatusInProgress,
	)
	var nd NextDeadline
	if err := row.Scan(&nd.DraftID, &nd.Deadline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return &nd, nil
}

// NotifyDeadlineChange wakes the tick scheduler early. Sent inside the same
// transaction that moved the deadline, so listeners only see committed changes.
func (s *Store) NotifyDeadlineChange(ctx context.Context, tx pgx.Tx, draftID int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_notify('draft_deadline_changed', $1::text)`, draftID); err != nil {
		return fmt.Errorf("failed to notify deadline change: %w", err)
	}
	return nil
}
