package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/models"
)

// FindOperation returns the stored result for a keyed commissioner action
// inside its TTL, or nil when the key is unused or expired.
func (s *Store) FindOperation(ctx context.Context, q Querier, key string, userID int64, opType models.OperationType) (*models.OperationRecord, error) {
	row := q.QueryRow(ctx, `
		SELECT idempotency_key, user_id, operation_type, draft_id, result, created_at, expires_at
		FROM draft_operations
		WHERE idempotency_key = $1 AND user_id = $2 AND operation_type = $3 AND expires_at > now()`,
		key, userID, opType,
	)
	var rec models.OperationRecord
	err := row.Scan(&rec.IdempotencyKey, &rec.UserID, &rec.OperationType, &rec.DraftID,
		&rec.Result, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find operation record: %w", err)
	}
	return &rec, nil
}

// PutOperation stores a successful result under its idempotency key with the
// given TTL in seconds. Replays inside the TTL read it back verbatim.
func (s *Store) PutOperation(ctx context.Context, tx pgx.Tx, key string, userID int64, opType models.OperationType, draftID int64, result json.RawMessage, ttlSeconds int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO draft_operations (idempotency_key, user_id, operation_type, draft_id, result, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, now(), now() + make_interval(secs => $6))
		ON CONFLICT (idempotency_key, user_id, operation_type) DO UPDATE
		SET result = EXCLUDED.result, expires_at = EXCLUDED.expires_at`,
		key, userID, opType, draftID, result, ttlSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to put operation record: %w", err)
	}
	return nil
}

// PurgeExpiredOperations drops records past their TTL.
func (s *Store) PurgeExpiredOperations(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM draft_operations WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired operations: %w", err)
	}
	return tag.RowsAffected(), nil
}
