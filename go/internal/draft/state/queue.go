package state

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/events"
	"github.com/openleague/draftroom/go/internal/errs"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/models"
)

// GetQueue returns the caller's pick queue in priority order.
func (s *Service) GetQueue(ctx context.Context, leagueID, draftID, userID int64) ([]models.QueueEntry, error) {
	d, roster, err := s.queuePreamble(ctx, leagueID, draftID, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListQueue(ctx, s.store.Reader(), d.ID, roster.ID)
}

// AddToQueueRequest appends a player or a pick asset to the caller's queue.
// Exactly one referent must be set.
type AddToQueueRequest struct {
	LeagueID    int64
	DraftID     int64
	UserID      int64
	PlayerID    *int64
	PickAssetID *int64
}

// AddToQueue appends the referent to the back of the caller's queue. Already
// consumed referents are rejected; queue mutations run under the draft lock
// so an autopick never walks a half-updated queue.
func (s *Service) AddToQueue(ctx context.Context, req AddToQueueRequest) (*models.QueueEntry, error) {
	d, roster, err := s.queuePreamble(ctx, req.LeagueID, req.DraftID, req.UserID)
	if err != nil {
		return nil, err
	}
	if (req.PlayerID == nil) == (req.PickAssetID == nil) {
		return nil, errs.Validation(errs.CodeInvalidSettings, "queue entries take exactly one of a player or a pick asset")
	}

	var (
		entry *models.QueueEntry
		batch *bus.Batch
	)
	err = s.runner.WithLock(ctx, lock.DomainDraft, d.ID, func(tx pgx.Tx) error {
		if req.PlayerID != nil {
			player, err := s.players.GetPlayer(ctx, tx, *req.PlayerID)
			if err != nil {
				return err
			}
			if !playerEligible(player, d.Settings) {
				return errs.Validation(errs.CodePoolIneligible, "player %d is outside the draft's player pool", player.ID)
			}
			taken, err := s.store.PlayerDrafted(ctx, tx, d.ID, player.ID)
			if err != nil {
				return err
			}
			if taken {
				return errs.Conflict(errs.CodePlayerAlreadyDrafted, "player %d is already drafted", player.ID)
			}
		} else {
			asset, err := s.store.GetPickAsset(ctx, tx, *req.PickAssetID)
			if err != nil {
				return err
			}
			if asset.LeagueID != d.LeagueID {
				return errs.NotFound(errs.CodePickAssetNotFound, "pick asset %d not found in league %d", asset.ID, d.LeagueID)
			}
			selected, err := s.store.AssetSelected(ctx, tx, d.ID, asset.ID)
			if err != nil {
				return err
			}
			if selected {
				return errs.Conflict(errs.CodeAssetAlreadySelected, "pick asset %d is already selected", asset.ID)
			}
		}

		var err error
		entry, err = s.store.AddQueueEntry(ctx, tx, d.ID, roster.ID, req.PlayerID, req.PickAssetID)
		if err != nil {
			return err
		}
		batch = bus.NewBatch(d.ID)
		batch.Add(events.TypeDraftQueueUpdated, events.DraftQueueUpdatedPayload{
			DraftID:     d.ID,
			RosterID:    roster.ID,
			Action:      events.QueueActionAdded,
			PlayerID:    req.PlayerID,
			PickAssetID: req.PickAssetID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pub.PublishBatch(ctx, batch)
	return entry, nil
}

// RemoveFromQueue drops one entry from the caller's queue.
func (s *Service) RemoveFromQueue(ctx context.Context, leagueID, draftID, userID, entryID int64) error {
	d, roster, err := s.queuePreamble(ctx, leagueID, draftID, userID)
	if err != nil {
		return err
	}

	var batch *bus.Batch
	err = s.runner.WithLock(ctx, lock.DomainDraft, d.ID, func(tx pgx.Tx) error {
		removed, err := s.store.RemoveQueueEntry(ctx, tx, d.ID, roster.ID, entryID)
		if err != nil {
			return err
		}
		if !removed {
			return errs.NotFound(errs.CodeQueueEntryNotFound, "queue entry %d not found", entryID)
		}
		batch = bus.NewBatch(d.ID)
		batch.Add(events.TypeDraftQueueUpdated, events.DraftQueueUpdatedPayload{
			DraftID:  d.ID,
			RosterID: roster.ID,
			Action:   events.QueueActionRemoved,
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.pub.PublishBatch(ctx, batch)
	return nil
}

// ReorderQueue rewrites the caller's queue to the given entry order. The ids
// must be a permutation of the current queue.
func (s *Service) ReorderQueue(ctx context.Context, leagueID, draftID, userID int64, entryIDs []int64) error {
	d, roster, err := s.queuePreamble(ctx, leagueID, draftID, userID)
	if err != nil {
		return err
	}
	if len(entryIDs) == 0 {
		return errs.Validation(errs.CodeInvalidSettings, "reorder needs the full queue")
	}

	var batch *bus.Batch
	err = s.runner.WithLock(ctx, lock.DomainDraft, d.ID, func(tx pgx.Tx) error {
		current, err := s.store.ListQueue(ctx, tx, d.ID, roster.ID)
		if err != nil {
			return err
		}
		if len(current) != len(entryIDs) {
			return errs.Validation(errs.CodeInvalidSettings, "reorder must cover all %d queue entries", len(current))
		}
		known := make(map[int64]bool, len(current))
		for _, e := range current {
			known[e.ID] = true
		}
		for _, id := range entryIDs {
			if !known[id] {
				return errs.Validation(errs.CodeInvalidSettings, "queue entry %d is not in the queue", id)
			}
			delete(known, id)
		}
		if err := s.store.ReorderQueue(ctx, tx, d.ID, roster.ID, entryIDs); err != nil {
			return err
		}
		batch = bus.NewBatch(d.ID)
		batch.Add(events.TypeDraftQueueUpdated, events.DraftQueueUpdatedPayload{
			DraftID:  d.ID,
			RosterID: roster.ID,
			Action:   events.QueueActionReordered,
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.pub.PublishBatch(ctx, batch)
	return nil
}

// queuePreamble authorises queue access: league member with a roster, draft
// in the league. Queues are usable in any draft status so rosters can prep
// before the start.
func (s *Service) queuePreamble(ctx context.Context, leagueID, draftID, userID int64) (*models.Draft, *models.Roster, error) {
	d, err := s.memberDraft(ctx, leagueID, draftID, userID)
	if err != nil {
		return nil, nil, err
	}
	roster, err := s.rosters.GetByLeagueAndUser(ctx, s.rosters.Reader(), leagueID, userID)
	if err != nil {
		return nil, nil, err
	}
	if roster == nil {
		return nil, nil, errs.Forbidden(errs.CodeNotInLeague, "user %d has no roster in league %d", userID, leagueID)
	}
	return d, roster, nil
}
