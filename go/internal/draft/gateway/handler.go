package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openleague/draftroom/go/internal/draft/events"
)

// snapshotTimeout bounds the cache read done for a joining client.
const snapshotTimeout = 5 * time.Second

// RegisterRoutes mounts the websocket endpoint on the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/drafts/{id}", s.handleWebSocket)
	log.Info().Msg("draft gateway routes registered")
}

// handleWebSocket joins a client to a draft room. The user_id query parameter
// identifies the client in logs only; picks go through the draft API, so the
// stream itself needs no auth beyond league membership enforced there.
func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	draftID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid draft id", http.StatusBadRequest)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	conn, err := s.manager.Upgrade(w, r, userID, draftID)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	s.sendSnapshot(conn)
}

// sendSnapshot pushes the current room state to a fresh connection so the
// client renders the board before the first live event lands.
func (s *Service) sendSnapshot(conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	state, err := s.states.Snapshot(ctx, conn.DraftID)
	if err != nil {
		log.Warn().Err(err).Int64("draft_id", conn.DraftID).Msg("failed to load draft state for snapshot")
		return
	}
	if state == nil {
		// No events for this draft yet.
		return
	}

	payload, err := json.Marshal(state)
	if err != nil {
		log.Error().Err(err).Int64("draft_id", conn.DraftID).Msg("failed to marshal draft state")
		return
	}
	data, err := json.Marshal(events.Envelope{
		EventID:   uuid.New().String(),
		EventType: TypeStateSnapshot,
		DraftID:   conn.DraftID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		log.Error().Err(err).Int64("draft_id", conn.DraftID).Msg("failed to marshal snapshot envelope")
		return
	}

	if !s.manager.Deliver(conn, data) {
		log.Warn().Str("connection_id", conn.ID).Msg("snapshot not delivered, connection gone or buffer full")
	}
}
