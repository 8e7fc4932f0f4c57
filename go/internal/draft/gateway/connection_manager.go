package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns the websocket rooms. Connections are pooled per
// draft and every bus event for a draft is fanned out to its room.
type ConnectionManager struct {
	rooms map[int64]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage
}

// BroadcastMessage carries the wire bytes of one event to a draft's room.
type BroadcastMessage struct {
	DraftID int64
	Data    []byte
}

// Connection represents a single client in a draft room.
type Connection struct {
	ID      string
	UserID  string
	DraftID int64
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds websocket tuning for the gateway.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns the default websocket tuning.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development. Restrict in production.
			return true
		},
	}
}

// NewConnectionManager creates a websocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[int64]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcast messages until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Upgrade turns an HTTP request into a registered room connection and starts
// its pumps. The returned connection accepts writes on Send immediately.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request, userID string, draftID int64) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		DraftID:     draftID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.register(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Int64("draft_id", draftID).
		Msg("websocket connection established")

	return connection, nil
}

func (cm *ConnectionManager) register(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.rooms[conn.DraftID] == nil {
		cm.rooms[conn.DraftID] = make(map[*Connection]bool)
	}
	cm.rooms[conn.DraftID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int64("draft_id", conn.DraftID).
		Int("room_size", len(cm.rooms[conn.DraftID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregister(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	room, exists := cm.rooms[conn.DraftID]
	if !exists {
		return
	}
	if _, exists := room[conn]; !exists {
		return
	}
	delete(room, conn)
	close(conn.Send)

	if len(room) == 0 {
		delete(cm.rooms, conn.DraftID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Int64("draft_id", conn.DraftID).
		Msg("connection unregistered")
}

// Deliver sends wire bytes to one registered connection. Reports false when
// the connection already left the room or its buffer is full. The membership
// check under the read lock keeps the send from racing the close in
// unregister.
func (cm *ConnectionManager) Deliver(conn *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	room, exists := cm.rooms[conn.DraftID]
	if !exists || !room[conn] {
		return false
	}
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

// Broadcast queues an event's wire bytes for a draft's room. Messages are
// dropped, not queued unboundedly, when the gateway cannot keep up.
func (cm *ConnectionManager) Broadcast(draftID int64, data []byte) {
	select {
	case cm.broadcastCh <- BroadcastMessage{DraftID: draftID, Data: data}:
	default:
		log.Warn().Int64("draft_id", draftID).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	room, exists := cm.rooms[message.DraftID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Sends are non-blocking, so the read lock is held across the fan-out.
	// unregister closes Send under the write lock, which keeps these sends
	// from racing a close.
	var stalled []*Connection
	for conn := range room {
		select {
		case conn.Send <- message.Data:
		default:
			stalled = append(stalled, conn)
		}
	}
	count := len(room)
	cm.mu.RUnlock()

	for _, conn := range stalled {
		// A full send buffer means the client stopped reading.
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregister(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Int64("draft_id", message.DraftID).
		Int("connections", count).
		Msg("event broadcast to room")
}

// Stats returns connection counts for the info endpoint.
func (cm *ConnectionManager) Stats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	perDraft := make(map[string]int)
	for draftID, room := range cm.rooms {
		total += len(room)
		perDraft[strconv.FormatInt(draftID, 10)] = len(room)
	}

	return map[string]interface{}{
		"total_connections": total,
		"active_drafts":     len(cm.rooms),
		"draft_connections": perDraft,
	}
}

// writePump drains Send onto the wire and keeps the connection alive with
// pings. It owns all writes; nothing else may touch the websocket writer.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump consumes client frames. The stream to clients is one-way; inbound
// frames only refresh the read deadline and get logged.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close")
			}
			break
		}

		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			RawJSON("message", message).
			Msg("received client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
