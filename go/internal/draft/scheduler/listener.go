package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// DeadlineChannel is the Postgres NOTIFY channel the store signals on
// whenever a pick deadline moves.
const DeadlineChannel = "draft_deadline_changed"

// ListenerConfig configures the LISTEN connection. lib/pq manages its own
// connection here; the pgx pool the rest of the service uses cannot hold a
// session open for LISTEN.
type ListenerConfig struct {
	DatabaseURL  string
	Channel      string
	PingInterval time.Duration
}

// DefaultListenerConfig listens on DeadlineChannel with a 90s keepalive.
func DefaultListenerConfig(databaseURL string) ListenerConfig {
	return ListenerConfig{
		DatabaseURL:  databaseURL,
		Channel:      DeadlineChannel,
		PingInterval: 90 * time.Second,
	}
}

// DeadlineListener turns deadline notifications into scheduler wakes. The
// payload names the draft but is not needed; the scheduler rescans for the
// earliest deadline on every wake.
type DeadlineListener struct {
	listener *pq.Listener
	wake     func()
	cfg      ListenerConfig
}

// NewDeadlineListener opens the LISTEN connection. wake is called on every
// notification, typically Scheduler.Wake.
func NewDeadlineListener(cfg ListenerConfig, wake func()) (*DeadlineListener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("deadline listener event")
			}
		},
	)
	if err := l.Listen(cfg.Channel); err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Channel, err)
	}
	log.Info().Str("channel", cfg.Channel).Msg("listening for deadline changes")

	return &DeadlineListener{listener: l, wake: wake, cfg: cfg}, nil
}

// Start blocks until the context is cancelled, waking the scheduler on every
// notification. A nil notification means the connection dropped and lib/pq is
// reconnecting; the scheduler's idle poll covers the gap.
func (l *DeadlineListener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				continue
			}
			log.Debug().Str("draft_id", note.Extra).Msg("deadline change notification")
			l.wake()
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping deadline listener")
			}
		}
	}
}

// Stop closes the LISTEN connection.
func (l *DeadlineListener) Stop() error {
	return l.listener.Close()
}
