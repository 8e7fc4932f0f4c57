package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/openleague/draftroom/go/internal/draft/events"
)

// Config holds the JetStream connection and stream settings.
type Config struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // how long to keep messages
	MaxMsgs         int64         // max number of messages to keep
	Replicas        int
	DuplicateWindow time.Duration // window for duplicate detection
}

// DefaultConfig returns the stock stream settings.
func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		StreamName:      "DRAFT_EVENTS",
		SubjectPrefix:   "draft.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// Bus publishes committed draft events to NATS JetStream. Batches are
// collected during the transaction and handed over after commit, so a
// publish failure can only lose an event, never a pick; subscribers dedupe
// by (draft_id, pick_number).
type Bus struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config Config
	clock  clockwork.Clock
}

// Connect dials NATS, sets up the JetStream context, and ensures the draft
// event stream exists.
func Connect(cfg Config) (*Bus, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	b := &Bus{nc: nc, js: js, config: cfg, clock: clockwork.NewRealClock()}

	if err := b.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return b, nil
}

func (b *Bus) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        b.config.StreamName,
		Description: "Draft event stream",
		Subjects:    []string{fmt.Sprintf("%s.>", b.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      b.config.MaxAge,
		MaxMsgs:     b.config.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    b.config.Replicas,
		Duplicates:  b.config.DuplicateWindow,
	}

	stream, err := b.js.Stream(ctx, b.config.StreamName)
	if err != nil {
		if _, err = b.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().
			Str("stream", b.config.StreamName).
			Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !streamConfigEqual(info.Config, sc) {
		if _, err = b.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().
			Str("stream", b.config.StreamName).
			Msg("updated JetStream stream")
	}
	return nil
}

// PublishBatch publishes the collected events in order. Failures are logged
// and skipped; the draft mutation already committed and must stand.
func (b *Bus) PublishBatch(ctx context.Context, batch *Batch) {
	if batch.Len() == 0 {
		return
	}
	for _, item := range batch.Items() {
		if err := b.publish(ctx, batch.DraftID(), item); err != nil {
			log.Error().
				Err(err).
				Int64("draft_id", batch.DraftID()).
				Str("event_type", string(item.Type)).
				Msg("failed to publish draft event")
		}
	}
}

func (b *Bus) publish(ctx context.Context, draftID int64, item Item) error {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	env := events.Envelope{
		EventID:   uuid.New().String(),
		EventType: item.Type,
		DraftID:   draftID,
		Timestamp: b.clock.Now().UTC(),
		Payload:   payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	subject := fmt.Sprintf("%s.%d", b.config.SubjectPrefix, draftID)
	ack, err := b.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(item.Type)},
			"Draft-ID":   []string{strconv.FormatInt(draftID, 10)},
			"Event-ID":   []string{env.EventID},
		},
	},
		jetstream.WithMsgID(env.EventID),
		jetstream.WithExpectStream(b.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", env.EventID).
		Str("event_type", string(item.Type)).
		Uint64("sequence", ack.Sequence).
		Msg("published draft event")
	return nil
}

// Drain flushes buffered messages and closes the connection. Called on
// shutdown.
func (b *Bus) Drain() error {
	if b.nc == nil {
		return nil
	}
	return b.nc.Drain()
}

// Close drops the connection without draining.
func (b *Bus) Close() {
	if b.nc != nil {
		b.nc.Close()
	}
}

func streamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}
