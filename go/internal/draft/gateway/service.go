// Package gateway fans draft events out to websocket clients. It holds no
// draft logic of its own: the draft services publish, JetStream delivers, and
// the gateway keeps rooms and a per-draft snapshot for joiners.
package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Config holds the gateway's configuration.
type Config struct {
	Connection ConnectionConfig
	Consumer   ConsumerConfig
}

// Service ties the connection manager, the state manager, and the JetStream
// consumer together.
type Service struct {
	manager  *ConnectionManager
	states   *StateManager
	consumer *EventConsumer
}

// NewService builds a gateway service. The cache backs room snapshots; pass
// a RedisCache so snapshots survive restarts and are shared across instances.
func NewService(config Config, cache StateCache) (*Service, error) {
	manager := NewConnectionManager(config.Connection)
	states := NewStateManager(cache)

	consumer, err := NewEventConsumer(config.Consumer, manager, states)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	return &Service{
		manager:  manager,
		states:   states,
		consumer: consumer,
	}, nil
}

// Start runs the broadcast loop and the event consumer until the context is
// cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting draft gateway service")

	go s.manager.Start(ctx)

	go func() {
		if err := s.consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("draft gateway service shutting down")
	return s.Stop()
}

// Stop shuts the consumer down. Rooms drain as their pumps notice the closed
// connections.
func (s *Service) Stop() error {
	if err := s.consumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event consumer")
	}
	log.Info().Msg("draft gateway service stopped")
	return nil
}

// Stats reports connection counts for the info endpoint.
func (s *Service) Stats() map[string]interface{} {
	stats := s.manager.Stats()
	stats["service"] = "draft_gateway"
	return stats
}
