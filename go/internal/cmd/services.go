package main

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openleague/draftroom/go/clients/schedule"
	"github.com/openleague/draftroom/go/internal/dbconfig"
	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/engine"
	"github.com/openleague/draftroom/go/internal/draft/scheduler"
	"github.com/openleague/draftroom/go/internal/draft/state"
	"github.com/openleague/draftroom/go/internal/draft/store"
	"github.com/openleague/draftroom/go/internal/leagues"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/players"
	"github.com/openleague/draftroom/go/internal/rosters"
)

// Services holds draftd's wired components.
type Services struct {
	Bus       *bus.Bus
	State     *state.Service
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
	Listener  *scheduler.DeadlineListener
}

func setupServices(pool *pgxpool.Pool, dbCfg dbconfig.Config, config *Config) (*Services, error) {
	// Wire bottom-up: stores, then the state service, then the tick engine,
	// then the scheduler feeding it.
	runner := lock.NewRunner(pool)
	draftStore := store.NewStore(pool)
	playerStore := players.NewStore(pool)
	rosterStore := rosters.NewStore(pool)
	leagueStore := leagues.NewStore(pool)

	busCfg := bus.DefaultConfig()
	busCfg.URL = config.NATS.URL
	busCfg.StreamName = config.NATS.Stream
	eventBus, err := bus.Connect(busCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect event bus: %w", err)
	}

	scheduleClient := schedule.NewClient(config.ScheduleService.BaseURL, config.ScheduleService.Token)

	stateService := state.NewService(runner, draftStore, playerStore, rosterStore, leagueStore, scheduleClient, eventBus)
	tickEngine := engine.New(runner, draftStore, playerStore, rosterStore, stateService, eventBus, config.Draft.DefaultTimezone)

	tickScheduler := scheduler.New(draftStore, tickEngine, scheduler.Config{
		BatchSize: config.Scheduler.BatchSize,
		Workers:   config.Scheduler.Workers,
		IdlePoll:  time.Duration(config.Scheduler.IdlePollSeconds) * time.Second,
	})

	listener, err := scheduler.NewDeadlineListener(scheduler.DefaultListenerConfig(dbCfg.DSN()), tickScheduler.Wake)
	if err != nil {
		eventBus.Close()
		return nil, fmt.Errorf("failed to create deadline listener: %w", err)
	}

	return &Services{
		Bus:       eventBus,
		State:     stateService,
		Engine:    tickEngine,
		Scheduler: tickScheduler,
		Listener:  listener,
	}, nil
}
