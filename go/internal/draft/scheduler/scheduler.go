// Package scheduler sleeps until the earliest pick deadline and feeds due
// drafts to the tick engine. The engine's advisory lock makes concurrent
// instances safe, so the scheduler only has to be prompt, not exclusive.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/openleague/draftroom/go/internal/draft/engine"
	"github.com/openleague/draftroom/go/internal/draft/store"
)

// DeadlineSource supplies the scan queries the loop runs between sleeps.
type DeadlineSource interface {
	FetchNextDeadline(ctx context.Context) (*store.NextDeadline, error)
	FetchDueDrafts(ctx context.Context, limit int32) ([]int64, error)
}

// Ticker runs one draft tick. Implemented by the engine.
type Ticker interface {
	Tick(ctx context.Context, draftID int64) (*engine.TickResult, error)
}

// Config tunes the scheduler loop.
type Config struct {
	BatchSize int32
	Workers   int
	IdlePoll  time.Duration
}

// DefaultConfig suits a single mid-size deployment.
func DefaultConfig() Config {
	return Config{
		BatchSize: 50,
		Workers:   10,
		IdlePoll:  5 * time.Second,
	}
}

// Scheduler wakes on the next pick deadline and fans due drafts out to a
// worker pool. A LISTEN/NOTIFY wake cuts the sleep short when a deadline
// moves; the idle poll catches anything a lost notification would strand.
type Scheduler struct {
	source     DeadlineSource
	ticker     Ticker
	cfg        Config
	clock      clockwork.Clock
	instanceID string

	wakeCh chan struct{}
	workCh chan int64

	inFlight   map[int64]bool
	inFlightMu sync.Mutex
}

// New creates a scheduler. Zero config fields fall back to DefaultConfig.
func New(source DeadlineSource, ticker Ticker, cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = def.IdlePoll
	}
	return &Scheduler{
		source:     source,
		ticker:     ticker,
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
		instanceID: uuid.New().String()[:8],
		wakeCh:     make(chan struct{}, 1),
		workCh:     make(chan int64, cfg.Workers*2),
		inFlight:   make(map[int64]bool),
	}
}

// Wake nudges the loop to re-read the next deadline. Safe from any goroutine;
// a wake arriving while one is already pending is dropped.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run loops until the context is cancelled: sleep to the next deadline, fetch
// due drafts, dispatch them to workers. Returns nil on clean shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Str("instance", s.instanceID).Int("workers", s.cfg.Workers).Msg("tick scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go s.worker(workerCtx, &wg, i)
	}
	defer func() {
		cancelWorkers()
		close(s.workCh)
		wg.Wait()
		log.Info().Str("instance", s.instanceID).Msg("tick scheduler stopped")
	}()

	timer := s.clock.NewTimer(0)
	defer timer.Stop()

	retries := 0
	const maxRetries = 3

	for {
		select {
		case <-s.wakeCh:
		default:
		}

		nd, err := s.source.FetchNextDeadline(ctx)
		if err != nil {
			retries++
			if retries > maxRetries {
				log.Error().Err(err).Str("instance", s.instanceID).Msg("next deadline scan failed after retries")
				return err
			}
			log.Error().Err(err).Int("retry", retries).Str("instance", s.instanceID).Msg("next deadline scan failed, retrying")
			resetTimer(timer, time.Second*time.Duration(retries))
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}
		retries = 0

		if nd == nil {
			resetTimer(timer, s.cfg.IdlePoll)
			select {
			case <-timer.Chan():
				continue
			case <-s.wakeCh:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if wait := nd.Deadline.Sub(s.clock.Now()); wait > 0 {
			resetTimer(timer, wait)
			select {
			case <-timer.Chan():
			case <-s.wakeCh:
				// A deadline moved; re-read before sleeping again.
				continue
			case <-ctx.Done():
				return nil
			}
		}

		due, err := s.source.FetchDueDrafts(ctx, s.cfg.BatchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("due draft scan failed")
			resetTimer(timer, time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		dispatched := 0
		for _, draftID := range due {
			s.inFlightMu.Lock()
			if s.inFlight[draftID] {
				s.inFlightMu.Unlock()
				continue
			}
			s.inFlight[draftID] = true
			s.inFlightMu.Unlock()

			select {
			case s.workCh <- draftID:
				dispatched++
			case <-ctx.Done():
				s.inFlightMu.Lock()
				delete(s.inFlight, draftID)
				s.inFlightMu.Unlock()
				return nil
			}
		}

		if dispatched == 0 {
			// Deadline has passed but every due draft is already being
			// handled, or the tick that will move the deadline has not
			// committed yet. Pause before rescanning.
			resetTimer(timer, time.Second)
			select {
			case <-timer.Chan():
			case <-s.wakeCh:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case draftID, ok := <-s.workCh:
			if !ok {
				return
			}
			if _, err := s.ticker.Tick(ctx, draftID); err != nil {
				log.Error().
					Err(err).
					Int64("draft_id", draftID).
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Msg("tick failed")
			}
			s.inFlightMu.Lock()
			delete(s.inFlight, draftID)
			s.inFlightMu.Unlock()
		}
	}
}

// resetTimer re-arms a shared timer, draining a stale fire first so the next
// wait cannot trigger off an old value.
func resetTimer(timer clockwork.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
	timer.Reset(d)
}
