package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/openleague/draftroom/go/internal/draft/engine"
	"github.com/openleague/draftroom/go/internal/draft/store"
)

var schedNow = time.Date(2026, 8, 20, 20, 0, 0, 0, time.UTC)

// fakeSource scripts the scan queries: each call pops the next response, and
// an exhausted script answers "nothing pending".
type fakeSource struct {
	mu        sync.Mutex
	failures  int
	deadlines []*store.NextDeadline
	due       [][]int64
}

func (f *fakeSource) FetchNextDeadline(ctx context.Context) (*store.NextDeadline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("deadline scan failed")
	}
	if len(f.deadlines) == 0 {
		return nil, nil
	}
	nd := f.deadlines[0]
	f.deadlines = f.deadlines[1:]
	return nd, nil
}

func (f *fakeSource) FetchDueDrafts(ctx context.Context, limit int32) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.due) == 0 {
		return nil, nil
	}
	ids := f.due[0]
	f.due = f.due[1:]
	return ids, nil
}

func (f *fakeSource) push(nd *store.NextDeadline, due []int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if nd != nil {
		f.deadlines = append(f.deadlines, nd)
	}
	if due != nil {
		f.due = append(f.due, due)
	}
}

// fakeTicker records tick calls; a non-nil block channel makes Tick hang
// until the channel closes or the context ends.
type fakeTicker struct {
	mu     sync.Mutex
	ticked []int64
	block  chan struct{}
}

func (f *fakeTicker) Tick(ctx context.Context, draftID int64) (*engine.TickResult, error) {
	f.mu.Lock()
	f.ticked = append(f.ticked, draftID)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return &engine.TickResult{Action: engine.TickAutoPick}, nil
}

func (f *fakeTicker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ticked)
}

func startScheduler(t *testing.T, src *fakeSource, tk *fakeTicker) (*Scheduler, *clockwork.FakeClock, func()) {
	t.Helper()

	s := New(src, tk, Config{Workers: 2, BatchSize: 10})
	fc := clockwork.NewFakeClockAt(schedNow)
	s.clock = fc

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("scheduler did not stop")
		}
	}
	return s, fc, stop
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSchedulerFiresOnDeadline(t *testing.T) {
	src := &fakeSource{
		deadlines: []*store.NextDeadline{{DraftID: 10, Deadline: schedNow.Add(30 * time.Second)}},
		due:       [][]int64{{10}},
	}
	tk := &fakeTicker{}
	_, fc, stop := startScheduler(t, src, tk)
	defer stop()

	fc.BlockUntil(1)
	if tk.count() != 0 {
		t.Fatalf("ticked before the deadline")
	}
	fc.Advance(31 * time.Second)

	waitFor(t, "tick after deadline", func() bool { return tk.count() == 1 })
}

func TestSchedulerWakesForSoonerDeadline(t *testing.T) {
	src := &fakeSource{
		deadlines: []*store.NextDeadline{
			{DraftID: 10, Deadline: schedNow.Add(time.Hour)},
			{DraftID: 10, Deadline: schedNow.Add(-time.Second)},
		},
		due: [][]int64{{10}},
	}
	tk := &fakeTicker{}
	s, fc, stop := startScheduler(t, src, tk)
	defer stop()

	// Asleep until the hour-away deadline; a wake forces a re-read that finds
	// the past-due one without the clock moving.
	fc.BlockUntil(1)
	s.Wake()

	waitFor(t, "tick after wake", func() bool { return tk.count() == 1 })
}

func TestSchedulerDedupesInFlight(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{
		deadlines: []*store.NextDeadline{{DraftID: 10, Deadline: schedNow.Add(-time.Second)}},
		due:       [][]int64{{10, 10}},
	}
	tk := &fakeTicker{block: release}
	_, _, stop := startScheduler(t, src, tk)

	waitFor(t, "first tick to start", func() bool { return tk.count() == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := tk.count(); got != 1 {
		t.Fatalf("duplicate draft id reached a second worker, ticks = %d", got)
	}

	close(release)
	stop()
}

func TestSchedulerIdlePollRescans(t *testing.T) {
	src := &fakeSource{}
	tk := &fakeTicker{}
	_, fc, stop := startScheduler(t, src, tk)
	defer stop()

	// Nothing pending: the loop parks on the idle poll.
	fc.BlockUntil(1)
	src.push(&store.NextDeadline{DraftID: 10, Deadline: schedNow.Add(-time.Second)}, []int64{10})
	fc.Advance(6 * time.Second)

	waitFor(t, "tick after idle rescan", func() bool { return tk.count() == 1 })
}

func TestSchedulerRetriesScanErrors(t *testing.T) {
	src := &fakeSource{
		failures:  1,
		deadlines: []*store.NextDeadline{{DraftID: 10, Deadline: schedNow.Add(-time.Second)}},
		due:       [][]int64{{10}},
	}
	tk := &fakeTicker{}
	_, fc, stop := startScheduler(t, src, tk)
	defer stop()

	// First scan fails; the loop backs off a second and tries again.
	fc.BlockUntil(1)
	fc.Advance(2 * time.Second)

	waitFor(t, "tick after retry", func() bool { return tk.count() == 1 })
}
