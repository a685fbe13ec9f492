package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reportbot/pkg/logx"
)

// fakeClock is a settable clock for driving RunPending deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestScheduler(clock Clock) *Scheduler {
	return New(Config{}, clock, logx.Nop())
}

func TestScheduleFirstFireIsFuture(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(date(10, 0))
	s := newTestScheduler(clock)

	h := s.Schedule(Recurrence{Unit: UnitHour, Count: 3, TimeOfDay: "09:52"}, "test",
		func(ctx context.Context) error { return nil })

	next, ok := s.NextFire(h)
	if !ok {
		t.Fatal("NextFire: job not found")
	}
	if want := date(12, 52); !next.Equal(want) {
		t.Errorf("NextFire = %v, want %v", next, want)
	}
}

func TestRunPendingFiresDueJobs(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(date(10, 0))
	s := newTestScheduler(clock)

	var mu sync.Mutex
	fired := 0
	h := s.Schedule(Recurrence{Unit: UnitHour, Count: 1, TimeOfDay: "11:00"}, "test",
		func(ctx context.Context) error {
			mu.Lock()
			fired++
			mu.Unlock()
			return nil
		})

	s.RunPending()
	mu.Lock()
	if fired != 0 {
		t.Fatalf("fired %d times before due", fired)
	}
	mu.Unlock()

	clock.Set(date(11, 0))
	s.RunPending()
	mu.Lock()
	if fired != 1 {
		t.Fatalf("fired %d times at due time, want 1", fired)
	}
	mu.Unlock()

	next, _ := s.NextFire(h)
	if want := date(12, 0); !next.Equal(want) {
		t.Errorf("NextFire after fire = %v, want %v", next, want)
	}
}

func TestRunPendingSkipsForwardAfterPause(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(date(10, 0))
	s := newTestScheduler(clock)

	var mu sync.Mutex
	fired := 0
	h := s.Schedule(Recurrence{Unit: UnitHour, Count: 2, TimeOfDay: "11:00"}, "test",
		func(ctx context.Context) error {
			mu.Lock()
			fired++
			mu.Unlock()
			return nil
		})

	// Jump far past several missed occurrences (11:00, 13:00, 15:00).
	clock.Set(date(15, 30))
	s.RunPending()

	mu.Lock()
	if fired != 1 {
		t.Fatalf("fired %d times after backlog, want single catch-up", fired)
	}
	mu.Unlock()

	next, _ := s.NextFire(h)
	if want := date(17, 0); !next.Equal(want) {
		t.Errorf("NextFire after catch-up = %v, want %v", next, want)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(date(10, 0))
	s := newTestScheduler(clock)

	h := s.Schedule(Recurrence{Unit: UnitDay, Count: 1, TimeOfDay: "12:00"}, "test",
		func(ctx context.Context) error { return nil })
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}

	s.Cancel(h)
	s.Cancel(h)
	s.Cancel(Handle("job:999"))
	if s.Len() != 0 {
		t.Fatalf("Len after cancel = %d, want 0", s.Len())
	}

	clock.Set(date(12, 0).Add(48 * time.Hour))
	s.RunPending() // must not fire the cancelled job
}

func TestFailingCallbackKeepsJobLive(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(date(10, 0))
	s := newTestScheduler(clock)

	var mu sync.Mutex
	fired := 0
	h := s.Schedule(Recurrence{Unit: UnitHour, Count: 1, TimeOfDay: "11:00"}, "test",
		func(ctx context.Context) error {
			mu.Lock()
			fired++
			mu.Unlock()
			return errors.New("delivery down")
		})

	clock.Set(date(11, 0))
	s.RunPending()
	clock.Set(date(12, 0))
	s.RunPending()

	mu.Lock()
	if fired != 2 {
		t.Fatalf("fired %d times, want 2: a failing callback must not unschedule", fired)
	}
	mu.Unlock()
	if _, ok := s.NextFire(h); !ok {
		t.Error("job removed after callback failure")
	}
}

func TestPanickingCallbackKeepsJobLive(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(date(10, 0))
	s := newTestScheduler(clock)

	h := s.Schedule(Recurrence{Unit: UnitHour, Count: 1, TimeOfDay: "11:00"}, "test",
		func(ctx context.Context) error { panic("boom") })

	clock.Set(date(11, 0))
	s.RunPending()

	if _, ok := s.NextFire(h); !ok {
		t.Error("job removed after callback panic")
	}
}

func TestIndependentJobsDoNotInterfere(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(date(10, 0))
	s := newTestScheduler(clock)

	var mu sync.Mutex
	firedA, firedB := 0, 0
	s.Schedule(Recurrence{Unit: UnitHour, Count: 1, TimeOfDay: "11:00"}, "a",
		func(ctx context.Context) error {
			mu.Lock()
			firedA++
			mu.Unlock()
			return nil
		})
	hb := s.Schedule(Recurrence{Unit: UnitDay, Count: 1, TimeOfDay: "18:00"}, "b",
		func(ctx context.Context) error {
			mu.Lock()
			firedB++
			mu.Unlock()
			return nil
		})
	s.Cancel(hb)

	clock.Set(date(23, 0))
	s.RunPending()

	mu.Lock()
	defer mu.Unlock()
	if firedA != 1 {
		t.Errorf("job a fired %d times, want 1", firedA)
	}
	if firedB != 0 {
		t.Errorf("cancelled job b fired %d times", firedB)
	}
}
