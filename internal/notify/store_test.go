package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reportbot/internal/schedule"
	"reportbot/pkg/logx"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)

type delivery struct {
	chatID   int64
	category string
}

// testStore wires a store to a scheduler with a fixed clock and records
// every delivery.
func testStore(t *testing.T) (*Store, *schedule.Scheduler, *[]delivery) {
	t.Helper()
	sched := schedule.New(schedule.Config{}, stubClock{now: testNow}, logx.Nop())

	var mu sync.Mutex
	var got []delivery
	store := NewStore(sched, func(ctx context.Context, chatID int64, category string) error {
		mu.Lock()
		got = append(got, delivery{chatID, category})
		mu.Unlock()
		return nil
	}, logx.Nop())
	return store, sched, &got
}

func hourly(tod string) schedule.Recurrence {
	return schedule.Recurrence{Unit: schedule.UnitHour, Count: 1, TimeOfDay: tod}
}

func TestAddRejectsDuplicateCategory(t *testing.T) {
	t.Parallel()
	store, sched, _ := testStore(t)

	if _, err := store.Add(7, "market", hourly("11:00"), "every hour"); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	_, err := store.Add(7, "market", hourly("15:00"), "every hour")
	if !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("second Add err = %v, want ErrDuplicateCategory", err)
	}
	if sched.Len() != 1 {
		t.Errorf("scheduler has %d jobs, want 1: rejected Add must not schedule", sched.Len())
	}

	// Same category in a different chat is fine.
	if _, err := store.Add(8, "market", hourly("11:00"), "every hour"); err != nil {
		t.Errorf("Add for other chat: %v", err)
	}
}

func TestRemoveAtCancelsJob(t *testing.T) {
	t.Parallel()
	store, sched, _ := testStore(t)

	store.Add(7, "market", hourly("11:00"), "every hour")
	store.Add(7, "network", hourly("12:00"), "every hour")

	n, err := store.RemoveAt(7, 1)
	if err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if n.Category != "market" {
		t.Errorf("removed %q, want market", n.Category)
	}
	if sched.Len() != 1 {
		t.Errorf("scheduler has %d jobs after removal, want 1", sched.Len())
	}

	left := store.List(7)
	if len(left) != 1 || left[0].Category != "network" {
		t.Errorf("List after removal = %+v, want [network]", left)
	}
}

func TestRemoveAtIndexValidation(t *testing.T) {
	t.Parallel()
	store, _, _ := testStore(t)
	store.Add(7, "market", hourly("11:00"), "every hour")

	for _, idx := range []int{0, -1, 2, 99} {
		if _, err := store.RemoveAt(7, idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("RemoveAt(%d) err = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
	if store.Len(7) != 1 {
		t.Errorf("failed removals changed the list: Len = %d", store.Len(7))
	}
}

func TestRemoveAllClearsChat(t *testing.T) {
	t.Parallel()
	store, sched, _ := testStore(t)

	store.Add(7, "market", hourly("11:00"), "every hour")
	store.Add(7, "network", hourly("12:00"), "every hour")
	store.Add(8, "market", hourly("11:00"), "every hour")

	removed := store.RemoveAll(7)
	if len(removed) != 2 {
		t.Fatalf("RemoveAll removed %d, want 2", len(removed))
	}
	if removed[0].Category != "market" || removed[1].Category != "network" {
		t.Errorf("RemoveAll order = %+v, want insertion order", removed)
	}
	if got := store.Len(7); got != 0 {
		t.Errorf("Len(7) = %d after RemoveAll", got)
	}
	if sched.Len() != 1 {
		t.Errorf("scheduler has %d jobs, want 1 (other chat untouched)", sched.Len())
	}
	if store.Len(8) != 1 {
		t.Errorf("other chat lost its notification")
	}

	if again := store.RemoveAll(7); len(again) != 0 {
		t.Errorf("second RemoveAll returned %d entries", len(again))
	}
}

type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestScheduledFireDelivers(t *testing.T) {
	t.Parallel()
	clock := &movableClock{now: testNow}
	sched := schedule.New(schedule.Config{}, clock, logx.Nop())

	var mu sync.Mutex
	var got []delivery
	store := NewStore(sched, func(ctx context.Context, chatID int64, category string) error {
		mu.Lock()
		got = append(got, delivery{chatID, category})
		mu.Unlock()
		return nil
	}, logx.Nop())

	store.Add(7, "market", hourly("10:30"), "every hour")

	sched.RunPending()
	mu.Lock()
	if len(got) != 0 {
		t.Fatalf("delivered before due: %+v", got)
	}
	mu.Unlock()

	clock.Set(testNow.Add(time.Hour))
	sched.RunPending()
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != (delivery{7, "market"}) {
		t.Fatalf("deliveries = %+v, want one for (7, market)", got)
	}
}

func TestRestoreRebuildsJobs(t *testing.T) {
	t.Parallel()
	store, sched, _ := testStore(t)

	saved := []Saved{
		{Category: "market", Recurrence: hourly("11:00"), HumanView: "every hour at 11:00 UTC"},
		{Category: "network", Recurrence: schedule.Recurrence{Unit: schedule.UnitDay, Count: 2, TimeOfDay: "08:00"}, HumanView: "every 2 days at 08:00 UTC"},
		{Category: "broken", Recurrence: schedule.Recurrence{Unit: "week", Count: 1, TimeOfDay: "08:00"}},
		{Category: "market", Recurrence: hourly("15:00")}, // duplicate
	}

	if got := store.Restore(7, saved); got != 2 {
		t.Fatalf("Restore = %d, want 2 (invalid and duplicate skipped)", got)
	}
	if sched.Len() != 2 {
		t.Errorf("scheduler has %d jobs, want 2", sched.Len())
	}

	out := store.Export(7)
	if len(out) != 2 || out[0].Category != "market" || out[1].Category != "network" {
		t.Errorf("Export = %+v, want restored entries in order", out)
	}
}

func TestNextFireTracksSchedulerJob(t *testing.T) {
	t.Parallel()
	store, _, _ := testStore(t)

	n, err := store.Add(7, "market", hourly("11:30"), "every hour")
	if err != nil {
		t.Fatal(err)
	}
	next, ok := store.NextFire(n)
	if !ok {
		t.Fatal("NextFire: job not live")
	}
	if want := time.Date(2026, time.March, 10, 11, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("NextFire = %v, want %v", next, want)
	}

	store.RemoveCategory(7, "market")
	if _, ok := store.NextFire(n); ok {
		t.Error("NextFire still live after removal")
	}
}

func TestHas(t *testing.T) {
	t.Parallel()
	store, _, _ := testStore(t)

	store.Add(7, "market", hourly("11:00"), "every hour")
	if !store.Has(7, "market") {
		t.Error("Has(7, market) = false")
	}
	if store.Has(7, "network") {
		t.Error("Has(7, network) = true")
	}
	if store.Has(8, "market") {
		t.Error("Has(8, market) = true")
	}
}
