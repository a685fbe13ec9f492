package schedule

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"reportbot/pkg/logx"
)

// Handle identifies a scheduled job for cancellation. Opaque to callers.
type Handle string

// Config controls the scheduler.
type Config struct {
	Tick    time.Duration // interval between RunPending passes (default 30s)
	Workers int           // callback worker goroutines (default 2)
}

type job struct {
	handle Handle
	name   string
	rec    Recurrence
	next   time.Time
	run    func(ctx context.Context) error
}

type fire struct {
	name string
	run  func(ctx context.Context) error
}

// Scheduler owns recurring jobs: it computes next-fire times from an
// injectable clock, fires due callbacks on a cooperative tick loop, and
// supports idempotent cancellation by handle.
//
// Callbacks are dispatched onto a worker pool so a slow delivery never
// stalls the tick or other chats' jobs. A failing or panicking callback
// is logged and leaves its job live with the already-advanced fire time.
type Scheduler struct {
	mu    sync.Mutex
	log   logx.Logger
	cfg   Config
	clock Clock

	seq  uint64
	jobs map[Handle]*job

	queue    chan fire
	stopCh   chan struct{}
	runCtx   context.Context
	workerWG sync.WaitGroup
}

func New(cfg Config, clock Clock, log logx.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{
		cfg:   cfg,
		clock: clock,
		log:   log,
		jobs:  map[Handle]*job{},
	}
}

// Schedule registers a recurring callback and returns its handle.
// The first fire time is strictly in the future relative to the clock.
func (s *Scheduler) Schedule(rec Recurrence, name string, run func(ctx context.Context) error) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	h := Handle(fmt.Sprintf("job:%d", s.seq))
	j := &job{
		handle: h,
		name:   name,
		rec:    rec,
		next:   rec.First(s.clock.Now()),
		run:    run,
	}
	s.jobs[h] = j
	s.log.Debug("job scheduled",
		logx.String("handle", string(h)),
		logx.String("job", name),
		logx.Time("next", j.next))
	return h
}

// Cancel removes the job. Idempotent: cancelling an unknown or
// already-cancelled handle is a no-op, since cancellation can race
// with the job's own firing.
func (s *Scheduler) Cancel(h Handle) {
	s.mu.Lock()
	j, ok := s.jobs[h]
	if ok {
		delete(s.jobs, h)
	}
	s.mu.Unlock()
	if ok {
		s.log.Debug("job cancelled", logx.String("handle", string(h)), logx.String("job", j.name))
	}
}

// NextFire reports the pending fire time for a live job.
func (s *Scheduler) NextFire(h Handle) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[h]
	if !ok {
		return time.Time{}, false
	}
	return j.next, true
}

// Len reports the number of live jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// RunPending makes a single pass over all live jobs. Every due job has
// its callback dispatched and its next-fire time advanced by whole
// recurrence steps until strictly in the future (skip-forward: a backlog
// after a long pause yields one catch-up fire, not a replay storm).
//
// Not reentrant; the tick loop is its only caller in production.
func (s *Scheduler) RunPending() {
	now := s.clock.Now()

	s.mu.Lock()
	var due []fire
	for _, j := range s.jobs {
		if j.next.After(now) {
			continue
		}
		due = append(due, fire{name: j.name, run: j.run})
		for !j.next.After(now) {
			j.next = j.rec.Advance(j.next)
		}
	}
	queue := s.queue
	s.mu.Unlock()

	for _, f := range due {
		if queue == nil {
			// Not started (tests, restore-time fires): run inline.
			s.exec(context.Background(), f)
			continue
		}
		select {
		case queue <- f:
		default:
			s.log.Warn("scheduler queue full, dropping fire", logx.String("job", f.name))
		}
	}
}

// Start launches the tick loop and callback workers. It returns
// immediately; the loop stops when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.runCtx = ctx
	s.queue = make(chan fire, 64)

	tick := s.cfg.Tick
	if tick <= 0 {
		tick = 30 * time.Second
	}
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	stopCh := s.stopCh
	queue := s.queue

	s.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer s.workerWG.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopCh:
					return
				case f := <-queue:
					s.exec(ctx, f)
				}
			}
		}()
	}

	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-t.C:
				s.RunPending()
			}
		}
	}()

	s.mu.Unlock()
	s.log.Info("scheduler started",
		logx.Duration("tick", tick),
		logx.Int("workers", workers),
		logx.Int("jobs", s.Len()))
}

// Stop halts the tick loop and workers. Jobs stay registered so a later
// Start resumes them.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	s.queue = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop cancelled", logx.Err(ctx.Err()))
	}
}

func (s *Scheduler) exec(ctx context.Context, f fire) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduled job",
				logx.String("job", f.name),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
		}
	}()
	start := time.Now()
	if err := f.run(ctx); err != nil {
		s.log.Warn("scheduled job failed",
			logx.String("job", f.name),
			logx.Duration("took", time.Since(start)),
			logx.Err(err))
		return
	}
	s.log.Debug("scheduled job ok",
		logx.String("job", f.name),
		logx.Duration("took", time.Since(start)))
}
