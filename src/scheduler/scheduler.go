package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"market-stream/src/logger"

	"github.com/robfig/cron/v3"
)

// AccountHandler refreshes one account. It runs on the cron goroutine pool.
type AccountHandler func(ctx context.Context, accountID int64)

// Scheduler manages the per-account refresh jobs and the service-wide
// periodic tasks on a single cron instance. Overlapping runs of the same job
// are skipped, and panics inside a job are recovered and logged.
type Scheduler struct {
	Cron   *cron.Cron
	Logger *logger.Logger

	ctx     context.Context
	mu      sync.Mutex
	handler AccountHandler
	jobs    map[int64]cron.EntryID
}

// NewScheduler creates a Scheduler whose jobs receive ctx.
func NewScheduler(ctx context.Context, log *logger.Logger) *Scheduler {
	cl := logger.CronLogger{Logger: log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Logger: log,
		ctx:    ctx,
		jobs:   make(map[int64]cron.EntryID),
	}
}

// SetHandler installs the refresh callback. Jobs scheduled before the
// handler is set are no-ops until it is.
func (s *Scheduler) SetHandler(h AccountHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (s *Scheduler) StartAccountJob(accountID int64, interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("refresh interval for account %d must be at least 1s, got %s", accountID, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[accountID]; ok {
		return nil
	}

	id := s.Cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		s.runAccount(accountID)
	}))
	s.jobs[accountID] = id
	s.Logger.Debug("Scheduled refresh for account %d every %s", accountID, interval)
	return nil
}

func (s *Scheduler) StopAccountJob(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[accountID]
	if !ok {
		return
	}
	s.Cron.Remove(id)
	delete(s.jobs, accountID)
	s.Logger.Debug("Stopped refresh for account %d", accountID)
}

func (s *Scheduler) HasAccountJob(accountID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[accountID]
	return ok
}

func (s *Scheduler) AccountJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) runAccount(accountID int64) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h == nil || s.ctx.Err() != nil {
		return
	}
	h(s.ctx, accountID)
}

// -----------------------------------------------------------------------------

// AddFunc registers a named service-wide task on a cron spec
// ("@every 1m", "0 3 * * *", ...).
func (s *Scheduler) AddFunc(spec, name string, fn func(ctx context.Context)) error {
	_, err := s.Cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		fn(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.Logger.Info("Registered %s task (%s)", name, spec)
	return nil
}

// AddEvery registers a task on a fixed interval.
func (s *Scheduler) AddEvery(interval time.Duration, name string, fn func(ctx context.Context)) error {
	if interval < time.Second {
		return fmt.Errorf("register %s task: interval %s below 1s", name, interval)
	}
	return s.AddFunc("@every "+interval.String(), name, fn)
}

// -----------------------------------------------------------------------------

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("Scheduler started")
}

// Stop halts scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("Scheduler stopped")
}
