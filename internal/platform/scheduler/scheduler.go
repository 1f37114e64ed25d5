// Package scheduler runs periodic maintenance tasks (cache sweeps, job purges).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one unit of periodic work. It receives a context bounded by the
// task timeout.
type Task func(ctx context.Context) error

// Scheduler manages all cron tasks.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu    sync.Mutex
	tasks map[string]Task
}

// New creates a Scheduler. Each run is cut off after timeout; overlapping
// runs of the same task are skipped and panics are recovered.
func New(timeout time.Duration) *Scheduler {
	l := slogLogger{}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		timeout: timeout,
		tasks:   map[string]Task{},
	}
}

// Register adds task under name on the given cron spec
// (standard five fields or descriptors such as "@every 1m").
func (s *Scheduler) Register(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tasks[name]; dup {
		return fmt.Errorf("task %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, task) }); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.tasks[name] = task
	return nil
}

// RunNow executes the named task immediately on the calling goroutine.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %q not registered", name)
	}
	return s.run(name, task)
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "tasks", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running tasks until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(name string, task Task) error {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := task(ctx); err != nil {
		slog.Error("scheduled task failed", "task", name, "error", err)
		return err
	}
	slog.Debug("scheduled task done", "task", name, "elapsed", time.Since(start))
	return nil
}

// slogLogger adapts cron.Logger to log/slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
