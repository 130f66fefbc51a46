// Package scheduler provides interval-based scheduling for recurring engine
// work, such as the periodic refresh of dashboard targets.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yougis/lumen/internal/logger"
)

// Job is one recurring task.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Interval between runs. Must be positive.
	Interval time.Duration

	// Run performs the work. It receives the scheduler's context and
	// should return promptly when it is canceled.
	Run func(ctx context.Context)
}

// Scheduler runs registered jobs on their intervals. Jobs must be registered
// before Start; the zero ordering between jobs is unspecified.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []Job
	started bool
	wg      sync.WaitGroup
}

// New creates a new scheduler instance.
func New() *Scheduler {
	return &Scheduler{}
}

// Register adds a job to the scheduler.
func (s *Scheduler) Register(job Job) error {
	if job.Interval <= 0 {
		return fmt.Errorf("job %q: interval must be positive", job.Name)
	}
	if job.Run == nil {
		return fmt.Errorf("job %q: run function is required", job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("job %q: scheduler already started", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start launches every registered job. Jobs stop when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	jobs := s.jobs
	s.mu.Unlock()

	for _, job := range jobs {
		s.wg.Add(1)
		go s.run(ctx, job)
	}
}

// Wait blocks until every job has stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// run drives one job's tick loop.
func (s *Scheduler) run(ctx context.Context, job Job) {
	defer s.wg.Done()
	logger.Info("job scheduled",
		"job", job.Name, "interval", job.Interval.String())
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("job stopped", "job", job.Name)
			return
		case <-ticker.C:
			job.Run(ctx)
		}
	}
}
