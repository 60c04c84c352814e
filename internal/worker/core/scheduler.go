package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robalyx/rowatch/pkg/utils"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned by Trigger when the job is already running.
	ErrBusy = errors.New("job is already running")
	// ErrUnknownJob is returned by Trigger for names that were never added.
	ErrUnknownJob = errors.New("unknown job")
)

// Job is one polling cycle of a tracker.
type Job interface {
	RunOnce(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

// RunOnce calls f.
func (f JobFunc) RunOnce(ctx context.Context) error { return f(ctx) }

type scheduledJob struct {
	name     string
	interval time.Duration
	job      Job
	reporter *StatusReporter
	running  sync.Mutex
}

// Scheduler runs every added job on its own fixed interval. A tick that
// arrives while the job's previous cycle still runs is skipped.
type Scheduler struct {
	jobs         []*scheduledJob
	startupDelay time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// NewScheduler creates an empty Scheduler.
func NewScheduler(startupDelay time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		startupDelay: startupDelay,
		now:          time.Now,
		logger:       logger.Named("scheduler"),
	}
}

// Add registers a job. All jobs must be added before Start.
func (s *Scheduler) Add(name string, interval time.Duration, job Job) {
	s.jobs = append(s.jobs, &scheduledJob{
		name:     name,
		interval: interval,
		job:      job,
		reporter: NewStatusReporter(name, interval, s.logger),
	})
}

// Start runs every job immediately after the startup delay and then on its
// interval. It blocks until ctx is cancelled and all in-flight cycles finish.
func (s *Scheduler) Start(ctx context.Context) {
	if !utils.ContextSleepWithLog(ctx, s.startupDelay, s.logger, "Context cancelled during startup delay") {
		return
	}

	var wg conc.WaitGroup

	for _, job := range s.jobs {
		wg.Go(func() { s.loop(ctx, job) })
	}

	wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job *scheduledJob) {
	logger := s.logger.With(zap.String("job", job.name))
	logger.Info("Tracker started",
		zap.Duration("interval", job.interval),
		zap.String("workerID", job.reporter.GetWorkerID()))

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	s.tick(ctx, job, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping tracker")

			// Wait for an in-flight cycle
			job.running.Lock()
			job.running.Unlock() //nolint:staticcheck // empty critical section

			return
		case <-ticker.C:
			s.tick(ctx, job, logger)
		}
	}
}

// tick runs the job in the background unless it is already running, so a
// slow cycle never delays the ticker.
func (s *Scheduler) tick(ctx context.Context, job *scheduledJob, logger *zap.Logger) {
	if !job.running.TryLock() {
		job.reporter.Skip()
		return
	}

	go func() {
		defer job.running.Unlock()

		if err := s.run(ctx, job); err != nil {
			logger.Warn("Tracker cycle failed", zap.Error(err))
		}
	}()
}

// Trigger runs one cycle of the named job now and waits for it.
// Returns ErrBusy if the job is already running.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.name != name {
			continue
		}

		if !job.running.TryLock() {
			job.reporter.Skip()
			return fmt.Errorf("%w: %s", ErrBusy, name)
		}
		defer job.running.Unlock()

		return s.run(ctx, job)
	}

	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

func (s *Scheduler) run(ctx context.Context, job *scheduledJob) error {
	job.reporter.Begin(s.now())

	err := job.job.RunOnce(ctx)

	job.reporter.Finish(s.now(), err)

	return err
}

// Status returns the status of every job in the order they were added.
func (s *Scheduler) Status() []Status {
	statuses := make([]Status, 0, len(s.jobs))
	for _, job := range s.jobs {
		statuses = append(statuses, job.reporter.Snapshot())
	}

	return statuses
}
