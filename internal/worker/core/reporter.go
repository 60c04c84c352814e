package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is a point-in-time view of a tracker's schedule.
type Status struct {
	Name        string     `json:"name"`
	WorkerID    string     `json:"workerId"`
	Running     bool       `json:"running"`
	IsHealthy   bool       `json:"isHealthy"`
	Interval    string     `json:"interval"`
	LastRun     *time.Time `json:"lastRun"`
	LastSuccess *time.Time `json:"lastSuccess"`
	LastError   string     `json:"lastError,omitempty"`
	Runs        int64      `json:"runs"`
	Failures    int64      `json:"failures"`
	Skipped     int64      `json:"skipped"`
}

// StatusReporter records the outcome of every cycle of one tracker.
type StatusReporter struct {
	status Status
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStatusReporter creates a new status reporter for a tracker.
func NewStatusReporter(name string, interval time.Duration, logger *zap.Logger) *StatusReporter {
	return &StatusReporter{
		status: Status{
			Name:      name,
			WorkerID:  uuid.New().String(),
			IsHealthy: true,
			Interval:  interval.String(),
		},
		logger: logger.Named("status_reporter"),
	}
}

// Begin marks a cycle as started.
func (r *StatusReporter) Begin(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.Running = true
	r.status.LastRun = &at
	r.status.Runs++
}

// Finish marks the running cycle as done with its result.
func (r *StatusReporter) Finish(at time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.Running = false

	if err != nil {
		r.status.IsHealthy = false
		r.status.LastError = err.Error()
		r.status.Failures++

		return
	}

	r.status.IsHealthy = true
	r.status.LastError = ""
	r.status.LastSuccess = &at
}

// Skip records a tick dropped because the previous cycle was still running.
func (r *StatusReporter) Skip() {
	r.mu.Lock()
	r.status.Skipped++
	skipped := r.status.Skipped
	r.mu.Unlock()

	r.logger.Warn("Skipped cycle, previous one still running",
		zap.String("name", r.status.Name),
		zap.Int64("skipped", skipped))
}

// Snapshot returns a copy of the current status.
func (r *StatusReporter) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// GetWorkerID returns the unique worker ID.
func (r *StatusReporter) GetWorkerID() string {
	return r.status.WorkerID
}
