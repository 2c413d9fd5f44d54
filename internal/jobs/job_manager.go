package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Job is a long running background task. Run blocks until ctx is cancelled.
type Job interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
}

type JobManager struct {
	jobs        []Job
	logger      *slog.Logger
	wg          sync.WaitGroup
	cancelFuncs map[string]context.CancelFunc
	failures    chan error
	mu          sync.Mutex
}

func NewJobManager(logger *slog.Logger) *JobManager {
	return &JobManager{
		jobs:        make([]Job, 0),
		logger:      logger,
		cancelFuncs: make(map[string]context.CancelFunc),
		failures:    make(chan error, 8),
	}
}

func (jm *JobManager) Register(job Job) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs = append(jm.jobs, job)
}

// Start runs every registered job that is not already running.
func (jm *JobManager) Start(ctx context.Context) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	for _, job := range jm.jobs {
		if _, exists := jm.cancelFuncs[job.Name()]; exists {
			continue
		}

		jobCtx, cancel := context.WithCancel(ctx)
		jm.cancelFuncs[job.Name()] = cancel

		jm.wg.Add(1)
		go func(j Job) {
			defer jm.wg.Done()
			jm.logger.Info("Starting Job", "name", j.Name(), "interval", j.Interval())
			if err := j.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				jm.logger.Error("Job failed", "job", j.Name(), "error", err)
				select {
				case jm.failures <- &JobError{Job: j.Name(), Err: err}:
				default:
				}
			}
		}(job)
	}
}

// Failures reports jobs that stopped with an error other than cancellation.
func (jm *JobManager) Failures() <-chan error {
	return jm.failures
}

func (jm *JobManager) Shutdown(ctx context.Context) {
	jm.logger.Debug("Shutting down job manager...")
	jm.stopAllJobs()

	done := make(chan struct{})
	go func() {
		jm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		jm.logger.Debug("All jobs stopped cleanly")
	case <-ctx.Done():
		jm.logger.Warn("Job's failed to shutdown, exiting...")
		return
	}
}

func (jm *JobManager) stopAllJobs() {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	for _, job := range jm.jobs {
		if cancel, exists := jm.cancelFuncs[job.Name()]; exists {
			jm.logger.Debug("Stopping Job", "job", job.Name())
			cancel()
			delete(jm.cancelFuncs, job.Name())
		}
	}
}

type JobError struct {
	Job string
	Err error
}

func (e *JobError) Error() string {
	return "job " + e.Job + " failed: " + e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}
