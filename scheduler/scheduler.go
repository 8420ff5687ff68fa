// Package scheduler runs the daemon's jobs on interval or cron triggers,
// built on robfig/cron. Jobs never overlap themselves: a tick that fires
// while the previous run is still in flight is skipped and counted.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/minotaur-io/minotaur/component"
	"github.com/minotaur-io/minotaur/errors"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/telemetry"
)

// Reporter receives job failures and recovered panics.
// *telemetry.Telemetry satisfies it.
type Reporter interface {
	CaptureError(err error, tags map[string]string)
	CapturePanic(recovered any, scope string)
}

var _ Reporter = (*telemetry.Telemetry)(nil)

// Job is a unit of scheduled work.
type Job struct {
	// ID uniquely identifies the job; assigned if empty.
	ID string
	// Name labels the job in logs and metrics.
	Name string
	// Trigger decides when the job fires. Zero means the configured
	// default interval.
	Trigger Trigger
	// Run does the work. The context is canceled on shutdown.
	Run func(ctx context.Context) error
}

// managedJob pairs a Job with its cron entry and overlap guard.
type managedJob struct {
	job     Job
	entryID cron.EntryID
	inRun   atomic.Bool
}

// Scheduler runs registered jobs and implements component.Component.
type Scheduler struct {
	cfg      Config
	log      *logger.Logger
	reporter Reporter
	cron     *cron.Cron

	mu      sync.Mutex
	jobs    map[string]*managedJob
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
}

var _ component.Component = (*Scheduler)(nil)

// New creates a Scheduler. A nil reporter disables failure capture.
func New(cfg Config, reporter Reporter, log *logger.Logger) (*Scheduler, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	return &Scheduler{
		cfg:      cfg,
		log:      log.WithComponent("scheduler"),
		reporter: reporter,
		cron:     cron.New(),
		jobs:     make(map[string]*managedJob),
	}, nil
}

// DefaultInterval returns the configured default trigger interval.
func (s *Scheduler) DefaultInterval() time.Duration { return s.cfg.Interval }

// AddJob registers a job. Jobs may be added before or after Start; a job
// added to a running scheduler begins firing immediately. Returns the job ID.
func (s *Scheduler) AddJob(job Job) (string, error) {
	if job.Run == nil {
		return "", fmt.Errorf("job %q has no run function", job.Name)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Name == "" {
		job.Name = job.ID
	}
	if job.Trigger.IsZero() {
		job.Trigger = Interval(s.cfg.Interval)
	}

	schedule, err := job.Trigger.Schedule()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return "", fmt.Errorf("job %s already registered", job.ID)
	}

	mj := &managedJob{job: job}
	mj.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.runJob(mj) }))
	s.jobs[job.ID] = mj

	s.log.Info("Job registered", map[string]interface{}{
		logger.FieldJob: job.Name,
		"id":            job.ID,
		"trigger":       job.Trigger.String(),
	})
	return job.ID, nil
}

// RemoveJob unregisters a job by ID.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mj, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not registered", id)
	}
	s.cron.Remove(mj.entryID)
	delete(s.jobs, id)
	return nil
}

// Jobs returns a snapshot of registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, mj := range s.jobs {
		jobs = append(jobs, mj.job)
	}
	return jobs
}

// Name returns the component name.
func (s *Scheduler) Name() string { return "scheduler" }

// Start begins firing triggers.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true

	s.log.Info("Scheduler started", map[string]interface{}{
		"jobs": len(s.jobs),
	})
	return nil
}

// Stop cancels job contexts and waits for in-flight runs up to the grace
// period.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	done := s.cron.Stop().Done()

	select {
	case <-done:
		return nil
	case <-time.After(s.cfg.Grace):
		return errors.Timeout("scheduler shutdown")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports the component health.
func (s *Scheduler) Health(ctx context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return component.Health{
			Name:    s.Name(),
			Status:  component.StatusUnhealthy,
			Message: "scheduler not started",
		}
	}
	return component.Health{
		Name:    s.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d jobs", len(s.jobs)),
	}
}

// runJob executes one tick of a job with overlap skipping, panic recovery,
// and metrics.
func (s *Scheduler) runJob(mj *managedJob) {
	if !mj.inRun.CompareAndSwap(false, true) {
		telemetry.JobOverlapSkips.WithLabelValues(mj.job.Name).Inc()
		s.log.Warn("Job tick skipped, previous run still in flight", map[string]interface{}{
			logger.FieldJob: mj.job.Name,
		})
		return
	}
	defer mj.inRun.Store(false)

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			telemetry.JobRunCounter.WithLabelValues(mj.job.Name, "panic").Inc()
			if s.reporter != nil {
				s.reporter.CapturePanic(r, "scheduler."+mj.job.Name)
			}
		}
	}()

	start := time.Now()
	err := mj.job.Run(ctx)
	telemetry.JobRunDuration.WithLabelValues(mj.job.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.JobRunCounter.WithLabelValues(mj.job.Name, "error").Inc()
		s.log.WithError(err).Error("Job run failed", map[string]interface{}{
			logger.FieldJob: mj.job.Name,
		})
		if s.reporter != nil {
			s.reporter.CaptureError(err, map[string]string{"job": mj.job.Name})
		}
		return
	}
	telemetry.JobRunCounter.WithLabelValues(mj.job.Name, "ok").Inc()
}
