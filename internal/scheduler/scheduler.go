// Package scheduler runs the periodic lifecycle jobs.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named cron job
type Job interface {
	cron.Job
	Name() string
}

type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// New builds a scheduler whose jobs recover from panics, are logged with an
// execution id and never overlap with themselves.
func New(logger *zap.Logger) *Scheduler {
	log := logger.Named("scheduler")
	c := cron.New(
		cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			recoverWrapper(log),
			loggingWrapper(log),
		),
	)
	return &Scheduler{cron: c, log: log}
}

// Add registers job under a standard five-field cron expression
func (s *Scheduler) Add(spec string, job Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %s at %q: %w", job.Name(), spec, err)
	}
	s.log.Info("job scheduled", zap.String("job_name", job.Name()), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
	}
}

func jobName(j cron.Job) string {
	if named, ok := j.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", j)
}

// namedFunc keeps the wrapped job's name visible to outer wrappers
type namedFunc struct {
	name string
	fn   func()
}

func (n namedFunc) Name() string { return n.name }
func (n namedFunc) Run()         { n.fn() }

func loggingWrapper(log *zap.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return namedFunc{name: jobName(j), fn: func() {
			jobLog := log.With(
				zap.String("job_name", jobName(j)),
				zap.String("execution_id", uuid.New().String()),
			)
			start := time.Now()
			jobLog.Info("Job execution started")
			j.Run()
			jobLog.Info("Job execution finished", zap.Duration("duration", time.Since(start)))
		}}
	}
}

func recoverWrapper(log *zap.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return namedFunc{name: jobName(j), fn: func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("Job panicked",
						zap.String("job_name", jobName(j)),
						zap.Any("panic", r),
						zap.String("stack_trace", string(debug.Stack())))
				}
			}()
			j.Run()
		}}
	}
}
