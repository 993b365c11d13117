// Package scheduler fires the vacancy batch jobs: PublishDue on a fixed
// interval, score maintenance and the STANDARD_PLUS boost on cron schedules.
// A run that is still in progress causes the next trigger of the same job to
// be skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/DaniilOrchikov/blps-l1/internal/platform/config"
	"github.com/DaniilOrchikov/blps-l1/internal/platform/metrics"
	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/service"
)

const (
	JobPublishDue          = "publish_due"
	JobUpdateScores        = "update_promotion_scores"
	JobPromoteStandardPlus = "promote_standard_plus"
)

// Jobs is the batch surface of the vacancy service.
type Jobs interface {
	PublishDue(ctx context.Context) (service.BatchResult, error)
	RunHourly(ctx context.Context) (service.BatchResult, error)
	PromoteStandardPlus(ctx context.Context) (service.BatchResult, error)
}

type task func(ctx context.Context) (service.BatchResult, error)

type Runner struct {
	jobs    Jobs
	cfg     config.SchedulerConfig
	locker  Locker
	logger  *slog.Logger
	metrics *metrics.Metrics
	loc     *time.Location
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithLocker(locker Locker) Option {
	return func(r *Runner) {
		r.locker = locker
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLocation sets the time zone cron expressions are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(r *Runner) {
		r.loc = loc
	}
}

func New(jobs Jobs, cfg config.SchedulerConfig, opts ...Option) (*Runner, error) {
	if jobs == nil {
		return nil, errors.New("jobs are required")
	}
	if cfg.PublishDueInterval <= 0 {
		return nil, errors.New("publish due interval must be positive")
	}
	r := &Runner{jobs: jobs, cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.locker == nil {
		r.locker = NewLocalLocker()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	return r, nil
}

// Run blocks until ctx is cancelled, then waits for in-flight jobs to return.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(r.loc))
	if _, err := c.AddFunc(r.cfg.ScoreCron, func() { _, _ = r.fire(ctx, JobUpdateScores, r.jobs.RunHourly) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", JobUpdateScores, r.cfg.ScoreCron, err)
	}
	if _, err := c.AddFunc(r.cfg.PromoteCron, func() { _, _ = r.fire(ctx, JobPromoteStandardPlus, r.jobs.PromoteStandardPlus) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", JobPromoteStandardPlus, r.cfg.PromoteCron, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	})
	g.Go(func() error {
		r.every(ctx, r.cfg.PublishDueInterval, JobPublishDue, r.jobs.PublishDue)
		return nil
	})

	r.logger.InfoContext(ctx, "scheduler started",
		"publish_due_interval", r.cfg.PublishDueInterval,
		"score_cron", r.cfg.ScoreCron,
		"promote_cron", r.cfg.PromoteCron,
	)
	err := g.Wait()
	r.logger.Info("scheduler stopped")
	return err
}

func (r *Runner) every(ctx context.Context, interval time.Duration, name string, fn task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// a slow run delays the next tick; the lock still guards other instances
			_, _ = r.fire(ctx, name, fn)
		}
	}
}

// fire runs fn unless another run of the same job holds the lock. Errors and
// panics are logged; the scheduler itself never stops because of a job. It
// reports whether the job ran and the job's error, if any.
func (r *Runner) fire(ctx context.Context, name string, fn task) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	release, ok, err := r.locker.TryLock(ctx, name, r.cfg.LockTTL)
	if err != nil {
		r.logger.ErrorContext(ctx, "job lock failed", "job", name, "error", err)
		r.metrics.IncrementSkipped(name)
		return false, err
	}
	if !ok {
		r.logger.DebugContext(ctx, "job still running, skipping trigger", "job", name)
		r.metrics.IncrementSkipped(name)
		return false, nil
	}
	defer release()

	start := time.Now()
	res, err := r.safeRun(ctx, name, fn)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.logger.ErrorContext(ctx, "job failed", "job", name, "error", err, "duration", elapsed)
	} else {
		r.logger.InfoContext(ctx, "job finished",
			"job", name,
			"processed", res.Processed,
			"failed", res.Failed,
			"duration", elapsed,
		)
	}
	r.metrics.ObserveRun(name, outcome, elapsed, res.Failed)
	return true, err
}

func (r *Runner) safeRun(ctx context.Context, name string, fn task) (res service.BatchResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", name, p)
		}
	}()
	return fn(ctx)
}

// Trigger runs a job immediately, honoring the same skip-if-running lock.
// It returns false when the job was skipped.
func (r *Runner) Trigger(ctx context.Context, name string) (bool, error) {
	var fn task
	switch name {
	case JobPublishDue:
		fn = r.jobs.PublishDue
	case JobUpdateScores:
		fn = r.jobs.RunHourly
	case JobPromoteStandardPlus:
		fn = r.jobs.PromoteStandardPlus
	default:
		return false, fmt.Errorf("unknown job %q", name)
	}
	return r.fire(ctx, name, fn)
}
