// Package sweep enforces job deadlines. The ledger never acts on its own
// when a deadline passes; a Sweeper periodically finds overdue jobs and
// drives them through the ordinary ledger operations on behalf of the
// client, so the same role, status and escrow checks apply.
//
//	created  past deadline → CancelJob    (client refunded)
//	accepted past deadline → RaiseDispute (arbitration decides)
//
// Jobs in any other status are left alone.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// DefaultSchedule runs a sweep once a minute.
const DefaultSchedule = "@every 1m"

// DefaultPageSize bounds how many overdue jobs one query loads.
const DefaultPageSize = 100

// Ledger is the subset of the ledger a Sweeper drives.
type Ledger interface {
	ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error)
	CancelJob(ctx context.Context, jobID id.JobID) (*job.Job, error)
	RaiseDispute(ctx context.Context, jobID id.JobID) (*job.Job, error)
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithSchedule sets the cron expression sweeps run on.
func WithSchedule(expr string) Option {
	return func(s *Sweeper) { s.schedule = expr }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

// WithClock overrides the time source deadlines are compared against.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithPageSize sets how many overdue jobs are loaded per query.
func WithPageSize(n int) Option {
	return func(s *Sweeper) { s.pageSize = n }
}

// Report summarizes one sweep.
type Report struct {
	Cancelled []id.JobID
	Disputed  []id.JobID
	// Skipped counts overdue jobs the ledger refused to move, usually
	// because another caller transitioned them first.
	Skipped int
}

// Sweeper runs deadline sweeps on a cron schedule.
type Sweeper struct {
	ledger   Ledger
	logger   *slog.Logger
	now      func() time.Time
	schedule string
	pageSize int

	mu      sync.Mutex
	cron    *cronlib.Cron
	running bool
}

// New creates a Sweeper. The schedule is validated here so a bad
// expression fails at startup rather than silently never firing.
func New(l Ledger, opts ...Option) (*Sweeper, error) {
	s := &Sweeper{
		ledger:   l,
		logger:   slog.Default(),
		now:      time.Now,
		schedule: DefaultSchedule,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if _, err := ParseSchedule(s.schedule); err != nil {
		return nil, fmt.Errorf("sweep: parse schedule %q: %w", s.schedule, err)
	}
	return s, nil
}

// Start begins running sweeps on the schedule. Overlapping runs are
// skipped while a previous sweep is still working.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cronlib.New(
		cronlib.WithParser(cronParser),
		cronlib.WithChain(cronlib.SkipIfStillRunning(cronlib.DiscardLogger)),
	)
	runCtx := context.WithoutCancel(ctx)
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(runCtx); err != nil {
			s.logger.Error("deadline sweep failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("sweep: schedule: %w", err)
	}
	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("deadline sweeper started", slog.String("schedule", s.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish or
// ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	done := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	select {
	case <-done.Done():
		s.logger.Info("deadline sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep processes every overdue created or accepted job once.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	now := s.now().UTC()
	report := &Report{}

	cancelled, skipped, err := s.sweepStatus(ctx, now, job.StatusCreated, s.cancel)
	report.Cancelled = cancelled
	report.Skipped += skipped
	if err != nil {
		return report, err
	}

	disputed, skipped, err := s.sweepStatus(ctx, now, job.StatusAccepted, s.dispute)
	report.Disputed = disputed
	report.Skipped += skipped
	if err != nil {
		return report, err
	}

	if len(report.Cancelled)+len(report.Disputed)+report.Skipped > 0 {
		s.logger.Info("deadline sweep finished",
			slog.Int("cancelled", len(report.Cancelled)),
			slog.Int("disputed", len(report.Disputed)),
			slog.Int("skipped", report.Skipped),
		)
	}
	return report, nil
}

type actFunc func(ctx context.Context, j *job.Job) error

func (s *Sweeper) sweepStatus(ctx context.Context, now time.Time, status job.Status, act actFunc) ([]id.JobID, int, error) {
	var (
		moved   []id.JobID
		skipped int
		cursor  id.JobID
	)
	for {
		if err := ctx.Err(); err != nil {
			return moved, skipped, err
		}
		page, err := s.ledger.ListJobs(ctx, job.ListOpts{
			Status:         status,
			DeadlineBefore: now,
			AfterID:        cursor,
			Limit:          s.pageSize,
		})
		if err != nil {
			return moved, skipped, fmt.Errorf("sweep: list %s jobs: %w", status, err)
		}
		for _, j := range page {
			cursor = j.ID
			err := act(identity.WithCaller(ctx, j.Client), j)
			switch {
			case err == nil:
				moved = append(moved, j.ID)
			case trustwork.Rejected(err):
				skipped++
				s.logger.Warn("deadline sweep skipped job",
					slog.String("job_id", j.ID.String()),
					slog.String("status", string(status)),
					slog.String("error", err.Error()),
				)
			default:
				return moved, skipped, err
			}
		}
		if len(page) < s.pageSize {
			return moved, skipped, nil
		}
	}
}

func (s *Sweeper) cancel(ctx context.Context, j *job.Job) error {
	_, err := s.ledger.CancelJob(ctx, j.ID)
	return err
}

func (s *Sweeper) dispute(ctx context.Context, j *job.Job) error {
	_, err := s.ledger.RaiseDispute(ctx, j.ID)
	return err
}
