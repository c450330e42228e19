// Package scheduler fires the daily pipeline run. A job fires when the
// current time in the reference zone falls within a small window of its
// configured time of day and the job's persisted last-run date has not yet
// reached today. The date marker is claimed atomically before any work, so
// a crash mid-run cannot cause a same-day re-fire: semantics are
// at-most-once per day, and a crash costs that day's run.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/townwire/townwire/internal/config"
)

// JobClaimer atomically claims one (job, date). Claim returns true exactly
// once per job per date across all processes sharing the store.
type JobClaimer interface {
	Claim(ctx context.Context, job, date string) (bool, error)
}

// Job is one scheduled unit of work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs registered jobs once per day inside the configured window.
type Scheduler struct {
	claimer  JobClaimer
	cfg      config.SchedulerConfig
	location *time.Location
	logger   *slog.Logger
	jobs     []Job
	stopChan chan struct{}
	now      func() time.Time
}

// New builds a scheduler.
func New(claimer JobClaimer, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		claimer:  claimer,
		cfg:      cfg,
		location: cfg.Location(),
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Register adds a job. Not safe to call after Start.
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start begins the scheduler loop and blocks until Stop or ctx cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting scheduler",
		"run_at", s.cfg.RunAt,
		"timezone", s.cfg.Timezone,
		"window", s.cfg.Window,
		"check_interval", s.cfg.CheckInterval,
	)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	// Check once immediately so a restart inside the window still fires.
	s.checkAndRun(ctx)

	for {
		select {
		case <-ticker.C:
			s.checkAndRun(ctx)
		case <-s.stopChan:
			s.logger.Info("scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return
		}
	}
}

// Stop stops the scheduler loop.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) checkAndRun(ctx context.Context) {
	now := s.now().In(s.location)
	if !s.inWindow(now) {
		return
	}

	date := now.Format("2006-01-02")
	for _, job := range s.jobs {
		claimed, err := s.claimer.Claim(ctx, job.Name, date)
		if err != nil {
			s.logger.Error("job claim failed", "job", job.Name, "date", date, "error", err)
			continue
		}
		if !claimed {
			s.logger.Debug("job already ran today", "job", job.Name, "date", date)
			continue
		}

		s.logger.Info("running scheduled job", "job", job.Name, "date", date)
		started := s.now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", job.Name, "date", date, "error", err)
			continue
		}
		s.logger.Info("scheduled job complete", "job", job.Name, "date", date, "duration", s.now().Sub(started))
	}
}

// inWindow reports whether now lies within the firing window around the
// configured time of day.
func (s *Scheduler) inWindow(now time.Time) bool {
	runAt, err := time.Parse("15:04", s.cfg.RunAt)
	if err != nil {
		s.logger.Error("invalid run-at clock", "run_at", s.cfg.RunAt, "error", err)
		return false
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), runAt.Hour(), runAt.Minute(), 0, 0, s.location)
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= s.cfg.Window
}
