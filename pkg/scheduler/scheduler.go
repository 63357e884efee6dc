// Package scheduler runs the background refresh job that periodically
// re-enumerates the bucket through a superseding listing run.
package scheduler

import (
	"context"
	"io"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/bucketdiver/bucketdiver/pkg/browser"
	"github.com/bucketdiver/bucketdiver/pkg/config"
)

// Scheduler manages the periodic bucket refresh.
type Scheduler struct {
	cron    *cron.Cron
	browser *browser.Browser
	cfg     config.Config
	log     *slog.Logger
}

// NewScheduler creates a scheduler over the given browser.
func NewScheduler(cfg config.Config, b *browser.Browser) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		browser: b,
		cfg:     cfg,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger.
func (s *Scheduler) SetLogger(log *slog.Logger) {
	s.log = log
}

// Start registers the refresh job and starts the cron loop. A refresh that
// collides with an active session is skipped and retried on the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Scan.EnableBackgroundRefresh {
		s.log.Info("Background refresh is disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Scan.CronSchedule, func() {
		s.log.Info("Starting scheduled bucket refresh")
		if err := s.browser.Refresh(ctx); err != nil {
			s.log.Warn("Scheduled refresh skipped", slog.String("reason", err.Error()))
		}
	})
	if err != nil {
		return err
	}

	s.log.Info("Starting scheduler", slog.String("schedule", s.cfg.Scan.CronSchedule))
	s.cron.Start()
	return nil
}

// Stop stops the cron loop. Jobs already running are not interrupted.
func (s *Scheduler) Stop() {
	s.log.Info("Stopping scheduler")
	s.cron.Stop()
}
