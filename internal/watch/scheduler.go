package watch

import (
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/mdstruct/internal/logfields"
)

// Scheduler wraps gocron for periodic full rescans of tracked documents.
// File watching catches most edits; scheduled rescans cover changes made
// while the process was not running or on filesystems without inotify.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// ScheduleRescan registers a cron-driven rescan task. Returns the job ID
// for later management.
func (s *Scheduler) ScheduleRescan(cronExpr string, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			slog.Info("Running scheduled rescan", logfields.ScheduleName("rescan"))
			task()
		}),
		gocron.WithName("rescan"),
	)
	if err != nil {
		return "", fmt.Errorf("create rescan job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
