package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

const DefaultInterval = 60 * time.Minute

// Scheduler runs the ETL periodically.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    *Runner
	interval  time.Duration
}

func NewScheduler(runner *Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		interval:  interval,
	}
}

// Start schedules the job, which also fires immediately, and returns.
func (s *Scheduler) Start(ctx context.Context) error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running etl job")
		if _, err := s.runner.Run(ctx); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				log.Println("scheduler: etl already running, skipping")
				return
			}
			log.Printf("scheduler: etl failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
