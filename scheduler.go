package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// ingester is the part of ArticleProcessor the scheduler drives
type ingester interface {
	Ingest(ctx context.Context, newRun bool) (*IngestReport, error)
}

// Scheduler runs ingest on a cron schedule. A tick that fires while the
// previous ingest is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	ingester ingester
	schedule string
}

// NewScheduler creates a scheduler for the given cron expression
func NewScheduler(schedule string, ing ingester) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		ingester: ing,
		schedule: schedule,
	}
}

// Run ingests once immediately, then on every tick until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	job := func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.ingester.Ingest(ctx, false); err != nil {
			slog.Error("scheduled ingest failed", "error", err)
		}
	}

	if _, err := s.cron.AddFunc(s.schedule, job); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", s.schedule, err)
	}

	job()
	s.cron.Start()
	slog.Info("watching", "schedule", s.schedule)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
