package usecase

import (
	"context"
	"log/slog"
	"time"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	opts     RunOptions
	onResult func(domain.ExecutionLog, error)
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs. onResult may be nil.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, opts RunOptions, onResult func(domain.ExecutionLog, error), logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, opts: opts, onResult: onResult, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if s.logger != nil {
			s.logger.Info("scheduled run", "trigger", trigger.Format(time.RFC3339))
		}
		entry, err := s.pipeline.Run(ctx, s.opts)
		if s.onResult != nil {
			s.onResult(entry, err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
