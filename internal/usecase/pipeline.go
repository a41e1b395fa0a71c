package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
	"CaseScanner/internal/report"
)

// PipelineDeps wires all driven adapters into the run pipeline.
type PipelineDeps struct {
	Extractor  *Extractor
	Reconciler *Reconciler
	Store      ports.CaseRepository
	Notifier   ports.Notifier
	Location   *time.Location
	Clock      func() time.Time
	Logger     *slog.Logger
}

// RunOptions toggles optional stages of a run.
type RunOptions struct {
	SkipExtraction bool
}

// Pipeline runs extraction, reconciliation, the execution log and the summary in order.
type Pipeline struct {
	extractor  *Extractor
	reconciler *Reconciler
	store      ports.CaseRepository
	notifier   ports.Notifier
	location   *time.Location
	clock      func() time.Time
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		extractor:  deps.Extractor,
		reconciler: deps.Reconciler,
		store:      deps.Store,
		notifier:   deps.Notifier,
		location:   loc,
		clock:      clock,
		logger:     deps.Logger,
	}
}

// Run executes one full run. The execution log is appended even when a stage fails; the
// returned error is a *domain.CriticalFailure in that case. An interrupted run is logged
// without the critical marker and returns an error wrapping context.Canceled.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (domain.ExecutionLog, error) {
	agg := NewAggregator(p.clock())

	runErr := p.execute(ctx, agg, opts)
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		p.warn("run interrupted", "error", runErr)
	default:
		agg.MarkCritical(runErr.Error())
		p.logError("run failed", "error", runErr)
	}

	entry := agg.Finish(p.clock())

	if p.store != nil {
		if err := p.store.AppendLog(context.WithoutCancel(ctx), entry); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("append execution log: %w", err))
		}
	}

	p.notify(ctx, entry)

	p.info("run finished",
		"run_id", entry.RunID,
		"succeeded", entry.CasesSucceeded,
		"failed", entry.CasesFailed,
		"activities", entry.ActivitiesCaptured,
		"documents", entry.DocumentsDownloaded,
		"duration", entry.Duration.String())

	return entry, runErr
}

func (p *Pipeline) execute(ctx context.Context, agg *Aggregator, opts RunOptions) (err error) {
	stage := "extraction"
	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.CriticalFailure{Stage: stage, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	if !opts.SkipExtraction && p.extractor != nil {
		saved, err := p.extractor.Extract(ctx)
		if err != nil {
			return stageError(stage, err)
		}
		agg.SetNotificationsSaved(saved)
	}

	stage = "reconcile"
	if p.reconciler == nil {
		return nil
	}
	if err := p.reconciler.Reconcile(ctx, agg); err != nil {
		return stageError(stage, err)
	}
	return nil
}

// stageError marks a stage failure critical unless the run was interrupted.
func stageError(stage string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s interrupted: %w", stage, err)
	}
	return &domain.CriticalFailure{Stage: stage, Err: err}
}

func (p *Pipeline) notify(ctx context.Context, entry domain.ExecutionLog) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishSummary(context.WithoutCancel(ctx), report.Summary(entry, p.location)); err != nil {
		p.warn("summary not delivered", "error", err)
	}
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) logError(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
