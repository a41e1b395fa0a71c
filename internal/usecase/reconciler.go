package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/matcher"
	"CaseScanner/internal/ports"
	"CaseScanner/internal/window"
)

// DefaultTestModeLimit bounds how many processed cases are replayed when nothing is pending.
const DefaultTestModeLimit = 5

// ReconcilerDeps wires the store, the data source and the matching rules.
type ReconcilerDeps struct {
	Store            ports.CaseRepository
	Source           ports.CaseSource
	Matcher          *matcher.Matcher
	Window           window.Calculator
	TestModeFallback bool
	TestModeLimit    int
	Clock            func() time.Time
	Logger           *slog.Logger
}

// Reconciler advances every selected case from Pending to Processed or Error.
type Reconciler struct {
	store         ports.CaseRepository
	source        ports.CaseSource
	matcher       *matcher.Matcher
	window        window.Calculator
	fallback      bool
	testModeLimit int
	clock         func() time.Time
	logger        *slog.Logger
}

// CaseOutcome describes what one case produced.
type CaseOutcome struct {
	CaseID     domain.CaseID
	TestMode   bool
	Targets    []string
	Activities int
	Documents  int
	Updated    int64
	Duration   time.Duration
}

// NewReconciler constructs the reconciliation use case.
func NewReconciler(deps ReconcilerDeps) *Reconciler {
	limit := deps.TestModeLimit
	if limit <= 0 {
		limit = DefaultTestModeLimit
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	m := deps.Matcher
	if m == nil {
		m = matcher.New(nil, nil, deps.Logger)
	}
	return &Reconciler{
		store:         deps.Store,
		source:        deps.Source,
		matcher:       m,
		window:        window.New(deps.Window.Tolerance),
		fallback:      deps.TestModeFallback,
		testModeLimit: limit,
		clock:         clock,
		logger:        deps.Logger,
	}
}

// SelectCases returns the pending cases. When there are none and the fallback is enabled it
// returns the most recently processed cases instead, with testMode set.
func (r *Reconciler) SelectCases(ctx context.Context) ([]domain.CaseBatch, bool, error) {
	pending, err := r.store.PendingCases(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load pending cases: %w", err)
	}
	if len(pending) > 0 || !r.fallback {
		return pending, false, nil
	}

	recent, err := r.store.RecentProcessedCases(ctx, r.testModeLimit)
	if err != nil {
		return nil, false, fmt.Errorf("load test cases: %w", err)
	}
	return recent, len(recent) > 0, nil
}

// Reconcile processes the selected cases one at a time. A failing case never stops the loop;
// cancellation is honoured between cases only.
func (r *Reconciler) Reconcile(ctx context.Context, agg *Aggregator) error {
	cases, testMode, err := r.SelectCases(ctx)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		r.info("nothing to reconcile")
		return nil
	}

	r.info("reconcile start", "cases", len(cases), "test_mode", testMode)

	// a started case always runs to completion
	caseCtx := context.WithoutCancel(ctx)

	for _, batch := range cases {
		if err := ctx.Err(); err != nil {
			r.warn("reconcile interrupted", "error", err)
			return err
		}

		outcome, err := r.ProcessCase(caseCtx, batch, testMode)
		if err != nil {
			agg.RecordFailure(outcome.Activities, outcome.Documents)
			r.warn("case failed", "case", batch.CaseID.String(), "test_mode", testMode, "error", err)
			continue
		}

		agg.RecordSuccess(outcome.Activities, outcome.Documents)
		r.info("case processed",
			"case", batch.CaseID.String(),
			"activities", outcome.Activities,
			"documents", outcome.Documents,
			"rows", outcome.Updated,
			"duration", outcome.Duration.String())
	}

	return nil
}

// ProcessCase runs one case end to end. On failure outside test mode the case's Pending rows
// are moved to Error, so each Pending row ends in exactly one of Processed or Error.
func (r *Reconciler) ProcessCase(ctx context.Context, batch domain.CaseBatch, testMode bool) (outcome CaseOutcome, err error) {
	started := r.clock()
	outcome = CaseOutcome{CaseID: batch.CaseID, TestMode: testMode}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("case %s panicked: %v", batch.CaseID, rec)
		}
		if err != nil && !testMode {
			if _, markErr := r.store.MarkError(ctx, batch.CaseID); markErr != nil {
				err = errors.Join(err, fmt.Errorf("mark error: %w", markErr))
			}
		}
		outcome.Duration = r.clock().Sub(started)
	}()

	err = r.processCase(ctx, batch, testMode, &outcome)
	return outcome, err
}

func (r *Reconciler) processCase(ctx context.Context, batch domain.CaseBatch, testMode bool, outcome *CaseOutcome) error {
	targets, err := r.window.TargetDates(batch.Dates)
	if err != nil {
		return fmt.Errorf("target dates of %s: %w", batch.CaseID, err)
	}
	outcome.Targets = targets.Strings()
	r.debug("date window", "case", batch.CaseID.String(), "targets", outcome.Targets)

	page, err := r.source.OpenCase(ctx, batch.CaseID)
	if err != nil {
		return fmt.Errorf("open case %s: %w", batch.CaseID, err)
	}

	activities := r.matcher.MatchActivities(ctx, page, targets)
	outcome.Activities = len(activities)

	documents := r.matcher.MatchDocuments(ctx, batch.CaseID, page, targets)
	outcome.Documents = len(documents)

	updated, err := r.store.UpdateCase(ctx, batch.CaseID, activities, documents, testMode)
	if err != nil {
		return fmt.Errorf("update case %s: %w", batch.CaseID, err)
	}
	outcome.Updated = updated
	return nil
}

func (r *Reconciler) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Reconciler) info(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Reconciler) warn(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
