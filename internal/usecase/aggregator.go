package usecase

import (
	"time"

	"github.com/google/uuid"

	"CaseScanner/internal/domain"
)

// Aggregator tallies the outcome of one run. It is not safe for concurrent use.
type Aggregator struct {
	runID      string
	startedAt  time.Time
	succeeded  int
	failed     int
	activities int
	documents  int
	saved      int
	critical   bool
	reason     string
}

// NewAggregator starts a run at startedAt with a fresh run id.
func NewAggregator(startedAt time.Time) *Aggregator {
	return &Aggregator{runID: uuid.NewString(), startedAt: startedAt}
}

// RecordSuccess counts a case that reached Processed along with what it captured.
func (a *Aggregator) RecordSuccess(activities, documents int) {
	a.succeeded++
	a.activities += activities
	a.documents += documents
}

// RecordFailure counts a case that failed. Items captured before the failure still count.
func (a *Aggregator) RecordFailure(activities, documents int) {
	a.failed++
	a.activities += activities
	a.documents += documents
}

// SetNotificationsSaved records how many new notifications extraction stored.
func (a *Aggregator) SetNotificationsSaved(n int) {
	a.saved = n
}

// MarkCritical flags the run and counts one synthetic failure. Only the first reason is kept.
func (a *Aggregator) MarkCritical(reason string) {
	if a.critical {
		return
	}
	a.critical = true
	a.reason = reason
	a.failed++
}

// Critical reports whether MarkCritical was called.
func (a *Aggregator) Critical() bool {
	return a.critical
}

// Finish computes durations at now. The average is zero when no case was counted.
func (a *Aggregator) Finish(now time.Time) domain.ExecutionLog {
	total := now.Sub(a.startedAt)
	if total < 0 {
		total = 0
	}

	var avg time.Duration
	if cases := a.succeeded + a.failed; cases > 0 {
		avg = total / time.Duration(cases)
	}

	return domain.ExecutionLog{
		RunID:               a.runID,
		StartedAt:           a.startedAt,
		Duration:            total,
		AverageCaseDuration: avg,
		NotificationsSaved:  a.saved,
		ActivitiesCaptured:  a.activities,
		DocumentsDownloaded: a.documents,
		CasesSucceeded:      a.succeeded,
		CasesFailed:         a.failed,
		Critical:            a.critical,
		CriticalReason:      a.reason,
	}
}
