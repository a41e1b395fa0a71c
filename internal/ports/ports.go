package ports

import (
	"context"
	"io"
	"time"

	"CaseScanner/internal/domain"
)

// CaseSource opens a case on the portal. A failure here fails the whole case.
type CaseSource interface {
	OpenCase(ctx context.Context, caseID domain.CaseID) (CasePage, error)
}

// CasePage exposes the activity and document tables of an opened case.
type CasePage interface {
	ActivityRows(ctx context.Context) (domain.Lookup[[]ActivityRow], error)
	DocumentRows(ctx context.Context) (domain.Lookup[[]DocumentRow], error)
}

// ActivityRow is one line of the andamentos table.
type ActivityRow interface {
	Date() string
	Type() string
	// Summary is the short inline description, empty when the row has none.
	Summary() string
	// Detail expands the publication text behind the row.
	Detail(ctx context.Context) (domain.Lookup[string], error)
}

// DocumentRow is one line of the documents table.
type DocumentRow interface {
	Date() string
	Filename() string
	Download(ctx context.Context) (domain.Download, error)
}

// NotificationFeed lists the notifications currently surfaced by the portal.
type NotificationFeed interface {
	FetchNotifications(ctx context.Context, now time.Time) ([]domain.Notification, error)
}

// DocumentStore persists downloaded files under a case-specific location.
type DocumentStore interface {
	Save(caseID domain.CaseID, filename string, body io.Reader) (string, error)
}

// CaseRepository is the store surface used by the automated run.
type CaseRepository interface {
	SaveNotifications(ctx context.Context, notifications []domain.Notification) (int, error)
	PendingCases(ctx context.Context) ([]domain.CaseBatch, error)
	RecentProcessedCases(ctx context.Context, limit int) ([]domain.CaseBatch, error)
	UpdateCase(ctx context.Context, caseID domain.CaseID, activities []domain.Activity, documents []domain.Document, isTest bool) (int64, error)
	MarkError(ctx context.Context, caseID domain.CaseID) (int64, error)
	AppendLog(ctx context.Context, log domain.ExecutionLog) error
}

// NotificationFilter narrows listings.
type NotificationFilter struct {
	Status    domain.Status
	Type      string
	CaseID    domain.CaseID
	OrderBy   string
	Ascending bool
	Page      int
	PerPage   int
}

// NotificationBrowser backs manual inspection and archiving.
type NotificationBrowser interface {
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error)
	CountNotifications(ctx context.Context, filter NotificationFilter) (int, error)
	NotificationTypes(ctx context.Context) ([]string, error)
	GetNotification(ctx context.Context, id int64) (domain.Notification, error)
	Archive(ctx context.Context, id int64) error
	Unarchive(ctx context.Context, id int64) error
	ListLogs(ctx context.Context, limit int) ([]domain.ExecutionLog, error)
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
