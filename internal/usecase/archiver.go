package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
)

const defaultPerPage = 20

// Archiver backs manual inspection: listing, archiving and restoring notifications.
type Archiver struct {
	browser ports.NotificationBrowser
	logger  *slog.Logger
}

// NewArchiver wraps a notification browser.
func NewArchiver(browser ports.NotificationBrowser, logger *slog.Logger) *Archiver {
	return &Archiver{browser: browser, logger: logger}
}

// Page returns one page of notifications together with the total matching the filter.
func (a *Archiver) Page(ctx context.Context, filter ports.NotificationFilter) ([]domain.Notification, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = defaultPerPage
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown status %q", filter.Status)
	}

	items, err := a.browser.ListNotifications(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := a.browser.CountNotifications(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get loads one notification.
func (a *Archiver) Get(ctx context.Context, id int64) (domain.Notification, error) {
	return a.browser.GetNotification(ctx, id)
}

// Types lists the distinct notification types.
func (a *Archiver) Types(ctx context.Context) ([]string, error) {
	return a.browser.NotificationTypes(ctx)
}

// Logs lists the latest execution logs.
func (a *Archiver) Logs(ctx context.Context, limit int) ([]domain.ExecutionLog, error) {
	if limit < 1 {
		limit = defaultPerPage
	}
	return a.browser.ListLogs(ctx, limit)
}

// Archive hides a processed notification.
func (a *Archiver) Archive(ctx context.Context, id int64) error {
	if err := a.browser.Archive(ctx, id); err != nil {
		return err
	}
	a.info("notification archived", "id", id)
	return nil
}

// Unarchive restores the status the notification had before archiving.
func (a *Archiver) Unarchive(ctx context.Context, id int64) error {
	if err := a.browser.Unarchive(ctx, id); err != nil {
		return err
	}
	a.info("notification restored", "id", id)
	return nil
}

func (a *Archiver) info(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Info(msg, args...)
	}
}
