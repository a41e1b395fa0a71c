package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"CaseScanner/internal/ports"
)

// Extractor pulls the notifications listed on the portal and stores them as Pending.
type Extractor struct {
	feed   ports.NotificationFeed
	store  ports.CaseRepository
	clock  func() time.Time
	logger *slog.Logger
}

// NewExtractor wires the feed and the store; a nil clock uses time.Now.
func NewExtractor(feed ports.NotificationFeed, store ports.CaseRepository, clock func() time.Time, logger *slog.Logger) *Extractor {
	if clock == nil {
		clock = time.Now
	}
	return &Extractor{feed: feed, store: store, clock: clock, logger: logger}
}

// Extract returns how many notifications were saved.
func (e *Extractor) Extract(ctx context.Context) (int, error) {
	if e.feed == nil {
		return 0, nil
	}

	notifications, err := e.feed.FetchNotifications(ctx, e.clock())
	if err != nil {
		return 0, fmt.Errorf("fetch notifications: %w", err)
	}
	if len(notifications) == 0 {
		e.debug("no new notifications")
		return 0, nil
	}

	saved, err := e.store.SaveNotifications(ctx, notifications)
	if err != nil {
		return 0, fmt.Errorf("save notifications: %w", err)
	}

	e.debug("notifications saved", "fetched", len(notifications), "saved", saved)
	return saved, nil
}

func (e *Extractor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
