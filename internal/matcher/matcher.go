// Package matcher selects the activities and documents of a case that fall inside a date window.
package matcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
	"CaseScanner/internal/window"
)

// DefaultPublicationMarkers identify activity types whose full text must be captured.
var DefaultPublicationMarkers = []string{"PUBLICACAO DJ/DO"}

// Matcher walks a case page and collects the rows dated inside the target window.
type Matcher struct {
	files   ports.DocumentStore
	markers []string
	logger  *slog.Logger
}

// New wires the document store; empty markers fall back to DefaultPublicationMarkers.
func New(files ports.DocumentStore, markers []string, logger *slog.Logger) *Matcher {
	normalized := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			normalized = append(normalized, m)
		}
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultPublicationMarkers...)
	}
	return &Matcher{files: files, markers: normalized, logger: logger}
}

// IsPublication reports whether an activity type carries a publication text.
func (m *Matcher) IsPublication(activityType string) bool {
	upper := strings.ToUpper(activityType)
	for _, marker := range m.markers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// MatchActivities returns the activities dated inside targets, in page order.
// Publication rows get their detail text; a failed expansion leaves Text nil.
func (m *Matcher) MatchActivities(ctx context.Context, page ports.CasePage, targets window.DateSet) []domain.Activity {
	lookup, err := page.ActivityRows(ctx)
	if err != nil {
		m.warn("activity table unavailable", "error", err)
		return nil
	}
	if !lookup.Ok() {
		m.debug("activity table absent", "state", lookup.State.String())
		return nil
	}

	m.debug("scanning activities", "rows", len(lookup.Value))

	var found []domain.Activity
	for _, row := range lookup.Value {
		if !targets.Contains(row.Date()) {
			continue
		}

		day, err := domain.ParseDay(firstToken(row.Date()))
		if err != nil {
			m.warn("skip activity with bad date", "date", row.Date(), "error", err)
			continue
		}

		activity := domain.Activity{Date: day, Type: strings.TrimSpace(row.Type())}
		if m.IsPublication(activity.Type) {
			activity.Text = m.expand(ctx, row)
		} else if summary := strings.TrimSpace(row.Summary()); summary != "" {
			activity.Text = &summary
		}

		m.debug("activity matched", "date", activity.Date.String(), "type", activity.Type, "has_text", activity.Text != nil)
		found = append(found, activity)
	}

	return found
}

func (m *Matcher) expand(ctx context.Context, row ports.ActivityRow) *string {
	detail, err := row.Detail(ctx)
	if err != nil {
		m.warn("publication detail failed", "date", row.Date(), "type", row.Type(), "error", err)
		return nil
	}
	if !detail.Ok() {
		m.warn("publication detail missing", "date", row.Date(), "state", detail.State.String())
		return nil
	}

	text := strings.TrimSpace(detail.Value)
	if text == "" {
		return nil
	}
	return &text
}

// MatchDocuments downloads every document dated inside targets and records where it was stored.
// A failed download is logged and skipped.
func (m *Matcher) MatchDocuments(ctx context.Context, caseID domain.CaseID, page ports.CasePage, targets window.DateSet) []domain.Document {
	lookup, err := page.DocumentRows(ctx)
	if err != nil {
		m.warn("document table unavailable", "case", caseID.String(), "error", err)
		return nil
	}
	if !lookup.Ok() {
		m.debug("document table absent", "case", caseID.String(), "state", lookup.State.String())
		return nil
	}

	var saved []domain.Document
	for _, row := range lookup.Value {
		if !targets.Contains(row.Date()) {
			continue
		}

		doc, err := m.download(ctx, caseID, row)
		if err != nil {
			m.warn("document skipped", "error", err)
			continue
		}
		saved = append(saved, doc)
	}

	return saved
}

func (m *Matcher) download(ctx context.Context, caseID domain.CaseID, row ports.DocumentRow) (domain.Document, error) {
	failure := func(err error) error {
		return &domain.DownloadFailure{CaseID: caseID, Filename: row.Filename(), Err: err}
	}

	day, err := domain.ParseDay(firstToken(row.Date()))
	if err != nil {
		return domain.Document{}, failure(err)
	}
	if m.files == nil {
		return domain.Document{}, failure(fmt.Errorf("document store is not configured"))
	}

	file, err := row.Download(ctx)
	if err != nil {
		return domain.Document{}, failure(err)
	}

	name := file.Filename
	if name == "" {
		name = row.Filename()
	}

	rel, err := m.files.Save(caseID, name, bytes.NewReader(file.Body))
	if err != nil {
		return domain.Document{}, failure(err)
	}

	m.debug("document saved", "case", caseID.String(), "path", rel)
	return domain.Document{Date: day, Filename: name, RelativePath: rel}, nil
}

func firstToken(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (m *Matcher) debug(msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Matcher) warn(msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
