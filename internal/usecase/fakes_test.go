package usecase

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/infrastructure/storage"
	"CaseScanner/internal/matcher"
	"CaseScanner/internal/ports"
	"CaseScanner/internal/window"
)

type fakeActivity struct {
	date, kind, summary, detail string
}

func (f fakeActivity) Date() string    { return f.date }
func (f fakeActivity) Type() string    { return f.kind }
func (f fakeActivity) Summary() string { return f.summary }
func (f fakeActivity) Detail(context.Context) (domain.Lookup[string], error) {
	if f.detail == "" {
		return domain.NotFound[string](), nil
	}
	return domain.Found(f.detail), nil
}

type fakeDocument struct {
	date, name string
}

func (f fakeDocument) Date() string     { return f.date }
func (f fakeDocument) Filename() string { return f.name }
func (f fakeDocument) Download(context.Context) (domain.Download, error) {
	return domain.Download{Filename: f.name, Body: []byte(f.name)}, nil
}

type fakePage struct {
	activities []ports.ActivityRow
	documents  []ports.DocumentRow
	panics     bool
}

func (p *fakePage) ActivityRows(context.Context) (domain.Lookup[[]ports.ActivityRow], error) {
	if p.panics {
		panic("selector engine crashed")
	}
	return domain.Found(p.activities), nil
}

func (p *fakePage) DocumentRows(context.Context) (domain.Lookup[[]ports.DocumentRow], error) {
	return domain.Found(p.documents), nil
}

type fakeSource struct {
	mu     sync.Mutex
	pages  map[domain.CaseID]*fakePage
	opened []domain.CaseID
	cancel context.CancelFunc
}

func (f *fakeSource) OpenCase(_ context.Context, id domain.CaseID) (ports.CasePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, id)
	if f.cancel != nil {
		f.cancel()
	}
	page, ok := f.pages[id]
	if !ok {
		return nil, &domain.NavigationError{CaseID: id, State: domain.LookupTimeout}
	}
	return page, nil
}

type memoryFiles struct {
	mu    sync.Mutex
	names []string
}

func (m *memoryFiles) Save(caseID domain.CaseID, name string, body io.Reader) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rel := caseID.Folder() + "/" + name
	m.names = append(m.names, rel)
	return rel, nil
}

type fakeFeed struct {
	items []domain.Notification
	err   error
}

func (f *fakeFeed) FetchNotifications(context.Context, time.Time) ([]domain.Notification, error) {
	return f.items, f.err
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (r *recordingNotifier) PublishSummary(_ context.Context, summary string) error {
	r.messages = append(r.messages, summary)
	return r.err
}

// failingRepo wraps a real store and injects errors per operation.
type failingRepo struct {
	ports.CaseRepository
	pendingErr error
	updateErr  error
	appendErr  error
	logs       []domain.ExecutionLog
}

func (f *failingRepo) PendingCases(ctx context.Context) ([]domain.CaseBatch, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	return f.CaseRepository.PendingCases(ctx)
}

func (f *failingRepo) UpdateCase(ctx context.Context, id domain.CaseID, a []domain.Activity, d []domain.Document, isTest bool) (int64, error) {
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	return f.CaseRepository.UpdateCase(ctx, id, a, d, isTest)
}

func (f *failingRepo) AppendLog(ctx context.Context, log domain.ExecutionLog) error {
	f.logs = append(f.logs, log)
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.CaseRepository.AppendLog(ctx, log)
}

var errBoom = errors.New("boom")

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "cases.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedPending(t *testing.T, s ports.CaseRepository, caseID, date string) {
	t.Helper()
	day, err := domain.ParseDay(date)
	require.NoError(t, err)
	_, err = s.SaveNotifications(context.Background(), []domain.Notification{{
		CaseID: domain.CaseID(caseID),
		Type:   "Andamento de publicação",
		Date:   day,
	}})
	require.NoError(t, err)
}

func statusesByCase(t *testing.T, s *storage.Store) map[domain.CaseID][]domain.Status {
	t.Helper()
	items, err := s.ListNotifications(context.Background(), ports.NotificationFilter{PerPage: 100, OrderBy: "id", Ascending: true})
	require.NoError(t, err)
	out := map[domain.CaseID][]domain.Status{}
	for _, n := range items {
		out[n.CaseID] = append(out[n.CaseID], n.Status)
	}
	return out
}

func newReconciler(store ports.CaseRepository, source ports.CaseSource, files ports.DocumentStore, fallback bool) *Reconciler {
	return NewReconciler(ReconcilerDeps{
		Store:            store,
		Source:           source,
		Matcher:          matcher.New(files, nil, nil),
		Window:           window.New(window.DefaultTolerance),
		TestModeFallback: fallback,
	})
}
