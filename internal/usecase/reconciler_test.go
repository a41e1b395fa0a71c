package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
)

func TestReconcilePublicationScenario(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedPending(t, store, "2024/123-000", "10/01/2024")

	source := &fakeSource{pages: map[domain.CaseID]*fakePage{
		"2024/123-000": {activities: []ports.ActivityRow{
			fakeActivity{date: "09/01/2024", kind: "PUBLICACAO DJ/DO", detail: "Intimação da parte autora."},
			fakeActivity{date: "05/01/2024", kind: "Juntada", summary: "fora da janela"},
		}},
	}}

	r := newReconciler(store, source, &memoryFiles{}, true)
	cases, testMode, err := r.SelectCases(context.Background())
	require.NoError(t, err)
	require.False(t, testMode)
	require.Len(t, cases, 1)

	outcome, err := r.ProcessCase(context.Background(), cases[0], testMode)
	require.NoError(t, err)
	require.Equal(t, []string{"08/01/2024", "09/01/2024", "10/01/2024"}, outcome.Targets)
	require.Equal(t, 1, outcome.Activities)
	require.EqualValues(t, 1, outcome.Updated)

	items, err := store.ListNotifications(context.Background(), ports.NotificationFilter{CaseID: "2024/123-000"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, domain.StatusProcessed, items[0].Status)
	require.Len(t, items[0].Activities, 1)
	require.Equal(t, "PUBLICACAO DJ/DO", items[0].Activities[0].Type)
	require.NotNil(t, items[0].Activities[0].Text)
	require.Equal(t, "Intimação da parte autora.", *items[0].Activities[0].Text)
}

func TestReconcileTwoDatesUnion(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedPending(t, store, "2024/001-000", "01/02/2024")
	seedPending(t, store, "2024/001-000", "05/02/2024")

	files := &memoryFiles{}
	source := &fakeSource{pages: map[domain.CaseID]*fakePage{
		"2024/001-000": {documents: []ports.DocumentRow{
			fakeDocument{date: "31/01/2024", name: "a.pdf"},
			fakeDocument{date: "02/02/2024", name: "gap.pdf"},
			fakeDocument{date: "03/02/2024 10:00", name: "b.pdf"},
		}},
	}}

	r := newReconciler(store, source, files, true)
	cases, _, err := r.SelectCases(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 1)

	outcome, err := r.ProcessCase(context.Background(), cases[0], false)
	require.NoError(t, err)
	require.Len(t, outcome.Targets, 6)
	require.Equal(t, 2, outcome.Documents)
	require.EqualValues(t, 2, outcome.Updated)
	require.Equal(t, []string{"2024_001_000/a.pdf", "2024_001_000/b.pdf"}, files.names)

	require.Equal(t, []domain.Status{domain.StatusProcessed, domain.StatusProcessed}, statusesByCase(t, store)["2024/001-000"])
}

func TestReconcileEachCaseEndsProcessedOrError(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedPending(t, store, "2024/001-000", "10/01/2024")
	seedPending(t, store, "2024/002-000", "10/01/2024")
	seedPending(t, store, "2024/003-000", "10/01/2024")
	seedPending(t, store, "2024/002-000", "11/01/2024")

	source := &fakeSource{pages: map[domain.CaseID]*fakePage{
		"2024/001-000": {activities: []ports.ActivityRow{fakeActivity{date: "10/01/2024", kind: "Conclusos"}}},
		"2024/003-000": {panics: true},
	}}

	agg := NewAggregator(time.Now())
	require.NoError(t, newReconciler(store, source, nil, true).Reconcile(context.Background(), agg))

	statuses := statusesByCase(t, store)
	require.Equal(t, []domain.Status{domain.StatusProcessed}, statuses["2024/001-000"])
	require.Equal(t, []domain.Status{domain.StatusError, domain.StatusError}, statuses["2024/002-000"])
	require.Equal(t, []domain.Status{domain.StatusError}, statuses["2024/003-000"])

	entry := agg.Finish(time.Now())
	require.Equal(t, 1, entry.CasesSucceeded)
	require.Equal(t, 2, entry.CasesFailed)
	require.Equal(t, 1, entry.ActivitiesCaptured)
	require.Len(t, source.opened, 3)
}

func TestReconcileMalformedDateFailsOnlyThatCase(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	r := newReconciler(store, &fakeSource{}, nil, false)

	_, err := r.ProcessCase(context.Background(), domain.CaseBatch{CaseID: "2024/001-000", Dates: "10/01/2024,31/02/2024"}, false)
	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestReconcileUpdateFailureMarksError(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedPending(t, store, "2024/001-000", "10/01/2024")

	repo := &failingRepo{CaseRepository: store, updateErr: errBoom}
	source := &fakeSource{pages: map[domain.CaseID]*fakePage{"2024/001-000": {}}}

	agg := NewAggregator(time.Now())
	require.NoError(t, newReconciler(repo, source, nil, true).Reconcile(context.Background(), agg))
	require.Equal(t, []domain.Status{domain.StatusError}, statusesByCase(t, store)["2024/001-000"])
	require.Equal(t, 1, agg.Finish(time.Now()).CasesFailed)
}

func TestSelectCasesTestModeFallback(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	seedPending(t, store, "2024/010-000", "10/01/2024")
	seedPending(t, store, "2024/020-000", "11/01/2024")
	for _, id := range []domain.CaseID{"2024/010-000", "2024/020-000"} {
		_, err := store.UpdateCase(ctx, id, nil, nil, false)
		require.NoError(t, err)
	}

	cases, testMode, err := newReconciler(store, nil, nil, true).SelectCases(ctx)
	require.NoError(t, err)
	require.True(t, testMode)
	require.Len(t, cases, 2)
	require.Equal(t, domain.CaseID("2024/020-000"), cases[0].CaseID)
	require.Equal(t, domain.CaseID("2024/010-000"), cases[1].CaseID)

	limited := NewReconciler(ReconcilerDeps{Store: store, TestModeFallback: true, TestModeLimit: 1})
	cases, _, err = limited.SelectCases(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	require.Equal(t, domain.CaseID("2024/020-000"), cases[0].CaseID)

	cases, testMode, err = newReconciler(store, nil, nil, false).SelectCases(ctx)
	require.NoError(t, err)
	require.False(t, testMode)
	require.Empty(t, cases)
}

func TestReconcileTestModeLeavesFailuresAlone(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	seedPending(t, store, "2024/010-000", "10/01/2024")
	seedPending(t, store, "2024/020-000", "11/01/2024")
	for _, id := range []domain.CaseID{"2024/010-000", "2024/020-000"} {
		_, err := store.UpdateCase(ctx, id, nil, nil, false)
		require.NoError(t, err)
	}

	source := &fakeSource{pages: map[domain.CaseID]*fakePage{
		"2024/020-000": {activities: []ports.ActivityRow{fakeActivity{date: "11/01/2024", kind: "Juntada", summary: "ok"}}},
	}}

	agg := NewAggregator(time.Now())
	require.NoError(t, newReconciler(store, source, nil, true).Reconcile(ctx, agg))

	statuses := statusesByCase(t, store)
	require.Equal(t, []domain.Status{domain.StatusProcessed}, statuses["2024/010-000"])
	require.Equal(t, []domain.Status{domain.StatusProcessedInTest}, statuses["2024/020-000"])

	entry := agg.Finish(time.Now())
	require.Equal(t, 1, entry.CasesSucceeded)
	require.Equal(t, 1, entry.CasesFailed)
}

func TestReconcileStopsBetweenCases(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedPending(t, store, "2024/001-000", "10/01/2024")
	seedPending(t, store, "2024/002-000", "10/01/2024")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		cancel: cancel,
		pages: map[domain.CaseID]*fakePage{
			"2024/001-000": {},
			"2024/002-000": {},
		},
	}

	agg := NewAggregator(time.Now())
	err := newReconciler(store, source, nil, true).Reconcile(ctx, agg)
	require.True(t, errors.Is(err, context.Canceled))
	require.Len(t, source.opened, 1)

	statuses := statusesByCase(t, store)
	require.Equal(t, []domain.Status{domain.StatusProcessed}, statuses[source.opened[0]])
	require.Equal(t, 1, agg.Finish(time.Now()).CasesSucceeded)
}

func TestReconcileStoreFailureSurfaces(t *testing.T) {
	t.Parallel()

	repo := &failingRepo{CaseRepository: newStore(t), pendingErr: errBoom}
	err := newReconciler(repo, &fakeSource{}, nil, true).Reconcile(context.Background(), NewAggregator(time.Now()))
	require.ErrorIs(t, err, errBoom)
}
