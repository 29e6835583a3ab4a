package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkboard/internal/metrics"
	"github.com/inkboard/internal/views"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeFetcher struct {
	batch   ViewBatch
	err     error
	calls   int
	blockCh chan struct{}
	started chan struct{}
}

func (f *fakeFetcher) ListViews(ctx context.Context, q ViewQuery) (ViewBatch, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	if f.blockCh != nil {
		<-f.blockCh
	}
	return f.batch, f.err
}

func TestSyncServiceStoresSnapshotAndRecordsRun(t *testing.T) {
	gdb := setupViewTestDB(t)
	store := NewViewStore(gdb)
	cache := NewResultCache(8)
	cache.Put("stale", 1)
	m := metrics.New()

	fetcher := &fakeFetcher{batch: ViewBatch{Events: sampleEvents(), Rejected: 2}}
	clock := storeBase
	syncer := NewSyncService(fetcher, store, cache, m, quietLogger()).WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	run, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if run.Fetched != 6 || run.Stored != 4 || run.Rejected != 2 || !run.Succeeded() {
		t.Fatalf("unexpected sync run: %+v", run)
	}
	if !run.FinishedAt.After(run.StartedAt) {
		t.Fatalf("expected finished after started: %+v", run)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected cache purged after sync, got %d entries", cache.Len())
	}

	latest, err := store.LatestSyncRun(context.Background())
	if err != nil {
		t.Fatalf("LatestSyncRun returned error: %v", err)
	}
	if latest.ID != run.ID {
		t.Fatalf("expected recorded run %d, got %d", run.ID, latest.ID)
	}

	if got := testutil.ToFloat64(m.SyncRuns.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 successful sync metric, got %v", got)
	}
	if got := testutil.ToFloat64(m.SyncedEvents); got != 4 {
		t.Fatalf("expected 4 synced events, got %v", got)
	}
	if got := testutil.ToFloat64(m.RejectedEvents); got != 2 {
		t.Fatalf("expected 2 rejected events, got %v", got)
	}
}

func TestSyncServiceKeepsSnapshotOnFetchError(t *testing.T) {
	gdb := setupViewTestDB(t)
	store := NewViewStore(gdb)
	if _, err := store.ReplaceSnapshot(context.Background(), sampleEvents(), storeBase); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	m := metrics.New()

	fetcher := &fakeFetcher{err: &APIError{StatusCode: 500, Message: "boom"}}
	syncer := NewSyncService(fetcher, store, nil, m, quietLogger())

	run, err := syncer.Sync(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if run == nil || run.Succeeded() {
		t.Fatalf("expected failed run, got %+v", run)
	}

	events, err := store.List(context.Background(), ViewQuery{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected previous snapshot kept, got %d records", len(events))
	}

	latest, err := store.LatestSyncRun(context.Background())
	if err != nil || latest.Error == "" {
		t.Fatalf("expected failed run recorded, got %+v (%v)", latest, err)
	}
	if got := testutil.ToFloat64(m.SyncRuns.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed sync metric, got %v", got)
	}
}

func TestSyncServiceDisabledWithoutFetcher(t *testing.T) {
	syncer := NewSyncService(nil, nil, nil, nil, quietLogger())
	if syncer.Enabled() {
		t.Fatal("expected sync disabled")
	}
	if _, err := syncer.Sync(context.Background()); !errors.Is(err, ErrSyncDisabled) {
		t.Fatalf("expected ErrSyncDisabled, got %v", err)
	}
	// Run 在禁用时立即返回
	syncer.Run(context.Background(), time.Millisecond)
}

func TestSyncServiceRejectsConcurrentSync(t *testing.T) {
	gdb := setupViewTestDB(t)
	store := NewViewStore(gdb)

	fetcher := &fakeFetcher{
		batch:   ViewBatch{Events: []views.ViewEvent{}},
		blockCh: make(chan struct{}),
		started: make(chan struct{}),
	}
	syncer := NewSyncService(fetcher, store, nil, nil, quietLogger())

	done := make(chan error, 1)
	go func() {
		_, err := syncer.Sync(context.Background())
		done <- err
	}()

	<-fetcher.started
	if _, err := syncer.Sync(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}

	close(fetcher.blockCh)
	if err := <-done; err != nil {
		t.Fatalf("first Sync returned error: %v", err)
	}
}

func TestSyncServiceRunStopsWithContext(t *testing.T) {
	gdb := setupViewTestDB(t)
	store := NewViewStore(gdb)
	fetcher := &fakeFetcher{batch: ViewBatch{}, started: make(chan struct{})}
	syncer := NewSyncService(fetcher, store, nil, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		syncer.Run(ctx, time.Hour)
		close(finished)
	}()

	select {
	case <-fetcher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("expected initial sync to run")
	}

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if fetcher.calls != 1 {
		t.Fatalf("expected exactly one sync, got %d", fetcher.calls)
	}
	if _, err := store.LatestSyncRun(context.Background()); err != nil {
		t.Fatalf("expected sync run recorded even when cancelled: %v", err)
	}
}
