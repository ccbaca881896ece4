package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hankyul/bidwatch/internal/config"
	"github.com/hankyul/bidwatch/internal/models"
	"github.com/hankyul/bidwatch/internal/nara"
)

type fakeFetcher struct {
	result     nara.Result
	lastWindow nara.Window
	calls      int
}

func (f *fakeFetcher) FetchAll(ctx context.Context, w nara.Window, keyword string) nara.Result {
	f.calls++
	f.lastWindow = w
	return f.result
}

type fakeStore struct {
	latest      *models.BidNotice
	saved       []models.BidNotice
	cleared     bool
	cleanupDays int
	upsertErr   error
	clearErr    error
	runStatus   string
	runScanned  int
	runSaved    int
	runErrText  string
}

func (s *fakeStore) UpsertBids(ctx context.Context, records []models.BidNotice) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.saved = append(s.saved, records...)
	return nil
}

func (s *fakeStore) GetLatestBid(ctx context.Context) (*models.BidNotice, error) {
	return s.latest, nil
}

func (s *fakeStore) ClearBids(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = true
	s.saved = nil
	return nil
}

func (s *fakeStore) CleanupOlderThan(ctx context.Context, days int) error {
	s.cleanupDays = days
	return nil
}

func (s *fakeStore) CreateSyncRun(ctx context.Context, mode string) (string, error) {
	return "run-1", nil
}

func (s *fakeStore) FinishSyncRun(ctx context.Context, runID, status string, scanned, saved int, errText string) {
	s.runStatus = status
	s.runScanned = scanned
	s.runSaved = saved
	s.runErrText = errText
}

func testSettings() *config.Settings {
	return &config.Settings{
		Sync: config.SyncSettings{
			DefaultStartDate: "2024-01-01",
			RetentionDays:    90,
		},
	}
}

func newTestSyncer(fetcher Fetcher, store Store, settings *config.Settings) *Syncer {
	s := New(fetcher, store, settings)
	s.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestUpdateLatestEmptyStoreUsesDefaultStart(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{
		Records:      []models.BidNotice{{NoticeNo: "1", NoticeOrd: "00", Title: "교육"}},
		ScannedCount: 1,
	}}
	store := &fakeStore{}

	res := newTestSyncer(fetcher, store, testSettings()).UpdateLatest(context.Background())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if fetcher.lastWindow.Start != "2024-01-01" {
		t.Errorf("window start %q, want default 2024-01-01", fetcher.lastWindow.Start)
	}
	if fetcher.lastWindow.End != "2026-09-01" {
		t.Errorf("window end %q, want today", fetcher.lastWindow.End)
	}
	if len(store.saved) != 1 {
		t.Errorf("saved %d records, want 1", len(store.saved))
	}
	if store.runStatus != "completed" {
		t.Errorf("run status %q, want completed", store.runStatus)
	}
}

func TestUpdateLatestWindowIsInclusiveOfLastDay(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{ScannedCount: 0}}
	store := &fakeStore{latest: &models.BidNotice{NoticeNo: "1", NoticeDt: "202608150930"}}

	newTestSyncer(fetcher, store, testSettings()).UpdateLatest(context.Background())

	// The last-seen day is re-scanned so same-day corrections are not missed.
	if fetcher.lastWindow.Start != "2026-08-15" {
		t.Errorf("window start %q, want 2026-08-15", fetcher.lastWindow.Start)
	}
}

func TestUpdateLatestEmptyWindowIsNotAnError(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{ScannedCount: 0}}
	store := &fakeStore{}

	res := newTestSyncer(fetcher, store, testSettings()).UpdateLatest(context.Background())
	if res.Err != nil {
		t.Fatalf("empty window must not be an error: %v", res.Err)
	}
	if res.Saved != 0 {
		t.Errorf("saved %d, want 0", res.Saved)
	}
	if store.runStatus != "completed" {
		t.Errorf("run status %q, want completed", store.runStatus)
	}
}

func TestUpdateLatestFetchFailure(t *testing.T) {
	fetchErr := errors.New("API result code 07")
	fetcher := &fakeFetcher{result: nara.Result{Err: fetchErr, DebugURL: "https://api?page=1"}}
	store := &fakeStore{}

	res := newTestSyncer(fetcher, store, testSettings()).UpdateLatest(context.Background())
	if !errors.Is(res.Err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", res.Err)
	}
	if res.DebugURL == "" {
		t.Error("failed sync should expose the debug URL")
	}
	if store.runStatus != "failed" {
		t.Errorf("run status %q, want failed", store.runStatus)
	}
}

func TestUpdateLatestRelevanceFilterGatesPersistence(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{
		Records: []models.BidNotice{
			{NoticeNo: "1", Title: "직원 교육 용역"},
			{NoticeNo: "2", Title: "청사 경비 용역"},
		},
		ScannedCount: 2,
	}}
	store := &fakeStore{}
	settings := testSettings()
	settings.Sync.SaveOnlyFiltered = true
	settings.Filter.RelevanceKeywords = []string{"교육"}

	res := newTestSyncer(fetcher, store, settings).UpdateLatest(context.Background())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(store.saved) != 1 || store.saved[0].NoticeNo != "1" {
		t.Fatalf("expected only the matching record persisted, got %+v", store.saved)
	}
	if res.Scanned != 2 || res.Saved != 1 {
		t.Errorf("scanned/saved = %d/%d, want 2/1", res.Scanned, res.Saved)
	}
}

func TestUpdateLatestUpsertFailureFailsRun(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{
		Records:      []models.BidNotice{{NoticeNo: "1", Title: "교육"}},
		ScannedCount: 1,
	}}
	store := &fakeStore{upsertErr: errors.New("connection refused")}

	res := newTestSyncer(fetcher, store, testSettings()).UpdateLatest(context.Background())
	if res.Err == nil {
		t.Fatal("expected error")
	}
	if store.runStatus != "failed" {
		t.Errorf("run status %q, want failed", store.runStatus)
	}
}

func TestUpdateLatestRunsRetentionCleanup(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{
		Records:      []models.BidNotice{{NoticeNo: "1", Title: "교육"}},
		ScannedCount: 1,
	}}
	store := &fakeStore{}

	newTestSyncer(fetcher, store, testSettings()).UpdateLatest(context.Background())
	if store.cleanupDays != 90 {
		t.Errorf("cleanup ran with %d days, want 90", store.cleanupDays)
	}
}

func TestFullResetRequiresConfirmation(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := &fakeStore{}

	res := newTestSyncer(fetcher, store, testSettings()).FullReset(
		context.Background(), nara.Window{}, false)
	if !errors.Is(res.Err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", res.Err)
	}
	if store.cleared {
		t.Error("store must not be cleared without confirmation")
	}
	if fetcher.calls != 0 {
		t.Error("no fetch should happen without confirmation")
	}
}

func TestFullResetClearsBeforeFetch(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{
		Records:      []models.BidNotice{{NoticeNo: "9", Title: "새 교육"}},
		ScannedCount: 1,
	}}
	store := &fakeStore{saved: []models.BidNotice{{NoticeNo: "old"}}}

	res := newTestSyncer(fetcher, store, testSettings()).FullReset(
		context.Background(), nara.Window{Start: "2026-01-01", End: "2026-06-30"}, true)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !store.cleared {
		t.Error("store was not cleared")
	}
	if len(store.saved) != 1 || store.saved[0].NoticeNo != "9" {
		t.Errorf("expected only the fresh record, got %+v", store.saved)
	}
	if fetcher.lastWindow.Start != "2026-01-01" || fetcher.lastWindow.End != "2026-06-30" {
		t.Errorf("explicit window not honored: %+v", fetcher.lastWindow)
	}
}

func TestFullResetFetchFailureLeavesStoreEmpty(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{Err: errors.New("network error")}}
	store := &fakeStore{saved: []models.BidNotice{{NoticeNo: "old"}}}

	res := newTestSyncer(fetcher, store, testSettings()).FullReset(
		context.Background(), nara.Window{}, true)
	if res.Err == nil {
		t.Fatal("expected error")
	}
	// Clear-then-fetch: a failed fetch leaves nothing behind. That is the
	// documented behavior of this mode, not a bug.
	if !store.cleared || len(store.saved) != 0 {
		t.Errorf("store should be empty after failed reset, got %+v", store.saved)
	}
}

func TestFullResetDefaultsWindowBounds(t *testing.T) {
	fetcher := &fakeFetcher{result: nara.Result{ScannedCount: 0}}
	store := &fakeStore{}

	newTestSyncer(fetcher, store, testSettings()).FullReset(context.Background(), nara.Window{}, true)
	if fetcher.lastWindow.Start != "2024-01-01" {
		t.Errorf("window start %q, want default", fetcher.lastWindow.Start)
	}
	if fetcher.lastWindow.End != "2026-09-01" {
		t.Errorf("window end %q, want today", fetcher.lastWindow.End)
	}
}

func TestSyncerRejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fetcher := &blockingFetcher{release: release, started: started}
	store := &fakeStore{}
	s := newTestSyncer(fetcher, store, testSettings())

	done := make(chan Result, 1)
	go func() { done <- s.UpdateLatest(context.Background()) }()
	<-started

	res := s.UpdateLatest(context.Background())
	if !errors.Is(res.Err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", res.Err)
	}

	close(release)
	first := <-done
	if first.Err != nil {
		t.Fatalf("first run should complete: %v", first.Err)
	}
	if s.State() != StateIdle {
		t.Errorf("state %q after completion, want idle", s.State())
	}
}

type blockingFetcher struct {
	release chan struct{}
	started chan struct{}
}

func (f *blockingFetcher) FetchAll(ctx context.Context, w nara.Window, keyword string) nara.Result {
	close(f.started)
	<-f.release
	return nara.Result{ScannedCount: 0}
}
