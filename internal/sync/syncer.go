// Package sync keeps the local bid store consistent with the upstream
// paginated API, in two modes: incremental update and full reset.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hankyul/bidwatch/internal/config"
	"github.com/hankyul/bidwatch/internal/models"
	"github.com/hankyul/bidwatch/internal/nara"
)

// ErrConfirmationRequired guards the destructive full-reset mode.
var ErrConfirmationRequired = errors.New("full reset requires explicit confirmation")

// ErrAlreadyRunning is returned when a sync is requested while one is in flight.
var ErrAlreadyRunning = errors.New("a sync is already running")

// Fetcher is the aggregation surface the orchestrator drives.
type Fetcher interface {
	FetchAll(ctx context.Context, w nara.Window, keyword string) nara.Result
}

// Store is the subset of the bid store the orchestrator needs.
type Store interface {
	UpsertBids(ctx context.Context, records []models.BidNotice) error
	GetLatestBid(ctx context.Context) (*models.BidNotice, error)
	ClearBids(ctx context.Context) error
	CleanupOlderThan(ctx context.Context, days int) error
	CreateSyncRun(ctx context.Context, mode string) (string, error)
	FinishSyncRun(ctx context.Context, runID, status string, scanned, saved int, errText string)
}

// State is the orchestrator's lifecycle: idle -> fetching -> idle. Outcomes
// are reported through Result, not held as state.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
)

// Result is the user-facing outcome of one sync run.
type Result struct {
	Message  string `json:"message"`
	DebugURL string `json:"debug_url,omitempty"`
	Scanned  int    `json:"scanned"`
	Saved    int    `json:"saved"`
	Err      error  `json:"-"`
}

type Syncer struct {
	fetcher  Fetcher
	store    Store
	settings *config.Settings

	mu    sync.Mutex
	state State

	// now is swappable for tests.
	now func() time.Time
}

func New(fetcher Fetcher, store Store, settings *config.Settings) *Syncer {
	return &Syncer{
		fetcher:  fetcher,
		store:    store,
		settings: settings,
		state:    StateIdle,
		now:      time.Now,
	}
}

func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Syncer) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrAlreadyRunning
	}
	s.state = StateFetching
	return nil
}

func (s *Syncer) settle() {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
}

// UpdateLatest runs the incremental mode. The window starts at the notice
// date of the latest stored record, inclusive: the last-seen day is
// deliberately re-scanned to catch same-day corrections. The window always
// runs through today, falling back to the configured default start when the
// store is empty.
func (s *Syncer) UpdateLatest(ctx context.Context) Result {
	if err := s.begin(); err != nil {
		return Result{Err: err}
	}
	defer s.settle()

	runID, err := s.store.CreateSyncRun(ctx, "incremental")
	if err != nil {
		log.Printf("[Sync] Failed to create run record: %v", err)
	}

	fetchStart := s.settings.Sync.DefaultStartDate
	latest, err := s.store.GetLatestBid(ctx)
	if err != nil {
		log.Printf("[Sync] Failed to read latest bid: %v", err)
	}
	if latest != nil && latest.NoticeDate() != "" {
		fetchStart = latest.NoticeDate()
		log.Printf("[Sync] Resuming from last record date: %s", fetchStart)
	} else {
		log.Printf("[Sync] Store empty, starting full fetch from %s", fetchStart)
	}

	window := nara.Window{Start: fetchStart, End: s.now().Format("2006-01-02")}
	return s.fetchAndPersist(ctx, runID, window)
}

// FullReset clears the store and re-collects the given window. The clear
// happens before the fetch: a fetch failure afterwards leaves the store
// empty, which is the accepted risk of this mode.
func (s *Syncer) FullReset(ctx context.Context, window nara.Window, confirm bool) Result {
	if !confirm {
		return Result{Err: ErrConfirmationRequired}
	}
	if err := s.begin(); err != nil {
		return Result{Err: err}
	}
	defer s.settle()

	runID, err := s.store.CreateSyncRun(ctx, "full_reset")
	if err != nil {
		log.Printf("[Sync] Failed to create run record: %v", err)
	}

	if window.Start == "" {
		window.Start = s.settings.Sync.DefaultStartDate
	}
	if window.End == "" {
		window.End = s.now().Format("2006-01-02")
	}

	log.Printf("[Sync] Full reset: clearing store, re-collecting %s..%s", window.Start, window.End)
	if err := s.store.ClearBids(ctx); err != nil {
		s.store.FinishSyncRun(ctx, runID, "failed", 0, 0, err.Error())
		return Result{Message: "failed to clear existing data", Err: err}
	}

	return s.fetchAndPersist(ctx, runID, window)
}

// fetchAndPersist is the shared tail of both modes: aggregate the window,
// optionally pre-filter to the relevance keyword set, persist, then apply
// retention cleanup. The caller re-reads the store afterwards; cleanup may
// have just removed records this very fetch brought in, so the store, not
// the fetch result, is what gets displayed.
func (s *Syncer) fetchAndPersist(ctx context.Context, runID string, window nara.Window) Result {
	res := s.fetcher.FetchAll(ctx, window, "")
	if res.Err != nil {
		s.store.FinishSyncRun(ctx, runID, "failed", 0, 0, res.Err.Error())
		return Result{Message: "fetch failed", DebugURL: res.DebugURL, Err: res.Err}
	}

	newItems := res.Records
	if len(newItems) == 0 {
		s.store.FinishSyncRun(ctx, runID, "completed", res.ScannedCount, 0, "")
		return Result{
			Message:  "no new notices in the window",
			DebugURL: res.DebugURL,
			Scanned:  res.ScannedCount,
		}
	}

	itemsToSave := newItems
	if s.settings.Sync.SaveOnlyFiltered {
		itemsToSave = nara.FilterByTitle(newItems, "", s.settings.Filter.RelevanceKeywords)
	}

	if len(itemsToSave) > 0 {
		if err := s.store.UpsertBids(ctx, itemsToSave); err != nil {
			s.store.FinishSyncRun(ctx, runID, "failed", res.ScannedCount, 0, err.Error())
			return Result{Message: "failed to save notices", DebugURL: res.DebugURL, Err: err}
		}
	}

	if err := s.store.CleanupOlderThan(ctx, s.settings.Sync.RetentionDays); err != nil {
		// Retention is housekeeping; a failed cleanup does not fail the sync.
		log.Printf("[Sync] Retention cleanup failed: %v", err)
	}

	s.store.FinishSyncRun(ctx, runID, "completed", res.ScannedCount, len(itemsToSave), "")
	return Result{
		Message:  fmt.Sprintf("sync complete: scanned %d, saved %d", res.ScannedCount, len(itemsToSave)),
		DebugURL: res.DebugURL,
		Scanned:  res.ScannedCount,
		Saved:    len(itemsToSave),
	}
}
