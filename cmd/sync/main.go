package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hankyul/bidwatch/internal/config"
	"github.com/hankyul/bidwatch/internal/db"
	"github.com/hankyul/bidwatch/internal/models"
	"github.com/hankyul/bidwatch/internal/nara"
)

// Scheduled sync entry point, meant to be run from cron once a day. It runs
// the incremental window like the server's update mode but additionally
// narrows the batch to the configured region before persisting.
func main() {
	settings, err := config.Load(os.Getenv("SETTINGS_PATH"))
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := db.NewStore(pool)
	client := nara.NewClient(settings.API, settings.Filter.DefaultKeywords)

	runID, err := store.CreateSyncRun(ctx, "scheduled")
	if err != nil {
		log.Printf("[Job] Failed to create run record: %v", err)
	}

	fetchStart := settings.Sync.DefaultStartDate
	latest, err := store.GetLatestBid(ctx)
	if err == nil && latest != nil && latest.NoticeDate() != "" {
		fetchStart = latest.NoticeDate()
	}
	window := nara.Window{Start: fetchStart, End: time.Now().Format("2006-01-02")}
	log.Printf("[Job] Daily sync window %s..%s", window.Start, window.End)

	res := client.FetchAll(ctx, window, "")
	if res.Err != nil {
		store.FinishSyncRun(ctx, runID, "failed", 0, 0, res.Err.Error())
		log.Fatalf("Daily sync fetch failed: %v (debug: %s)", res.Err, res.DebugURL)
	}

	batch := filterByRegion(res.Records, settings.Sync.RegionFilter)
	batch = db.DedupBids(batch)

	if len(batch) > 0 {
		if err := store.UpsertBids(ctx, batch); err != nil {
			store.FinishSyncRun(ctx, runID, "failed", res.ScannedCount, 0, err.Error())
			log.Fatalf("Daily sync save failed: %v", err)
		}
	}

	if err := store.CleanupOlderThan(ctx, settings.Sync.RetentionDays); err != nil {
		log.Printf("[Job] Retention cleanup failed: %v", err)
	}

	store.FinishSyncRun(ctx, runID, "completed", res.ScannedCount, len(batch), "")
	log.Printf("[Job] Daily sync complete: scanned %d, saved %d (region %q)",
		res.ScannedCount, len(batch), settings.Sync.RegionFilter)
}

// filterByRegion keeps notices open to the configured region. Notices with no
// region restriction are nationwide and always pass.
func filterByRegion(records []models.BidNotice, region string) []models.BidNotice {
	if region == "" {
		return records
	}
	out := make([]models.BidNotice, 0, len(records))
	for _, rec := range records {
		if rec.Region == "" || strings.Contains(rec.Region, region) || strings.Contains(rec.Region, "전국") {
			out = append(out, rec)
		}
	}
	return out
}
