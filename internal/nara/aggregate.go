package nara

import (
	"context"
	"log"
	"sync"

	"github.com/hankyul/bidwatch/internal/models"
	"golang.org/x/sync/errgroup"
)

// fanOutLimit caps how many page fetches run at once. The upstream is a
// rate-limited public API; fetching all remaining pages unbounded (up to 39
// requests) trips its throttling.
const fanOutLimit = 8

// FetchAll aggregates every page of the window, bounded by MaxPages.
//
// Page 1 is fetched first to learn the total count; if it fails the whole
// aggregation fails and carries the page-1 error plus the debug URL. The
// remaining pages are fetched concurrently; a failed page simply contributes
// nothing to the merge. After merging, titles are filtered by the caller's
// keyword, falling back to the configured default keyword set.
func (c *Client) FetchAll(ctx context.Context, w Window, keyword string) Result {
	firstPage := c.FetchPage(ctx, 1, w)
	if firstPage.Err != nil {
		return Result{Err: firstPage.Err, DebugURL: firstPage.RawURL}
	}

	allRecords := firstPage.Records
	totalCount := firstPage.TotalCount

	if totalCount > PageSize {
		totalPages := (totalCount + PageSize - 1) / PageSize
		if totalPages > MaxPages {
			totalPages = MaxPages
		}

		pages := make([][]models.BidNotice, totalPages+1)
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(fanOutLimit)
		for page := 2; page <= totalPages; page++ {
			g.Go(func() error {
				res := c.FetchPage(gctx, page, w)
				if res.Err != nil {
					// Later pages are best effort; the merge just loses
					// that page's contribution.
					log.Printf("[API] Page %d fetch failed: %v", page, res.Err)
					return nil
				}
				mu.Lock()
				pages[page] = res.Records
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		// Merge in page order so results are deterministic.
		for page := 2; page <= totalPages; page++ {
			allRecords = append(allRecords, pages[page]...)
		}
	}

	return Result{
		Records:      FilterByTitle(allRecords, keyword, c.defaultKeywords),
		AllRecords:   allRecords,
		TotalCount:   totalCount,
		ScannedCount: len(allRecords),
		DebugURL:     firstPage.RawURL,
	}
}
