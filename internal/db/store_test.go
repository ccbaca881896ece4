package db

import (
	"context"
	"testing"
	"time"

	"github.com/hankyul/bidwatch/internal/models"
)

func TestDedupBidsLastWins(t *testing.T) {
	records := []models.BidNotice{
		{NoticeNo: "1", NoticeOrd: "00", Title: "first"},
		{NoticeNo: "2", NoticeOrd: "00", Title: "other"},
		{NoticeNo: "1", NoticeOrd: "00", Title: "second"},
		{NoticeNo: "1", NoticeOrd: "01", Title: "reannouncement"},
	}

	got := DedupBids(records)
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Title != "second" {
		t.Errorf("duplicate key should keep the later record, got %q", got[0].Title)
	}
	if got[2].NoticeOrd != "01" {
		t.Errorf("different ord is a distinct key, got %+v", got[2])
	}
}

func TestDedupBidsPreservesOrder(t *testing.T) {
	records := []models.BidNotice{
		{NoticeNo: "3", NoticeOrd: "00"},
		{NoticeNo: "1", NoticeOrd: "00"},
		{NoticeNo: "2", NoticeOrd: "00"},
	}

	got := DedupBids(records)
	for i, want := range []string{"3", "1", "2"} {
		if got[i].NoticeNo != want {
			t.Fatalf("position %d = %s, want %s", i, got[i].NoticeNo, want)
		}
	}
}

// Integration tests below need a reachable Postgres and skip otherwise.

func testStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	pool, err := Connect(ctx)
	if err != nil {
		t.Skip("Database not reachable, skipping integration test")
	}
	t.Cleanup(pool.Close)

	if err := ApplyMigrations(ctx, pool); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	store := NewStore(pool)
	if err := store.ClearBids(ctx); err != nil {
		t.Fatalf("failed to clear bids: %v", err)
	}
	return store, ctx
}

func TestUpsertIsIdempotent(t *testing.T) {
	store, ctx := testStore(t)

	batch := []models.BidNotice{
		{NoticeNo: "T1", NoticeOrd: "00", Title: "교육 공고", NoticeDt: "202601010900"},
		{NoticeNo: "T2", NoticeOrd: "00", Title: "워크숍 공고", NoticeDt: "202601020900"},
	}
	if err := store.UpsertBids(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertBids(ctx, batch); err != nil {
		t.Fatal(err)
	}

	count, err := store.CountBids(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d after double upsert, want 2", count)
	}
}

func TestUpsertPreservesPinnedFlag(t *testing.T) {
	store, ctx := testStore(t)

	bid := models.BidNotice{NoticeNo: "T1", NoticeOrd: "00", Title: "원래 제목", NoticeDt: "202601010900"}
	if err := store.UpsertBids(ctx, []models.BidNotice{bid}); err != nil {
		t.Fatal(err)
	}
	if err := store.TogglePin(ctx, "T1", "00", true); err != nil {
		t.Fatal(err)
	}

	bid.Title = "갱신된 제목"
	if err := store.UpsertBids(ctx, []models.BidNotice{bid}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetBid(ctx, "T1", "00")
	if err != nil || got == nil {
		t.Fatalf("get bid: %v, %v", got, err)
	}
	if got.Title != "갱신된 제목" {
		t.Errorf("title not updated: %q", got.Title)
	}
	if !got.Pinned {
		t.Error("pin must survive an overwriting upsert")
	}
}

func TestGetLatestBidOrdering(t *testing.T) {
	store, ctx := testStore(t)

	if latest, err := store.GetLatestBid(ctx); err != nil || latest != nil {
		t.Fatalf("empty store should yield (nil, nil), got (%v, %v)", latest, err)
	}

	if err := store.UpsertBids(ctx, []models.BidNotice{
		{NoticeNo: "A", NoticeOrd: "00", Title: "older", NoticeDt: "202601010900"},
		{NoticeNo: "B", NoticeOrd: "00", Title: "newer", NoticeDt: "202603151300"},
	}); err != nil {
		t.Fatal(err)
	}

	latest, err := store.GetLatestBid(ctx)
	if err != nil || latest == nil {
		t.Fatalf("get latest: %v, %v", latest, err)
	}
	if latest.NoticeNo != "B" {
		t.Errorf("latest = %s, want B", latest.NoticeNo)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	store, ctx := testStore(t)

	oldDt := time.Now().AddDate(0, 0, -120).Format("20060102") + "0900"
	freshDt := time.Now().AddDate(0, 0, -5).Format("20060102") + "0900"
	if err := store.UpsertBids(ctx, []models.BidNotice{
		{NoticeNo: "OLD", NoticeOrd: "00", Title: "만료 공고", NoticeDt: oldDt},
		{NoticeNo: "NEW", NoticeOrd: "00", Title: "최근 공고", NoticeDt: freshDt},
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.CleanupOlderThan(ctx, 90); err != nil {
		t.Fatal(err)
	}

	if got, _ := store.GetBid(ctx, "OLD", "00"); got != nil {
		t.Error("expired record should be deleted")
	}
	if got, _ := store.GetBid(ctx, "NEW", "00"); got == nil {
		t.Error("recent record should survive")
	}

	// days <= 0 disables retention entirely.
	if err := store.CleanupOlderThan(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetBid(ctx, "NEW", "00"); got == nil {
		t.Error("retention disabled must not delete anything")
	}
}

func TestListBidsFilters(t *testing.T) {
	store, ctx := testStore(t)

	if err := store.UpsertBids(ctx, []models.BidNotice{
		{NoticeNo: "1", NoticeOrd: "00", Title: "직원 교육 용역", Region: "서울", Division: "용역", NoticeDt: "202601010900"},
		{NoticeNo: "2", NoticeOrd: "00", Title: "경비 위탁", Region: "부산", Division: "용역", NoticeDt: "202601020900"},
		{NoticeNo: "3", NoticeOrd: "00", Title: "물품 구매", Region: "서울", Division: "물품", NoticeDt: "202601030900"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.TogglePin(ctx, "2", "00", true); err != nil {
		t.Fatal(err)
	}

	byQuery, err := store.ListBids(ctx, ListParams{Query: "교육"})
	if err != nil {
		t.Fatal(err)
	}
	if byQuery.Total != 1 || byQuery.Bids[0].NoticeNo != "1" {
		t.Errorf("query filter: %+v", byQuery)
	}

	byRegion, err := store.ListBids(ctx, ListParams{Region: "서울"})
	if err != nil {
		t.Fatal(err)
	}
	if byRegion.Total != 2 {
		t.Errorf("region filter total = %d, want 2", byRegion.Total)
	}

	pinned, err := store.ListBids(ctx, ListParams{PinnedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if pinned.Total != 1 || pinned.Bids[0].NoticeNo != "2" {
		t.Errorf("pinned filter: %+v", pinned)
	}

	all, err := store.ListBids(ctx, ListParams{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Bids[0].NoticeNo != "2" {
		t.Errorf("pinned record should sort first, got %s", all.Bids[0].NoticeNo)
	}
}
