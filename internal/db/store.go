package db

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hankyul/bidwatch/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const bidCols = `notice_no, notice_ord, title, notice_dt, notice_inst, demand_inst,
	bid_begin_dt, bid_close_dt, region, industry, detail_url, status, division,
	est_price, pinned`

func scanBid(scan func(dest ...interface{}) error) (models.BidNotice, error) {
	var b models.BidNotice
	err := scan(
		&b.NoticeNo, &b.NoticeOrd, &b.Title, &b.NoticeDt, &b.NoticeInst, &b.DemandInst,
		&b.BidBeginDt, &b.BidCloseDt, &b.Region, &b.Industry, &b.DetailURL, &b.Status,
		&b.Division, &b.EstPrice, &b.Pinned,
	)
	return b, err
}

// DedupBids collapses a batch to one record per compound key, keeping the
// later occurrence. A single upstream batch can legitimately contain the same
// (notice_no, notice_ord) twice, and a multi-row upsert cannot touch the same
// conflict target twice in one statement.
func DedupBids(records []models.BidNotice) []models.BidNotice {
	index := make(map[string]int, len(records))
	out := make([]models.BidNotice, 0, len(records))
	for _, rec := range records {
		if i, ok := index[rec.Key()]; ok {
			out[i] = rec
			continue
		}
		index[rec.Key()] = len(out)
		out = append(out, rec)
	}
	return out
}

// UpsertBids writes a batch with insert-or-overwrite semantics on the
// compound key. The stored pinned flag survives overwrites; it is only
// changed through TogglePin.
func (s *Store) UpsertBids(ctx context.Context, records []models.BidNotice) error {
	if len(records) == 0 {
		return nil
	}

	unique := DedupBids(records)

	var sb strings.Builder
	sb.WriteString(`INSERT INTO bids (` + bidCols + `) VALUES `)

	args := make([]interface{}, 0, len(unique)*15)
	argIdx := 1
	for i, b := range unique {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < 15; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", argIdx)
			argIdx++
		}
		sb.WriteString(")")
		args = append(args,
			b.NoticeNo, b.NoticeOrd, b.Title, b.NoticeDt, b.NoticeInst, b.DemandInst,
			b.BidBeginDt, b.BidCloseDt, b.Region, b.Industry, b.DetailURL, b.Status,
			b.Division, b.EstPrice, b.Pinned,
		)
	}

	sb.WriteString(`
		ON CONFLICT (notice_no, notice_ord) DO UPDATE SET
			title = EXCLUDED.title,
			notice_dt = EXCLUDED.notice_dt,
			notice_inst = EXCLUDED.notice_inst,
			demand_inst = EXCLUDED.demand_inst,
			bid_begin_dt = EXCLUDED.bid_begin_dt,
			bid_close_dt = EXCLUDED.bid_close_dt,
			region = EXCLUDED.region,
			industry = EXCLUDED.industry,
			detail_url = EXCLUDED.detail_url,
			status = EXCLUDED.status,
			division = EXCLUDED.division,
			est_price = EXCLUDED.est_price,
			updated_at = NOW()
	`)

	if _, err := s.pool.Exec(ctx, sb.String(), args...); err != nil {
		log.Printf("[DB] Failed to save bids: %v", err)
		return fmt.Errorf("upsert failed: %w", err)
	}

	log.Printf("[DB] Saved %d unique bids", len(unique))
	return nil
}

// GetAllBids returns every stored notice, pinned first, then most recent
// first. Read failures degrade to an empty slice so the caller can still
// render something.
func (s *Store) GetAllBids(ctx context.Context) []models.BidNotice {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bidCols+` FROM bids ORDER BY pinned DESC, notice_dt DESC`)
	if err != nil {
		log.Printf("[DB] Failed to retrieve bids: %v", err)
		return []models.BidNotice{}
	}
	defer rows.Close()

	var bids []models.BidNotice
	for rows.Next() {
		b, err := scanBid(rows.Scan)
		if err != nil {
			log.Printf("[DB] Scan error: %v", err)
			continue
		}
		bids = append(bids, b)
	}
	if bids == nil {
		bids = []models.BidNotice{}
	}
	return bids
}

// ListParams filters the bid listing served by the API.
type ListParams struct {
	Query      string
	Region     string
	Division   string
	PinnedOnly bool
	Limit      int
	Offset     int
}

type ListResult struct {
	Bids   []models.BidNotice `json:"bids"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

func (s *Store) ListBids(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Query != "" {
		where += fmt.Sprintf(" AND title ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, params.Query)
		argIdx++
	}
	if params.Region != "" {
		where += fmt.Sprintf(" AND region LIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, params.Region)
		argIdx++
	}
	if params.Division != "" {
		where += fmt.Sprintf(" AND division = $%d", argIdx)
		args = append(args, params.Division)
		argIdx++
	}
	if params.PinnedOnly {
		where += " AND pinned = true"
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	if params.Limit <= 0 {
		params.Limit = 50
	}
	selectSQL := fmt.Sprintf(
		"SELECT %s FROM bids %s ORDER BY pinned DESC, notice_dt DESC LIMIT $%d OFFSET $%d",
		bidCols, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var bids []models.BidNotice
	for rows.Next() {
		b, err := scanBid(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if bids == nil {
		bids = []models.BidNotice{}
	}

	return &ListResult{Bids: bids, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

// GetBid returns one notice by its compound key, or nil when absent.
func (s *Store) GetBid(ctx context.Context, noticeNo, noticeOrd string) (*models.BidNotice, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bidCols+` FROM bids WHERE notice_no = $1 AND notice_ord = $2`,
		noticeNo, noticeOrd)
	b, err := scanBid(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bid failed: %w", err)
	}
	return &b, nil
}

// GetLatestBid returns the most recent notice by notice_dt, or nil when the
// store is empty. It seeds the incremental sync window.
func (s *Store) GetLatestBid(ctx context.Context) (*models.BidNotice, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bidCols+` FROM bids ORDER BY notice_dt DESC LIMIT 1`)
	b, err := scanBid(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Printf("[DB] Failed to get latest bid: %v", err)
		return nil, nil
	}
	return &b, nil
}

// ClearBids deletes every stored notice.
func (s *Store) ClearBids(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM bids"); err != nil {
		log.Printf("[DB] Failed to clear bids: %v", err)
		return fmt.Errorf("clear failed: %w", err)
	}
	return nil
}

// CleanupOlderThan deletes notices whose notice_dt sorts before the retention
// cutoff (today minus days, truncated to the day). days <= 0 means unlimited
// retention and is a no-op.
func (s *Store) CleanupOlderThan(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -days).Format("20060102") + "0000"
	log.Printf("[DB] Cleaning up bids older than %s (%d days)", cutoff, days)

	tag, err := s.pool.Exec(ctx, "DELETE FROM bids WHERE notice_dt < $1", cutoff)
	if err != nil {
		log.Printf("[DB] Failed to cleanup old bids: %v", err)
		return fmt.Errorf("cleanup failed: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Printf("[DB] Removed %d expired bids", n)
	}
	return nil
}

// TogglePin sets only the pinned flag of one notice.
func (s *Store) TogglePin(ctx context.Context, noticeNo, noticeOrd string, pinned bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE bids SET pinned = $1, updated_at = NOW() WHERE notice_no = $2 AND notice_ord = $3",
		pinned, noticeNo, noticeOrd)
	if err != nil {
		return fmt.Errorf("pin update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bid %s-%s not found", noticeNo, noticeOrd)
	}
	return nil
}

// CountBids reports the stored total, used by the connection test and stats.
func (s *Store) CountBids(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids").Scan(&count); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return count, nil
}

func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total, pinned int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids").Scan(&total)
	stats["total"] = total
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids WHERE pinned").Scan(&pinned)
	stats["pinned"] = pinned

	divisionCounts := map[string]int{}
	rows, err := s.pool.Query(ctx,
		"SELECT COALESCE(NULLIF(division, ''), 'Unknown'), COUNT(*) FROM bids GROUP BY 1 ORDER BY COUNT(*) DESC")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var division string
			var count int
			if scanErr := rows.Scan(&division, &count); scanErr == nil {
				divisionCounts[division] = count
			}
		}
	}
	stats["division_counts"] = divisionCounts

	var latest string
	s.pool.QueryRow(ctx, "SELECT COALESCE(MAX(notice_dt), '') FROM bids").Scan(&latest)
	stats["latest_notice_dt"] = latest

	return stats, nil
}
