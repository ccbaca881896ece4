package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hankyul/bidwatch/internal/proposal"
)

// DraftRecord is the stored form of a proposal draft. Everything past the
// identity columns lives in the JSONB payload so wizard stages can evolve
// without migrations.
type DraftRecord struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   *uuid.UUID     `json:"owner_id,omitempty"`
	Title     string         `json:"title"`
	Step      proposal.Step  `json:"step"`
	Draft     proposal.Draft `json:"draft"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateDraft inserts a new draft at the upload step and returns its ID.
func (s *Store) CreateDraft(ctx context.Context, ownerID *uuid.UUID, draft proposal.Draft) (uuid.UUID, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode draft payload: %w", err)
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx,
		`INSERT INTO proposal_drafts (owner_id, title, step, payload)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		ownerID, draft.Title, string(draft.Step), payload).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create draft failed: %w", err)
	}
	return id, nil
}

// GetDraft loads one draft. Returns (nil, nil) when it does not exist.
func (s *Store) GetDraft(ctx context.Context, id uuid.UUID) (*DraftRecord, error) {
	var rec DraftRecord
	var step string
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, step, payload, created_at, updated_at
		 FROM proposal_drafts WHERE id = $1`, id).
		Scan(&rec.ID, &rec.OwnerID, &rec.Title, &step, &payload, &rec.CreatedAt, &rec.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft failed: %w", err)
	}
	rec.Step = proposal.Step(step)

	if err := json.Unmarshal(payload, &rec.Draft); err != nil {
		return nil, fmt.Errorf("decode draft payload: %w", err)
	}
	rec.Draft.ID = rec.ID
	rec.Draft.Step = rec.Step
	rec.Draft.CreatedAt = rec.CreatedAt
	rec.Draft.UpdatedAt = rec.UpdatedAt
	return &rec, nil
}

// SaveDraft overwrites the stored payload and step of an existing draft.
func (s *Store) SaveDraft(ctx context.Context, draft proposal.Draft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft payload: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE proposal_drafts
		 SET title = $1, step = $2, payload = $3, updated_at = NOW()
		 WHERE id = $4`,
		draft.Title, string(draft.Step), payload, draft.ID)
	if err != nil {
		return fmt.Errorf("save draft failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("draft %s not found", draft.ID)
	}
	return nil
}

// ListDrafts returns drafts newest first, optionally scoped to one owner.
func (s *Store) ListDrafts(ctx context.Context, ownerID *uuid.UUID, limit int) ([]DraftRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, owner_id, title, step, payload, created_at, updated_at
		FROM proposal_drafts`
	args := []interface{}{}
	if ownerID != nil {
		query += " WHERE owner_id = $1 ORDER BY updated_at DESC LIMIT $2"
		args = append(args, *ownerID, limit)
	} else {
		query += " ORDER BY updated_at DESC LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drafts failed: %w", err)
	}
	defer rows.Close()

	var records []DraftRecord
	for rows.Next() {
		var rec DraftRecord
		var step string
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Title, &step, &payload,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan draft failed: %w", err)
		}
		rec.Step = proposal.Step(step)
		if err := json.Unmarshal(payload, &rec.Draft); err != nil {
			return nil, fmt.Errorf("decode draft payload: %w", err)
		}
		rec.Draft.ID = rec.ID
		rec.Draft.Step = rec.Step
		records = append(records, rec)
	}
	if records == nil {
		records = []DraftRecord{}
	}
	return records, rows.Err()
}

// DeleteDraft removes a draft. Deleting a missing draft is an error so the
// API can report 404.
func (s *Store) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM proposal_drafts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete draft failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("draft %s not found", id)
	}
	return nil
}
