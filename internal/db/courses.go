package db

import (
	"context"
	"fmt"

	"github.com/hankyul/bidwatch/internal/models"
	"github.com/pgvector/pgvector-go"
)

// UpsertCourse writes one catalog entry with its embedding.
func (s *Store) UpsertCourse(ctx context.Context, course models.Course, embedding []float32) error {
	var emb interface{}
	if len(embedding) > 0 {
		emb = pgvector.NewVector(embedding)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO courses (id, title, instructor, topics, is_external, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			instructor = EXCLUDED.instructor,
			topics = EXCLUDED.topics,
			is_external = EXCLUDED.is_external,
			embedding = COALESCE(EXCLUDED.embedding, courses.embedding)`,
		course.ID, course.Title, course.Instructor, course.Topics, course.IsExternal, emb)
	if err != nil {
		return fmt.Errorf("course upsert failed: %w", err)
	}
	return nil
}

func (s *Store) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, title, instructor, topics, is_external, created_at FROM courses ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Instructor, &c.Topics, &c.IsExternal, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// SearchCoursesByEmbedding returns the catalog entries closest to the query
// embedding, nearest first. Entries without an embedding are skipped.
func (s *Store) SearchCoursesByEmbedding(ctx context.Context, embedding []float32, limit int) ([]models.Course, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, instructor, topics, is_external, created_at
		FROM courses
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Instructor, &c.Topics, &c.IsExternal, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
