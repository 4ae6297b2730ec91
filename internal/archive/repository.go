// Package archive keeps a local record of completed attempts so the host
// UI can show a results history without another upstream round trip.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/ontapvn/exam-session/internal/exam"
)

// Attempt is one archived, graded exam attempt.
type Attempt struct {
	ID               uuid.UUID           `json:"id"`
	SessionID        uuid.UUID           `json:"session_id"`
	ExamID           int64               `json:"exam_id"`
	ExamTitle        string              `json:"exam_title"`
	Subject          string              `json:"subject"`
	Score            float64             `json:"score"`
	TotalPoints      float64             `json:"total_points"`
	Percentage       float64             `json:"percentage"`
	TimeSpentSeconds int                 `json:"time_spent_seconds"`
	SubmittedAt      time.Time           `json:"submitted_at"`
	Answers          []exam.ResultAnswer `json:"answers"`
}

type attemptStore interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository contains DB helpers for the attempts table.
type Repository struct {
	store  attemptStore
	logger zerolog.Logger
}

// NewRepository constructs an attempt repository.
func NewRepository(store attemptStore, logger zerolog.Logger) *Repository {
	return &Repository{
		store:  store,
		logger: logger.With().Str("component", "attempt_archive").Logger(),
	}
}

// Insert persists one completed attempt.
func (r *Repository) Insert(ctx context.Context, att Attempt) error {
	answersJSON, err := json.Marshal(att.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.store.Exec(ctx, `
		INSERT INTO attempts (
			id, session_id, exam_id, exam_title, subject,
			score, total_points, percentage, time_spent_seconds,
			submitted_at, answers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		att.ID, att.SessionID, att.ExamID, att.ExamTitle, att.Subject,
		att.Score, att.TotalPoints, att.Percentage, att.TimeSpentSeconds,
		att.SubmittedAt, answersJSON,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// ListRecent returns the newest attempts, per-question detail included.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.store.Query(ctx, `
		SELECT id, session_id, exam_id, exam_title, subject,
		       score, total_points, percentage, time_spent_seconds,
		       submitted_at, answers
		FROM attempts
		ORDER BY submitted_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var att Attempt
		var answersJSON []byte
		if err := rows.Scan(
			&att.ID, &att.SessionID, &att.ExamID, &att.ExamTitle, &att.Subject,
			&att.Score, &att.TotalPoints, &att.Percentage, &att.TimeSpentSeconds,
			&att.SubmittedAt, &answersJSON,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(answersJSON, &att.Answers); err != nil {
			r.logger.Warn().Err(err).Str("attempt_id", att.ID.String()).Msg("skip corrupted answer detail")
			att.Answers = nil
		}
		attempts = append(attempts, att)
	}
	return attempts, rows.Err()
}
