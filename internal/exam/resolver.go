package exam

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// ContentRef is a possibly-indirect pointer at an exam: the id of a
// content post that may double as an exam id, plus the title/subject pair
// shown on the content card.
type ContentRef struct {
	ID      int64
	Title   string
	Subject string
}

// Resolver locates the authoritative exam record for a content reference.
type Resolver struct {
	client   ExamAPI
	pageSize int
	logger   zerolog.Logger
}

// ExamAPI is the slice of the upstream client the resolver needs.
type ExamAPI interface {
	GetExam(ctx context.Context, examID int64) (*Record, error)
	SearchExams(ctx context.Context, search, subject string, pageSize int) ([]Record, error)
}

// NewResolver builds a resolver over the upstream client.
func NewResolver(client ExamAPI, pageSize int, logger zerolog.Logger) *Resolver {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Resolver{
		client:   client,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "exam_resolver").Logger(),
	}
}

// Resolve tries, in order: the reference id as a direct exam id, then a
// title+subject search preferring an exact case-insensitive match. When
// neither matches exactly it falls back to the first search hit, loudly:
// duplicate titles can make that the wrong exam.
func (r *Resolver) Resolve(ctx context.Context, ref ContentRef) (*Record, error) {
	if ref.ID > 0 {
		record, err := r.client.GetExam(ctx, ref.ID)
		switch {
		case err == nil:
			return record, nil
		case errors.Is(err, ErrNotFound):
			// fall through to search
		default:
			r.logger.Warn().Err(err).Int64("ref_id", ref.ID).Msg("direct lookup failed, trying search")
		}
	}

	if ref.Title == "" {
		return nil, ErrNotFound
	}

	hits, err := r.client.SearchExams(ctx, ref.Title, ref.Subject, r.pageSize)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, ErrNotFound
	}

	match := r.pickMatch(hits, ref)
	record, err := r.client.GetExam(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Resolver) pickMatch(hits []Record, ref ContentRef) Record {
	for _, hit := range hits {
		if strings.EqualFold(hit.Title, ref.Title) && hit.Subject == ref.Subject {
			return hit
		}
	}

	r.logger.Warn().
		Str("title", ref.Title).
		Str("subject", ref.Subject).
		Int64("fallback_exam_id", hits[0].ID).
		Int("search_hits", len(hits)).
		Msg("no exact title+subject match, falling back to first search hit")
	return hits[0]
}
