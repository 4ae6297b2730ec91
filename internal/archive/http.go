package archive

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	httperrors "github.com/ontapvn/exam-session/pkg/http/errors"
)

// HTTPHandlers exposes the attempt archive over REST. The repository may be
// nil when no database is configured; the endpoint then reports that plainly
// instead of failing opaquely.
type HTTPHandlers struct {
	repo   *Repository
	logger zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for archive endpoints.
func NewHTTPHandlers(repo *Repository, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		repo:   repo,
		logger: logger.With().Str("component", "archive_http").Logger(),
	}
}

// List handles GET /v1/attempts.
func (h *HTTPHandlers) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		httperrors.RespondError(w, http.StatusServiceUnavailable, httperrors.ErrCodeArchiveMissing, "Attempt archive is not configured")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "limit must be an integer", "limit")
			return
		}
		limit = parsed
	}

	attempts, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list attempts")
		httperrors.RespondInternalError(w, "Could not load archived attempts")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total": len(attempts),
		"data":  attempts,
	})
}
