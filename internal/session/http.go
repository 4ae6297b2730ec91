package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ontapvn/exam-session/internal/credential"
	"github.com/ontapvn/exam-session/internal/exam"
	httperrors "github.com/ontapvn/exam-session/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for session operations.
type HTTPHandlers struct {
	manager *Manager
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for session endpoints.
func NewHTTPHandlers(manager *Manager, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		manager: manager,
		logger:  logger.With().Str("component", "session_http").Logger(),
	}
}

// CreateSessionRequest is the payload for POST /v1/sessions.
type CreateSessionRequest struct {
	ExamID          int64  `json:"exam_id"`
	Title           string `json:"title"`
	Subject         string `json:"subject"`
	BearerToken     string `json:"bearer_token"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Create handles POST /v1/sessions.
func (h *HTTPHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.ExamID <= 0 && req.Title == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "either exam_id or title is required", "exam_id")
		return
	}

	sess, err := h.manager.Create(r.Context(), CreateRequest{
		Ref: exam.ContentRef{
			ID:      req.ExamID,
			Title:   req.Title,
			Subject: req.Subject,
		},
		BearerToken:     req.BearerToken,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		h.respondCreateError(w, req, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, sess.Snapshot())
}

func (h *HTTPHandlers) respondCreateError(w http.ResponseWriter, req CreateSessionRequest, err error) {
	h.logger.Error().Err(err).Int64("exam_id", req.ExamID).Str("title", req.Title).Msg("failed to create session")
	switch {
	case errors.Is(err, exam.ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeExamNotFound, "The requested exam could not be found")
	case errors.Is(err, ErrNoQuestions), errors.Is(err, ErrDuplicateQuestionID):
		httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeInvalidExam, "The exam cannot be taken: "+err.Error())
	default:
		httperrors.RespondBadGateway(w, httperrors.ErrCodeUpstreamError, "The exam backend is unavailable, try again shortly")
	}
}

// Get handles GET /v1/sessions/{id}.
func (h *HTTPHandlers) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, sess.Snapshot())
}

// AnswerRequest is the payload for POST /v1/sessions/{id}/answers.
type AnswerRequest struct {
	QuestionID  int64 `json:"question_id"`
	OptionIndex int   `json:"option_index"`
}

// Answer handles POST /v1/sessions/{id}/answers.
func (h *HTTPHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	if err := sess.Select(r.Context(), req.QuestionID, req.OptionIndex); err != nil {
		switch {
		case errors.Is(err, ErrSessionNotActive):
			httperrors.RespondConflict(w, httperrors.ErrCodeSessionNotActive, "Answers can only change while the session is active")
		case errors.Is(err, ErrUnknownQuestion), errors.Is(err, ErrOptionOutOfRange):
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "")
		default:
			httperrors.RespondInternalError(w, "Unexpected error while saving the answer")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, sess.Snapshot())
}

// NavigateRequest is the payload for POST /v1/sessions/{id}/navigate.
type NavigateRequest struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
}

// Navigate handles POST /v1/sessions/{id}/navigate.
func (h *HTTPHandlers) Navigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	switch req.Action {
	case "next":
		sess.Next()
	case "previous":
		sess.Previous()
	case "jump":
		if err := sess.JumpTo(req.Index); err != nil {
			httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeNavigationRejected, err.Error())
			return
		}
	default:
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "action must be next, previous, or jump", "action")
		return
	}

	h.respondJSON(w, http.StatusOK, sess.Snapshot())
}

// SubmitHTTPRequest is the payload for POST /v1/sessions/{id}/submit.
// BearerToken, when present, replaces the session credential before the
// attempt, saving a separate call after re-authentication.
type SubmitHTTPRequest struct {
	ConfirmEmpty bool   `json:"confirm_empty"`
	BearerToken  string `json:"bearer_token"`
}

// Submit handles POST /v1/sessions/{id}/submit.
func (h *HTTPHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SubmitHTTPRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
	}

	if req.BearerToken != "" {
		sess.RefreshCredential(req.BearerToken)
	}

	result, err := sess.Submit(r.Context(), SubmitRequest{ConfirmEmpty: req.ConfirmEmpty})
	if err != nil {
		h.respondSubmitError(w, sess, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session": sess.Snapshot(),
		"result":  result,
	})
}

func (h *HTTPHandlers) respondSubmitError(w http.ResponseWriter, sess *Session, err error) {
	switch {
	case errors.Is(err, ErrSubmitInFlight):
		httperrors.RespondConflict(w, httperrors.ErrCodeSubmitInFlight, "A submission is already in progress")
	case errors.Is(err, ErrSessionCompleted):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionCompleted, "The session has already been graded")
	case errors.Is(err, ErrEmptyUnconfirmed):
		httperrors.RespondError(w, http.StatusPreconditionRequired, httperrors.ErrCodeEmptySubmission, "No answers are selected, pass confirm_empty to submit anyway")
	case errors.Is(err, credential.ErrNoCredential):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "No session credential is present, deposit one and retry")
	case errors.Is(err, credential.ErrExpired), errors.Is(err, exam.ErrUnauthorized):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeCredentialExpired, "The session credential was rejected, refresh it and retry")
	default:
		h.logger.Error().Err(err).Str("session_id", sess.ID.String()).Msg("submission failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeSubmitFailed, "Submission failed, answers are kept and the attempt can be retried")
	}
}

// TokenRequest is the payload for POST /v1/sessions/{id}/token.
type TokenRequest struct {
	BearerToken string `json:"bearer_token"`
}

// RefreshToken handles POST /v1/sessions/{id}/token.
func (h *HTTPHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.BearerToken == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "bearer_token is required", "bearer_token")
		return
	}

	sess.RefreshCredential(req.BearerToken)
	h.respondJSON(w, http.StatusOK, sess.Snapshot())
}

// Delete handles DELETE /v1/sessions/{id}.
func (h *HTTPHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.manager.Close(id); err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "No session with that id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "session id must be a UUID", "id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandlers) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	sess, err := h.manager.Get(id)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "No session with that id")
		return nil, false
	}
	return sess, true
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
