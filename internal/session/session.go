package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ontapvn/exam-session/internal/answers"
	"github.com/ontapvn/exam-session/internal/archive"
	"github.com/ontapvn/exam-session/internal/credential"
	"github.com/ontapvn/exam-session/internal/exam"
	"github.com/ontapvn/exam-session/pkg/http/ws"
)

var (
	ErrSubmitInFlight    = errors.New("submission already in flight")
	ErrSessionCompleted  = errors.New("session already completed")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrEmptyUnconfirmed  = errors.New("no answers selected; confirmation required")
	ErrUnknownQuestion   = errors.New("question not part of this session")
	ErrOptionOutOfRange  = errors.New("option index out of range")
	ErrNavigationOutside = errors.New("target question outside session bounds")
)

// SubmitClient sends a finished answer sheet to the grading backend.
type SubmitClient interface {
	SubmitExam(ctx context.Context, examID int64, sub exam.Submission, bearer string) (*exam.Result, error)
}

// Archiver records graded attempts. May be nil when no database is configured.
type Archiver interface {
	Insert(ctx context.Context, att archive.Attempt) error
}

// EventSink receives session lifecycle events for connected observers.
type EventSink interface {
	Broadcast(sessionID uuid.UUID, msg ws.Message)
}

// Config carries the collaborators a session needs beyond its blueprint.
type Config struct {
	Store         answers.Store
	Credentials   *credential.Holder
	Client        SubmitClient
	Archiver      Archiver
	Events        EventSink
	Logger        zerolog.Logger
	TickEvery     time.Duration
	SubmitTimeout time.Duration
}

// SubmitRequest carries caller intent for a submission attempt.
type SubmitRequest struct {
	// ConfirmEmpty allows submitting a sheet with no answers selected.
	ConfirmEmpty bool
}

// Session owns one candidate's attempt at one exam. All state transitions
// happen under mu; the network call during submission runs unlocked so the
// countdown keeps advancing.
type Session struct {
	ID uuid.UUID

	mu          sync.Mutex
	blueprint   Blueprint
	status      Status
	initial     int
	remaining   int
	answers     answers.Set
	nav         *Navigator
	result      *exam.Result
	lastErr     string
	expiryFired bool
	closed      bool
	completedAt *time.Time

	store         answers.Store
	creds         *credential.Holder
	client        SubmitClient
	archiver      Archiver
	events        EventSink
	logger        zerolog.Logger
	tickEvery     time.Duration
	submitTimeout time.Duration
	cancelClock   context.CancelFunc
}

// New builds a session from a materialized blueprint, restores any persisted
// answer set, and starts the countdown.
func New(ctx context.Context, bp Blueprint, cfg Config) (*Session, error) {
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = time.Second
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}

	s := &Session{
		ID:            uuid.New(),
		blueprint:     bp,
		status:        StatusLoading,
		initial:       bp.DurationSeconds,
		remaining:     bp.DurationSeconds,
		answers:       answers.Set{},
		nav:           NewNavigator(len(bp.Questions)),
		store:         cfg.Store,
		creds:         cfg.Credentials,
		client:        cfg.Client,
		archiver:      cfg.Archiver,
		events:        cfg.Events,
		tickEvery:     cfg.TickEvery,
		submitTimeout: cfg.SubmitTimeout,
	}
	s.logger = cfg.Logger.With().
		Str("component", "session").
		Str("session_id", s.ID.String()).
		Int64("exam_id", bp.ExamID).
		Logger()

	s.restoreAnswers(ctx)
	s.status = StatusActive

	clockCtx, cancel := context.WithCancel(context.Background())
	s.cancelClock = cancel
	go s.runClock(clockCtx)

	s.logger.Info().
		Str("title", bp.Title).
		Int("questions", len(bp.Questions)).
		Int("duration_seconds", bp.DurationSeconds).
		Msg("session started")
	return s, nil
}

// restoreAnswers overlays the persisted answer set onto the blueprint,
// discarding entries for questions or options that no longer exist.
func (s *Session) restoreAnswers(ctx context.Context) {
	saved, err := s.store.Load(ctx, s.blueprint.ExamID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load saved answers, starting blank")
		return
	}
	for qID, idx := range saved {
		q, ok := s.blueprint.questionByID(qID)
		if !ok {
			s.logger.Warn().Int64("question_id", qID).Msg("dropping saved answer for unknown question")
			continue
		}
		if idx < 0 || idx >= len(q.Options) {
			s.logger.Warn().Int64("question_id", qID).Int("option_index", idx).Msg("dropping saved answer with stale option index")
			continue
		}
		s.answers[qID] = idx
	}
	if len(s.answers) > 0 {
		s.logger.Info().Int("restored", len(s.answers)).Msg("restored saved answers")
	}
}

func (bp Blueprint) questionByID(id int64) (Question, bool) {
	for _, q := range bp.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Select records the candidate's choice for a question and persists the
// full answer set. Persistence failures are logged but never block the
// selection.
func (s *Session) Select(ctx context.Context, questionID int64, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return ErrSessionNotActive
	}
	q, ok := s.blueprint.questionByID(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrOptionOutOfRange
	}

	s.answers[questionID] = optionIndex
	if err := s.store.Save(ctx, s.blueprint.ExamID, s.answers); err != nil {
		metricAutosaveFailures.Inc()
		s.logger.Warn().Err(err).Int64("question_id", questionID).Msg("failed to persist answer set")
	}

	s.broadcast(ws.NewMessage(ws.TypeAnswerSaved, ws.AnswerSavedPayload{
		SessionID:     s.ID.String(),
		QuestionID:    questionID,
		OptionIndex:   optionIndex,
		AnsweredCount: len(s.answers),
	}))
	return nil
}

// Next moves focus to the following question, staying put at the last one.
func (s *Session) Next() {
	s.mu.Lock()
	changed := s.nav.Next()
	idx := s.nav.Current()
	s.mu.Unlock()
	if changed {
		s.broadcastFocus(idx)
	}
}

// Previous moves focus to the preceding question, staying put at the first.
func (s *Session) Previous() {
	s.mu.Lock()
	changed := s.nav.Previous()
	idx := s.nav.Current()
	s.mu.Unlock()
	if changed {
		s.broadcastFocus(idx)
	}
}

// JumpTo focuses an arbitrary question by its 1-based position.
func (s *Session) JumpTo(position int) error {
	s.mu.Lock()
	if !s.nav.JumpTo(position) {
		s.mu.Unlock()
		return ErrNavigationOutside
	}
	idx := s.nav.Current()
	s.mu.Unlock()
	s.broadcastFocus(idx)
	return nil
}

func (s *Session) broadcastFocus(current int) {
	s.broadcast(ws.NewMessage(ws.TypeQuestionFocused, ws.QuestionFocusedPayload{
		SessionID:    s.ID.String(),
		CurrentIndex: current,
	}))
}

// Submit grades the attempt against the backend. The credential is checked
// before any state transition so an expired token leaves the session active
// and retryable. The countdown keeps running while the request is in flight.
func (s *Session) Submit(ctx context.Context, req SubmitRequest) (*exam.Result, error) {
	s.mu.Lock()

	switch s.status {
	case StatusSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	case StatusCompleted:
		s.mu.Unlock()
		return nil, ErrSessionCompleted
	case StatusActive:
	default:
		s.mu.Unlock()
		return nil, ErrSessionNotActive
	}

	token, err := s.creds.Token()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("credential check: %w", err)
	}
	if len(s.answers) == 0 && !req.ConfirmEmpty {
		s.mu.Unlock()
		return nil, ErrEmptyUnconfirmed
	}

	payload := s.buildSubmissionLocked()
	examID := s.blueprint.ExamID
	s.status = StatusSubmitting
	s.lastErr = ""
	s.mu.Unlock()

	s.broadcastStatus(StatusSubmitting, "")
	s.logger.Info().Int("answered", len(payload.Answers)).Int("time_spent_seconds", payload.TimeSpentSeconds).Msg("submitting attempt")

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.submitTimeout)
	defer cancel()
	result, err := s.client.SubmitExam(callCtx, examID, payload, token)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn().Msg("session closed during submission, result discarded")
		return nil, ErrSessionNotActive
	}
	if err != nil {
		s.status = StatusActive
		if errors.Is(err, exam.ErrUnauthorized) {
			s.creds.Invalidate()
			s.lastErr = "session token rejected, please provide a fresh credential"
			metricSubmissions.WithLabelValues(outcomeUnauthorized).Inc()
		} else {
			s.lastErr = "submission failed, your answers are kept and you can retry"
			metricSubmissions.WithLabelValues(outcomeError).Inc()
		}
		detail := s.lastErr
		s.mu.Unlock()
		s.broadcastStatus(StatusActive, detail)
		s.logger.Error().Err(err).Msg("submission failed")
		return nil, fmt.Errorf("submit exam: %w", err)
	}

	s.status = StatusCompleted
	s.result = result
	now := time.Now().UTC()
	s.completedAt = &now
	if s.cancelClock != nil {
		s.cancelClock()
	}
	s.mu.Unlock()

	if clearErr := s.store.Clear(context.WithoutCancel(ctx), examID); clearErr != nil {
		s.logger.Warn().Err(clearErr).Msg("failed to clear persisted answers after grading")
	}
	s.archiveResult(context.WithoutCancel(ctx), result)

	metricSubmissions.WithLabelValues(outcomeCompleted).Inc()
	s.broadcastStatus(StatusCompleted, "")
	s.broadcastResult(result)
	s.logger.Info().
		Float64("score", result.Score).
		Float64("percentage", result.Percentage).
		Msg("attempt graded")
	return result, nil
}

// buildSubmissionLocked assembles the wire payload. Every blueprint question
// appears in the answer list; unanswered ones carry a nil option.
func (s *Session) buildSubmissionLocked() exam.Submission {
	list := make([]exam.AnswerSubmission, 0, len(s.blueprint.Questions))
	for _, q := range s.blueprint.Questions {
		ans := exam.AnswerSubmission{QuestionID: q.ID}
		if idx, ok := s.answers[q.ID]; ok && idx >= 0 && idx < len(q.Options) {
			ans.OptionID = q.Options[idx].OptionID
		}
		list = append(list, ans)
	}
	spent := s.initial - s.remaining
	if spent < 0 {
		spent = 0
	}
	return exam.Submission{
		ExamID:           s.blueprint.ExamID,
		Answers:          list,
		TimeSpentSeconds: spent,
	}
}

func (s *Session) archiveResult(ctx context.Context, result *exam.Result) {
	if s.archiver == nil || result == nil {
		return
	}
	submittedAt, err := time.Parse(time.RFC3339, result.SubmittedAt)
	if err != nil {
		submittedAt = time.Now().UTC()
	}
	att := archive.Attempt{
		ID:               uuid.New(),
		SessionID:        s.ID,
		ExamID:           result.ExamID,
		ExamTitle:        result.ExamTitle,
		Subject:          s.blueprint.Subject,
		Score:            result.Score,
		TotalPoints:      result.TotalPoints,
		Percentage:       result.Percentage,
		TimeSpentSeconds: result.TimeSpentSeconds,
		SubmittedAt:      submittedAt,
		Answers:          result.Answers,
	}
	if err := s.archiver.Insert(ctx, att); err != nil {
		s.logger.Warn().Err(err).Msg("failed to archive graded attempt")
	}
}

// RefreshCredential installs a new bearer token for a retry after the
// previous one was rejected.
func (s *Session) RefreshCredential(token string) {
	s.creds.Set(token)
	s.logger.Info().Msg("session credential refreshed")
}

// Close stops the countdown and detaches the session. Persisted answers are
// kept so an abandoned attempt stays resumable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancelClock != nil {
		s.cancelClock()
	}
	s.logger.Info().Str("status", string(s.status)).Msg("session closed")
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CompletedAt returns when the attempt finished grading, if it has.
func (s *Session) CompletedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedAt
}

// Snapshot captures the full display state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ansCopy := make(map[int64]int, len(s.answers))
	for k, v := range s.answers {
		ansCopy[k] = v
	}
	return Snapshot{
		ID:               s.ID.String(),
		ExamID:           s.blueprint.ExamID,
		Title:            s.blueprint.Title,
		Subject:          s.blueprint.Subject,
		Author:           s.blueprint.Author,
		Status:           s.status,
		InitialSeconds:   s.initial,
		RemainingSeconds: s.remaining,
		CurrentIndex:     s.nav.Current(),
		TotalQuestions:   len(s.blueprint.Questions),
		AnsweredCount:    len(ansCopy),
		Answers:          ansCopy,
		Passage:          s.blueprint.Passage,
		Questions:        s.blueprint.Questions,
		Result:           s.result,
		LastError:        s.lastErr,
	}
}

func (s *Session) broadcast(msg ws.Message) {
	if s.events != nil {
		s.events.Broadcast(s.ID, msg)
	}
}

func (s *Session) broadcastStatus(status Status, detail string) {
	s.broadcast(ws.NewMessage(ws.TypeStatusChanged, ws.StatusChangedPayload{
		SessionID: s.ID.String(),
		Status:    string(status),
		Message:   detail,
	}))
}

func (s *Session) broadcastResult(result *exam.Result) {
	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode result for feed")
		return
	}
	s.broadcast(ws.NewMessage(ws.TypeSubmissionResult, ws.SubmissionResultPayload{
		SessionID: s.ID.String(),
		Result:    raw,
	}))
}
