package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ontapvn/exam-session/internal/answers"
	"github.com/ontapvn/exam-session/internal/credential"
	"github.com/ontapvn/exam-session/internal/exam"
)

var ErrSessionNotFound = errors.New("session not found")

// Feed is the observer registry sessions publish into. The manager also
// detaches observers when a session is removed.
type Feed interface {
	EventSink
	DropSession(sessionID uuid.UUID)
}

// ContentResolver turns a loose exam reference into a full record.
type ContentResolver interface {
	Resolve(ctx context.Context, ref exam.ContentRef) (*exam.Record, error)
}

// ManagerConfig carries the shared collaborators handed to every session.
type ManagerConfig struct {
	Resolver               ContentResolver
	Store                  answers.Store
	Client                 SubmitClient
	Archiver               Archiver
	Feed                   Feed
	DefaultDurationSeconds int
	CompletedRetention     time.Duration
	TickEvery              time.Duration
	SubmitTimeout          time.Duration
}

// Manager owns the registry of live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	resolver ContentResolver
	store    answers.Store
	client   SubmitClient
	archiver Archiver
	feed     Feed
	logger   zerolog.Logger

	defaultDuration    int
	completedRetention time.Duration
	tickEvery          time.Duration
	submitTimeout      time.Duration
}

func NewManager(cfg ManagerConfig, logger zerolog.Logger) *Manager {
	if cfg.DefaultDurationSeconds <= 0 {
		cfg.DefaultDurationSeconds = 3600
	}
	if cfg.CompletedRetention <= 0 {
		cfg.CompletedRetention = 30 * time.Minute
	}
	return &Manager{
		sessions:           make(map[uuid.UUID]*Session),
		resolver:           cfg.Resolver,
		store:              cfg.Store,
		client:             cfg.Client,
		archiver:           cfg.Archiver,
		feed:               cfg.Feed,
		logger:             logger.With().Str("component", "session_manager").Logger(),
		defaultDuration:    cfg.DefaultDurationSeconds,
		completedRetention: cfg.CompletedRetention,
		tickEvery:          cfg.TickEvery,
		submitTimeout:      cfg.SubmitTimeout,
	}
}

// CreateRequest describes the attempt to start.
type CreateRequest struct {
	Ref             exam.ContentRef
	BearerToken     string
	DurationSeconds int
}

// Create resolves the referenced exam, materializes it, and starts a new
// session. Nothing is registered on failure.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	record, err := m.resolver.Resolve(ctx, req.Ref)
	if err != nil {
		return nil, fmt.Errorf("resolve exam: %w", err)
	}

	defaults := Defaults{
		DurationSeconds: m.defaultDuration,
		Title:           req.Ref.Title,
		Subject:         req.Ref.Subject,
	}
	if req.DurationSeconds > 0 {
		defaults.DurationSeconds = req.DurationSeconds
	}
	bp, err := Materialize(record, defaults)
	if err != nil {
		return nil, fmt.Errorf("materialize exam %d: %w", record.ID, err)
	}

	sess, err := New(ctx, *bp, Config{
		Store:         m.store,
		Credentials:   credential.NewHolder(req.BearerToken),
		Client:        m.client,
		Archiver:      m.archiver,
		Events:        m.feed,
		Logger:        m.logger,
		TickEvery:     m.tickEvery,
		SubmitTimeout: m.submitTimeout,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	live := len(m.sessions)
	m.mu.Unlock()

	metricSessionsStarted.Inc()
	metricSessionsLive.Set(float64(live))
	m.logger.Info().Str("session_id", sess.ID.String()).Int64("exam_id", bp.ExamID).Int("live_sessions", live).Msg("session registered")
	return sess, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close removes a session from the registry, stops its clock, and detaches
// any feed observers.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	live := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.Close()
	if m.feed != nil {
		m.feed.DropSession(id)
	}
	metricSessionsLive.Set(float64(live))
	return nil
}

// Run prunes completed sessions that have outlived their retention window.
// It blocks until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			m.prune()
		}
	}
}

func (m *Manager) prune() {
	cutoff := time.Now().UTC().Add(-m.completedRetention)

	m.mu.Lock()
	var expired []*Session
	for id, sess := range m.sessions {
		done := sess.CompletedAt()
		if done != nil && done.Before(cutoff) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	live := len(m.sessions)
	m.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
		if m.feed != nil {
			m.feed.DropSession(sess.ID)
		}
	}
	if len(expired) > 0 {
		metricSessionsLive.Set(float64(live))
		m.logger.Info().Int("pruned", len(expired)).Int("live_sessions", live).Msg("pruned completed sessions")
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		all = append(all, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
	metricSessionsLive.Set(0)
	if len(all) > 0 {
		m.logger.Info().Int("closed", len(all)).Msg("closed all sessions on shutdown")
	}
}
