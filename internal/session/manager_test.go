package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontapvn/exam-session/internal/exam"
	"github.com/ontapvn/exam-session/pkg/http/ws"
)

type stubResolver struct {
	record *exam.Record
	err    error
	ref    exam.ContentRef
}

func (s *stubResolver) Resolve(_ context.Context, ref exam.ContentRef) (*exam.Record, error) {
	s.ref = ref
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

type countingFeed struct {
	dropped []uuid.UUID
}

func (f *countingFeed) Broadcast(uuid.UUID, ws.Message) {}

func (f *countingFeed) DropSession(sessionID uuid.UUID) {
	f.dropped = append(f.dropped, sessionID)
}

func newTestManager(resolver ContentResolver, feed Feed) *Manager {
	return NewManager(ManagerConfig{
		Resolver:               resolver,
		Store:                  newMemStore(),
		Client:                 &stubSubmitClient{result: gradedResult()},
		Feed:                   feed,
		DefaultDurationSeconds: 3600,
		CompletedRetention:     time.Minute,
		TickEvery:              time.Hour,
	}, zerolog.Nop())
}

func TestManagerCreateRegistersSession(t *testing.T) {
	resolver := &stubResolver{record: sampleRecord()}
	mgr := newTestManager(resolver, &countingFeed{})

	sess, err := mgr.Create(context.Background(), CreateRequest{
		Ref:         exam.ContentRef{ID: 42, Title: "Midterm English", Subject: "English"},
		BearerToken: "token",
	})
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	assert.Equal(t, int64(42), resolver.ref.ID)

	got, err := mgr.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	snap := sess.Snapshot()
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, 45*60, snap.InitialSeconds)
}

func TestManagerCreateHonorsDurationOverride(t *testing.T) {
	record := sampleRecord()
	record.DurationMin = 0
	mgr := newTestManager(&stubResolver{record: record}, &countingFeed{})

	sess, err := mgr.Create(context.Background(), CreateRequest{
		Ref:             exam.ContentRef{ID: 42},
		DurationSeconds: 900,
	})
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	assert.Equal(t, 900, sess.Snapshot().InitialSeconds)
}

func TestManagerCreateFailsWithoutRegistering(t *testing.T) {
	mgr := newTestManager(&stubResolver{err: exam.ErrNotFound}, &countingFeed{})

	_, err := mgr.Create(context.Background(), CreateRequest{
		Ref: exam.ContentRef{ID: 999},
	})
	assert.ErrorIs(t, err, exam.ErrNotFound)
}

func TestManagerCreateRejectsEmptyExam(t *testing.T) {
	record := sampleRecord()
	record.Questions = nil
	mgr := newTestManager(&stubResolver{record: record}, &countingFeed{})

	_, err := mgr.Create(context.Background(), CreateRequest{
		Ref: exam.ContentRef{ID: 42},
	})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestManagerCloseDetachesObservers(t *testing.T) {
	feed := &countingFeed{}
	mgr := newTestManager(&stubResolver{record: sampleRecord()}, feed)

	sess, err := mgr.Create(context.Background(), CreateRequest{Ref: exam.ContentRef{ID: 42}})
	require.NoError(t, err)

	require.NoError(t, mgr.Close(sess.ID))
	assert.Equal(t, []uuid.UUID{sess.ID}, feed.dropped)

	_, err = mgr.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, mgr.Close(sess.ID), ErrSessionNotFound)
}

func TestManagerPruneRemovesStaleCompletedSessions(t *testing.T) {
	feed := &countingFeed{}
	mgr := newTestManager(&stubResolver{record: sampleRecord()}, feed)

	sess, err := mgr.Create(context.Background(), CreateRequest{
		Ref:         exam.ContentRef{ID: 42},
		BearerToken: "token",
	})
	require.NoError(t, err)

	_, err = sess.Submit(context.Background(), SubmitRequest{ConfirmEmpty: true})
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-2 * time.Minute)
	sess.mu.Lock()
	sess.completedAt = &stale
	sess.mu.Unlock()

	mgr.prune()

	_, err = mgr.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, []uuid.UUID{sess.ID}, feed.dropped)
}
