package session

import (
	"context"
	"time"

	"github.com/ontapvn/exam-session/pkg/http/ws"
)

// runClock drives the countdown. It stops when the context is cancelled or
// the session reaches a terminal state.
func (s *Session) runClock(ctx context.Context) {
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick() {
				return
			}
		}
	}
}

// tick advances the countdown by one interval. It returns false once the
// session no longer needs a clock. Time keeps draining while a submission
// is in flight, so a failed submit gains the candidate nothing.
func (s *Session) tick() bool {
	s.mu.Lock()

	if s.closed || s.status == StatusCompleted || s.status == StatusFailed {
		s.mu.Unlock()
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	remaining := s.remaining
	fire := remaining == 0 && !s.expiryFired && s.status == StatusActive
	if fire {
		s.expiryFired = true
	}
	s.mu.Unlock()

	s.broadcast(ws.NewMessage(ws.TypeClockTick, ws.ClockTickPayload{
		SessionID:        s.ID.String(),
		RemainingSeconds: remaining,
	}))

	if fire {
		metricClockExpiries.Inc()
		s.logger.Info().Msg("time expired, auto-submitting")
		go s.autoSubmit()
	}
	return true
}

// autoSubmit forces submission at expiry. An empty sheet needs no
// confirmation here; the candidate is out of time.
func (s *Session) autoSubmit() {
	ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
	defer cancel()
	if _, err := s.Submit(ctx, SubmitRequest{ConfirmEmpty: true}); err != nil {
		s.logger.Error().Err(err).Msg("auto-submission failed")
	}
}
