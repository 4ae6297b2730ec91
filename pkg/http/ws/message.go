package ws

import "encoding/json"

// MessageType constants for the session event feed.
const (
	// Server -> Client
	TypeSnapshot         = "snapshot"
	TypeClockTick        = "clock_tick"
	TypeStatusChanged    = "status_changed"
	TypeAnswerSaved      = "answer_saved"
	TypeQuestionFocused  = "question_focused"
	TypeSubmissionResult = "submission_result"
	TypeError            = "error"
	TypePing             = "ping"
	TypePong             = "pong"
)

// Message wraps all WebSocket payloads with a type tag.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ClockTickPayload is broadcast once per second while the countdown runs.
type ClockTickPayload struct {
	SessionID        string `json:"session_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// StatusChangedPayload announces a lifecycle transition.
type StatusChangedPayload struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// AnswerSavedPayload confirms a persisted selection.
type AnswerSavedPayload struct {
	SessionID     string `json:"session_id"`
	QuestionID    int64  `json:"question_id"`
	OptionIndex   int    `json:"option_index"`
	AnsweredCount int    `json:"answered_count"`
}

// QuestionFocusedPayload tracks the navigator so the visible list follows.
type QuestionFocusedPayload struct {
	SessionID    string `json:"session_id"`
	CurrentIndex int    `json:"current_index"`
}

// SubmissionResultPayload carries the graded result after completion.
type SubmissionResultPayload struct {
	SessionID string          `json:"session_id"`
	Result    json.RawMessage `json:"result"`
}

// NewMessage marshals a payload into a typed message. Marshal failures are
// reported as an error message so the feed never goes silent.
func NewMessage(msgType string, payload interface{}) Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": err.Error()})
		return Message{Type: TypeError, Payload: data}
	}
	return Message{Type: msgType, Payload: data}
}
