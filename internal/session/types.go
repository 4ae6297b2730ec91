package session

import (
	"github.com/ontapvn/exam-session/internal/exam"
)

// Status is the attempt lifecycle state.
type Status string

const (
	StatusLoading    Status = "loading"
	StatusActive     Status = "active"
	StatusSubmitting Status = "submitting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Option is one normalized answer choice. OptionID stays nil when the
// upstream never assigned one; selection works regardless, only the final
// submission mapping is affected.
type Option struct {
	Index    int    `json:"index"`
	OptionID *int64 `json:"option_id"`
	Text     string `json:"option_text"`
}

// Question is one materialized question with a session-stable id.
type Question struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Passage is the optional read-along document shown beside the questions.
// SourceURL is already rewritten into its embeddable form.
type Passage struct {
	Title     string `json:"title"`
	SourceURL string `json:"source_url,omitempty"`
}

// Blueprint is the immutable exam model produced once at session start.
type Blueprint struct {
	ExamID          int64
	Title           string
	Subject         string
	Author          string
	DurationSeconds int
	Passage         Passage
	Questions       []Question
}

// Snapshot is the full display model handed to the host UI.
type Snapshot struct {
	ID               string       `json:"id"`
	ExamID           int64        `json:"exam_id"`
	Title            string       `json:"title"`
	Subject          string       `json:"subject"`
	Author           string       `json:"author,omitempty"`
	Status           Status       `json:"status"`
	InitialSeconds   int          `json:"initial_seconds"`
	RemainingSeconds int          `json:"remaining_seconds"`
	CurrentIndex     int          `json:"current_index"`
	AnsweredCount    int          `json:"answered_count"`
	TotalQuestions   int          `json:"total_questions"`
	Answers          map[int64]int `json:"answers"`
	Passage          Passage      `json:"passage"`
	Questions        []Question   `json:"questions"`
	Result           *exam.Result `json:"result,omitempty"`
	LastError        string       `json:"last_error,omitempty"`
}
