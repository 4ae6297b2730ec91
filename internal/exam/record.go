package exam

import (
	"encoding/json"
	"fmt"
)

// Record is the upstream exam payload, questions included.
type Record struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	Author        string           `json:"author"`
	Fullname      string           `json:"fullname"`
	Subject       string           `json:"subject"`
	Description   string           `json:"description,omitempty"`
	DurationMin   int              `json:"duration_min,omitempty"`
	FileURL       string           `json:"file_url,omitempty"`
	AnswerFileURL string           `json:"answer_file_url,omitempty"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at,omitempty"`
	Questions     []RecordQuestion `json:"questions"`
}

// RecordQuestion is one upstream question. QuestionID may be zero for
// legacy rows that never got identifiers.
type RecordQuestion struct {
	QuestionID   int64          `json:"question_id"`
	QuestionText string         `json:"question_text"`
	QuestionType string         `json:"question_type,omitempty"`
	Points       float64        `json:"points,omitempty"`
	OrderIndex   int            `json:"order_index,omitempty"`
	Options      []RecordOption `json:"options"`
}

// RecordOption tolerates both upstream shapes: a bare string, or a
// structured object carrying an option id. OptionID nil means the id is
// unknown until grading.
type RecordOption struct {
	OptionID *int64
	Text     string
}

// UnmarshalJSON normalizes the polymorphic option encoding at the wire
// boundary so nothing downstream ever branches on shape.
func (o *RecordOption) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		o.OptionID = nil
		o.Text = plain
		return nil
	}

	var obj struct {
		OptionID   *int64 `json:"option_id"`
		OptionText string `json:"option_text"`
		Text       string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode option: %w", err)
	}

	o.OptionID = obj.OptionID
	o.Text = obj.OptionText
	if o.Text == "" {
		o.Text = obj.Text
	}
	return nil
}

// MarshalJSON emits the structured form.
func (o RecordOption) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OptionID   *int64 `json:"option_id"`
		OptionText string `json:"option_text"`
	}{OptionID: o.OptionID, OptionText: o.Text})
}

// SearchPage is the upstream list envelope (questions omitted per row).
type SearchPage struct {
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Data     []Record `json:"data"`
}

// AnswerSubmission is one packaged answer; OptionID nil marks an
// unanswered question or an option whose upstream id was never known.
type AnswerSubmission struct {
	QuestionID int64   `json:"question_id"`
	OptionID   *int64  `json:"option_id"`
	AnswerText *string `json:"answer_text"`
}

// Submission is the grading request body.
type Submission struct {
	ExamID           int64              `json:"exam_id"`
	Answers          []AnswerSubmission `json:"answers"`
	TimeSpentSeconds int                `json:"time_spent_seconds"`
}

// ResultAnswer is per-question grading detail returned by the upstream.
type ResultAnswer struct {
	QuestionID   int64   `json:"question_id"`
	OptionID     *int64  `json:"option_id,omitempty"`
	AnswerText   *string `json:"answer_text,omitempty"`
	IsCorrect    bool    `json:"is_correct"`
	PointsEarned float64 `json:"points_earned"`
	TotalPoints  float64 `json:"total_points"`
}

// Result is the graded submission. Score figures are display-only; the
// upstream is the authority.
type Result struct {
	ExamResultID     int64          `json:"exam_result_id"`
	ExamID           int64          `json:"exam_id"`
	ExamTitle        string         `json:"exam_title"`
	Score            float64        `json:"score"`
	TotalPoints      float64        `json:"total_points"`
	Percentage       float64        `json:"percentage"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	SubmittedAt      string         `json:"submitted_at"`
	Answers          []ResultAnswer `json:"answers"`
}
