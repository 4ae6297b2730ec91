package session

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ontapvn/exam-session/internal/exam"
)

// ErrNoQuestions marks an exam record that resolved but cannot host a
// session.
var ErrNoQuestions = errors.New("exam has no questions")

// ErrDuplicateQuestionID marks a record whose source assigns the same id
// to two questions; such a record cannot keep answers apart.
var ErrDuplicateQuestionID = errors.New("duplicate question id")

// Defaults fill gaps the upstream record may leave open.
type Defaults struct {
	DurationSeconds int
	Title           string
	Subject         string
	Author          string
	FileURL         string
}

// Materialize transforms a raw exam record into the session's immutable
// display model. All option-shape normalization already happened at the
// wire boundary; here questions get their session-stable ids and the
// passage reference its embeddable form.
func Materialize(record *exam.Record, defaults Defaults) (*Blueprint, error) {
	if len(record.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	// Source ids are registered up front so a synthesized id can never
	// land on one of them. Two questions sharing a source id is the
	// upstream's bug and unrecoverable here.
	ids := make(map[int64]struct{}, len(record.Questions))
	for _, rq := range record.Questions {
		if rq.QuestionID == 0 {
			continue
		}
		if _, dup := ids[rq.QuestionID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateQuestionID, rq.QuestionID)
		}
		ids[rq.QuestionID] = struct{}{}
	}

	questions := make([]Question, 0, len(record.Questions))
	for i, rq := range record.Questions {
		// Source id when present; legacy rows get the lowest unused id
		// at or above their 1-based position, deterministic per record.
		id := rq.QuestionID
		if id == 0 {
			id = int64(i + 1)
			for {
				if _, taken := ids[id]; !taken {
					break
				}
				id++
			}
			ids[id] = struct{}{}
		}

		options := make([]Option, 0, len(rq.Options))
		for j, ro := range rq.Options {
			options = append(options, Option{
				Index:    j,
				OptionID: ro.OptionID,
				Text:     ro.Text,
			})
		}

		questions = append(questions, Question{
			ID:      id,
			Text:    rq.QuestionText,
			Options: options,
		})
	}

	title := record.Title
	if title == "" {
		title = defaults.Title
	}
	subject := record.Subject
	if subject == "" {
		subject = defaults.Subject
	}
	author := record.Fullname
	if author == "" {
		author = defaults.Author
	}

	duration := record.DurationMin * 60
	if duration <= 0 {
		duration = defaults.DurationSeconds
	}
	if duration <= 0 {
		duration = 3600
	}

	fileURL := record.FileURL
	if fileURL == "" {
		fileURL = defaults.FileURL
	}

	return &Blueprint{
		ExamID:          record.ID,
		Title:           title,
		Subject:         subject,
		Author:          author,
		DurationSeconds: duration,
		Passage: Passage{
			Title:     title,
			SourceURL: passageURL(fileURL),
		},
		Questions: questions,
	}, nil
}

var drivePathPattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)

// passageURL rewrites Google Drive / Docs links into their iframe-friendly
// preview form. Anything else passes through for generic embedding.
func passageURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := u.Hostname()
	if !strings.Contains(host, "drive.google.com") && !strings.Contains(host, "docs.google.com") {
		return raw
	}

	if id := u.Query().Get("id"); id != "" {
		return drivePreviewURL(id)
	}
	if m := drivePathPattern.FindStringSubmatch(u.Path); m != nil {
		return drivePreviewURL(m[1])
	}
	return raw
}

func drivePreviewURL(id string) string {
	return fmt.Sprintf("https://drive.google.com/file/d/%s/preview", id)
}
