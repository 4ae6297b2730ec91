package exam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrNotFound means the upstream has no such exam.
	ErrNotFound = errors.New("exam not found")
	// ErrUnauthorized means the bearer credential was missing, expired or
	// rejected by the grading endpoint.
	ErrUnauthorized = errors.New("credential rejected")
)

// UpstreamError covers transient upstream failures (5xx, validation, bad
// gateway). Submissions that hit one may be retried.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("exam api status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("exam api status %d", e.StatusCode)
}

// Client talks to the upstream content service that owns exams and grading.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an upstream client. baseURL is the service root, e.g.
// "https://portal.example.com/api".
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// GetExam fetches a single exam with its question set.
func (c *Client) GetExam(ctx context.Context, examID int64) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/exams/%d", c.baseURL, examID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: decodeDetail(resp)}
	}

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode exam: %w", err)
	}
	return &record, nil
}

// SearchExams lists exams filtered by free-text search and subject.
func (c *Client) SearchExams(ctx context.Context, search, subject string, pageSize int) ([]Record, error) {
	values := url.Values{}
	values.Set("page", "1")
	values.Set("page_size", fmt.Sprint(pageSize))
	if search != "" {
		values.Set("search", search)
	}
	if subject != "" {
		values.Set("subject", subject)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/exams/?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: decodeDetail(resp)}
	}

	var page SearchPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode search page: %w", err)
	}
	return page.Data, nil
}

// SubmitExam posts packaged answers for grading. The bearer token is the
// student's credential from the host UI.
func (c *Client) SubmitExam(ctx context.Context, examID int64, submission Submission, bearer string) (*Result, error) {
	body, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/exams/%d/submit", c.baseURL, examID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 300:
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: decodeDetail(resp)}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}

// decodeDetail pulls the upstream's human-readable detail field, if any.
func decodeDetail(resp *http.Response) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}
