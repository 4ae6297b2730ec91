package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontapvn/exam-session/internal/exam"
)

func newTestServer(t *testing.T, resolver ContentResolver) (*httptest.Server, *Manager) {
	t.Helper()
	mgr := newTestManager(resolver, &countingFeed{})
	handlers := NewHTTPHandlers(mgr, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", handlers.Create)
	mux.HandleFunc("GET /v1/sessions/{id}", handlers.Get)
	mux.HandleFunc("DELETE /v1/sessions/{id}", handlers.Delete)
	mux.HandleFunc("POST /v1/sessions/{id}/answers", handlers.Answer)
	mux.HandleFunc("POST /v1/sessions/{id}/navigate", handlers.Navigate)
	mux.HandleFunc("POST /v1/sessions/{id}/submit", handlers.Submit)
	mux.HandleFunc("POST /v1/sessions/{id}/token", handlers.RefreshToken)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mgr
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) Snapshot {
	t.Helper()
	defer resp.Body.Close()
	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestCreateSessionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{record: sampleRecord()})

	resp := postJSON(t, srv.URL+"/v1/sessions", `{"exam_id": 42, "bearer_token": "token"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	snap := decodeSnapshot(t, resp)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, int64(42), snap.ExamID)
	assert.NotEmpty(t, snap.ID)
}

func TestCreateSessionRequiresReference(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{record: sampleRecord()})

	resp := postJSON(t, srv.URL+"/v1/sessions", `{}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSessionExamNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{err: exam.ErrNotFound})

	resp := postJSON(t, srv.URL+"/v1/sessions", `{"exam_id": 999}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "exam_not_found", body["error"])
}

func TestCreateSessionEmptyExamUnprocessable(t *testing.T) {
	record := sampleRecord()
	record.Questions = nil
	srv, _ := newTestServer(t, &stubResolver{record: record})

	resp := postJSON(t, srv.URL+"/v1/sessions", `{"exam_id": 42}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreateSessionDuplicateQuestionIDsUnprocessable(t *testing.T) {
	record := sampleRecord()
	record.Questions[1].QuestionID = 101
	srv, _ := newTestServer(t, &stubResolver{record: record})

	resp := postJSON(t, srv.URL+"/v1/sessions", `{"exam_id": 42}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "invalid_exam", body["error"])
}

func TestAnswerAndNavigateEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{record: sampleRecord()})

	created := decodeSnapshot(t, postJSON(t, srv.URL+"/v1/sessions", `{"exam_id": 42}`))
	base := fmt.Sprintf("%s/v1/sessions/%s", srv.URL, created.ID)

	resp := postJSON(t, base+"/answers", `{"question_id": 101, "option_index": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	assert.Equal(t, 1, snap.AnsweredCount)

	resp = postJSON(t, base+"/answers", `{"question_id": 101, "option_index": 9}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, base+"/navigate", `{"action": "next"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeSnapshot(t, resp)
	assert.Equal(t, 2, snap.CurrentIndex)

	resp = postJSON(t, base+"/navigate", `{"action": "jump", "index": 99}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSubmitEndpointEmptyNeedsConfirmation(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{record: sampleRecord()})

	created := decodeSnapshot(t, postJSON(t, srv.URL+"/v1/sessions", `{"exam_id": 42, "bearer_token": "token"}`))
	base := fmt.Sprintf("%s/v1/sessions/%s", srv.URL, created.ID)

	resp := postJSON(t, base+"/submit", `{}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)

	resp = postJSON(t, base+"/submit", `{"confirm_empty": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var body struct {
		Session Snapshot     `json:"session"`
		Result  *exam.Result `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, StatusCompleted, body.Session.Status)
	require.NotNil(t, body.Result)
	assert.Equal(t, int64(7), body.Result.ExamResultID)
}

func TestSubmitEndpointAcceptsReplacementBearer(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{record: sampleRecord()})

	// No credential at creation time.
	created := decodeSnapshot(t, postJSON(t, srv.URL+"/v1/sessions", `{"exam_id": 42}`))
	base := fmt.Sprintf("%s/v1/sessions/%s", srv.URL, created.ID)

	resp := postJSON(t, base+"/submit", `{"confirm_empty": true}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, base+"/submit", `{"confirm_empty": true, "bearer_token": "fresh"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteSessionEndpoint(t *testing.T) {
	srv, mgr := newTestServer(t, &stubResolver{record: sampleRecord()})

	created := decodeSnapshot(t, postJSON(t, srv.URL+"/v1/sessions", `{"exam_id": 42}`))

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/sessions/%s", srv.URL, created.ID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp2, err := http.Get(fmt.Sprintf("%s/v1/sessions/%s", srv.URL, created.ID))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)

	_ = mgr
}

func TestUnknownSessionReturns404(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{record: sampleRecord()})

	resp, err := http.Get(srv.URL + "/v1/sessions/2f1e9a9e-61a3-4c9a-9a51-3f6f3f2f1111")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/v1/sessions/not-a-uuid")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}
