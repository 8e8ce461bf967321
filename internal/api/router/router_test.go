package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/job-tracker/internal/api/auth"
	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/handler"
	"github.com/cuongbtq/job-tracker/internal/api/session"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
	"github.com/cuongbtq/job-tracker/internal/api/storage/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// downProvider stands in for an unreachable backend
type downProvider struct {
	storage.Provider
}

func (downProvider) Name() storage.Name { return storage.NameRelational }

func (downProvider) Ping(context.Context) error {
	return errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func (downProvider) FetchStats(context.Context) (*domain.Stats, error) {
	return nil, errors.New("pq: password authentication failed for user \"tracker\"")
}

func (downProvider) FetchJobs(context.Context, domain.JobFilter) (*domain.JobList, error) {
	panic("driver: bad connection state")
}

type testServer struct {
	engine *gin.Engine
	demo   *mock.Provider
	tokens *auth.JWTVerifier
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	demo := mock.New(logger)
	registry := storage.NewRegistry()
	registry.Register(storage.NameMock, storage.Shared(demo))
	registry.Register(storage.NameRelational, storage.Shared(downProvider{}))
	registry.Register(storage.NameHosted, storage.Shared(mock.New(logger)))

	policy := session.Policy{Mode: session.ModeDevelopment, Default: storage.NameMock}
	require.NoError(t, policy.Validate())
	sessions := session.NewManager(policy, session.NewMemoryStore(), registry, logger)

	tokens := auth.NewJWTVerifier("router-test-secret")
	opts.Identity = tokens

	deps := &handler.Dependencies{
		Logger:   logger,
		Sessions: sessions,
		Stats:    handler.NewStatsCache(time.Minute),
		Location: time.UTC,
	}
	return &testServer{engine: SetupRouter(deps, opts), demo: demo, tokens: tokens}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.tokens.Sign(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, w)["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{ServiceName: "tracker-test"})

	w := s.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"tracker-test"}`, w.Body.String())
}

func TestHealth_ReportsBroker(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		want      string
	}{
		{"connected", true, "connected"},
		{"disconnected", false, "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Options{BrokerConnected: func() bool { return tt.connected }})

			w := s.do(http.MethodGet, "/health", "", nil)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decode[map[string]string](t, w)["broker"])
		})
	}
}

func TestCreateJob_RecordsAppliedEvent(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(http.MethodPost, "/api/v1/jobs",
		`{"company":" Acme ","position":"Backend Engineer","applicationDate":"2024-03-01"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	job := decode[map[string]any](t, w)
	assert.Equal(t, "Acme", job["company"])
	assert.Equal(t, "applied", job["status"])
	assert.Equal(t, "2024-03-01", job["applicationDate"])
	assert.Equal(t, false, job["isFavorite"])

	w = s.do(http.MethodGet, "/api/v1/job-events?jobId=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[[]map[string]any](t, w)
	require.Len(t, events, 1)
	assert.Equal(t, "applied", events[0]["eventType"])
	assert.Equal(t, "2024-03-01", events[0]["eventDate"])
}

func TestJobRequestErrors(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"non-numeric id", http.MethodGet, "/api/v1/jobs/abc", "", http.StatusBadRequest, "id must be a positive integer"},
		{"zero id", http.MethodDelete, "/api/v1/jobs/0", "", http.StatusBadRequest, "id must be a positive integer"},
		{"missing job", http.MethodGet, "/api/v1/jobs/999", "", http.StatusNotFound, "job not found"},
		{"update missing job", http.MethodPut, "/api/v1/jobs/999", `{"notes":"x"}`, http.StatusNotFound, "job not found"},
		{"missing event", http.MethodDelete, "/api/v1/job-events/42", "", http.StatusNotFound, "job event not found"},
		{"missing company", http.MethodPost, "/api/v1/jobs", `{"position":"Dev"}`, http.StatusBadRequest, "invalid input: company is required"},
		{"bad date", http.MethodPost, "/api/v1/jobs", `{"company":"A","position":"B","applicationDate":"01/03/2024"}`, http.StatusBadRequest, ""},
		{"unknown status filter", http.MethodGet, "/api/v1/jobs?status=hired", "", http.StatusBadRequest, `invalid input: unknown job status "hired"`},
		{"bad jobId filter", http.MethodGet, "/api/v1/job-events?jobId=x", "", http.StatusBadRequest, "jobId must be a positive integer"},
		{"event for missing job", http.MethodPost, "/api/v1/job-events", `{"jobId":7,"eventType":"rejected"}`, http.StatusNotFound, "job not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorOf(t, w))
			}
		})
	}
}

func TestListJobs_StatusAllAndPaging(t *testing.T) {
	s := newTestServer(t, Options{})
	for _, body := range []string{
		`{"company":"Acme","position":"Backend","applicationDate":"2024-03-01"}`,
		`{"company":"Globex","position":"Frontend","applicationDate":"2024-03-02","status":"offer"}`,
	} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/jobs", body, nil).Code)
	}

	type listResponse struct {
		Jobs       []map[string]any `json:"jobs"`
		Pagination map[string]any   `json:"pagination"`
	}

	tests := []struct {
		name      string
		query     string
		wantJobs  int
		wantTotal float64
	}{
		{"status all", "?status=all", 2, 2},
		{"status all upper case", "?status=ALL", 2, 2},
		{"single status", "?status=offer", 1, 1},
		{"page far beyond the data", "?page=9223372036854775807&limit=10", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/v1/jobs"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			got := decode[listResponse](t, w)
			assert.Len(t, got.Jobs, tt.wantJobs)
			assert.Equal(t, tt.wantTotal, got.Pagination["total"])
		})
	}
}

func TestPanicAnswersJSONError(t *testing.T) {
	s := newTestServer(t, Options{})
	client := map[string]string{handler.ClientHeader: "tab-panic"}
	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/v1/session/provider", `{"provider":"relational"}`, client).Code)

	w := s.do(http.MethodGet, "/api/v1/jobs", "", client)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", errorOf(t, w))
}

func TestToggleFavorite_SetsDesiredValue(t *testing.T) {
	s := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/jobs", `{"company":"A","position":"B"}`, nil).Code)

	for _, want := range []bool{true, true, false} {
		w := s.do(http.MethodPut, "/api/v1/jobs/1/favorite", `{"isFavorite":`+boolString(want)+`}`, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, want, decode[map[string]any](t, w)["isFavorite"])
	}

	w := s.do(http.MethodPut, "/api/v1/jobs/1/favorite", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "isFavorite is required", errorOf(t, w))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestJobEvents_DriveStatus(t *testing.T) {
	s := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/jobs", `{"company":"A","position":"B"}`, nil).Code)

	w := s.do(http.MethodPost, "/api/v1/job-events",
		`{"jobId":1,"eventType":"interview_scheduled","eventDate":"2024-03-05T10:30:00","interviewRound":1,"interviewType":"video"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	evt := decode[map[string]any](t, w)
	assert.Equal(t, "Interview Scheduled", evt["title"])
	assert.Equal(t, "2024-03-05T10:30:00", evt["eventDate"])

	w = s.do(http.MethodGet, "/api/v1/jobs/1", "", nil)
	assert.Equal(t, "interview", decode[map[string]any](t, w)["status"])

	w = s.do(http.MethodPost, "/api/v1/job-events",
		`{"jobId":1,"eventType":"interview_result","interviewResult":"failed"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/jobs/1", "", nil)
	assert.Equal(t, "rejected", decode[map[string]any](t, w)["status"])

	// a manual status edit is undone by reconciliation
	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/v1/jobs/1", `{"status":"offer"}`, nil).Code)
	w = s.do(http.MethodPost, "/api/v1/jobs/1/recompute-status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobId":1,"status":"rejected"}`, w.Body.String())
}

func TestBulkDeleteJobEvents(t *testing.T) {
	s := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/jobs", `{"company":"A","position":"B"}`, nil).Code)
	for _, typ := range []string{"interview_scheduled", "interview", "interview_scheduled"} {
		w := s.do(http.MethodPost, "/api/v1/job-events", `{"jobId":1,"eventType":"`+typ+`"}`, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(http.MethodDelete, "/api/v1/job-events/bulk-delete",
		`{"jobId":1,"eventTypes":["interview_scheduled"]}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"deleted":2}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/job-events?jobId=1", "", nil)
	events := decode[[]map[string]any](t, w)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.NotEqual(t, "interview_scheduled", e["eventType"])
	}

	tests := []struct {
		name string
		body string
	}{
		{"empty list", `{"jobId":1,"eventTypes":[]}`},
		{"missing job", `{"eventTypes":["interview"]}`},
		{"unknown type", `{"jobId":1,"eventTypes":["coffee_chat"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodDelete, "/api/v1/job-events/bulk-delete", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestStats_CachedUntilMutation(t *testing.T) {
	s := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/jobs", `{"company":"A","position":"B"}`, nil).Code)

	total := func() float64 {
		w := s.do(http.MethodGet, "/api/v1/stats", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		return decode[map[string]any](t, w)["totalApplications"].(float64)
	}
	assert.Equal(t, float64(1), total())

	// writes that bypass the API are not seen until the cache entry is dropped
	_, err := s.demo.CreateJob(context.Background(), domain.NewJob{Company: "C", Position: "D"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), total())

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/jobs", `{"company":"E","position":"F"}`, nil).Code)
	assert.Equal(t, float64(3), total())
}

func TestProbeAndFailures(t *testing.T) {
	s := newTestServer(t, Options{})
	client := map[string]string{handler.ClientHeader: "tab-1"}

	w := s.do(http.MethodGet, "/api/v1/probe", "", client)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"provider":"mock","status":"ok"}`, w.Body.String())

	w = s.do(http.MethodPut, "/api/v1/session/provider", `{"provider":"relational"}`, client)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/probe", "", client)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"storage provider unavailable","provider":"relational","fallback":"mock"}`, w.Body.String())

	// backend details stay in the logs
	w = s.do(http.MethodGet, "/api/v1/stats", "", client)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", errorOf(t, w))

	// other clients keep their own selection
	w = s.do(http.MethodGet, "/api/v1/probe", "", map[string]string{handler.ClientHeader: "tab-2"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t, Options{})
	anon := map[string]string{handler.ClientHeader: "browser"}
	signed := map[string]string{
		handler.ClientHeader: "browser",
		"Authorization":      "Bearer " + s.token(t, "user-1"),
	}

	w := s.do(http.MethodGet, "/api/v1/session", "", anon)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"provider":"mock","authenticated":false,"selectable":["mock","relational","hosted"]}`, w.Body.String())

	w = s.do(http.MethodPut, "/api/v1/session/provider", `{"provider":"hosted"}`, anon)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/session/sign-in", "", anon)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/session/sign-in", "", signed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[map[string]any](t, w)
	assert.Equal(t, "hosted", view["provider"])
	assert.Equal(t, true, view["authenticated"])

	w = s.do(http.MethodPut, "/api/v1/session/provider", `{"provider":"relational"}`, signed)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPut, "/api/v1/session/provider", `{"provider":"cloud"}`, signed)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// hosted data is isolated from the demo provider
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/jobs", `{"company":"A","position":"B"}`, signed).Code)
	w = s.do(http.MethodGet, "/api/v1/jobs", "", anon)
	assert.Empty(t, decode[map[string]any](t, w)["jobs"])

	w = s.do(http.MethodPost, "/api/v1/session/sign-out", "", anon)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"provider":"mock","preference":"mock","authenticated":false,"selectable":["mock","relational","hosted"]}`, w.Body.String())
}

func TestInvalidToken(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(http.MethodGet, "/api/v1/jobs", "", map[string]string{"Authorization": "Bearer not-a-jwt"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.ErrInvalidToken.Error(), errorOf(t, w))
}

func TestParseJob_NotConfigured(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(http.MethodPost, "/api/v1/jobs/parse", `{"text":"Senior Go Engineer at Acme"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "job parser is not configured", errorOf(t, w))

	// the rest of the API is unaffected
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/jobs", "", nil).Code)

	w = s.do(http.MethodPost, "/api/v1/jobs/parse", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseJob_RateLimited(t *testing.T) {
	s := newTestServer(t, Options{ParseRateLimit: 1, ParseBurst: 1})

	first := s.do(http.MethodPost, "/api/v1/jobs/parse", `{"text":"posting"}`, nil)
	second := s.do(http.MethodPost, "/api/v1/jobs/parse", `{"text":"posting"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// other endpoints are not limited
	for range 3 {
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/stats", "", nil).Code)
	}
}

func TestCORS_AllowsClientHeader(t *testing.T) {
	s := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:5173"}})

	w := s.do(http.MethodOptions, "/api/v1/jobs", "", map[string]string{
		"Origin":                         "http://localhost:5173",
		"Access-Control-Request-Method":  "GET",
		"Access-Control-Request-Headers": "authorization,x-client-id",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
