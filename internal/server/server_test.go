package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/pipeline"
)

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()

	ready := errors.New("store directory missing")
	srv := New(nil, func(context.Context) error { return ready }, zap.NewNop())

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/healthz", http.StatusOK, `"ok"`},
		{"/readyz", http.StatusServiceUnavailable, "store directory missing"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := New(nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestStatusFollowsRun(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	srv := New(tracker, nil, zap.NewNop())
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, evt := range []pipeline.Event{
		{RunID: "run-1", Mode: "pages", Stage: pipeline.StageRunStart, TS: ts},
		{RunID: "run-1", Stage: pipeline.StageFetched, TS: ts},
		{RunID: "run-1", Stage: pipeline.StageFallback, TS: ts},
		{RunID: "run-1", Stage: pipeline.StageSaved, TS: ts},
		{RunID: "run-1", Stage: pipeline.StageSkipped, TS: ts, Err: errors.New("incomplete")},
		{RunID: "run-1", Stage: pipeline.StageRunDone, TS: ts.Add(time.Second)},
	} {
		tracker.Observe(evt)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, RunStatus{
		RunID:     "run-1",
		Mode:      "pages",
		State:     StateDone,
		StartedAt: ts,
		UpdatedAt: ts.Add(time.Second),
		Fetched:   1,
		Saved:     1,
		Skipped:   1,
		Fallbacks: 1,
		LastError: "incomplete",
	}, got)

	tracker.Observe(pipeline.Event{RunID: "run-2", Mode: "listing", Stage: pipeline.StageRunStart, TS: ts})
	assert.Equal(t, RunStatus{RunID: "run-2", Mode: "listing", State: StateRunning, StartedAt: ts, UpdatedAt: ts}, tracker.Status())
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	srv := New(nil, nil, zap.NewNop())
	h := srv.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(nil, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
