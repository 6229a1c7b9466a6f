package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/recipe-harvester/internal/fetcher"
)

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	var (
		mu                  sync.Mutex
		gotAgent, gotHeader string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAgent = r.UserAgent()
		gotHeader = r.Header.Get("Accept-Language")
		mu.Unlock()
		_, _ = w.Write([]byte("<html><h1>Salmon Pasta Salad</h1></html>"))
	}))
	defer srv.Close()

	f := New(Config{Headers: map[string]string{"Accept-Language": "en-GB"}, Timeout: 5 * time.Second})
	body, err := f.Fetch(context.Background(), srv.URL+"/recipes/salmon")
	require.NoError(t, err)
	assert.Contains(t, string(body), "Salmon Pasta Salad")
	mu.Lock()
	assert.Equal(t, DefaultUserAgent, gotAgent)
	assert.Equal(t, "en-GB", gotHeader)
	mu.Unlock()

	// The same URL can be fetched again on retry.
	_, err = f.Fetch(context.Background(), srv.URL+"/recipes/salmon")
	require.NoError(t, err)
}

func TestFetchReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Config{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	var se *fetcher.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.True(t, fetcher.Retryable(err))
}

func TestFetchCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "agent", RespectRobots: true, Timeout: time.Second})
	c := f.buildCollector()
	assert.Equal(t, "agent", c.UserAgent)
	assert.False(t, c.IgnoreRobotsTxt)

	c = New(Config{}).buildCollector()
	assert.True(t, c.IgnoreRobotsTxt)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{Headers: map[string]string{"X-Trace": "yes"}})
	var body []byte
	var fetchErr error
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, "https://example.com", &body, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	req := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(req)
	assert.Equal(t, "yes", req.Headers.Get("X-Trace"))

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: []byte("body")})
	assert.Equal(t, "body", string(body))

	hooks.onError(&colly.Response{StatusCode: http.StatusNotFound}, errors.New("Not Found"))
	var se *fetcher.StatusError
	require.ErrorAs(t, fetchErr, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)

	hooks.onError(nil, errors.New("dial tcp: refused"))
	assert.EqualError(t, fetchErr, "colly fetch https://example.com: dial tcp: refused")
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
