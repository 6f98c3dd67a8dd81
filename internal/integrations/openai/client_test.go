package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"belief-interview/internal/domain"
)

// ---------------------------------------------------------------------------
// chatURL helper
// ---------------------------------------------------------------------------

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient and key resolution
// ---------------------------------------------------------------------------

// fakeTokens is a minimal TokenSource stub.
type fakeTokens struct {
	val      string
	err      error
	calls    int
	lastName string
}

func (f *fakeTokens) Token(_ context.Context, name string) (string, error) {
	f.calls++
	f.lastName = name
	return f.val, f.err
}

func TestNewClient_RequiresKeySource(t *testing.T) {
	_, err := NewClient()
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(WithAPIKey("sk"))
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, c.baseURL)
	require.Equal(t, defaultModel, c.model)
}

func TestResolveAPIKey_StaticKeyWins(t *testing.T) {
	ts := &fakeTokens{val: "sk-ssm"}
	c, err := NewClient(WithAPIKey("sk-static"), WithTokenSource(ts, "/study"))
	require.NoError(t, err)
	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-static", key)
	require.Zero(t, ts.calls)
}

func TestResolveAPIKey_TokenSourceCached(t *testing.T) {
	ts := &fakeTokens{val: "sk-ssm"}
	c, err := NewClient(WithTokenSource(ts, "/study/"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		key, err := c.resolveAPIKey(context.Background())
		require.NoError(t, err)
		require.Equal(t, "sk-ssm", key)
	}
	require.Equal(t, 1, ts.calls)
	require.Equal(t, "/study/open-ai-token", ts.lastName)
}

func TestGenerate_ConcurrentFirstCallsResolveKeyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-ssm" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	ts := &fakeTokens{val: "sk-ssm"}
	c, err := NewClient(WithTokenSource(ts, "/study"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Generate(context.Background(), "prompt", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, ts.calls)
}

func TestGenerate_TokenSourceErrorIsUnavailable(t *testing.T) {
	c, err := NewClient(WithTokenSource(&fakeTokens{err: errors.New("ssm down")}, "/study"))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "prompt", nil)
	require.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
	require.Contains(t, err.Error(), "ssm down")
}

// ---------------------------------------------------------------------------
// Client.Generate
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		WithAPIKey("sk-test"),
		WithModel("gpt-mock"),
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func TestGenerate_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req chatRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		require.Equal(t, "gpt-mock", req.Model)
		require.Len(t, req.Messages, 3)
		require.Equal(t, domain.ChatMessage{Role: "system", Content: "be curious"}, req.Messages[0])
		require.Equal(t, "user", req.Messages[2].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"created": 1670000000,
			"choices": [{
				"index": 0,
				"message": { "role": "assistant", "content": "  What changed first?  " }
			}]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	history := []domain.ChatMessage{
		{Role: "assistant", Content: "Hi there."},
		{Role: "user", Content: "The floods."},
	}
	resp, err := c.Generate(context.Background(), "be curious", history)
	require.NoError(t, err)
	require.Equal(t, "What changed first?", resp)
}

func TestGenerate_UpstreamErrorsAreUnavailable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "500", status: 500, body: `{"error":"internal server error"}`, want: "500"},
		{name: "429", status: 429, body: `{"error":"rate limited"}`, want: "429"},
		{name: "invalid json", status: 200, body: `not-a-json`, want: "decode response"},
		{name: "no choices", status: 200, body: `{"choices":[]}`, want: "no choices"},
		{name: "empty content", status: 200, body: `{"choices":[{"message":{"role":"assistant","content":" "}}]}`, want: "empty reply"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Generate(context.Background(), "p", nil)
			require.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
			require.NotErrorIs(t, err, domain.ErrGeneratorTimeout)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGenerate_StatusErrorIsInspectable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "p", nil)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 503, statusErr.HTTPStatusCode())
}

func TestGenerate_ContextDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(t, srv).Generate(ctx, "p", nil)
	require.ErrorIs(t, err, domain.ErrGeneratorTimeout)
}

func TestGenerate_HTTPClientTimeoutIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Generate(context.Background(), "p", nil)
	require.ErrorIs(t, err, domain.ErrGeneratorTimeout)
}

func TestGenerate_NetworkErrorIsUnavailable(t *testing.T) {
	c, err := NewClient(WithAPIKey("sk"), WithBaseURL("http://127.0.0.1:1"))
	require.NoError(t, err)
	c.httpClient = &http.Client{Timeout: time.Second}

	_, err = c.Generate(context.Background(), "p", nil)
	require.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
	require.Contains(t, err.Error(), "request failed")
}
