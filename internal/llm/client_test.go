package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spicewise/internal/cancel"
	"github.com/Veraticus/spicewise/internal/common"
)

const testKey = "test-key"

const okBody = `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}],"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":3}}`

// fakeSleeper records backoff delays and returns immediately.
type fakeSleeper struct {
	onSleep func()
	delays  []time.Duration
	mu      sync.Mutex
}

func (s *fakeSleeper) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	if s.onSleep != nil {
		s.onSleep()
	}
	return nil
}

func (s *fakeSleeper) total() time.Duration {
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

type fakeRecorder struct {
	results  []string
	attempts []string
	retries  []string
	mu       sync.Mutex
}

func (r *fakeRecorder) ObserveAttempt(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, outcome)
}

func (r *fakeRecorder) ObserveRetry(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries = append(r.retries, outcome)
}

func (r *fakeRecorder) ObserveResult(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, outcome)
}

// scriptedServer answers each call with the next status/body pair; the last
// entry repeats once the script runs out.
func scriptedServer(t *testing.T, calls *int32, script ...[2]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(calls, 1))
		step := script[len(script)-1]
		if n <= len(script) {
			step = script[n-1]
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(step[0].(int))
		_, _ = w.Write([]byte(step[1].(string)))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string) (*Client, *fakeSleeper, *fakeRecorder) {
	t.Helper()
	recorder := &fakeRecorder{}
	client, err := NewClient(Config{BaseURL: baseURL, Recorder: recorder, Timeout: 5 * time.Second})
	require.NoError(t, err)
	sleeper := &fakeSleeper{}
	client.sleep = sleeper.sleep
	return client, sleeper, recorder
}

func TestNewClient_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{
			name:     "defaults",
			cfg:      Config{},
			expected: "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
		},
		{
			name:     "override strips trailing slash",
			cfg:      Config{BaseURL: "http://localhost:8080/", Model: "gemini-pro"},
			expected: "http://localhost:8080/v1beta/models/gemini-pro:generateContent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, client.Endpoint())
		})
	}
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"ftp://example.com", "not a url", "http://"} {
		t.Run(base, func(t *testing.T) {
			_, err := NewClient(Config{BaseURL: base})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestSend_Success(t *testing.T) {
	var gotKey, gotPath string
	var gotReq Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	client, sleeper, recorder := newTestClient(t, server.URL)

	raw, err := client.Send(context.Background(), NewRequest(FormatJSON, "hi"), testKey)
	require.NoError(t, err)

	text, usage, err := Text(raw)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, Usage{PromptTokenCount: 7, CandidatesTokenCount: 3}, usage)

	assert.Equal(t, testKey, gotKey)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, FormatJSON, gotReq.Format())
	assert.Equal(t, "hi", gotReq.Prompt())
	assert.Empty(t, sleeper.delays)
	assert.Equal(t, []string{"success"}, recorder.results)
}

func TestSend_MissingCredentialMakesNoCall(t *testing.T) {
	var calls int32
	server := scriptedServer(t, &calls, [2]any{http.StatusOK, okBody})
	client, _, _ := newTestClient(t, server.URL)

	_, err := client.Send(context.Background(), NewRequest(FormatText, "hi"), "  ")

	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSend_ServerFailureThenSuccess(t *testing.T) {
	var calls int32
	server := scriptedServer(t, &calls,
		[2]any{http.StatusServiceUnavailable, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`},
		[2]any{http.StatusInternalServerError, `{}`},
		[2]any{http.StatusOK, okBody},
	)
	client, sleeper, recorder := newTestClient(t, server.URL)

	raw, err := client.Send(context.Background(), NewRequest(FormatText, "hi"), testKey)

	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
	assert.Equal(t, 3*time.Second, sleeper.total())
	assert.Equal(t, []string{"server_failure", "server_failure", "success"}, recorder.attempts)
	assert.Len(t, recorder.retries, 2)
}

func TestSend_ServerFailureExhaustsRetries(t *testing.T) {
	var calls int32
	server := scriptedServer(t, &calls, [2]any{http.StatusServiceUnavailable, `{}`})
	client, sleeper, _ := newTestClient(t, server.URL)

	_, err := client.Send(context.Background(), NewRequest(FormatText, "hi"), testKey)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerFailure)
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.Code)
	assert.Equal(t, int32(MaxAttempts), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
}

func TestSend_RateLimitExhaustsRetries(t *testing.T) {
	var calls int32
	server := scriptedServer(t, &calls,
		[2]any{http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`})
	client, sleeper, recorder := newTestClient(t, server.URL)

	_, err := client.Send(context.Background(), NewRequest(FormatText, "hi"), testKey)

	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.ErrorIs(t, err, common.ErrRateLimit)
	assert.ErrorIs(t, err, ErrClientFailure)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)
	assert.Equal(t, []string{"rate_limited"}, recorder.results)
}

func TestSend_NonRetryableStatuses(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		message string
		status  int
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{}`,
			wantErr: ErrInvalidCredential,
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			body:    `{}`,
			wantErr: ErrInvalidCredential,
		},
		{
			name:    "bad request reporting invalid key",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantErr: ErrInvalidCredential,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":400,"message":"Invalid JSON payload","status":"INVALID_ARGUMENT"}}`,
			wantErr: ErrClientFailure,
			message: "Invalid JSON payload",
		},
		{
			name:    "not found without body",
			status:  http.StatusNotFound,
			body:    `not json`,
			wantErr: ErrClientFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := scriptedServer(t, &calls, [2]any{tt.status, tt.body})
			client, sleeper, _ := newTestClient(t, server.URL)

			_, err := client.Send(context.Background(), NewRequest(FormatText, "hi"), testKey)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			var gwErr *Error
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.status, gwErr.Code)
			assert.Equal(t, tt.message, gwErr.Message)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
			assert.Empty(t, sleeper.delays)
		})
	}
}

func TestSend_CancelledBeforeFirstAttempt(t *testing.T) {
	var calls int32
	server := scriptedServer(t, &calls, [2]any{http.StatusOK, okBody})
	client, _, recorder := newTestClient(t, server.URL)

	tok := cancel.New(context.Background())
	tok.Cancel()

	_, err := client.Send(tok.Context(), NewRequest(FormatText, "hi"), testKey)

	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, cancel.ErrCancelled)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"cancelled"}, recorder.results)
}

func TestSend_CancelledDuringBackoff(t *testing.T) {
	var calls int32
	server := scriptedServer(t, &calls, [2]any{http.StatusServiceUnavailable, `{}`})
	client, sleeper, _ := newTestClient(t, server.URL)

	tok := cancel.New(context.Background())
	sleeper.onSleep = tok.Cancel

	_, err := client.Send(tok.Context(), NewRequest(FormatText, "hi"), testKey)

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second}, sleeper.delays)
}

func TestSend_InFlightRequestIsNotPreempted(t *testing.T) {
	tok := cancel.New(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		tok.Cancel()
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()
	client, _, _ := newTestClient(t, server.URL)

	raw, err := client.Send(tok.Context(), NewRequest(FormatText, "hi"), testKey)

	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestSend_NetworkFailureIsNotRetried(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, sleeper, _ := newTestClient(t, baseURL)

	_, err := client.Send(context.Background(), NewRequest(FormatText, "hi"), testKey)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkFailure)
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, NetworkConnectionRefused, gwErr.Reason)
	assert.Empty(t, sleeper.delays)
}

func TestSend_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Send(context.Background(), NewRequest(FormatText, "hi"), testKey)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, KindNetworkFailure, gwErr.Kind)
	assert.Equal(t, NetworkTimeout, gwErr.Reason)
}

func TestGenerate(t *testing.T) {
	var calls int32
	server := scriptedServer(t, &calls, [2]any{http.StatusOK, okBody})
	client, _, _ := newTestClient(t, server.URL)

	resp, err := client.Generate(context.Background(), NewRequest(FormatText, "hi"), testKey)

	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text())
	assert.Equal(t, 3, resp.Usage().CandidatesTokenCount)
}

func TestRetryBackoff(t *testing.T) {
	server := &Error{Kind: KindServerFailure, Code: 500}
	limited := &Error{Kind: KindClientFailure, Code: 429}

	for attempt, want := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second} {
		delay, ok := retryBackoff(attempt, server)
		assert.True(t, ok)
		assert.Equal(t, want, delay)
	}
	for attempt, want := range map[int]time.Duration{1: 2 * time.Second, 2: 4 * time.Second, 3: 8 * time.Second} {
		delay, ok := retryBackoff(attempt, limited)
		assert.True(t, ok)
		assert.Equal(t, want, delay)
	}

	_, ok := retryBackoff(1, &Error{Kind: KindNetworkFailure, Reason: NetworkTimeout})
	assert.False(t, ok)
	_, ok = retryBackoff(1, &Error{Kind: KindClientFailure, Code: 400})
	assert.False(t, ok)
}
