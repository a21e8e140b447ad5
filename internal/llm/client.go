package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Veraticus/spicewise/internal/cancel"
	"github.com/Veraticus/spicewise/internal/common"
	"github.com/Veraticus/spicewise/internal/service"
)

// Defaults for the hosted model endpoint.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second

	// MaxAttempts bounds the number of sends per request.
	MaxAttempts = 3

	apiKeyHeader = "x-goog-api-key"
)

// Recorder observes transport activity. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveAttempt(outcome string, duration time.Duration)
	ObserveRetry(outcome string, delay time.Duration)
	ObserveResult(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, time.Duration) {}
func (nopRecorder) ObserveRetry(string, time.Duration)   {}
func (nopRecorder) ObserveResult(string)                 {}

// Config holds configuration for the gateway client.
type Config struct {
	Recorder Recorder
	Logger   *slog.Logger
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// Client sends generateContent requests. A single Client is safe for concurrent use.
type Client struct {
	http     *resty.Client
	recorder Recorder
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	endpoint string
	model    string
}

// NewClient creates a client for the configured endpoint. An unusable base URL
// is reported as an InvalidConfiguration error.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, &Error{Kind: KindInvalidConfiguration, Reason: fmt.Sprintf("base URL %q: %v", base, err), Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{Kind: KindInvalidConfiguration, Reason: fmt.Sprintf("base URL %q must be an absolute http(s) URL", base)}
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("Content-Type", "application/json")

	return &Client{
		http:     httpClient,
		recorder: recorder,
		logger:   logger,
		sleep:    common.Sleep,
		endpoint: fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, url.PathEscape(model)),
		model:    model,
	}, nil
}

// Endpoint returns the full generateContent URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Send posts req and returns the raw 2xx response body.
//
// Server failures are retried after 1s and 2s, rate limits after 2s and 4s, and
// everything else fails immediately. ctx is checked before every attempt and
// after every backoff; an attempt already on the wire runs to completion.
func (c *Client) Send(ctx context.Context, req Request, apiKey string) ([]byte, error) {
	if strings.TrimSpace(apiKey) == "" {
		c.recorder.ObserveResult(string(KindMissingCredential))
		return nil, &Error{Kind: KindMissingCredential}
	}

	var body []byte
	err := common.WithRetry(ctx, func(ctx context.Context, attempt int) error {
		start := time.Now()
		raw, err := c.post(ctx, req, apiKey)
		c.recorder.ObserveAttempt(Outcome(err), time.Since(start))
		if err != nil {
			c.logger.Debug("model request failed",
				"attempt", attempt,
				"model", c.model,
				"error", err)
			return err
		}
		body = raw
		return nil
	}, service.RetryOptions{
		MaxAttempts: MaxAttempts,
		Backoff:     retryBackoff,
		Sleep:       c.sleep,
		OnRetry: func(_ int, delay time.Duration, err error) {
			c.recorder.ObserveRetry(Outcome(err), delay)
		},
	})

	var gwErr *Error
	if err != nil && !errors.As(err, &gwErr) && errors.Is(err, cancel.ErrCancelled) {
		err = &Error{Kind: KindCancelled, Err: err}
	}

	c.recorder.ObserveResult(Outcome(err))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Generate sends req and decodes the response envelope.
func (c *Client) Generate(ctx context.Context, req Request, apiKey string) (*Response, error) {
	raw, err := c.Send(ctx, req, apiKey)
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw)
}

// retryBackoff is the fixed gateway policy: 2^(n-1)s for server failures,
// 2^n s for rate limits, no retry for anything else.
func retryBackoff(attempt int, err error) (time.Duration, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	switch {
	case e.Kind == KindServerFailure:
		return time.Duration(1<<(attempt-1)) * time.Second, true
	case IsRateLimited(e):
		return time.Duration(1<<attempt) * time.Second, true
	default:
		return 0, false
	}
}

func (c *Client) post(ctx context.Context, req Request, apiKey string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(context.WithoutCancel(ctx)).
		SetHeader(apiKeyHeader, apiKey).
		SetBody(req).
		Post(c.endpoint)
	if err != nil {
		return nil, classifyTransport(err)
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return resp.Body(), nil
	}
	return nil, classifyStatus(status, resp.Body())
}

func classifyStatus(status int, body []byte) error {
	var payload apiError
	message := ""
	if json.Unmarshal(body, &payload) == nil {
		message = payload.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindInvalidCredential, Code: status, Message: message}
	case status == http.StatusBadRequest && reportsInvalidKey(body, message):
		return &Error{Kind: KindInvalidCredential, Code: status, Message: message}
	case status >= 500:
		return &Error{Kind: KindServerFailure, Code: status, Message: message}
	default:
		return &Error{Kind: KindClientFailure, Code: status, Message: message}
	}
}

func reportsInvalidKey(body []byte, message string) bool {
	if bytes.Contains(body, []byte("API_KEY_INVALID")) {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "api key not valid") || strings.Contains(lower, "invalid api key")
}

func classifyTransport(err error) error {
	return &Error{Kind: KindNetworkFailure, Reason: networkReason(err), Err: err}
}

func networkReason(err error) string {
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return NetworkTimeout
	case errors.As(err, &dnsErr), errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return NetworkHostUnreachable
	case errors.Is(err, syscall.ECONNREFUSED):
		return NetworkConnectionRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return NetworkConnectionLost
	default:
		return NetworkUnknown
	}
}
