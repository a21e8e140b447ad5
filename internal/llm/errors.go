package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/spicewise/internal/cancel"
	"github.com/Veraticus/spicewise/internal/common"
)

// Kind identifies a class of gateway failure.
type Kind string

// Failure kinds.
const (
	KindMissingCredential    Kind = "missing_credential"
	KindInvalidCredential    Kind = "invalid_credential"
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindNetworkFailure       Kind = "network_failure"
	KindServerFailure        Kind = "server_failure"
	KindClientFailure        Kind = "client_failure"
	KindDecodingFailure      Kind = "decoding_failure"
	KindCancelled            Kind = "cancelled"
)

// Network failure reasons.
const (
	NetworkTimeout           = "timeout"
	NetworkHostUnreachable   = "host_unreachable"
	NetworkConnectionRefused = "connection_refused"
	NetworkConnectionLost    = "connection_lost"
	NetworkUnknown           = "unknown"
)

// Error is a classified gateway failure.
type Error struct {
	Err     error
	Kind    Kind
	Reason  string
	Message string
	Code    int
}

// Sentinels for errors.Is; matching is by kind only.
var (
	ErrMissingCredential    = &Error{Kind: KindMissingCredential}
	ErrInvalidCredential    = &Error{Kind: KindInvalidCredential}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrNetworkFailure       = &Error{Kind: KindNetworkFailure}
	ErrServerFailure        = &Error{Kind: KindServerFailure}
	ErrClientFailure        = &Error{Kind: KindClientFailure}
	ErrDecodingFailure      = &Error{Kind: KindDecodingFailure}
	ErrCancelled            = &Error{Kind: KindCancelled}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingCredential:
		return "API key is not configured"
	case KindInvalidCredential:
		return "API key was rejected"
	case KindInvalidConfiguration:
		return "invalid gateway configuration: " + e.Reason
	case KindNetworkFailure:
		return "network failure: " + e.Reason
	case KindServerFailure:
		return fmt.Sprintf("server error (status %d)", e.Code)
	case KindClientFailure:
		if e.Code == http.StatusTooManyRequests {
			return "rate limit exceeded (status 429)"
		}
		if e.Message != "" {
			return fmt.Sprintf("request rejected (status %d): %s", e.Code, e.Message)
		}
		return fmt.Sprintf("request rejected (status %d)", e.Code)
	case KindDecodingFailure:
		if e.Reason != "" {
			return "could not decode model response: " + e.Reason
		}
		return "could not decode model response"
	case KindCancelled:
		return "request cancelled"
	default:
		return "unknown gateway error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels of the same kind, common.ErrRateLimit for 429 responses
// and cancel.ErrCancelled for cancellations.
func (e *Error) Is(target error) bool {
	switch target {
	case common.ErrRateLimit:
		return e.Kind == KindClientFailure && e.Code == http.StatusTooManyRequests
	case cancel.ErrCancelled:
		return e.Kind == KindCancelled
	case common.ErrMissingConfig:
		return e.Kind == KindMissingCredential
	}
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsRateLimited reports whether err is a 429 client failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, common.ErrRateLimit)
}

// NewDecodingError reports a response that could not be turned into the expected shape.
func NewDecodingError(reason string, cause error) error {
	return &Error{Kind: KindDecodingFailure, Reason: reason, Err: cause}
}

// Outcome labels err for metrics: "success" for nil, the kind otherwise.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	var e *Error
	if errors.As(err, &e) {
		if IsRateLimited(e) {
			return "rate_limited"
		}
		return string(e.Kind)
	}
	if errors.Is(err, cancel.ErrCancelled) {
		return string(KindCancelled)
	}
	return "unknown"
}
