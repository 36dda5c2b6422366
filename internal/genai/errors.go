package genai

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode is a machine-readable failure category, stable across releases.
// The HTTP layer maps these to status codes and Retry-After hints.
type ErrorCode string

const (
	// CodeNotConfigured means no API key (or an invalid one) is set.
	CodeNotConfigured ErrorCode = "ai_not_configured"
	// CodeDailyQuotaExceeded means the upstream daily quota is exhausted.
	// Not retryable until the quota window resets.
	CodeDailyQuotaExceeded ErrorCode = "daily_quota_exceeded"
	// CodeRateLimited means the upstream throttled us and retries ran out.
	CodeRateLimited ErrorCode = "rate_limited"
	// CodeUpstream is any other upstream failure after exhausting retries.
	CodeUpstream ErrorCode = "upstream_error"
)

const (
	quotaRetryAfter     = 24 * time.Hour
	rateLimitRetryAfter = 60 * time.Second
)

// APIError is the typed failure returned by the generation client.
type APIError struct {
	Code       ErrorCode
	Message    string
	RetryAfter time.Duration // 0 when no hint applies
	err        error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("genai: %s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.err }

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

func notConfiguredError() *APIError {
	return &APIError{
		Code:    CodeNotConfigured,
		Message: "no API key configured",
	}
}

func dailyQuotaError(msg string) *APIError {
	return &APIError{
		Code:       CodeDailyQuotaExceeded,
		Message:    msg,
		RetryAfter: quotaRetryAfter,
	}
}

func rateLimitedError(msg string) *APIError {
	return &APIError{
		Code:       CodeRateLimited,
		Message:    msg,
		RetryAfter: rateLimitRetryAfter,
	}
}

func upstreamError(msg string, err error) *APIError {
	return &APIError{
		Code:    CodeUpstream,
		Message: msg,
		err:     err,
	}
}

// errModelNotFound signals that a candidate model identifier does not exist
// upstream; the client moves on to the next candidate.
var errModelNotFound = errors.New("genai: model not found")
