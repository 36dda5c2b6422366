package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxErrorBodySize = 8 * 1024

// doWithRetry wraps an HTTP call with retry logic.
// It attempts the request up to maxRetries+1 times (initial + retries).
//   - Retries on transient network errors, 408, 5xx, and transient 429s.
//   - A 429 that reports daily quota exhaustion is surfaced immediately as
//     CodeDailyQuotaExceeded; retrying it is pointless until the quota resets.
//   - Respects Retry-After headers from rate limiting responses.
//   - Uses exponential backoff with full jitter to prevent thundering herd.
//   - Respects the provided ctx (deadline / cancellation).
//
// On success the response is returned with its body unread. On failure the
// body has been consumed and a typed error is returned.
func (c *client) doWithRetry(
	ctx context.Context,
	maxRetries int,
	do func(ctx context.Context) (*http.Response, error),
) (*http.Response, error) {
	var lastErr error
	maxAttempts := maxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := do(ctx)
		duration := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}

		c.logger.Debug("upstream request",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.Error(err),
		)

		var retryAfter time.Duration

		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if !isTransientNetError(err) {
				return nil, upstreamError("network error", err)
			}
			lastErr = upstreamError("transient network error", err)

		case status >= 200 && status < 300:
			return resp, nil

		default:
			// Error responses carry a JSON body describing the failure.
			msg, apiStatus := readUpstreamError(resp)
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()

			typed, retryable := classifyStatus(status, msg, apiStatus)
			if !retryable {
				c.logger.Debug("non-retryable upstream status",
					zap.Int("status", status),
					zap.String("message", msg),
				)
				return nil, typed
			}
			lastErr = typed
		}

		if attempt == maxAttempts-1 {
			break
		}

		// Honor Retry-After when present, otherwise back off with jitter.
		wait := retryAfter
		if wait <= 0 {
			wait = computeBackoff(c.cfg.BaseBackoff, attempt)
		}
		c.logger.Debug("backing off before retry",
			zap.Duration("wait", wait),
			zap.Int("next_attempt", attempt+2),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	c.logger.Warn("upstream request exhausted all retries",
		zap.Int("attempts", maxAttempts),
		zap.Error(lastErr),
	)

	if lastErr == nil {
		lastErr = upstreamError("unknown upstream error", nil)
	}
	return nil, lastErr
}

// classifyStatus maps an upstream error status to the typed taxonomy and
// reports whether another attempt is worthwhile.
func classifyStatus(status int, msg, apiStatus string) (error, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		if isDailyQuota(msg, apiStatus) {
			return dailyQuotaError(msg), false
		}
		return rateLimitedError(msg), true
	case status == http.StatusNotFound:
		return errModelNotFound, false
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return notConfiguredError(), false
	case status == http.StatusRequestTimeout || (status >= 500 && status <= 599):
		return upstreamError(fmt.Sprintf("upstream status %d: %s", status, msg), nil), true
	default:
		return upstreamError(fmt.Sprintf("upstream status %d: %s", status, msg), nil), false
	}
}

// isDailyQuota distinguishes daily quota exhaustion from a transient
// per-minute throttle. Upstream reports both as RESOURCE_EXHAUSTED; only the
// message tells them apart.
func isDailyQuota(msg, apiStatus string) bool {
	if apiStatus != "" && apiStatus != "RESOURCE_EXHAUSTED" {
		return false
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "per day") ||
		strings.Contains(lower, "daily") ||
		strings.Contains(lower, "quota exceeded for quota metric")
}

// readUpstreamError extracts the structured error message from an error
// response body, falling back to the raw (truncated) body.
func readUpstreamError(resp *http.Response) (msg, apiStatus string) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	var perr providerErrorResponse
	if err := json.Unmarshal(body, &perr); err == nil && perr.Error.Message != "" {
		return perr.Error.Message, perr.Error.Status
	}
	return truncate(strings.TrimSpace(string(body)), 200), ""
}

// isTransientNetError determines whether a network error is worth retrying.
func isTransientNetError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" || opErr.Op == "read" || opErr.Op == "write" {
			return true
		}
	}

	// Last resort: match common transient patterns in wrapped errors.
	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"temporary failure",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// parseRetryAfter extracts the retry delay from a Retry-After header value.
// Returns 0 if the value is missing or invalid.
//
// Retry-After can be:
// - Number of seconds: "120"
// - HTTP date: "Wed, 21 Oct 2015 07:28:00 GMT"
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	const maxRetryAfter = 5 * time.Minute

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			d := time.Duration(seconds) * time.Second
			if d > maxRetryAfter {
				d = maxRetryAfter
			}
			return d
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			if d > maxRetryAfter {
				d = maxRetryAfter
			}
			return d
		}
	}

	return 0
}

// computeBackoff calculates exponential backoff with full jitter:
// a random value between 0 and base * 2^attempt, capped at 60s.
func computeBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	// 2^10 is more than enough; cap the exponent to avoid overflow.
	const maxExponent = 10
	if attempt > maxExponent {
		attempt = maxExponent
	}

	maxBackoff := time.Duration(float64(base) * math.Pow(2, float64(attempt)))

	const maxAllowed = 60 * time.Second
	if maxBackoff > maxAllowed {
		maxBackoff = maxAllowed
	}

	return time.Duration(rand.Float64() * float64(maxBackoff))
}

// truncate limits string length for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
