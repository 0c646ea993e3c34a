package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/ternarybob/arbor"
)

// RetryConfig defines retry behaviour for provider calls. Chat replies are
// interactive, so the backoff window is far shorter than a batch job would use.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

const (
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 20 * time.Second
	DefaultBackoffMultiplier = 1.5
)

// NewRetryConfig returns a RetryConfig allowing maxRetries extra attempts
func NewRetryConfig(maxRetries int) *RetryConfig {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryConfig{
		MaxRetries:        maxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// IsRateLimitError matches 429 status codes and RESOURCE_EXHAUSTED / quota errors
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(errStr), "quota") ||
		strings.Contains(errStr, "rate_limit_error")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from an error message,
// e.g. "Error 429 ... Please retry in 4.38s., Status: RESOURCE_EXHAUSTED".
// Returns 0 if no delay is found.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff computes the wait before retry number attempt (0-based).
// An API-suggested delay replaces InitialBackoff as the base. The result is
// capped at MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}

// Do calls fn until it succeeds, the retries are spent, or ctx is done.
// Only rate-limit and transient server errors are retried; the wait honours a
// retry delay suggested by the API.
func (c *RetryConfig) Do(ctx context.Context, logger arbor.ILogger, provider string, fn func() error) error {
	var lastErr error
	attempt := 0

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= c.MaxRetries {
			return 0, true
		}
		wait := c.CalculateBackoff(attempt, ExtractRetryDelay(lastErr))
		attempt++

		logger.Warn().
			Str("provider", provider).
			Int("attempt", attempt).
			Str("backoff", wait.String()).
			Err(lastErr).
			Msg("Retrying provider call")
		return wait, false
	})

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isRetryable(err error) bool {
	if IsRateLimitError(err) {
		return true
	}
	errStr := err.Error()
	for _, marker := range []string{"500", "502", "503", "504", "529", "overloaded", "UNAVAILABLE", "connection reset"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
