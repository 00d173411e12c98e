package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults of the retry mechanism, see DefaultRetry.
const (
	// RetriesCount is the default maximum number of retries of one request.
	RetriesCount = 5
	// RequestTimeout limits one request including all retries.
	RequestTimeout = 30 * time.Second
	// RetryWaitTimeStart is the delay before the first retry, it doubles with each attempt.
	RetryWaitTimeStart = 100 * time.Millisecond
	// RetryWaitTimeMax caps the delay between retries.
	RetryWaitTimeMax = 3 * time.Second
)

const retryAttemptContextKey = contextKey("retry-attempt")

type contextKey string

// RetryConfig configures Client retries.
type RetryConfig struct {
	Condition           RetryCondition
	Count               int
	TotalRequestTimeout time.Duration
	WaitTimeStart       time.Duration
	WaitTimeMax         time.Duration
}

// RetryCondition decides from the response and the error whether the request should be retried.
type RetryCondition func(*http.Response, error) bool

// ContextRetryAttempt returns the number of the retry attempt stored in the context.
// Zero means the first attempt.
func ContextRetryAttempt(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(retryAttemptContextKey).(int)
	return v, ok
}

// DefaultRetry retries temporary failures with an exponential backoff.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		TotalRequestTimeout: RequestTimeout,
		Count:               RetriesCount,
		WaitTimeStart:       RetryWaitTimeStart,
		WaitTimeMax:         RetryWaitTimeMax,
		Condition:           DefaultRetryCondition(),
	}
}

// NoRetry disables retries, each request is sent exactly once.
func NoRetry() RetryConfig {
	return RetryConfig{TotalRequestTimeout: RequestTimeout}
}

// TestingRetry speeds up the retry delays for use in tests.
func TestingRetry() RetryConfig {
	v := DefaultRetry()
	v.WaitTimeStart = 1 * time.Millisecond
	v.WaitTimeMax = 1 * time.Millisecond
	return v
}

// DefaultRetryCondition retries network errors and temporary HTTP statuses.
func DefaultRetryCondition() RetryCondition {
	return func(response *http.Response, err error) bool {
		// A network error, no response arrived.
		// An unknown hostname will not resolve on a later attempt, everything else may.
		if response == nil || response.StatusCode == 0 {
			if strings.Contains(err.Error(), "No address associated with hostname") {
				return false
			}
			if strings.Contains(err.Error(), "no such host") {
				return false
			}
			return true
		}
		return retriableStatusCode(response.StatusCode)
	}
}

func retriableStatusCode(code int) bool {
	switch code {
	case
		http.StatusRequestTimeout,
		http.StatusConflict,
		http.StatusLocked,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// NewBackoff creates the exponential backoff described by the config.
func (c RetryConfig) NewBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.WaitTimeStart
	b.MaxInterval = c.WaitTimeMax
	b.MaxElapsedTime = c.TotalRequestTimeout
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}
