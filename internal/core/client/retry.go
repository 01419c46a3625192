package client

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"
)

// RetryPolicy is an explicit, composable retry schedule: attempt cap plus a
// doubling backoff bounded to [BaseDelay, MaxDelay].
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the remote service's guidance: five attempts,
// backoff between 4s and 120s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: 4 * time.Second, MaxDelay: 120 * time.Second}
}

// Delay returns the backoff before the given retry (attempt is 1-based for
// the first retry).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// retryableStatus reports whether an HTTP status is a transient transport
// condition worth retrying.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryableError reports whether a request error is a connection or
// timeout failure rather than a permanent fault.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
