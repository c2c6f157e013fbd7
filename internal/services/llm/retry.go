package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryPolicy decides which failures earn another attempt and how long to
// wait before it.
type retryPolicy struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
	sleep    func(time.Duration)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 3, base: time.Second, ceiling: 10 * time.Second}
}

// delay reports the wait before attempt+1, or false when err is final.
// Retried: HTTP 408, 429 and 5xx, empty completions, network timeouts.
func (p retryPolicy) delay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var (
		empty  *emptyContentError
		status *statusError
		netErr net.Error
	)
	switch {
	case errors.As(err, &empty):
		return p.backoff(attempt), true
	case errors.As(err, &status):
		if !retryableStatus(status.Code) {
			return 0, false
		}
		if status.RetryAfter > 0 {
			return min(status.RetryAfter, p.limit()), true
		}
		return p.backoff(attempt), true
	case errors.As(err, &netErr) && netErr.Timeout():
		return p.backoff(attempt), true
	}
	return 0, false
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// backoff returns base * 2^(attempt-1), capped at the ceiling.
func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.base <= 0 {
		return 0
	}
	d := p.base
	for n := 1; n < attempt && d < p.limit(); n++ {
		d *= 2
	}
	return min(d, p.limit())
}

func (p retryPolicy) limit() time.Duration {
	if p.ceiling > 0 {
		return p.ceiling
	}
	return defaultRetryPolicy().ceiling
}

func (p retryPolicy) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if p.sleep != nil {
		p.sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
// Missing, negative and past values yield zero.
func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if when, err := http.ParseTime(header); err == nil {
		return max(time.Until(when), 0)
	}
	return 0
}
