package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// MaxDelay caps the wait between two attempts, including waits a server
// asks for with Retry-After.
const MaxDelay = 10 * time.Second

// RetryableError marks a transient failure that [Retry] attempts again.
// A positive After is the wait the server requested.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, fails with an error that is not a
// [RetryableError], or has been called attempts times. The wait before the
// next call starts at delay and doubles, capped at MaxDelay. Cancellation
// while waiting returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i, n := 0, max(attempts, 1); i < n; i++ {
		if i > 0 {
			if werr := sleep(ctx, backoff(err, delay, i)); werr != nil {
				return werr
			}
		}
		if err = fn(); err == nil || !errors.As(err, new(*RetryableError)) {
			return err
		}
	}
	return err
}

// backoff returns the wait before retry number n (1-based) after err.
func backoff(err error, delay time.Duration, n int) time.Duration {
	var re *RetryableError
	if errors.As(err, &re) && re.After > 0 {
		return min(re.After, MaxDelay)
	}
	if delay <= 0 {
		return 0
	}
	d := delay
	for i := 0; i < n-1; i++ {
		if d >= MaxDelay/2 {
			return MaxDelay
		}
		d *= 2
	}
	return min(d, MaxDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date. Missing or unparsable values yield 0.
func retryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}
