package apiclient

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryDelay is how long to wait after the given failed attempt (1-based).
// A Retry-After header wins; otherwise the delay doubles per attempt. The
// result never exceeds max.
func retryDelay(h http.Header, attempt int, unit, max time.Duration, now time.Time) time.Duration {
	if d, ok := parseRetryAfter(h.Get("Retry-After"), now); ok {
		return clampDelay(d, max)
	}
	if attempt < 1 {
		attempt = 1
	}
	d := unit
	for i := 1; i < attempt && (max <= 0 || d < max); i++ {
		d *= 2
	}
	return clampDelay(d, max)
}

func clampDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int64(math.MaxInt64/time.Second) {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
