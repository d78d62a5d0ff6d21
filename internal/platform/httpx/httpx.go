package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether a transport or status error is worth another attempt.
// Context cancellation is never retried: the caller's deadline owns the budget.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// KindForStatus classifies an upstream HTTP status.
func KindForStatus(status int) apierr.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apierr.KindProviderAuth
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return apierr.KindQuotaExceeded
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apierr.KindTimeout
	default:
		return apierr.KindProviderUnavailable
	}
}

// KindForError classifies a transport level error from an upstream call.
func KindForError(err error) apierr.Kind {
	if err == nil {
		return apierr.KindUnknown
	}
	if k := apierr.KindOf(err); k != apierr.KindUnknown {
		return k
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return KindForStatus(sc.HTTPStatusCode())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apierr.KindTimeout
	}
	return apierr.KindProviderUnavailable
}

func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(2*delta)
	return time.Duration(v * float64(time.Second))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
