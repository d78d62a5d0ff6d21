package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
)

type statusErr int

func (s statusErr) Error() string       { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{statusErr(500), true},
		{statusErr(429), true},
		{statusErr(400), false},
		{context.DeadlineExceeded, false},
		{fmt.Errorf("wrapped: %w", statusErr(503)), true},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("IsRetryableError(%v)=%v want %v", tc.err, got, tc.want)
		}
	}
}

func TestKindForError(t *testing.T) {
	cases := []struct {
		err  error
		want apierr.Kind
	}{
		{statusErr(401), apierr.KindProviderAuth},
		{statusErr(429), apierr.KindQuotaExceeded},
		{statusErr(502), apierr.KindProviderUnavailable},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), apierr.KindTimeout},
		{apierr.Wrap(apierr.KindParse, fmt.Errorf("bad json")), apierr.KindParse},
	}
	for _, tc := range cases {
		if got := KindForError(tc.err); got != tc.want {
			t.Fatalf("KindForError(%v)=%v want %v", tc.err, got, tc.want)
		}
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap at 10s, got %s", got)
	}
	if got := RetryAfterDuration(nil, 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Minute); err == nil {
		t.Fatalf("expected context error")
	}
}
