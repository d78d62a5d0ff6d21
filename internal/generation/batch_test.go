package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
)

func TestRunBatch(t *testing.T) {
	cases := []struct {
		name          string
		failures      map[int]error
		wantCompleted int
		wantCalls     int
		wantStopped   string
		wantErrKind   apierr.Kind
	}{
		{
			name:          "all succeed",
			wantCompleted: 4,
			wantCalls:     4,
		},
		{
			name:          "parse failure continues",
			failures:      map[int]error{2: apierr.Wrap(apierr.KindParse, errors.New("bad"))},
			wantCompleted: 3,
			wantCalls:     4,
		},
		{
			name:          "rate limit stops",
			failures:      map[int]error{2: apierr.RateLimited(time.Second, "slow down")},
			wantCompleted: 1,
			wantCalls:     2,
			wantStopped:   "rate_limited",
		},
		{
			name:          "timeout on first lesson",
			failures:      map[int]error{1: apierr.Wrap(apierr.KindTimeout, errors.New("deadline"))},
			wantCompleted: 0,
			wantCalls:     1,
			wantStopped:   "timeout",
			wantErrKind:   apierr.KindTimeout,
		},
		{
			name:          "quota stops",
			failures:      map[int]error{3: apierr.Wrap(apierr.KindQuotaExceeded, errors.New("quota"))},
			wantCompleted: 2,
			wantCalls:     3,
			wantStopped:   "quota_exceeded",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			res := RunBatch(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, order int) error {
				calls++
				return tc.failures[order]
			})
			if calls != tc.wantCalls {
				t.Fatalf("calls=%d want %d", calls, tc.wantCalls)
			}
			if res.Completed != tc.wantCompleted || res.Requested != 4 {
				t.Fatalf("completed=%d requested=%d", res.Completed, res.Requested)
			}
			if res.Partial != (tc.wantCompleted < 4) {
				t.Fatalf("partial=%v", res.Partial)
			}
			if res.StoppedReason != tc.wantStopped {
				t.Fatalf("stopped=%q want %q", res.StoppedReason, tc.wantStopped)
			}
			if len(res.Errors) != len(tc.failures) {
				t.Fatalf("errors=%v", res.Errors)
			}
			if tc.wantErrKind == apierr.KindUnknown {
				if res.Err() != nil {
					t.Fatalf("unexpected batch error: %v", res.Err())
				}
			} else if apierr.KindOf(res.Err()) != tc.wantErrKind {
				t.Fatalf("err kind=%v", apierr.KindOf(res.Err()))
			}
		})
	}
}

func TestRunBatchHidesProviderText(t *testing.T) {
	res := RunBatch(context.Background(), []int{1}, func(ctx context.Context, order int) error {
		return apierr.Upstream(apierr.KindParse, "openai", errors.New("raw model output: secret"))
	})
	if len(res.Errors) != 1 || res.Errors[0].LessonOrder != 1 || res.Errors[0].Kind != "provider_parse" {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	if res.Errors[0].Message == "raw model output: secret" {
		t.Fatalf("provider text leaked")
	}
}
