package generation

import (
	"context"
	"errors"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
)

type LessonError struct {
	LessonOrder int    `json:"lesson_order"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
}

type BatchResult struct {
	Completed     int           `json:"completed"`
	Requested     int           `json:"requested"`
	Partial       bool          `json:"partial"`
	StoppedReason string        `json:"stopped_reason,omitempty"`
	Errors        []LessonError `json:"errors"`

	stopErr error
}

// Err is non-nil only when nothing completed and the batch was stopped.
// Callers surface its status instead of a 200.
func (r BatchResult) Err() error {
	if r.Completed == 0 && r.stopErr != nil {
		return r.stopErr
	}
	return nil
}

// StopsBatch reports whether a lesson failure of kind k ends the batch. Further
// calls would fail the same way.
func StopsBatch(k apierr.Kind) bool {
	switch k {
	case apierr.KindTimeout, apierr.KindRateLimited, apierr.KindQuotaExceeded:
		return true
	}
	return false
}

// RunBatch calls fn for each lesson order in sequence.
func RunBatch(ctx context.Context, orders []int, fn func(ctx context.Context, lessonOrder int) error) BatchResult {
	res := BatchResult{Requested: len(orders), Errors: []LessonError{}}
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			kind := apierr.KindTimeout
			if !errors.Is(err, context.DeadlineExceeded) {
				kind = apierr.KindProviderUnavailable
			}
			res.stopErr = apierr.Wrap(kind, err)
			res.StoppedReason = kind.String()
			break
		}
		err := fn(ctx, order)
		if err == nil {
			res.Completed++
			continue
		}
		kind := apierr.KindOf(err)
		res.Errors = append(res.Errors, LessonError{
			LessonOrder: order,
			Kind:        kind.String(),
			Message:     apierr.PublicMessage(err),
		})
		if StopsBatch(kind) {
			res.stopErr = err
			res.StoppedReason = kind.String()
			break
		}
	}
	res.Partial = res.Completed < res.Requested
	return res
}
