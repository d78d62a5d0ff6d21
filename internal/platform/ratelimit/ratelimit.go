package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// Store admits one event per key per window. Implementations must be safe for
// concurrent use; the Redis store is additionally shared between instances.
type Store interface {
	// Allow consumes the key's slot. When denied it returns the remaining wait.
	Allow(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)
}

// Limiter applies a Store to one action, e.g. outline generation.
type Limiter struct {
	store  Store
	log    *logger.Logger
	prefix string
	window time.Duration
	action string
}

func NewLimiter(store Store, log *logger.Logger, prefix string, window time.Duration, action string) *Limiter {
	return &Limiter{
		store:  store,
		log:    log.With("limiter", prefix),
		prefix: prefix,
		window: window,
		action: action,
	}
}

func (l *Limiter) Window() time.Duration { return l.window }

// Check returns a KindRateLimited error when subject already acted within the window.
// Store failures let the request through.
func (l *Limiter) Check(ctx context.Context, subject string) error {
	if l == nil || l.store == nil || l.window <= 0 {
		return nil
	}
	ok, wait, err := l.store.Allow(ctx, l.prefix+":"+subject, l.window)
	if err != nil {
		l.log.Warn("rate limit store failed, allowing request", "error", err)
		return nil
	}
	if ok {
		return nil
	}
	secs := WaitSeconds(wait)
	return apierr.RateLimited(time.Duration(secs)*time.Second, "please wait %d seconds before %s", secs, l.action)
}

// WaitSeconds rounds a wait up to whole seconds, minimum 1.
func WaitSeconds(wait time.Duration) int {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
