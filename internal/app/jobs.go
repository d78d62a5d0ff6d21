package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/ratelimit"
	"github.com/yungbote/coursegen-backend/internal/services"
)

// Jobs runs the periodic housekeeping sweeps.
type Jobs struct {
	log       *logger.Logger
	scheduler *gocron.Scheduler
	auth      services.AuthService
	store     ratelimit.Store
}

func newJobs(log *logger.Logger, auth services.AuthService, store ratelimit.Store) *Jobs {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Jobs{
		log:       log.With("component", "Jobs"),
		scheduler: s,
		auth:      auth,
		store:     store,
	}
}

func (j *Jobs) Start() error {
	if _, err := j.scheduler.Every(1).Minute().Do(j.sweepRateLimits); err != nil {
		return fmt.Errorf("schedule rate limit sweep: %w", err)
	}
	if _, err := j.scheduler.Every(15).Minutes().Do(j.clearResetTokens); err != nil {
		return fmt.Errorf("schedule reset token sweep: %w", err)
	}
	j.scheduler.StartAsync()
	return nil
}

func (j *Jobs) Stop() {
	j.scheduler.Stop()
}

// sweepRateLimits drops idle limiter entries. Redis expires its own keys.
func (j *Jobs) sweepRateLimits() {
	mem, ok := j.store.(*ratelimit.MemoryStore)
	if !ok {
		return
	}
	if n := mem.Sweep(); n > 0 {
		j.log.Debug("swept idle rate limit entries", "removed", n, "remaining", mem.Len())
	}
}

func (j *Jobs) clearResetTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := j.auth.ClearExpiredResetTokens(ctx)
	if err != nil {
		j.log.Warn("clearing expired reset tokens failed", "error", err)
		return
	}
	if n > 0 {
		j.log.Info("cleared expired reset tokens", "count", n)
	}
}
