package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/ratelimit"
)

func requireUser(ctx context.Context) (uuid.UUID, error) {
	userID := ctxutil.UserID(ctx)
	if userID == uuid.Nil {
		return uuid.Nil, apierr.Newf(apierr.KindUnauthorized, "not signed in")
	}
	return userID, nil
}

func callerPlan(ctx context.Context) types.Plan {
	if rd := ctxutil.GetRequestData(ctx); rd != nil {
		return types.ParsePlan(rd.Plan)
	}
	return types.PlanFree
}

// loadReadable returns the course when the caller may read it. Private
// courses of other users are reported as missing.
func loadReadable(ctx context.Context, courseRepo repos.CourseRepo, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	c, err := courseRepo.GetByID(ctx, tx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if c == nil || !c.CanRead(ctxutil.UserID(ctx)) {
		return nil, apierr.Newf(apierr.KindNotFound, "course not found")
	}
	return c, nil
}

func loadOwned(ctx context.Context, courseRepo repos.CourseRepo, tx *gorm.DB, courseID uuid.UUID, forUpdate bool) (*types.Course, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	var c *types.Course
	if forUpdate {
		c, err = courseRepo.GetByIDForUpdate(ctx, tx, courseID)
	} else {
		c, err = courseRepo.GetByID(ctx, tx, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if c == nil || (!c.IsOwner(userID) && !c.CanRead(userID)) {
		return nil, apierr.Newf(apierr.KindNotFound, "course not found")
	}
	if !c.IsOwner(userID) {
		return nil, apierr.Newf(apierr.KindForbidden, "only the course owner can do this")
	}
	return c, nil
}

// checkCourseQuota enforces the plan's course count at write time. Courses
// created before a downgrade are kept. Inside a transaction the user row is
// locked first so concurrent creations by one user count one after another.
func checkCourseQuota(ctx context.Context, userRepo repos.UserRepo, courseRepo repos.CourseRepo, tx *gorm.DB, userID uuid.UUID, plan types.Plan) error {
	limit := plan.Limits().MaxCourses
	if limit <= 0 {
		return nil
	}
	if tx != nil {
		u, err := userRepo.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if u == nil {
			return apierr.Newf(apierr.KindUnauthorized, "account no longer exists")
		}
	}
	n, err := courseRepo.CountByUser(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("count courses: %w", err)
	}
	if n >= int64(limit) {
		return apierr.Newf(apierr.KindPlanLimit, "free plan allows %d course; upgrade to create more", limit)
	}
	return nil
}

func checkLimit(ctx context.Context, l *ratelimit.Limiter, name string, userID uuid.UUID) error {
	if err := l.Check(ctx, userID.String()); err != nil {
		observability.Current().IncRateLimited(name)
		return err
	}
	return nil
}
