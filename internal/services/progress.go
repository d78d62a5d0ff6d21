package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type ProgressView struct {
	CourseID         uuid.UUID         `json:"course_id"`
	Percent          int               `json:"percent"`
	CompletedLessons []types.LessonKey `json:"completed_lessons"`
	TotalLessons     int               `json:"total_lessons"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

type ProgressService interface {
	Get(ctx context.Context, courseID uuid.UUID) (*ProgressView, error)
	SetLesson(ctx context.Context, courseID uuid.UUID, key types.LessonKey, completed bool) (*ProgressView, error)
	Replace(ctx context.Context, courseID uuid.UUID, keys []types.LessonKey) (*ProgressView, error)
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	courseRepo   repos.CourseRepo
	progressRepo repos.ProgressRepo
	now          func() time.Time
}

func NewProgressService(db *gorm.DB, log *logger.Logger, courseRepo repos.CourseRepo, progressRepo repos.ProgressRepo) ProgressService {
	serviceLog := log.With("service", "ProgressService")
	return &progressService{
		db:           db,
		log:          serviceLog,
		courseRepo:   courseRepo,
		progressRepo: progressRepo,
		now:          time.Now,
	}
}

func (ps *progressService) Get(ctx context.Context, courseID uuid.UUID) (*ProgressView, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := loadReadable(ctx, ps.courseRepo, nil, courseID)
	if err != nil {
		return nil, err
	}
	p, err := ps.progressRepo.Get(ctx, nil, userID, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	keys, percent := ComputeProgress(c, p.Completed())
	view := &ProgressView{CourseID: c.ID, Percent: percent, CompletedLessons: keys, TotalLessons: c.TotalLessons()}
	if p != nil && percent == 100 {
		view.CompletedAt = p.CompletedAt
	}
	return view, nil
}

func (ps *progressService) SetLesson(ctx context.Context, courseID uuid.UUID, key types.LessonKey, completed bool) (*ProgressView, error) {
	return ps.update(ctx, courseID, func(c *types.Course, current []types.LessonKey) ([]types.LessonKey, error) {
		if _, ok := c.Lesson(key); !ok {
			return nil, apierr.Newf(apierr.KindValidation, "module %d lesson %d does not exist in this course", key.ModuleOrder, key.LessonOrder)
		}
		next := make([]types.LessonKey, 0, len(current)+1)
		for _, k := range current {
			if k != key {
				next = append(next, k)
			}
		}
		if completed {
			next = append(next, key)
		}
		return next, nil
	})
}

func (ps *progressService) Replace(ctx context.Context, courseID uuid.UUID, keys []types.LessonKey) (*ProgressView, error) {
	return ps.update(ctx, courseID, func(c *types.Course, _ []types.LessonKey) ([]types.LessonKey, error) {
		return keys, nil
	})
}

func (ps *progressService) update(ctx context.Context, courseID uuid.UUID, apply func(c *types.Course, current []types.LessonKey) ([]types.LessonKey, error)) (*ProgressView, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	var view *ProgressView
	err = ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := loadReadable(ctx, ps.courseRepo, tx, courseID)
		if err != nil {
			return err
		}
		p, err := ps.progressRepo.Get(ctx, tx, userID, c.ID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		next, err := apply(c, p.Completed())
		if err != nil {
			return err
		}
		keys, percent := ComputeProgress(c, next)

		if p == nil {
			p = &types.Progress{UserID: userID, CourseID: c.ID}
		}
		p.CompletedLessons = datatypes.NewJSONType(keys)
		switch {
		case percent == 100 && (p.Percent < 100 || p.CompletedAt == nil):
			at := ps.now().UTC()
			p.CompletedAt = &at
		case percent < 100:
			p.CompletedAt = nil
		}
		p.Percent = percent
		if err := ps.progressRepo.Upsert(ctx, tx, p); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		view = &ProgressView{
			CourseID:         c.ID,
			Percent:          percent,
			CompletedLessons: keys,
			TotalLessons:     c.TotalLessons(),
			CompletedAt:      p.CompletedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ComputeProgress keeps the completed keys that exist in the course, without
// duplicates and in course order, and derives the rounded percentage.
func ComputeProgress(c *types.Course, completed []types.LessonKey) ([]types.LessonKey, int) {
	total := c.TotalLessons()
	seen := make(map[types.LessonKey]struct{}, len(completed))
	keys := make([]types.LessonKey, 0, len(completed))
	for _, k := range completed {
		if _, dup := seen[k]; dup {
			continue
		}
		if _, ok := c.Lesson(k); !ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ModuleOrder != keys[j].ModuleOrder {
			return keys[i].ModuleOrder < keys[j].ModuleOrder
		}
		return keys[i].LessonOrder < keys[j].LessonOrder
	})
	if total == 0 {
		return keys, 0
	}
	return keys, int(math.Round(100 * float64(len(keys)) / float64(total)))
}
