package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const MaxPublicPageSize = 50

type CourseSummary struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Language        string           `json:"language"`
	Summary         string           `json:"summary"`
	Visibility      types.Visibility `json:"visibility"`
	ModuleCount     int              `json:"module_count"`
	LessonCount     int              `json:"lesson_count"`
	ProgressPercent int              `json:"progress_percent"`
	CreatedAt       time.Time        `json:"created_at"`
}

type CourseService interface {
	ListMine(ctx context.Context) ([]CourseSummary, error)
	ListPublic(ctx context.Context, limit, offset int) ([]CourseSummary, error)
	Get(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
	SetVisibility(ctx context.Context, courseID uuid.UUID, visibility string) (*types.Course, error)
	Delete(ctx context.Context, courseID uuid.UUID) error
}

type courseService struct {
	db           *gorm.DB
	log          *logger.Logger
	courseRepo   repos.CourseRepo
	progressRepo repos.ProgressRepo
}

func NewCourseService(db *gorm.DB, log *logger.Logger, courseRepo repos.CourseRepo, progressRepo repos.ProgressRepo) CourseService {
	serviceLog := log.With("service", "CourseService")
	return &courseService{
		db:           db,
		log:          serviceLog,
		courseRepo:   courseRepo,
		progressRepo: progressRepo,
	}
}

func (cs *courseService) ListMine(ctx context.Context) ([]CourseSummary, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := cs.courseRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	progress, err := cs.progressRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	percent := make(map[uuid.UUID]int, len(progress))
	for _, p := range progress {
		percent[p.CourseID] = p.Percent
	}
	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		s := summarize(c)
		s.ProgressPercent = percent[c.ID]
		out = append(out, s)
	}
	return out, nil
}

func (cs *courseService) ListPublic(ctx context.Context, limit, offset int) ([]CourseSummary, error) {
	if limit <= 0 || limit > MaxPublicPageSize {
		limit = MaxPublicPageSize
	}
	if offset < 0 {
		return nil, apierr.Newf(apierr.KindValidation, "offset must not be negative")
	}
	courses, err := cs.courseRepo.ListPublic(ctx, nil, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list public courses: %w", err)
	}
	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, summarize(c))
	}
	return out, nil
}

func (cs *courseService) Get(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	return loadReadable(ctx, cs.courseRepo, nil, courseID)
}

func (cs *courseService) SetVisibility(ctx context.Context, courseID uuid.UUID, visibility string) (*types.Course, error) {
	vis := types.Visibility(strings.ToLower(strings.TrimSpace(visibility)))
	if !vis.Valid() {
		return nil, apierr.Newf(apierr.KindValidation, "visibility must be private, unlisted or public")
	}
	c, err := loadOwned(ctx, cs.courseRepo, nil, courseID, false)
	if err != nil {
		return nil, err
	}
	if c.Visibility == vis {
		return c, nil
	}
	if err := cs.courseRepo.UpdateVisibility(ctx, nil, c.ID, vis); err != nil {
		return nil, fmt.Errorf("update visibility: %w", err)
	}
	c.Visibility = vis
	cs.log.Info("course visibility changed", "course_id", c.ID, "visibility", vis)
	return c, nil
}

func (cs *courseService) Delete(ctx context.Context, courseID uuid.UUID) error {
	c, err := loadOwned(ctx, cs.courseRepo, nil, courseID, false)
	if err != nil {
		return err
	}
	if err := cs.courseRepo.Delete(ctx, nil, c.ID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	cs.log.Info("course deleted", "course_id", c.ID)
	return nil
}

func summarize(c *types.Course) CourseSummary {
	return CourseSummary{
		ID:          c.ID,
		Title:       c.Title,
		Language:    c.Language,
		Summary:     c.Summary,
		Visibility:  c.Visibility,
		ModuleCount: len(c.ModuleList()),
		LessonCount: c.TotalLessons(),
		CreatedAt:   c.CreatedAt,
	}
}
