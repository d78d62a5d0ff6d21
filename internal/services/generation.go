package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/generation"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/ratelimit"
)

type OutlineInput struct {
	Topic     string     `json:"topic"`
	Language  string     `json:"language"`
	Subtopics []string   `json:"subtopics"`
	CourseID  *uuid.UUID `json:"course_id"`
}

type LessonBatchInput struct {
	ModuleOrder  int   `json:"module_order"`
	LessonOrders []int `json:"lesson_orders"`
	Regenerate   bool  `json:"regenerate"`
}

type LessonBatchResult struct {
	generation.BatchResult
	Course *types.Course `json:"course"`
}

type GenerationService interface {
	// GenerateOutline creates a course, or replaces the outline of the
	// caller's course when CourseID is set.
	GenerateOutline(ctx context.Context, in OutlineInput) (*types.Course, error)
	// GenerateLessons fills lesson content for one module, one lesson at a time.
	GenerateLessons(ctx context.Context, courseID uuid.UUID, in LessonBatchInput) (*LessonBatchResult, error)
}

type generationService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	courseRepo     repos.CourseRepo
	progressRepo   repos.ProgressRepo
	quizRepo       repos.QuizResponseRepo
	orchestrator   *generation.Orchestrator
	media          MediaService
	outlineLimiter *ratelimit.Limiter
	lessonLimiter  *ratelimit.Limiter
	now            func() time.Time
}

func NewGenerationService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	progressRepo repos.ProgressRepo,
	quizRepo repos.QuizResponseRepo,
	orchestrator *generation.Orchestrator,
	media MediaService,
	outlineLimiter *ratelimit.Limiter,
	lessonLimiter *ratelimit.Limiter,
) GenerationService {
	serviceLog := log.With("service", "GenerationService")
	return &generationService{
		db:             db,
		log:            serviceLog,
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		progressRepo:   progressRepo,
		quizRepo:       quizRepo,
		orchestrator:   orchestrator,
		media:          media,
		outlineLimiter: outlineLimiter,
		lessonLimiter:  lessonLimiter,
		now:            time.Now,
	}
}

func (gs *generationService) GenerateOutline(ctx context.Context, in OutlineInput) (*types.Course, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	plan := callerPlan(ctx)
	req, err := generation.NormalizeOutlineRequest(generation.OutlineRequest{
		Topic:     in.Topic,
		Language:  in.Language,
		Subtopics: in.Subtopics,
		Plan:      plan,
	})
	if err != nil {
		return nil, err
	}
	if err := checkLimit(ctx, gs.outlineLimiter, "outline", userID); err != nil {
		return nil, err
	}

	// Ownership and quota are checked before spending a provider call and
	// again inside the write transaction.
	if in.CourseID != nil {
		if _, err := loadOwned(ctx, gs.courseRepo, nil, *in.CourseID, false); err != nil {
			return nil, err
		}
	} else if err := checkCourseQuota(ctx, gs.userRepo, gs.courseRepo, nil, userID, plan); err != nil {
		return nil, err
	}
	if gs.orchestrator == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "AI provider is not configured")
	}

	res, err := gs.orchestrator.GenerateOutline(ctx, req)
	if err != nil {
		observability.Current().IncGeneration("outline", apierr.KindOf(err).String())
		gs.log.Warn("outline generation failed", "kind", apierr.KindOf(err).String(), "error", err)
		return nil, err
	}
	outline := res.Outline

	var courseID uuid.UUID
	err = gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CourseID != nil {
			c, err := loadOwned(ctx, gs.courseRepo, tx, *in.CourseID, true)
			if err != nil {
				return err
			}
			courseID = c.ID
			if err := gs.courseRepo.ReplaceOutline(ctx, tx, c.ID, repos.OutlineUpdate{
				Title:    outline.Title,
				Topic:    req.Topic,
				Language: outline.Language,
				Summary:  outline.Summary,
				Modules:  outline.Modules,
			}); err != nil {
				return fmt.Errorf("replace outline: %w", err)
			}
			if err := gs.progressRepo.ResetForCourse(ctx, tx, c.ID); err != nil {
				return fmt.Errorf("reset progress: %w", err)
			}
			if err := gs.quizRepo.DeleteByCourse(ctx, tx, c.ID); err != nil {
				return fmt.Errorf("clear quiz responses: %w", err)
			}
			return nil
		}
		if err := checkCourseQuota(ctx, gs.userRepo, gs.courseRepo, tx, userID, plan); err != nil {
			return err
		}
		c := &types.Course{
			UserID:     userID,
			Title:      outline.Title,
			Topic:      req.Topic,
			Language:   outline.Language,
			Summary:    outline.Summary,
			Visibility: types.VisibilityPrivate,
		}
		c.SetModules(outline.Modules)
		if _, err := gs.courseRepo.Create(ctx, tx, []*types.Course{c}); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		courseID = c.ID
		return nil
	})
	if err != nil {
		observability.Current().IncGeneration("outline", apierr.KindOf(err).String())
		return nil, err
	}
	observability.Current().IncGeneration("outline", "ok")
	gs.log.Info("outline generated",
		"course_id", courseID,
		"provider", res.Provider,
		"modules", len(outline.Modules),
		"regenerated", in.CourseID != nil,
	)

	c, err := gs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("reload course: %w", err)
	}
	return c, nil
}

func (gs *generationService) GenerateLessons(ctx context.Context, courseID uuid.UUID, in LessonBatchInput) (*LessonBatchResult, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if in.ModuleOrder < 1 {
		return nil, apierr.Newf(apierr.KindValidation, "module_order is required")
	}
	if err := checkLimit(ctx, gs.lessonLimiter, "lessons", userID); err != nil {
		return nil, err
	}
	c, err := loadOwned(ctx, gs.courseRepo, nil, courseID, false)
	if err != nil {
		return nil, err
	}
	module, ok := findModule(c, in.ModuleOrder)
	if !ok {
		return nil, apierr.Newf(apierr.KindNotFound, "module %d not found", in.ModuleOrder)
	}
	orders, err := selectLessons(module, in.LessonOrders, in.Regenerate)
	if err != nil {
		return nil, err
	}
	if len(orders) > 0 && gs.orchestrator == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "AI provider is not configured")
	}

	siblings := make([]string, 0, len(module.Lessons))
	for _, l := range module.Lessons {
		siblings = append(siblings, l.Title)
	}

	res := generation.RunBatch(ctx, orders, func(ctx context.Context, order int) error {
		lesson, _ := c.Lesson(types.LessonKey{ModuleOrder: module.Order, LessonOrder: order})
		out, err := gs.orchestrator.GenerateLesson(ctx, generation.LessonRequest{
			CourseTitle:   c.Title,
			Language:      c.Language,
			ModuleOrder:   module.Order,
			ModuleTitle:   module.Title,
			LessonOrder:   order,
			LessonTitle:   lesson.Title,
			LessonSummary: lesson.Summary,
			Siblings:      otherTitles(siblings, lesson.Title),
		})
		if err != nil {
			observability.Current().IncGeneration("lesson", apierr.KindOf(err).String())
			gs.log.Warn("lesson generation failed",
				"course_id", c.ID,
				"module_order", module.Order,
				"lesson_order", order,
				"kind", apierr.KindOf(err).String(),
				"error", err,
			)
			return err
		}
		content := generation.SanitizeLessonContent(out.Content, out.Provider, gs.now().UTC())
		if gs.media != nil && gs.media.Enabled() {
			query := out.ImageQuery
			if query == "" {
				query = lesson.Title
			}
			content.Media = gs.media.ForLesson(ctx, query)
		}
		if err := gs.saveLessonContent(ctx, c.ID, types.LessonKey{ModuleOrder: module.Order, LessonOrder: order}, content); err != nil {
			return err
		}
		observability.Current().IncGeneration("lesson", "ok")
		return nil
	})
	if err := res.Err(); err != nil {
		return nil, err
	}
	gs.log.Info("lesson batch finished",
		"course_id", c.ID,
		"module_order", module.Order,
		"requested", res.Requested,
		"completed", res.Completed,
		"stopped_reason", res.StoppedReason,
	)

	updated, err := gs.courseRepo.GetByID(ctx, nil, c.ID)
	if err != nil {
		return nil, fmt.Errorf("reload course: %w", err)
	}
	return &LessonBatchResult{BatchResult: res, Course: updated}, nil
}

// saveLessonContent writes one lesson so finished lessons survive a later failure.
func (gs *generationService) saveLessonContent(ctx context.Context, courseID uuid.UUID, key types.LessonKey, content types.LessonContent) error {
	return gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := gs.courseRepo.GetByIDForUpdate(ctx, tx, courseID)
		if err != nil {
			return fmt.Errorf("load course: %w", err)
		}
		if c == nil {
			return apierr.Newf(apierr.KindNotFound, "course not found")
		}
		mods := c.ModuleList()
		for mi := range mods {
			if mods[mi].Order != key.ModuleOrder {
				continue
			}
			for li := range mods[mi].Lessons {
				if mods[mi].Lessons[li].Order == key.LessonOrder {
					lc := content
					mods[mi].Lessons[li].Content = &lc
					if err := gs.courseRepo.UpdateModules(ctx, tx, c.ID, mods); err != nil {
						return fmt.Errorf("save lesson content: %w", err)
					}
					return nil
				}
			}
		}
		return apierr.Newf(apierr.KindConflict, "lesson %d was removed while it was being generated", key.LessonOrder)
	})
}

func findModule(c *types.Course, order int) (types.Module, bool) {
	for _, m := range c.ModuleList() {
		if m.Order == order {
			return m, true
		}
	}
	return types.Module{}, false
}

// selectLessons resolves the requested lesson orders. An empty request means
// every lesson still without content. Lessons that have content are skipped
// unless regenerate is set.
func selectLessons(m types.Module, requested []int, regenerate bool) ([]int, error) {
	byOrder := make(map[int]types.Lesson, len(m.Lessons))
	for _, l := range m.Lessons {
		byOrder[l.Order] = l
	}
	if len(requested) == 0 {
		for _, l := range m.Lessons {
			requested = append(requested, l.Order)
		}
	}
	seen := make(map[int]struct{}, len(requested))
	var out []int
	for _, order := range requested {
		l, ok := byOrder[order]
		if !ok {
			return nil, apierr.Newf(apierr.KindValidation, "module %d has no lesson %d", m.Order, order)
		}
		if _, dup := seen[order]; dup {
			continue
		}
		seen[order] = struct{}{}
		if l.Content != nil && !regenerate {
			continue
		}
		out = append(out, order)
	}
	sort.Ints(out)
	return out, nil
}

func otherTitles(titles []string, self string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if !strings.EqualFold(t, self) {
			out = append(out, t)
		}
	}
	return out
}
