package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/generation"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/translate"
)

type TranslateInput struct {
	Texts  []string
	Target string
	Source string
}

type TranslationService interface {
	Translate(ctx context.Context, in TranslateInput) ([]translate.Translation, error)
	// TranslateCourse copies the course outline into a new private course in
	// the target language. Lesson content is not carried over.
	TranslateCourse(ctx context.Context, courseID uuid.UUID, target string) (*types.Course, error)
}

type translationService struct {
	db         *gorm.DB
	log        *logger.Logger
	userRepo   repos.UserRepo
	courseRepo repos.CourseRepo
	client     translate.Client
}

func NewTranslationService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, courseRepo repos.CourseRepo, client translate.Client) TranslationService {
	serviceLog := log.With("service", "TranslationService")
	return &translationService{db: db, log: serviceLog, userRepo: userRepo, courseRepo: courseRepo, client: client}
}

func (ts *translationService) Translate(ctx context.Context, in TranslateInput) ([]translate.Translation, error) {
	if ts.client == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "translation is not configured")
	}
	target, source, err := normalizeLanguages(in.Target, in.Source)
	if err != nil {
		return nil, err
	}
	if len(in.Texts) == 0 {
		return nil, apierr.Newf(apierr.KindValidation, "text is required")
	}
	if len(in.Texts) > translate.MaxTexts {
		return nil, apierr.Newf(apierr.KindValidation, "at most %d texts per request", translate.MaxTexts)
	}
	for i, t := range in.Texts {
		if strings.TrimSpace(t) == "" {
			return nil, apierr.Newf(apierr.KindValidation, "text %d is empty", i)
		}
		if utf8.RuneCountInString(t) > translate.MaxTextLen {
			return nil, apierr.Newf(apierr.KindValidation, "text %d exceeds %d characters", i, translate.MaxTextLen)
		}
	}
	return ts.client.Translate(ctx, in.Texts, target, source)
}

func (ts *translationService) TranslateCourse(ctx context.Context, courseID uuid.UUID, target string) (*types.Course, error) {
	if ts.client == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "translation is not configured")
	}
	target, _, err := normalizeLanguages(target, "")
	if err != nil {
		return nil, err
	}
	src, err := loadOwned(ctx, ts.courseRepo, nil, courseID, false)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(src.Language, target) {
		return nil, apierr.Newf(apierr.KindValidation, "course is already in %s", target)
	}
	plan := callerPlan(ctx)
	if err := checkCourseQuota(ctx, ts.userRepo, ts.courseRepo, nil, src.UserID, plan); err != nil {
		return nil, err
	}

	// Texts are collected in a fixed order and written back in the same order.
	mods := src.ModuleList()
	texts := []string{src.Title, src.Summary}
	for _, m := range mods {
		texts = append(texts, m.Title)
		for _, l := range m.Lessons {
			texts = append(texts, l.Title, l.Summary)
		}
	}
	translated, err := ts.translateAll(ctx, texts, target, src.Language)
	if err != nil {
		return nil, err
	}
	next := func() string {
		s := translated[0]
		translated = translated[1:]
		return s
	}

	dst := &types.Course{
		UserID:     src.UserID,
		Topic:      src.Topic,
		Language:   target,
		Visibility: types.VisibilityPrivate,
	}
	dst.Title = truncate(next(), generation.MaxTitleRunes)
	dst.Summary = truncate(next(), generation.MaxSummaryRunes)
	out := make([]types.Module, 0, len(mods))
	for _, m := range mods {
		nm := types.Module{Order: m.Order, Title: truncate(next(), generation.MaxTitleRunes)}
		for _, l := range m.Lessons {
			nm.Lessons = append(nm.Lessons, types.Lesson{
				Order:   l.Order,
				Title:   truncate(next(), generation.MaxTitleRunes),
				Summary: truncate(next(), generation.MaxSummaryRunes),
			})
		}
		out = append(out, nm)
	}
	dst.SetModules(out)

	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCourseQuota(ctx, ts.userRepo, ts.courseRepo, tx, src.UserID, plan); err != nil {
			return err
		}
		if _, err := ts.courseRepo.Create(ctx, tx, []*types.Course{dst}); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ts.log.Info("course translated", "source_course_id", src.ID, "course_id", dst.ID, "language", target)
	return dst, nil
}

// translateAll sends non-empty texts in chunks and returns one entry per input.
func (ts *translationService) translateAll(ctx context.Context, texts []string, target, source string) ([]string, error) {
	out := make([]string, len(texts))
	var idx []int
	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := ts.client.Translate(ctx, batch, target, source)
		if err != nil {
			return err
		}
		for i, r := range res {
			out[idx[i]] = r.Text
		}
		idx, batch = idx[:0], batch[:0]
		return nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		idx = append(idx, i)
		batch = append(batch, truncate(t, translate.MaxTextLen))
		if len(batch) == translate.MaxTexts {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeLanguages(target, source string) (string, string, error) {
	if strings.TrimSpace(target) == "" {
		return "", "", apierr.Newf(apierr.KindValidation, "target language is required")
	}
	t, ok := generation.NormalizeLanguage(target)
	if !ok {
		return "", "", apierr.Newf(apierr.KindValidation, "invalid target language %q", target)
	}
	s := ""
	if strings.TrimSpace(source) != "" {
		if s, ok = generation.NormalizeLanguage(source); !ok {
			return "", "", apierr.Newf(apierr.KindValidation, "invalid source language %q", source)
		}
	}
	return t, s, nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
