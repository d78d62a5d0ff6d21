package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/generation"
	"github.com/yungbote/coursegen-backend/internal/generation/prompts"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/platform/ratelimit"
)

const (
	MaxChatMessages     = 12
	MaxChatMessageRunes = 4000
	maxExcerptRunes     = 1500
)

type ChatInput struct {
	CourseID    *uuid.UUID       `json:"course_id"`
	ModuleOrder *int             `json:"module_order"`
	LessonOrder *int             `json:"lesson_order"`
	Messages    []openai.Message `json:"messages"`
}

type ChatReply struct {
	Reply    string `json:"reply"`
	Provider string `json:"provider"`
}

type TutorService interface {
	Chat(ctx context.Context, in ChatInput) (*ChatReply, error)
}

type tutorService struct {
	db           *gorm.DB
	log          *logger.Logger
	courseRepo   repos.CourseRepo
	orchestrator *generation.Orchestrator
	limiter      *ratelimit.Limiter
}

func NewTutorService(db *gorm.DB, log *logger.Logger, courseRepo repos.CourseRepo, orchestrator *generation.Orchestrator, limiter *ratelimit.Limiter) TutorService {
	serviceLog := log.With("service", "TutorService")
	return &tutorService{
		db:           db,
		log:          serviceLog,
		courseRepo:   courseRepo,
		orchestrator: orchestrator,
		limiter:      limiter,
	}
}

func (ts *tutorService) Chat(ctx context.Context, in ChatInput) (*ChatReply, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := normalizeChatMessages(in.Messages)
	if err != nil {
		return nil, err
	}
	if err := checkLimit(ctx, ts.limiter, "chat", userID); err != nil {
		return nil, err
	}
	if ts.orchestrator == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "AI provider is not configured")
	}

	var grounding prompts.TutorData
	if in.CourseID != nil {
		c, err := loadReadable(ctx, ts.courseRepo, nil, *in.CourseID)
		if err != nil {
			return nil, err
		}
		grounding = tutorGrounding(c, in.ModuleOrder, in.LessonOrder)
	}

	reply, provider, err := ts.orchestrator.Tutor(ctx, generation.TutorRequest{Context: grounding, Messages: msgs})
	if err != nil {
		observability.Current().IncGeneration("chat", apierr.KindOf(err).String())
		ts.log.Warn("tutor chat failed", "kind", apierr.KindOf(err).String(), "error", err)
		return nil, err
	}
	observability.Current().IncGeneration("chat", "ok")
	return &ChatReply{Reply: strings.TrimSpace(reply), Provider: provider}, nil
}

func tutorGrounding(c *types.Course, moduleOrder, lessonOrder *int) prompts.TutorData {
	d := prompts.TutorData{CourseTitle: c.Title, CourseSummary: c.Summary}
	if moduleOrder == nil || lessonOrder == nil {
		return d
	}
	l, ok := c.Lesson(types.LessonKey{ModuleOrder: *moduleOrder, LessonOrder: *lessonOrder})
	if !ok {
		return d
	}
	d.LessonTitle = l.Title
	if l.Content != nil {
		d.LessonExcerpt = truncate(l.Content.Theory, maxExcerptRunes)
	} else {
		d.LessonExcerpt = l.Summary
	}
	return d
}

// normalizeChatMessages validates roles and sizes and keeps the most recent
// messages. The conversation must end with the learner.
func normalizeChatMessages(in []openai.Message) ([]openai.Message, error) {
	if len(in) == 0 {
		return nil, apierr.Newf(apierr.KindValidation, "messages are required")
	}
	out := make([]openai.Message, 0, len(in))
	for i, m := range in {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "user" && role != "assistant" {
			return nil, apierr.Newf(apierr.KindValidation, "message %d: role must be user or assistant", i)
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			return nil, apierr.Newf(apierr.KindValidation, "message %d is empty", i)
		}
		if utf8.RuneCountInString(content) > MaxChatMessageRunes {
			return nil, apierr.Newf(apierr.KindValidation, "message %d exceeds %d characters", i, MaxChatMessageRunes)
		}
		out = append(out, openai.Message{Role: role, Content: content})
	}
	if out[len(out)-1].Role != "user" {
		return nil, apierr.Newf(apierr.KindValidation, "the last message must come from the user")
	}
	if len(out) > MaxChatMessages {
		out = out[len(out)-MaxChatMessages:]
	}
	return out, nil
}
