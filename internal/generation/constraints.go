package generation

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/coursegen-backend/internal/domain/course"
	"github.com/yungbote/coursegen-backend/internal/domain/user"
)

const (
	MaxSummaryRunes     = 500
	MaxTitleRunes       = 200
	MaxKeyTakeaways     = 7
	MinEstimatedMinutes = 1
	MaxEstimatedMinutes = 120
	MinQuizOptions      = 2
)

// Outline is a validated outline after plan limits were applied.
type Outline struct {
	Title    string          `json:"title"`
	Language string          `json:"language"`
	Summary  string          `json:"summary"`
	Modules  []course.Module `json:"modules"`
}

// EnforceOutlineConstraints applies plan limits and renumbers orders.
// Modules and lessons are ordered by the order the provider returned, stable
// for ties, then renumbered from 1; anything past the plan limit is dropped.
func EnforceOutlineConstraints(o OutlineV1, plan user.Plan, requestedLanguage string) Outline {
	limits := plan.Limits()

	out := Outline{
		Title:   truncateRunes(strings.TrimSpace(o.Title), MaxTitleRunes),
		Summary: truncateRunes(strings.TrimSpace(o.Summary), MaxSummaryRunes),
	}
	if lang, ok := NormalizeLanguage(o.Language); ok && strings.TrimSpace(o.Language) != "" {
		out.Language = lang
	} else {
		out.Language = requestedLanguage
	}

	mods := append([]OutlineModuleV1(nil), o.Modules...)
	sort.SliceStable(mods, func(i, j int) bool { return orderOf(mods[i].Order) < orderOf(mods[j].Order) })
	if limits.MaxModules > 0 && len(mods) > limits.MaxModules {
		mods = mods[:limits.MaxModules]
	}

	out.Modules = make([]course.Module, 0, len(mods))
	for mi, m := range mods {
		lessons := append([]OutlineLessonV1(nil), m.Lessons...)
		sort.SliceStable(lessons, func(i, j int) bool { return orderOf(lessons[i].Order) < orderOf(lessons[j].Order) })
		if limits.MaxLessons > 0 && len(lessons) > limits.MaxLessons {
			lessons = lessons[:limits.MaxLessons]
		}
		cm := course.Module{
			Order:   mi + 1,
			Title:   truncateRunes(strings.TrimSpace(m.Title), MaxTitleRunes),
			Lessons: make([]course.Lesson, 0, len(lessons)),
		}
		for li, l := range lessons {
			cm.Lessons = append(cm.Lessons, course.Lesson{
				Order:   li + 1,
				Title:   truncateRunes(strings.TrimSpace(l.Title), MaxTitleRunes),
				Summary: truncateRunes(strings.TrimSpace(l.Summary), MaxSummaryRunes),
			})
		}
		out.Modules = append(out.Modules, cm)
	}
	return out
}

func orderOf(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return math.MaxFloat64
	}
	return *v
}

// SanitizeLessonContent drops invalid quiz questions and clamps counters.
func SanitizeLessonContent(in LessonContentV1, provider string, now time.Time) course.LessonContent {
	out := course.LessonContent{
		Theory:       strings.TrimSpace(in.Theory),
		Example:      strings.TrimSpace(in.Example),
		Exercise:     strings.TrimSpace(in.Exercise),
		KeyTakeaways: []string{},
		Quiz:         []course.QuizQuestion{},
		Provider:     provider,
		GeneratedAt:  now.UTC(),
	}
	for _, k := range in.KeyTakeaways {
		if k = strings.TrimSpace(k); k != "" && len(out.KeyTakeaways) < MaxKeyTakeaways {
			out.KeyTakeaways = append(out.KeyTakeaways, k)
		}
	}
	for _, q := range in.Quiz {
		if cq, ok := sanitizeQuestion(q); ok {
			out.Quiz = append(out.Quiz, cq)
		}
	}
	minutes := int(math.Round(in.EstimatedMinutes))
	if minutes < MinEstimatedMinutes {
		minutes = MinEstimatedMinutes
	}
	if minutes > MaxEstimatedMinutes {
		minutes = MaxEstimatedMinutes
	}
	out.EstimatedMinutes = minutes
	return out
}

func sanitizeQuestion(q QuizQuestionV1) (course.QuizQuestion, bool) {
	text := strings.TrimSpace(q.Question)
	if text == "" {
		return course.QuizQuestion{}, false
	}
	opts := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, strings.TrimSpace(o))
	}
	if len(opts) < MinQuizOptions {
		return course.QuizQuestion{}, false
	}
	if q.AnswerIndex != math.Trunc(q.AnswerIndex) {
		return course.QuizQuestion{}, false
	}
	idx := int(q.AnswerIndex)
	if idx < 0 || idx >= len(opts) || opts[idx] == "" {
		return course.QuizQuestion{}, false
	}
	return course.QuizQuestion{
		Question:    text,
		Options:     opts,
		AnswerIndex: idx,
		Explanation: strings.TrimSpace(q.Explanation),
	}, true
}
