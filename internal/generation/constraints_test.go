package generation

import (
	"strings"
	"testing"
	"time"

	"github.com/yungbote/coursegen-backend/internal/domain/user"
)

func f(v float64) *float64 { return &v }

func rawOutline(modules, lessons int) OutlineV1 {
	o := OutlineV1{Title: "Intro to Python", Language: "en", Summary: "s"}
	for m := 0; m < modules; m++ {
		// Reverse order with gaps to exercise renumbering.
		mod := OutlineModuleV1{Order: f(float64((modules - m) * 10)), Title: "Module"}
		for l := 0; l < lessons; l++ {
			mod.Lessons = append(mod.Lessons, OutlineLessonV1{Order: f(float64(lessons - l)), Title: "Lesson", Summary: "s"})
		}
		o.Modules = append(o.Modules, mod)
	}
	return o
}

func TestEnforceOutlineConstraintsLimits(t *testing.T) {
	cases := []struct {
		plan        user.Plan
		wantModules int
	}{
		{user.PlanFree, 2},
		{user.PlanMonthly, 8},
		{user.PlanYearly, 8},
	}
	for _, tc := range cases {
		t.Run(string(tc.plan), func(t *testing.T) {
			out := EnforceOutlineConstraints(rawOutline(12, 9), tc.plan, "en")
			if len(out.Modules) != tc.wantModules {
				t.Fatalf("modules=%d want %d", len(out.Modules), tc.wantModules)
			}
			for mi, m := range out.Modules {
				if m.Order != mi+1 {
					t.Fatalf("module order %d at %d", m.Order, mi)
				}
				if len(m.Lessons) > user.MaxLessonsPerModule {
					t.Fatalf("lessons=%d", len(m.Lessons))
				}
				for li, l := range m.Lessons {
					if l.Order != li+1 {
						t.Fatalf("lesson order %d at %d", l.Order, li)
					}
				}
			}
		})
	}
}

func TestEnforceOutlineConstraintsKeepsReturnedOrder(t *testing.T) {
	o := OutlineV1{Title: "t", Language: "en", Summary: "s", Modules: []OutlineModuleV1{
		{Order: f(3), Title: "Third", Lessons: []OutlineLessonV1{{Order: f(1), Title: "a", Summary: "s"}}},
		{Order: f(1), Title: "First", Lessons: []OutlineLessonV1{
			{Order: f(2), Title: "second", Summary: "s"},
			{Order: f(2), Title: "dup", Summary: "s"},
			{Order: f(0.5), Title: "first", Summary: "s"},
		}},
	}}
	out := EnforceOutlineConstraints(o, user.PlanMonthly, "en")
	if out.Modules[0].Title != "First" || out.Modules[1].Title != "Third" {
		t.Fatalf("module order wrong: %+v", out.Modules)
	}
	got := []string{}
	for _, l := range out.Modules[0].Lessons {
		got = append(got, l.Title)
	}
	if strings.Join(got, ",") != "first,second,dup" {
		t.Fatalf("lesson order=%v", got)
	}
}

func TestEnforceOutlineConstraintsTextAndLanguage(t *testing.T) {
	o := rawOutline(1, 1)
	o.Summary = strings.Repeat("ü", 800)
	o.Language = "not a language"
	out := EnforceOutlineConstraints(o, user.PlanFree, "es")
	if n := len([]rune(out.Summary)); n != MaxSummaryRunes {
		t.Fatalf("summary runes=%d", n)
	}
	if out.Language != "es" {
		t.Fatalf("language=%q", out.Language)
	}
}

func TestSanitizeLessonContent(t *testing.T) {
	in := LessonContentV1{
		Theory:           " theory ",
		Example:          "example",
		Exercise:         "exercise",
		KeyTakeaways:     []string{"a", "", "b", "c", "d", "e", "f", "g", "h"},
		EstimatedMinutes: 500,
		Quiz: []QuizQuestionV1{
			{Question: "ok", Options: []string{"x", "y"}, AnswerIndex: 1},
			{Question: "one option", Options: []string{"x"}, AnswerIndex: 0},
			{Question: "out of range", Options: []string{"x", "y"}, AnswerIndex: 2},
			{Question: "fractional", Options: []string{"x", "y"}, AnswerIndex: 0.5},
			{Question: "", Options: []string{"x", "y"}, AnswerIndex: 0},
		},
	}
	out := SanitizeLessonContent(in, "openai", time.Unix(0, 0))
	if out.Theory != "theory" || out.Provider != "openai" {
		t.Fatalf("unexpected content %+v", out)
	}
	if len(out.KeyTakeaways) != MaxKeyTakeaways {
		t.Fatalf("takeaways=%d", len(out.KeyTakeaways))
	}
	if len(out.Quiz) != 1 || out.Quiz[0].AnswerIndex != 1 {
		t.Fatalf("quiz=%+v", out.Quiz)
	}
	if out.EstimatedMinutes != MaxEstimatedMinutes {
		t.Fatalf("minutes=%d", out.EstimatedMinutes)
	}
	if got := SanitizeLessonContent(LessonContentV1{}, "", time.Now()).EstimatedMinutes; got != MinEstimatedMinutes {
		t.Fatalf("min minutes=%d", got)
	}
}
