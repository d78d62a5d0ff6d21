package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, plan types.Plan) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Provider:  types.ProviderLocal,
		Password:  "pw",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Plan:      plan,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SampleModules builds n modules with lessonsPer lessons each, numbered from 1.
// Every lesson carries a two-question quiz whose correct answers are 1 and 0.
func SampleModules(n, lessonsPer int) []types.Module {
	mods := make([]types.Module, 0, n)
	for m := 1; m <= n; m++ {
		mod := types.Module{Order: m, Title: fmt.Sprintf("Module %d", m)}
		for l := 1; l <= lessonsPer; l++ {
			mod.Lessons = append(mod.Lessons, types.Lesson{
				Order:   l,
				Title:   fmt.Sprintf("Lesson %d.%d", m, l),
				Summary: "summary",
				Content: &types.LessonContent{
					Theory:   "theory",
					Example:  "example",
					Exercise: "exercise",
					Quiz: []types.QuizQuestion{
						{Question: "q1", Options: []string{"a", "b", "c"}, AnswerIndex: 1},
						{Question: "q2", Options: []string{"a", "b"}, AnswerIndex: 0},
					},
				},
			})
		}
		mods = append(mods, mod)
	}
	return mods
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, vis types.Visibility, mods []types.Module) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      "Intro to Python",
		Topic:      "Intro to Python",
		Language:   "en",
		Summary:    "A first course.",
		Visibility: vis,
	}
	c.SetModules(mods)
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}
