package quiz

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuizResponse is unique on (user, course, module, lesson, question).
type QuizResponse struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_response_key,priority:1" json:"user_id"`
	CourseID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_response_key,priority:2;index" json:"course_id"`
	ModuleOrder   int       `gorm:"not null;uniqueIndex:idx_quiz_response_key,priority:3" json:"module_order"`
	LessonOrder   int       `gorm:"not null;uniqueIndex:idx_quiz_response_key,priority:4" json:"lesson_order"`
	QuestionIndex int       `gorm:"not null;uniqueIndex:idx_quiz_response_key,priority:5" json:"question_index"`
	SelectedIndex int       `gorm:"not null" json:"selected_index"`
	IsCorrect     bool      `gorm:"not null" json:"is_correct"`
	Score         int       `gorm:"not null;default:0" json:"score"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (QuizResponse) TableName() string { return "quiz_response" }

func (q *QuizResponse) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
