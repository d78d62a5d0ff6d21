package progress

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursegen-backend/internal/domain/course"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Progress struct {
	ID               uuid.UUID                              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID                              `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_course" json:"user_id"`
	CourseID         uuid.UUID                              `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_course;index" json:"course_id"`
	CompletedLessons datatypes.JSONType[[]course.LessonKey] `gorm:"column:completed_lessons" json:"completed_lessons"`
	Percent          int                                    `gorm:"not null;default:0" json:"percent"`
	CompletedAt      *time.Time                             `json:"completed_at,omitempty"`
	CreatedAt        time.Time                              `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time                              `gorm:"not null" json:"updated_at"`
}

func (Progress) TableName() string { return "course_progress" }

func (p *Progress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Progress) Completed() []course.LessonKey {
	if p == nil {
		return []course.LessonKey{}
	}
	keys := p.CompletedLessons.Data()
	if keys == nil {
		return []course.LessonKey{}
	}
	return keys
}
