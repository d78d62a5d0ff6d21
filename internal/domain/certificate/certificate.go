package certificate

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Certificate snapshots the learner name and course title at issuance; neither
// changes afterwards.
type Certificate struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_user_course" json:"user_id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_user_course" json:"course_id"`
	Code        string    `gorm:"not null;uniqueIndex" json:"code"`
	UserName    string    `gorm:"not null" json:"user_name"`
	CourseTitle string    `gorm:"not null" json:"course_title"`
	IssuedAt    time.Time `gorm:"not null" json:"issued_at"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (Certificate) TableName() string { return "certificate" }

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.IssuedAt.IsZero() {
		c.IssuedAt = time.Now().UTC()
	}
	return nil
}
