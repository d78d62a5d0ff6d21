package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityUnlisted, VisibilityPublic:
		return true
	}
	return false
}

type Course struct {
	ID         uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID                    `gorm:"type:uuid;not null;index" json:"user_id"`
	Title      string                       `gorm:"not null" json:"title"`
	Topic      string                       `gorm:"not null;default:''" json:"topic"`
	Language   string                       `gorm:"not null;default:'en'" json:"language"`
	Summary    string                       `gorm:"type:text" json:"summary"`
	Visibility Visibility                   `gorm:"not null;default:'private';index" json:"visibility"`
	Modules    datatypes.JSONType[[]Module] `gorm:"column:modules" json:"modules"`
	CreatedAt  time.Time                    `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time                    `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Visibility == "" {
		c.Visibility = VisibilityPrivate
	}
	return nil
}

type Module struct {
	Order   int      `json:"order"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

type Lesson struct {
	Order   int            `json:"order"`
	Title   string         `json:"title"`
	Summary string         `json:"summary,omitempty"`
	Content *LessonContent `json:"content,omitempty"`
}

type LessonContent struct {
	Theory           string         `json:"theory"`
	Example          string         `json:"example"`
	Exercise         string         `json:"exercise"`
	KeyTakeaways     []string       `json:"key_takeaways"`
	Media            []MediaItem    `json:"media,omitempty"`
	Quiz             []QuizQuestion `json:"quiz"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	Provider         string         `json:"provider,omitempty"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

type MediaItem struct {
	Kind      MediaKind `json:"kind"`
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Source    string    `json:"source,omitempty"`
	Credit    string    `json:"credit,omitempty"`
}

type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
}

// LessonKey identifies a lesson inside a course by its orders.
type LessonKey struct {
	ModuleOrder int `json:"module_order"`
	LessonOrder int `json:"lesson_order"`
}
