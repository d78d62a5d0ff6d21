package progress

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Progress, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Progress, error)
	Upsert(ctx context.Context, tx *gorm.DB, p *types.Progress) error
	ResetForCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	repoLog := baseLog.With("repo", "ProgressRepo")
	return &progressRepo{db: db, log: repoLog}
}

// Get returns nil, nil when the user has no progress on the course yet.
func (pr *progressRepo) Get(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Progress, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var p types.Progress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (pr *progressRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Progress, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Progress
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *progressRepo) Upsert(ctx context.Context, tx *gorm.DB, p *types.Progress) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if p == nil {
		return nil
	}
	p.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed_lessons", "percent", "completed_at", "updated_at"}),
		}).
		Create(p).Error
}

// ResetForCourse clears every learner's completion state for a course whose
// outline was replaced.
func (pr *progressRepo) ResetForCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Progress{}).
		Where("course_id = ?", courseID).
		Updates(map[string]any{
			"completed_lessons": datatypes.NewJSONType([]types.LessonKey{}),
			"percent":           0,
			"completed_at":      nil,
			"updated_at":        time.Now().UTC(),
		}).Error
}
