package course

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutlineUpdate is the set of fields replaced when an outline is regenerated.
type OutlineUpdate struct {
	Title    string
	Topic    string
	Language string
	Summary  string
	Modules  []types.Module
}

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Course, error)
	ListPublic(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Course, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	ReplaceOutline(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, update OutlineUpdate) error
	UpdateModules(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, modules []types.Module) error
	UpdateVisibility(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, visibility types.Visibility) error
	Delete(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (cr *courseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if len(courses) == 0 {
		return []*types.Course{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// GetByID returns nil, nil when the course does not exist.
func (cr *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var c types.Course
	err := transaction.WithContext(ctx).Where("id = ?", courseID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByIDForUpdate locks the row on Postgres. SQLite serializes writers already.
func (cr *courseRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	q := transaction.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var c types.Course
	err := q.Where("id = ?", courseID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (cr *courseRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.Course
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *courseRepo) ListPublic(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var results []*types.Course
	if err := transaction.WithContext(ctx).
		Where("visibility = ?", types.VisibilityPublic).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *courseRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (cr *courseRepo) ReplaceOutline(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, update OutlineUpdate) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	c := types.Course{}
	c.SetModules(update.Modules)
	return transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]any{
			"title":      update.Title,
			"topic":      update.Topic,
			"language":   update.Language,
			"summary":    update.Summary,
			"modules":    c.Modules,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (cr *courseRepo) UpdateModules(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, modules []types.Module) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	c := types.Course{}
	c.SetModules(modules)
	return transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]any{
			"modules":    c.Modules,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (cr *courseRepo) UpdateVisibility(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, visibility types.Visibility) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]any{
			"visibility": visibility,
			"updated_at": time.Now().UTC(),
		}).Error
}

// Delete removes the course together with its progress and quiz rows.
// Certificates survive so issued codes keep verifying.
func (cr *courseRepo) Delete(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Where("course_id = ?", courseID).Delete(&types.QuizResponse{}).Error; err != nil {
			return err
		}
		if err := inner.Where("course_id = ?", courseID).Delete(&types.Progress{}).Error; err != nil {
			return err
		}
		return inner.Where("id = ?", courseID).Delete(&types.Course{}).Error
	})
}
