package quiz

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizResponseRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, responses []*types.QuizResponse) error
	ListByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*types.QuizResponse, error)
	ListByLesson(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, key types.LessonKey) ([]*types.QuizResponse, error)
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type quizResponseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizResponseRepo(db *gorm.DB, baseLog *logger.Logger) QuizResponseRepo {
	repoLog := baseLog.With("repo", "QuizResponseRepo")
	return &quizResponseRepo{db: db, log: repoLog}
}

var conflictKey = []clause.Column{
	{Name: "user_id"},
	{Name: "course_id"},
	{Name: "module_order"},
	{Name: "lesson_order"},
	{Name: "question_index"},
}

// Upsert writes responses, overwriting any earlier answer to the same question.
func (qr *quizResponseRepo) Upsert(ctx context.Context, tx *gorm.DB, responses []*types.QuizResponse) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	if len(responses) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, r := range responses {
		r.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictKey,
			DoUpdates: clause.AssignmentColumns([]string{"selected_index", "is_correct", "score", "updated_at"}),
		}).
		Create(&responses).Error
}

func (qr *quizResponseRepo) ListByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) ([]*types.QuizResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var results []*types.QuizResponse
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("module_order, lesson_order, question_index").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quizResponseRepo) ListByLesson(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, key types.LessonKey) ([]*types.QuizResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var results []*types.QuizResponse
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND module_order = ? AND lesson_order = ?",
			userID, courseID, key.ModuleOrder, key.LessonOrder).
		Order("question_index").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quizResponseRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	return transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.QuizResponse{}).Error
}
