package certificate

import (
	"context"
	"errors"

	"github.com/google/uuid"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateRepo interface {
	// CreateIfAbsent inserts cert unless one exists for its (user, course) or code.
	// It reports whether a row was written.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, cert *types.Certificate) (bool, error)
	GetByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Certificate, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Certificate, error)
	CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	repoLog := baseLog.With("repo", "CertificateRepo")
	return &certificateRepo{db: db, log: repoLog}
}

func (cr *certificateRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, cert *types.Certificate) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(cert)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (cr *certificateRepo) GetByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Certificate, error) {
	return cr.first(ctx, tx, "user_id = ? AND course_id = ?", userID, courseID)
}

func (cr *certificateRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Certificate, error) {
	if code == "" {
		return nil, nil
	}
	return cr.first(ctx, tx, "code = ?", code)
}

func (cr *certificateRepo) CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Certificate{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (cr *certificateRepo) first(ctx context.Context, tx *gorm.DB, query string, args ...any) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var c types.Certificate
	err := transaction.WithContext(ctx).Where(query, args...).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
