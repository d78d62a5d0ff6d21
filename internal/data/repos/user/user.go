package user

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

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
	GetByEmails(ctx context.Context, tx *gorm.DB, userEmails []string) ([]*types.User, error)
	GetByStripeCustomerID(ctx context.Context, tx *gorm.DB, customerID string) (*types.User, error)
	GetByResetTokenHash(ctx context.Context, tx *gorm.DB, tokenHash string, now time.Time) (*types.User, error)
	EmailExists(ctx context.Context, tx *gorm.DB, userEmail string) (bool, error)
	UpdatePlan(ctx context.Context, tx *gorm.DB, userID uuid.UUID, plan types.Plan, renewsAt *time.Time) error
	UpdateStripeCustomerID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, customerID string) error
	UpdatePassword(ctx context.Context, tx *gorm.DB, userID uuid.UUID, passwordHash string) error
	SetResetToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ClearExpiredResetTokens(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ur.db
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	if err := ur.conn(tx).WithContext(ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := ur.conn(tx).WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByIDForUpdate locks the user row on Postgres until tx ends. Writes that
// depend on per-user counts take it first.
func (ur *userRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	q := ur.conn(tx).WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var u types.User
	err := q.Where("id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) GetByEmails(ctx context.Context, tx *gorm.DB, userEmails []string) ([]*types.User, error) {
	var results []*types.User
	if len(userEmails) == 0 {
		return results, nil
	}
	normalized := make([]string, 0, len(userEmails))
	for _, e := range userEmails {
		normalized = append(normalized, types.NormalizeEmail(e))
	}
	if err := ur.conn(tx).WithContext(ctx).
		Where("email IN ?", normalized).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) GetByStripeCustomerID(ctx context.Context, tx *gorm.DB, customerID string) (*types.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return ur.first(ctx, tx, "stripe_customer_id = ?", customerID)
}

func (ur *userRepo) GetByResetTokenHash(ctx context.Context, tx *gorm.DB, tokenHash string, now time.Time) (*types.User, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return ur.first(ctx, tx, "reset_token_hash = ? AND reset_token_expires_at > ?", tokenHash, now)
}

// first returns nil, nil when nothing matches.
func (ur *userRepo) first(ctx context.Context, tx *gorm.DB, query string, args ...any) (*types.User, error) {
	var u types.User
	err := ur.conn(tx).WithContext(ctx).Where(query, args...).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, userEmail string) (bool, error) {
	var count int64
	if err := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("email = ?", types.NormalizeEmail(userEmail)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) UpdatePlan(ctx context.Context, tx *gorm.DB, userID uuid.UUID, plan types.Plan, renewsAt *time.Time) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"plan":           plan,
			"plan_renews_at": renewsAt,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (ur *userRepo) UpdateStripeCustomerID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, customerID string) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customerID).Error
}

func (ur *userRepo) UpdatePassword(ctx context.Context, tx *gorm.DB, userID uuid.UUID, passwordHash string) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password":               passwordHash,
			"reset_token_hash":       "",
			"reset_token_expires_at": nil,
			"updated_at":             time.Now().UTC(),
		}).Error
}

func (ur *userRepo) SetResetToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"reset_token_hash":       tokenHash,
			"reset_token_expires_at": expiresAt,
		}).Error
}

func (ur *userRepo) ClearExpiredResetTokens(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	res := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("reset_token_hash <> '' AND reset_token_expires_at <= ?", now).
		Updates(map[string]any{
			"reset_token_hash":       "",
			"reset_token_expires_at": nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		ur.log.Info("cleared expired reset tokens", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
