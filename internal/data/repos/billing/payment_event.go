package billing

import (
	"context"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentEventRepo interface {
	// Record stores the event id and reports false when it was already processed.
	Record(ctx context.Context, tx *gorm.DB, ev *types.PaymentEvent) (bool, error)
}

type paymentEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentEventRepo(db *gorm.DB, baseLog *logger.Logger) PaymentEventRepo {
	repoLog := baseLog.With("repo", "PaymentEventRepo")
	return &paymentEventRepo{db: db, log: repoLog}
}

func (pr *paymentEventRepo) Record(ctx context.Context, tx *gorm.DB, ev *types.PaymentEvent) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_event_id"}},
			DoNothing: true,
		}).
		Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
