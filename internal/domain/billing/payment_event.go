package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentEvent records processed Stripe webhook events by id.
type PaymentEvent struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StripeEventID string     `gorm:"not null;uniqueIndex" json:"stripe_event_id"`
	Type          string     `gorm:"not null;index" json:"type"`
	UserID        *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ProcessedAt   time.Time  `gorm:"not null" json:"processed_at"`
}

func (PaymentEvent) TableName() string { return "payment_event" }

func (p *PaymentEvent) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ProcessedAt.IsZero() {
		p.ProcessedAt = time.Now().UTC()
	}
	return nil
}
