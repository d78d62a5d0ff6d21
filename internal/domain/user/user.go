package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Provider  Provider  `gorm:"not null;default:'local';column:provider" json:"provider"`
	Password  string    `gorm:"column:password" json:"-"`
	FirstName string    `gorm:"not null;default:'';column:first_name" json:"first_name"`
	LastName  string    `gorm:"not null;default:'';column:last_name" json:"last_name"`

	Plan             Plan       `gorm:"not null;default:'free';column:plan" json:"plan"`
	PlanRenewsAt     *time.Time `gorm:"column:plan_renews_at" json:"plan_renews_at,omitempty"`
	StripeCustomerID string     `gorm:"index;column:stripe_customer_id" json:"-"`

	ResetTokenHash      string     `gorm:"index;column:reset_token_hash" json:"-"`
	ResetTokenExpiresAt *time.Time `gorm:"column:reset_token_expires_at" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Plan == "" {
		u.Plan = PlanFree
	}
	if u.Provider == "" {
		u.Provider = ProviderLocal
	}
	return nil
}

// DisplayName is the name printed on certificates.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
