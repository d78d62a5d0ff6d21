package db

import (
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity
		&types.User{},

		// Courses
		&types.Course{},
		&types.Progress{},
		&types.QuizResponse{},
		&types.Certificate{},

		// Billing
		&types.PaymentEvent{},
	)
}
