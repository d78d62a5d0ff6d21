package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	Course       repos.CourseRepo
	Progress     repos.ProgressRepo
	QuizResponse repos.QuizResponseRepo
	Certificate  repos.CertificateRepo
	PaymentEvent repos.PaymentEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Course:       repos.NewCourseRepo(db, log),
		Progress:     repos.NewProgressRepo(db, log),
		QuizResponse: repos.NewQuizResponseRepo(db, log),
		Certificate:  repos.NewCertificateRepo(db, log),
		PaymentEvent: repos.NewPaymentEventRepo(db, log),
	}
}
