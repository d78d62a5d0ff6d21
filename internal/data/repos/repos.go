package repos

import (
	"github.com/yungbote/coursegen-backend/internal/data/repos/billing"
	"github.com/yungbote/coursegen-backend/internal/data/repos/certificate"
	"github.com/yungbote/coursegen-backend/internal/data/repos/course"
	"github.com/yungbote/coursegen-backend/internal/data/repos/progress"
	"github.com/yungbote/coursegen-backend/internal/data/repos/quiz"
	"github.com/yungbote/coursegen-backend/internal/data/repos/user"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo

type CourseRepo = course.CourseRepo
type OutlineUpdate = course.OutlineUpdate

type ProgressRepo = progress.ProgressRepo
type QuizResponseRepo = quiz.QuizResponseRepo
type CertificateRepo = certificate.CertificateRepo
type PaymentEventRepo = billing.PaymentEventRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return course.NewCourseRepo(db, baseLog)
}
func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return progress.NewProgressRepo(db, baseLog)
}
func NewQuizResponseRepo(db *gorm.DB, baseLog *logger.Logger) QuizResponseRepo {
	return quiz.NewQuizResponseRepo(db, baseLog)
}
func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	return certificate.NewCertificateRepo(db, baseLog)
}
func NewPaymentEventRepo(db *gorm.DB, baseLog *logger.Logger) PaymentEventRepo {
	return billing.NewPaymentEventRepo(db, baseLog)
}
