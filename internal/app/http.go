package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/http"
	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const serviceName = "coursegen-backend"

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Auth        *httpH.AuthHandler
	Course      *httpH.CourseHandler
	Progress    *httpH.ProgressHandler
	Quiz        *httpH.QuizHandler
	Certificate *httpH.CertificateHandler
	Billing     *httpH.BillingHandler
	Translate   *httpH.TranslateHandler
	Media       *httpH.MediaHandler
	Chat        *httpH.ChatHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		Auth: httpH.NewAuthHandler(services.Auth, httpH.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		}),
		Course:      httpH.NewCourseHandler(services.Course, services.Generation, services.Translation),
		Progress:    httpH.NewProgressHandler(services.Progress),
		Quiz:        httpH.NewQuizHandler(services.Quiz),
		Certificate: httpH.NewCertificateHandler(services.Certificate),
		Billing:     httpH.NewBillingHandler(services.Billing),
		Translate:   httpH.NewTranslateHandler(services.Translation),
		Media:       httpH.NewMediaHandler(services.Media),
		Chat:        httpH.NewChatHandler(services.Tutor),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	return http.NewServer(http.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ServiceName:        serviceName,
		AllowedOrigins:     cfg.AllowedOrigins,
		HealthHandler:      handlers.Health,
		AuthHandler:        handlers.Auth,
		AuthMiddleware:     middleware.Auth,
		CourseHandler:      handlers.Course,
		ProgressHandler:    handlers.Progress,
		QuizHandler:        handlers.Quiz,
		CertificateHandler: handlers.Certificate,
		BillingHandler:     handlers.Billing,
		TranslateHandler:   handlers.Translate,
		MediaHandler:       handlers.Media,
		ChatHandler:        handlers.Chat,
	})
}
