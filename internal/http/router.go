package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	CourseHandler      *httpH.CourseHandler
	ProgressHandler    *httpH.ProgressHandler
	QuizHandler        *httpH.QuizHandler
	CertificateHandler *httpH.CertificateHandler
	BillingHandler     *httpH.BillingHandler
	TranslateHandler   *httpH.TranslateHandler
	MediaHandler       *httpH.MediaHandler
	ChatHandler        *httpH.ChatHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", func(c *gin.Context) {
			c.Header("Content-Type", "text/plain; version=0.0.4")
			c.Status(http.StatusOK)
			_ = cfg.Metrics.WritePrometheus(c.Writer)
		})
	}

	// Certificate verification (public, JSON or HTML)
	if cfg.CertificateHandler != nil {
		r.GET("/verify/:code", cfg.CertificateHandler.Verify)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/signup", cfg.AuthHandler.Signup)
			api.POST("/auth/login", cfg.AuthHandler.Login)
			api.POST("/auth/google", cfg.AuthHandler.Google)
			api.POST("/auth/forgot-password", cfg.AuthHandler.ForgotPassword)
			api.POST("/auth/reset-password", cfg.AuthHandler.ResetPassword)
			api.POST("/auth/logout", cfg.AuthHandler.Logout)
		}

		// Payments (public)
		if cfg.BillingHandler != nil {
			api.GET("/payments/plans", cfg.BillingHandler.Plans)
			api.POST("/payments/webhook", cfg.BillingHandler.Webhook)
		}

		if cfg.CertificateHandler != nil {
			api.GET("/certificates/verify/:code", cfg.CertificateHandler.Verify)
		}

		// Courses readable without an account
		if cfg.CourseHandler != nil {
			api.GET("/public/courses", cfg.CourseHandler.ListPublicCourses)
			if cfg.AuthMiddleware != nil {
				api.GET("/courses/:id", cfg.AuthMiddleware.OptionalAuth(), cfg.CourseHandler.GetCourse)
			} else {
				api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
			}
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// User (Me)
		if cfg.AuthHandler != nil {
			protected.GET("/me", cfg.AuthHandler.Me)
		}

		// Course
		if cfg.CourseHandler != nil {
			protected.GET("/courses", cfg.CourseHandler.ListUserCourses)
			protected.POST("/courses/generate", cfg.CourseHandler.GenerateOutline)
			protected.POST("/courses/:id/lessons/generate", cfg.CourseHandler.GenerateLessons)
			protected.PATCH("/courses/:id/visibility", cfg.CourseHandler.SetVisibility)
			protected.DELETE("/courses/:id", cfg.CourseHandler.DeleteCourse)
			protected.POST("/courses/:id/translate", cfg.CourseHandler.TranslateCourse)
		}

		// Progress
		if cfg.ProgressHandler != nil {
			protected.GET("/courses/:id/progress", cfg.ProgressHandler.GetProgress)
			protected.POST("/courses/:id/progress", cfg.ProgressHandler.SetLesson)
			protected.PUT("/courses/:id/progress", cfg.ProgressHandler.ReplaceProgress)
		}

		// Quiz
		if cfg.QuizHandler != nil {
			protected.GET("/courses/:id/quiz", cfg.QuizHandler.GetLessonQuiz)
			protected.POST("/courses/:id/quiz", cfg.QuizHandler.SubmitAnswer)
			protected.POST("/courses/:id/quiz/batch", cfg.QuizHandler.SubmitBatch)
		}

		// Certificate
		if cfg.CertificateHandler != nil {
			protected.GET("/courses/:id/certificate", cfg.CertificateHandler.GetCertificate)
		}

		// Translation
		if cfg.TranslateHandler != nil {
			protected.POST("/translate", cfg.TranslateHandler.Translate)
		}

		// Media
		if cfg.MediaHandler != nil {
			protected.GET("/media/images", cfg.MediaHandler.Images)
			protected.GET("/media/videos", cfg.MediaHandler.Videos)
			protected.GET("/media/search", cfg.MediaHandler.Search)
		}

		// Tutor chat
		if cfg.ChatHandler != nil {
			protected.POST("/chat", cfg.ChatHandler.Chat)
		}
	}

	return r
}
