package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/generation"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/ratelimit"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	Course      services.CourseService
	Generation  services.GenerationService
	Progress    services.ProgressService
	Quiz        services.QuizService
	Certificate services.CertificateService
	Billing     services.BillingService
	Translation services.TranslationService
	Media       services.MediaService
	Tutor       services.TutorService

	// RateStore is shared by every limiter; the sweep job trims it when it
	// lives in memory.
	RateStore ratelimit.Store
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	orchestrator, err := generation.NewOrchestrator(log, clients.Primary, clients.Secondary, nil, generation.Config{
		Timeout: cfg.GenerationTimeout,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init generation orchestrator: %w", err)
	}

	var store ratelimit.Store
	if clients.Redis != nil {
		store = ratelimit.NewRedisStore(clients.Redis)
		log.Info("Rate limits shared through redis")
	} else {
		store = ratelimit.NewMemoryStore()
	}
	outlineLimiter := ratelimit.NewLimiter(store, log, "outline", cfg.OutlineWindow, "generating another outline")
	lessonLimiter := ratelimit.NewLimiter(store, log, "lessons", cfg.LessonWindow, "generating more lessons")
	chatLimiter := ratelimit.NewLimiter(store, log, "chat", cfg.ChatWindow, "sending another message")

	mediaService := services.NewMediaService(log, clients.Images, clients.Videos)

	return Services{
		Auth: services.NewAuthService(
			db, log, repos.User, clients.Google, clients.Mailer,
			cfg.JWTSecretKey, cfg.TokenTTL, cfg.PublicBaseURL,
		),
		Course: services.NewCourseService(db, log, repos.Course, repos.Progress),
		Generation: services.NewGenerationService(
			db, log, repos.User, repos.Course, repos.Progress, repos.QuizResponse,
			orchestrator, mediaService, outlineLimiter, lessonLimiter,
		),
		Progress: services.NewProgressService(db, log, repos.Course, repos.Progress),
		Quiz:     services.NewQuizService(db, log, repos.Course, repos.QuizResponse),
		Certificate: services.NewCertificateService(
			db, log, repos.User, repos.Course, repos.Progress, repos.Certificate,
			clients.Renderer, cfg.CertificateMinPercent, cfg.PublicBaseURL,
		),
		Billing: services.NewBillingService(db, log, repos.User, repos.PaymentEvent, clients.Webhooks, services.PlanPrices{
			MonthlyCents: cfg.MonthlyPriceCents,
			YearlyCents:  cfg.YearlyPriceCents,
		}),
		Translation: services.NewTranslationService(db, log, repos.User, repos.Course, clients.Translator),
		Media:       mediaService,
		Tutor:       services.NewTutorService(db, log, repos.Course, orchestrator, chatLimiter),
		RateStore:   store,
	}, nil
}
