package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/coursegen-backend/internal/platform/billing"
	"github.com/yungbote/coursegen-backend/internal/platform/certpdf"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/media"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/platform/openaicompat"
	"github.com/yungbote/coursegen-backend/internal/platform/sendgrid"
	"github.com/yungbote/coursegen-backend/internal/platform/translate"
	"github.com/yungbote/coursegen-backend/internal/services"
)

// Clients holds the outbound adapters. Everything except Primary is optional
// and left nil when its credentials are missing.
type Clients struct {
	Primary   openai.Client
	Secondary openai.Client

	Images     media.ImageSearcher
	Videos     media.VideoSearcher
	Translator translate.Client
	Mailer     sendgrid.Client
	Webhooks   services.WebhookParser
	Google     services.GoogleVerifier
	Renderer   *certpdf.Renderer

	Redis *redis.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// AI providers
	primary, err := openai.New(log, openai.ConfigFromEnv())
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	out.Primary = primary
	if sc := openaicompat.ConfigFromEnv(); sc.Configured() {
		secondary, err := openaicompat.New(log, sc)
		if err != nil {
			return Clients{}, fmt.Errorf("init secondary ai client: %w", err)
		}
		out.Secondary = secondary
	} else {
		log.Info("Secondary AI provider not configured")
	}

	// Media
	if unsplash, err := media.NewUnsplash(log, media.UnsplashConfigFromEnv()); err == nil {
		out.Images = unsplash
	} else {
		log.Warn("Image search disabled", "error", err)
	}
	if yt, err := media.NewYouTube(ctx, log, media.YouTubeConfigFromEnv()); err == nil {
		out.Videos = yt
	} else {
		log.Warn("Video search disabled", "error", err)
	}

	// Translation
	if tr, err := translate.New(ctx, log, translate.ConfigFromEnv()); err == nil {
		out.Translator = tr
	} else {
		log.Warn("Translation disabled", "error", err)
	}

	// Email
	if mailer, err := sendgrid.New(log, sendgrid.ConfigFromEnv()); err == nil {
		out.Mailer = mailer
	} else {
		log.Warn("Email disabled", "error", err)
	}

	// Payments
	if verifier, err := billing.NewWebhookVerifier(billing.ConfigFromEnv()); err == nil {
		out.Webhooks = verifier
	} else {
		log.Warn("Stripe webhooks disabled", "error", err)
	}

	// Google login
	if g := services.NewGoogleVerifier(cfg.GoogleClientID); g != nil {
		out.Google = g
	}

	// Certificates
	renderer, err := certpdf.NewRenderer()
	if err != nil {
		return Clients{}, fmt.Errorf("init certificate renderer: %w", err)
	}
	out.Renderer = renderer

	// Redis
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("ping redis: %w", err)
		}
		out.Redis = rdb
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
