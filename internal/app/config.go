package app

import (
	"strings"
	"time"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Config struct {
	Port    string
	AppEnv  string
	LogMode string

	JWTSecretKey   string
	TokenTTL       time.Duration
	CookieSecure   bool
	CookieDomain   string
	AllowedOrigins []string
	PublicBaseURL  string

	GenerationTimeout time.Duration
	OutlineWindow     time.Duration
	LessonWindow      time.Duration
	ChatWindow        time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GoogleClientID string

	MonthlyPriceCents int
	YearlyPriceCents  int

	CertificateMinPercent int
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		AppEnv:  envutil.String("APP_ENV", "development"),
		LogMode: envutil.String("LOG_MODE", "development"),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		TokenTTL:       time.Duration(envutil.Int("AUTH_TOKEN_TTL_HOURS", 24*7)) * time.Hour,
		CookieSecure:   envutil.Bool("COOKIE_SECURE", false),
		CookieDomain:   envutil.String("COOKIE_DOMAIN", ""),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		PublicBaseURL:  envutil.String("PUBLIC_BASE_URL", "http://localhost:5173"),

		GenerationTimeout: envutil.Seconds("GENERATION_TIMEOUT_SECONDS", 15*time.Second),
		OutlineWindow:     rateWindow("OUTLINE_RATE_LIMIT_SECONDS", 5*time.Second),
		LessonWindow:      rateWindow("LESSON_RATE_LIMIT_SECONDS", 3*time.Second),
		ChatWindow:        rateWindow("CHAT_RATE_LIMIT_SECONDS", 2*time.Second),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),

		GoogleClientID: envutil.String("GOOGLE_CLIENT_ID", ""),

		MonthlyPriceCents: envutil.Int("PLAN_MONTHLY_PRICE_CENTS", 999),
		YearlyPriceCents:  envutil.Int("PLAN_YEARLY_PRICE_CENTS", 9900),

		CertificateMinPercent: envutil.Int("CERTIFICATE_MIN_PERCENT", 100),
	}
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set, using an insecure development secret")
		cfg.JWTSecretKey = "defaultsecret"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	return cfg
}

func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// rateWindow reads a window in seconds where 0 disables the limiter.
func rateWindow(name string, def time.Duration) time.Duration {
	n := envutil.Int(name, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
