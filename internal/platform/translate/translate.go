package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gtranslate "google.golang.org/api/translate/v2"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const (
	MaxTexts   = 50
	MaxTextLen = 5000
)

type Translation struct {
	Text           string `json:"text"`
	DetectedSource string `json:"detected_source,omitempty"`
}

type Client interface {
	Translate(ctx context.Context, texts []string, target, source string) ([]Translation, error)
}

type Config struct {
	APIKey   string
	Endpoint string
}

func ConfigFromEnv() Config {
	return Config{APIKey: envutil.String("GOOGLE_API_KEY", "")}
}

type client struct {
	log *logger.Logger
	svc *gtranslate.Service
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GOOGLE_API_KEY")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := gtranslate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("translate service: %w", err)
	}
	return &client{log: log.With("client", "TranslateClient"), svc: svc}, nil
}

// Translate keeps input order. Limits are checked by callers; they are
// enforced again here so the adapter never sends an oversized request.
func (c *client) Translate(ctx context.Context, texts []string, target, source string) ([]Translation, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > MaxTexts {
		return nil, apierr.Newf(apierr.KindValidation, "at most %d texts per request", MaxTexts)
	}
	call := c.svc.Translations.List(texts, target).Format("text").Context(ctx)
	if source != "" {
		call = call.Source(source)
	}
	resp, err := call.Do()
	if err != nil {
		kind := httpx.KindForError(err)
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			kind = httpx.KindForStatus(gErr.Code)
			if gErr.Code == 400 {
				return nil, apierr.Newf(apierr.KindValidation, "unsupported language %q", target)
			}
		}
		return nil, apierr.Upstream(kind, "google_translate", err)
	}
	out := make([]Translation, 0, len(resp.Translations))
	for _, t := range resp.Translations {
		out = append(out, Translation{Text: t.TranslatedText, DetectedSource: t.DetectedSourceLanguage})
	}
	if len(out) != len(texts) {
		return nil, apierr.Upstream(apierr.KindParse, "google_translate",
			fmt.Errorf("expected %d translations, got %d", len(texts), len(out)))
	}
	return out, nil
}
