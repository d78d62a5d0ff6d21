// Package openaicompat adapts any OpenAI-compatible chat completions endpoint
// (Groq, Together, a self-hosted gateway) as the secondary generation provider.
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/platform/promptstyle"
)

type Config struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Name:    envutil.String("SECONDARY_AI_NAME", "secondary"),
		APIKey:  envutil.String("SECONDARY_AI_API_KEY", ""),
		BaseURL: envutil.String("SECONDARY_AI_BASE_URL", ""),
		Model:   envutil.String("SECONDARY_AI_MODEL", goopenai.GPT4oMini),
		Timeout: envutil.Seconds("SECONDARY_AI_TIMEOUT_SECONDS", 30*time.Second),
	}
}

// Configured reports whether a secondary provider was set up.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type client struct {
	log   *logger.Logger
	name  string
	model string
	api   *goopenai.Client
}

// New returns an openai.Client backed by go-openai's chat completions API.
func New(log *logger.Logger, cfg Config) (openai.Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("missing SECONDARY_AI_API_KEY")
	}
	conf := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		conf.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	name := cfg.Name
	if name == "" {
		name = "secondary"
	}
	model := cfg.Model
	if model == "" {
		model = goopenai.GPT4oMini
	}
	return &client{
		log:   log.With("client", "OpenAICompatClient", "provider", name),
		name:  name,
		model: model,
		api:   goopenai.NewClientWithConfig(conf),
	}, nil
}

func (c *client) Name() string { return c.name }

func (c *client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, temperature float64) (string, error) {
	// json_schema support varies across compatible servers; json_object plus the
	// schema in the prompt is accepted everywhere.
	schemaText, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema %s: %w", schemaName, err)
	}
	sys := promptstyle.ApplySystem(system, promptstyle.ModeJSON) +
		"\n\nJSON schema (" + schemaName + "):\n" + string(schemaText)

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: sys},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature:    float32(temperature),
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", c.classify(err)
	}
	return c.firstChoice(resp)
}

func (c *client) GenerateText(ctx context.Context, system string, messages []openai.Message, temperature float64) (string, error) {
	msgs := []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: promptstyle.ApplySystem(system, promptstyle.ModeChat)},
	}
	for _, m := range messages {
		role := goopenai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = goopenai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: float32(temperature),
	})
	if err != nil {
		return "", c.classify(err)
	}
	return c.firstChoice(resp)
}

func (c *client) firstChoice(resp goopenai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", apierr.Upstream(apierr.KindParse, c.name, errors.New("no choices in response"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", apierr.Upstream(apierr.KindParse, c.name, errors.New("empty completion"))
	}
	return text, nil
}

// classify maps go-openai errors onto upstream kinds.
func (c *client) classify(err error) error {
	kind := httpx.KindForError(err)
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		kind = httpx.KindForStatus(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		kind = httpx.KindForStatus(reqErr.HTTPStatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = apierr.KindTimeout
	}
	c.log.Warn("secondary provider call failed", "kind", kind.String(), "error", err)
	return apierr.Upstream(kind, c.name, err)
}
