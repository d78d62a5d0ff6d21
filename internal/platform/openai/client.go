package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/promptstyle"
)

// Message is one chat turn. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the text generation surface shared by every AI provider adapter.
// Errors are *apierr.Error values tagged with an upstream kind.
type Client interface {
	Name() string

	// GenerateJSON returns the raw JSON text produced under a strict json_schema format.
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, temperature float64) (string, error)

	// GenerateText returns plain text for a system prompt and a conversation.
	GenerateText(ctx context.Context, system string, messages []Message, temperature float64) (string, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int

	// DisableTemperature omits temperature on every request.
	DisableTemperature bool
	// NoTemperatureModels lists models that reject temperature; "o3-*" matches by prefix.
	NoTemperatureModels []string
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:              envutil.String("OPENAI_API_KEY", ""),
		BaseURL:             envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:               envutil.String("OPENAI_MODEL", "gpt-4.1-mini"),
		Timeout:             envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries:          envutil.Int("OPENAI_MAX_RETRIES", 2),
		DisableTemperature:  envutil.Bool("OPENAI_DISABLE_TEMPERATURE", false),
		NoTemperatureModels: envutil.List("OPENAI_NO_TEMPERATURE_MODELS", nil),
	}
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int

	disableTemperature bool
	noTempModels       map[string]bool
	noTempPrefixes     []string

	// Models that rejected temperature at runtime.
	noTempMu   sync.RWMutex
	noTempSeen map[string]time.Time
	noTempTTL  time.Duration
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	models, prefixes := parseNoTempModelRules(cfg.NoTemperatureModels)
	return &client{
		log:                log.With("client", "OpenAIClient"),
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:             cfg.APIKey,
		model:              cfg.Model,
		httpClient:         &http.Client{Timeout: cfg.Timeout},
		maxRetries:         cfg.MaxRetries,
		disableTemperature: cfg.DisableTemperature,
		noTempModels:       models,
		noTempPrefixes:     prefixes,
		noTempSeen:         map[string]time.Time{},
		noTempTTL:          6 * time.Hour,
	}, nil
}

func (c *client) Name() string { return "openai" }

func normalizeModelKey(m string) string {
	return strings.ToLower(strings.TrimSpace(m))
}

func parseNoTempModelRules(rules []string) (map[string]bool, []string) {
	m := map[string]bool{}
	var prefixes []string
	for _, part := range rules {
		s := normalizeModelKey(part)
		if s == "" {
			continue
		}
		if strings.HasSuffix(s, "*") {
			if p := strings.TrimRight(strings.TrimSuffix(s, "*"), "-_./:"); p != "" {
				prefixes = append(prefixes, p)
			}
			continue
		}
		m[s] = true
	}
	return m, prefixes
}

func (c *client) modelIsNoTemp(model string) bool {
	m := normalizeModelKey(model)
	if c.noTempModels[m] {
		return true
	}
	for _, p := range c.noTempPrefixes {
		if strings.HasPrefix(m, p) {
			return true
		}
	}
	c.noTempMu.RLock()
	ts, ok := c.noTempSeen[m]
	c.noTempMu.RUnlock()
	return ok && time.Since(ts) < c.noTempTTL
}

func (c *client) noteNoTempModel(model string) {
	c.noTempMu.Lock()
	c.noTempSeen[normalizeModelKey(model)] = time.Now().UTC()
	c.noTempMu.Unlock()
}

func (c *client) applyTemperature(req *responsesRequest, temperature float64) {
	if c.disableTemperature || temperature <= 0 || c.modelIsNoTemp(req.Model) {
		return
	}
	req.Temperature = &temperature
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func isUnsupportedTemperatureParam(err error) bool {
	var httpErr *openAIHTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(httpErr.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, frag := range []string{"unsupported", "unknown parameter", "unrecognized", "not supported", "does not support", "only the default"} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// do posts body with retries on retryable statuses. Sleeps respect ctx.
func (c *client) do(ctx context.Context, path string, body any, out any) error {
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return apierr.Upstream(apierr.KindParse, c.Name(), fmt.Errorf("openai decode: %w", uErr))
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.maxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 4*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
}

// respond runs one Responses API call, retrying once without temperature
// when the model rejects it, and classifies the final error.
func (c *client) respond(ctx context.Context, req *responsesRequest) (responsesResponse, error) {
	ctx, span := otel.Tracer("coursegen/openai").Start(ctx, "openai.responses")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", req.Model))

	var resp responsesResponse
	err := c.do(ctx, "/v1/responses", req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureParam(err) {
		c.noteNoTempModel(req.Model)
		req.Temperature = nil
		resp = responsesResponse{}
		err = c.do(ctx, "/v1/responses", req, &resp)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "openai request failed")
		return resp, apierr.Upstream(httpx.KindForError(err), c.Name(), err)
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
		attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
	)
	if resp.Refusal != "" {
		return resp, apierr.Upstream(apierr.KindParse, c.Name(), fmt.Errorf("model refused: %s", resp.Refusal))
	}
	return resp, nil
}

type inputItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model string      `json:"model"`
	Input []inputItem `json:"input"`
	Text  *struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				out.WriteString(c.Text)
			}
		}
	}
	return out.String()
}

func (c *client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, temperature float64) (string, error) {
	if schemaName == "" || schema == nil {
		return "", errors.New("openai: schema name and schema are required")
	}
	req := &responsesRequest{
		Model: c.model,
		Input: []inputItem{
			{Role: "system", Content: promptstyle.ApplySystem(system, promptstyle.ModeJSON)},
			{Role: "user", Content: user},
		},
	}
	req.Text = &struct {
		Format map[string]any `json:"format,omitempty"`
	}{Format: map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}}
	c.applyTemperature(req, temperature)

	resp, err := c.respond(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(extractOutputText(resp))
	if text == "" {
		return "", apierr.Upstream(apierr.KindParse, c.Name(), errors.New("no output_text in response"))
	}
	return text, nil
}

func (c *client) GenerateText(ctx context.Context, system string, messages []Message, temperature float64) (string, error) {
	req := &responsesRequest{
		Model: c.model,
		Input: []inputItem{{Role: "system", Content: promptstyle.ApplySystem(system, promptstyle.ModeChat)}},
	}
	for _, m := range messages {
		req.Input = append(req.Input, inputItem{Role: m.Role, Content: m.Content})
	}
	c.applyTemperature(req, temperature)

	resp, err := c.respond(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(extractOutputText(resp))
	if text == "" {
		return "", apierr.Upstream(apierr.KindParse, c.Name(), errors.New("no output_text in response"))
	}
	return text, nil
}
