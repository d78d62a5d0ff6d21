package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Client interface {
	Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error)
}

type Config struct {
	APIKey           string
	Host             string
	DefaultFromEmail string
	DefaultFromName  string
	MaxRetries       int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:           envutil.String("SENDGRID_API_KEY", ""),
		Host:             envutil.String("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
		DefaultFromEmail: envutil.String("SENDGRID_FROM_EMAIL", ""),
		DefaultFromName:  envutil.String("SENDGRID_FROM_NAME", "CourseGen"),
		MaxRetries:       envutil.Int("SENDGRID_MAX_RETRIES", 2),
	}
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "https://api.sendgrid.com"
	}
	cfg.Host = strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{log: log.With("client", "SendGridClient"), cfg: cfg}, nil
}

type client struct {
	log *logger.Logger
	cfg Config
}

type EmailAddress struct {
	Email string
	Name  string
}

type SendEmailRequest struct {
	From       EmailAddress
	To         EmailAddress
	Subject    string
	Text       string
	HTML       string
	Categories []string
}

type SendEmailResult struct {
	StatusCode int
	MessageID  string
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 1000 {
		msg = msg[:1000] + "..."
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	if strings.TrimSpace(req.From.Email) == "" {
		req.From = EmailAddress{Email: c.cfg.DefaultFromEmail, Name: c.cfg.DefaultFromName}
	}
	if req.From.Email == "" {
		return nil, errors.New("sendgrid: From.Email required (or set SENDGRID_FROM_EMAIL)")
	}
	if strings.TrimSpace(req.To.Email) == "" {
		return nil, errors.New("sendgrid: To required")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, errors.New("sendgrid: Subject required")
	}
	if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.HTML) == "" {
		return nil, errors.New("sendgrid: Text or HTML content required")
	}

	m := mail.NewSingleEmail(
		mail.NewEmail(req.From.Name, req.From.Email),
		strings.TrimSpace(req.Subject),
		mail.NewEmail(req.To.Name, req.To.Email),
		req.Text,
		req.HTML,
	)
	if len(req.Categories) > 0 {
		m.AddCategories(req.Categories...)
	}

	request := sg.GetRequest(c.cfg.APIKey, "/v3/mail/send", c.cfg.Host)
	request.Method = http.MethodPost
	request.Body = mail.GetRequestBody(m)

	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		resp, err := sg.MakeRequestWithContext(ctx, request)
		if err == nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
			err = &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
		}
		if err == nil {
			res := &SendEmailResult{StatusCode: resp.StatusCode}
			if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
				res.MessageID = ids[0]
			}
			return res, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("Sendgrid request retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}
