package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type UnsplashConfig struct {
	AccessKey string
	BaseURL   string
	Timeout   time.Duration
}

func UnsplashConfigFromEnv() UnsplashConfig {
	return UnsplashConfig{
		AccessKey: envutil.String("UNSPLASH_ACCESS_KEY", ""),
		BaseURL:   envutil.String("UNSPLASH_BASE_URL", "https://api.unsplash.com"),
		Timeout:   envutil.Seconds("UNSPLASH_TIMEOUT_SECONDS", 8*time.Second),
	}
}

type Unsplash struct {
	log  *logger.Logger
	http *resty.Client
}

func NewUnsplash(log *logger.Logger, cfg UnsplashConfig) (*Unsplash, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, fmt.Errorf("missing UNSPLASH_ACCESS_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.unsplash.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "Client-ID "+cfg.AccessKey).
		SetHeader("Accept-Version", "v1").
		SetRetryCount(1).
		SetRetryWaitTime(300 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r != nil && r.StatusCode() >= 500
		})
	return &Unsplash{log: log.With("client", "UnsplashClient"), http: rc}, nil
}

type unsplashSearchResponse struct {
	Results []struct {
		ID             string `json:"id"`
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
			Thumb   string `json:"thumb"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

func (u *Unsplash) SearchImages(ctx context.Context, query string, limit int) ([]Result, error) {
	var out unsplashSearchResponse
	resp, err := u.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":          query,
			"per_page":       strconv.Itoa(clampLimit(limit)),
			"content_filter": "high",
			"orientation":    "landscape",
		}).
		SetResult(&out).
		Get("/search/photos")
	if err != nil {
		return nil, apierr.Upstream(httpx.KindForError(err), "unsplash", err)
	}
	if resp.IsError() {
		return nil, apierr.Upstream(httpx.KindForStatus(resp.StatusCode()), "unsplash",
			fmt.Errorf("unsplash http %d: %s", resp.StatusCode(), truncate(resp.String(), 300)))
	}

	results := make([]Result, 0, len(out.Results))
	for _, r := range out.Results {
		title := strings.TrimSpace(r.Description)
		if title == "" {
			title = strings.TrimSpace(r.AltDescription)
		}
		if r.URLs.Regular == "" {
			continue
		}
		res := Result{
			Kind:      KindImage,
			URL:       r.URLs.Regular,
			Title:     title,
			Thumbnail: r.URLs.Thumb,
			Source:    "unsplash",
		}
		if r.User.Name != "" {
			res.Credit = "Photo by " + r.User.Name + " on Unsplash"
		}
		results = append(results, res)
	}
	return results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
