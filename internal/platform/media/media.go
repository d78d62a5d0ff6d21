// Package media searches third-party catalogs for lesson illustrations and videos.
package media

import (
	"context"
	"errors"

	"google.golang.org/api/googleapi"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

type Result struct {
	Kind      Kind   `json:"kind"`
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Source    string `json:"source"`
	Credit    string `json:"credit,omitempty"`
}

type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, limit int) ([]Result, error)
}

type VideoSearcher interface {
	SearchVideos(ctx context.Context, query string, limit int) ([]Result, error)
}

const MaxLimit = 10

func clampLimit(limit int) int {
	if limit <= 0 {
		return 5
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// classifyGoogle maps googleapi errors onto upstream kinds.
func classifyGoogle(provider string, err error) error {
	kind := httpx.KindForError(err)
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		kind = httpx.KindForStatus(gErr.Code)
		for _, item := range gErr.Errors {
			if item.Reason == "quotaExceeded" || item.Reason == "rateLimitExceeded" || item.Reason == "dailyLimitExceeded" {
				kind = apierr.KindQuotaExceeded
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = apierr.KindTimeout
	}
	return apierr.Upstream(kind, provider, err)
}
