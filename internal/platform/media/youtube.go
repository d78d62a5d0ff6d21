package media

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type YouTubeConfig struct {
	APIKey string
	// Endpoint overrides the API base URL; used by tests.
	Endpoint string
}

func YouTubeConfigFromEnv() YouTubeConfig {
	return YouTubeConfig{APIKey: envutil.String("YOUTUBE_API_KEY", "")}
}

type YouTube struct {
	log *logger.Logger
	svc *youtube.Service
}

func NewYouTube(ctx context.Context, log *logger.Logger, cfg YouTubeConfig) (*YouTube, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing YOUTUBE_API_KEY")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &YouTube{log: log.With("client", "YouTubeClient"), svc: svc}, nil
}

// SearchVideos returns embeddable videos only.
func (y *YouTube) SearchVideos(ctx context.Context, query string, limit int) ([]Result, error) {
	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoEmbeddable("true").
		SafeSearch("strict").
		MaxResults(int64(clampLimit(limit))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyGoogle("youtube", err)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		res := Result{
			Kind:   KindVideo,
			URL:    "https://www.youtube.com/embed/" + item.Id.VideoId,
			Title:  item.Snippet.Title,
			Source: "youtube",
			Credit: item.Snippet.ChannelTitle,
		}
		if th := item.Snippet.Thumbnails; th != nil {
			switch {
			case th.Medium != nil:
				res.Thumbnail = th.Medium.Url
			case th.Default != nil:
				res.Thumbnail = th.Default.Url
			}
		}
		results = append(results, res)
	}
	return results, nil
}
