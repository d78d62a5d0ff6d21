package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/media"
)

const (
	MaxMediaQueryRunes = 200
	DefaultMediaLimit  = 5
	lessonImages       = 2
	lessonVideos       = 1
)

type MediaSearchResult struct {
	Images []media.Result `json:"images"`
	Videos []media.Result `json:"videos"`
	// Errors names the sources that failed, keyed by kind of media.
	Errors map[string]string `json:"errors,omitempty"`
}

type MediaService interface {
	SearchImages(ctx context.Context, query string, limit int) ([]media.Result, error)
	SearchVideos(ctx context.Context, query string, limit int) ([]media.Result, error)
	Search(ctx context.Context, query string, limit int) (*MediaSearchResult, error)
	// ForLesson finds illustrations for generated content. Failures are
	// logged and yield fewer items, never an error.
	ForLesson(ctx context.Context, query string) []types.MediaItem
	Enabled() bool
}

type mediaService struct {
	log    *logger.Logger
	images media.ImageSearcher
	videos media.VideoSearcher
}

// NewMediaService accepts nil searchers for unconfigured sources.
func NewMediaService(log *logger.Logger, images media.ImageSearcher, videos media.VideoSearcher) MediaService {
	serviceLog := log.With("service", "MediaService")
	return &mediaService{log: serviceLog, images: images, videos: videos}
}

func (ms *mediaService) Enabled() bool { return ms.images != nil || ms.videos != nil }

func (ms *mediaService) SearchImages(ctx context.Context, query string, limit int) ([]media.Result, error) {
	q, n, err := normalizeMediaQuery(query, limit)
	if err != nil {
		return nil, err
	}
	if ms.images == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "image search is not configured")
	}
	return ms.searchImages(ctx, q, n)
}

func (ms *mediaService) SearchVideos(ctx context.Context, query string, limit int) ([]media.Result, error) {
	q, n, err := normalizeMediaQuery(query, limit)
	if err != nil {
		return nil, err
	}
	if ms.videos == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "video search is not configured")
	}
	return ms.searchVideos(ctx, q, n)
}

func (ms *mediaService) Search(ctx context.Context, query string, limit int) (*MediaSearchResult, error) {
	q, n, err := normalizeMediaQuery(query, limit)
	if err != nil {
		return nil, err
	}
	if !ms.Enabled() {
		return nil, apierr.Newf(apierr.KindNotConfigured, "media search is not configured")
	}

	out := &MediaSearchResult{Images: []media.Result{}, Videos: []media.Result{}}
	var imgErr, vidErr error
	var g errgroup.Group
	if ms.images != nil {
		g.Go(func() error {
			res, err := ms.searchImages(ctx, q, n)
			if err != nil {
				imgErr = err
				return nil
			}
			out.Images = res
			return nil
		})
	}
	if ms.videos != nil {
		g.Go(func() error {
			res, err := ms.searchVideos(ctx, q, n)
			if err != nil {
				vidErr = err
				return nil
			}
			out.Videos = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	if imgErr != nil {
		out.addError("images", imgErr)
		failed++
	}
	if vidErr != nil {
		out.addError("videos", vidErr)
		failed++
	}
	configured := 0
	if ms.images != nil {
		configured++
	}
	if ms.videos != nil {
		configured++
	}
	if failed == configured {
		if imgErr != nil {
			return nil, imgErr
		}
		return nil, vidErr
	}
	return out, nil
}

func (r *MediaSearchResult) addError(source string, err error) {
	if r.Errors == nil {
		r.Errors = map[string]string{}
	}
	r.Errors[source] = apierr.PublicMessage(err)
}

func (ms *mediaService) ForLesson(ctx context.Context, query string) []types.MediaItem {
	query = strings.TrimSpace(query)
	if query == "" || !ms.Enabled() {
		return nil
	}
	query = truncate(query, MaxMediaQueryRunes)

	var images, videos []media.Result
	var g errgroup.Group
	if ms.images != nil {
		g.Go(func() error {
			res, err := ms.searchImages(ctx, query, lessonImages)
			if err != nil {
				ms.log.Warn("lesson image search failed", "error", err)
				return nil
			}
			images = res
			return nil
		})
	}
	if ms.videos != nil {
		g.Go(func() error {
			res, err := ms.searchVideos(ctx, query, lessonVideos)
			if err != nil {
				ms.log.Warn("lesson video search failed", "error", err)
				return nil
			}
			videos = res
			return nil
		})
	}
	_ = g.Wait()

	items := make([]types.MediaItem, 0, len(images)+len(videos))
	for _, r := range append(images, videos...) {
		items = append(items, toMediaItem(r))
	}
	return items
}

func (ms *mediaService) searchImages(ctx context.Context, q string, n int) ([]media.Result, error) {
	res, err := ms.images.SearchImages(ctx, q, n)
	observeMedia("unsplash", err)
	return res, err
}

func (ms *mediaService) searchVideos(ctx context.Context, q string, n int) ([]media.Result, error) {
	res, err := ms.videos.SearchVideos(ctx, q, n)
	observeMedia("youtube", err)
	return res, err
}

func observeMedia(source string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apierr.KindOf(err).String()
	}
	observability.Current().IncMediaLookup(source, outcome)
}

func toMediaItem(r media.Result) types.MediaItem {
	kind := types.MediaImage
	if r.Kind == media.KindVideo {
		kind = types.MediaVideo
	}
	return types.MediaItem{
		Kind:      kind,
		URL:       r.URL,
		Title:     r.Title,
		Thumbnail: r.Thumbnail,
		Source:    r.Source,
		Credit:    r.Credit,
	}
}

func normalizeMediaQuery(query string, limit int) (string, int, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", 0, apierr.Newf(apierr.KindValidation, "q is required")
	}
	if utf8.RuneCountInString(q) > MaxMediaQueryRunes {
		return "", 0, apierr.Newf(apierr.KindValidation, "q must be at most %d characters", MaxMediaQueryRunes)
	}
	if limit == 0 {
		limit = DefaultMediaLimit
	}
	if limit < 1 || limit > media.MaxLimit {
		return "", 0, apierr.Newf(apierr.KindValidation, "limit must be between 1 and %d", media.MaxLimit)
	}
	return q, limit, nil
}
