package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func TestUnsplashSearchImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/photos" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Client-ID key" {
			t.Errorf("auth=%q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("query") != "python code" || r.URL.Query().Get("per_page") != "2" {
			t.Errorf("query=%v", r.URL.Query())
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"id":"1","alt_description":"laptop with code","urls":{"regular":"https://img/1","thumb":"https://img/1t"},"user":{"name":"Ada"}},
			{"id":"2","description":"","urls":{"regular":""}}
		]}`))
	}))
	defer srv.Close()

	u, err := NewUnsplash(logger.Nop(), UnsplashConfig{AccessKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewUnsplash: %v", err)
	}
	got, err := u.SearchImages(context.Background(), "python code", 2)
	if err != nil {
		t.Fatalf("SearchImages: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one usable result, got %d", len(got))
	}
	if got[0].Title != "laptop with code" || got[0].Credit != "Photo by Ada on Unsplash" || got[0].Kind != KindImage {
		t.Fatalf("unexpected result %+v", got[0])
	}
}

func TestUnsplashAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["OAuth error: The access token is invalid"]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	u, _ := NewUnsplash(logger.Nop(), UnsplashConfig{AccessKey: "bad", BaseURL: srv.URL})
	_, err := u.SearchImages(context.Background(), "x", 1)
	if apierr.KindOf(err) != apierr.KindProviderAuth {
		t.Fatalf("expected provider auth kind, got %v", err)
	}
}

func TestYouTubeSearchVideos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("videoEmbeddable") != "true" || q.Get("type") != "video" || q.Get("key") != "yt" {
			t.Errorf("query=%v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"kind":"youtube#video","videoId":"abc"},"snippet":{"title":"Python in 10 minutes","channelTitle":"Teach","thumbnails":{"medium":{"url":"https://i.ytimg.com/abc.jpg"}}}},
			{"id":{"kind":"youtube#channel"},"snippet":{"title":"skip"}}
		]}`))
	}))
	defer srv.Close()

	y, err := NewYouTube(context.Background(), logger.Nop(), YouTubeConfig{APIKey: "yt", Endpoint: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewYouTube: %v", err)
	}
	got, err := y.SearchVideos(context.Background(), "python", 3)
	if err != nil {
		t.Fatalf("SearchVideos: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://www.youtube.com/embed/abc" || got[0].Thumbnail == "" {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestYouTubeQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota","errors":[{"reason":"quotaExceeded","message":"quota"}]}}`))
	}))
	defer srv.Close()

	y, _ := NewYouTube(context.Background(), logger.Nop(), YouTubeConfig{APIKey: "yt", Endpoint: srv.URL + "/"})
	_, err := y.SearchVideos(context.Background(), "python", 3)
	if apierr.KindOf(err) != apierr.KindQuotaExceeded {
		t.Fatalf("expected quota kind, got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{0: 5, -1: 5, 3: 3, 50: MaxLimit} {
		if got := clampLimit(in); got != want {
			t.Fatalf("clampLimit(%d)=%d want %d", in, got, want)
		}
	}
}
