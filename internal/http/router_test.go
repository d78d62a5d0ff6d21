package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/generation"
	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/platform/ratelimit"
	"github.com/yungbote/coursegen-backend/internal/services"
)

func testOutline() string {
	var mods []string
	for m := 1; m <= 10; m++ {
		var lessons []string
		for l := 1; l <= 7; l++ {
			lessons = append(lessons, fmt.Sprintf(`{"order":%d,"title":"Lesson %d.%d","summary":"s"}`, l, m, l))
		}
		mods = append(mods, fmt.Sprintf(`{"order":%d,"title":"Module %d","lessons":[%s]}`, m, m, strings.Join(lessons, ",")))
	}
	return `{"title":"Intro to Python","language":"en","summary":"Learn Python.","modules":[` + strings.Join(mods, ",") + `]}`
}

type outlineProvider struct{}

func (outlineProvider) Name() string { return "primary" }

func (outlineProvider) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, temperature float64) (string, error) {
	return testOutline(), nil
}

func (outlineProvider) GenerateText(ctx context.Context, system string, messages []openai.Message, temperature float64) (string, error) {
	return "ok", nil
}

func newTestRouter(t *testing.T, outlineWindow time.Duration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	courseRepo := repos.NewCourseRepo(db, log)
	progressRepo := repos.NewProgressRepo(db, log)
	quizRepo := repos.NewQuizResponseRepo(db, log)
	certRepo := repos.NewCertificateRepo(db, log)
	eventRepo := repos.NewPaymentEventRepo(db, log)

	orch, err := generation.NewOrchestrator(log, outlineProvider{}, nil, nil, generation.Config{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	store := ratelimit.NewMemoryStore()
	outlineLimiter := ratelimit.NewLimiter(store, log, "outline", outlineWindow, "generating another outline")

	authService := services.NewAuthService(db, log, userRepo, nil, nil, "test-secret", time.Hour, "https://app.example.com")
	mediaService := services.NewMediaService(log, nil, nil)
	courseService := services.NewCourseService(db, log, courseRepo, progressRepo)
	generationService := services.NewGenerationService(db, log, userRepo, courseRepo, progressRepo, quizRepo, orch, mediaService, outlineLimiter, nil)
	translationService := services.NewTranslationService(db, log, userRepo, courseRepo, nil)
	certService := services.NewCertificateService(db, log, userRepo, courseRepo, progressRepo, certRepo, nil, 100, "https://app.example.com")
	billingService := services.NewBillingService(db, log, userRepo, eventRepo, nil, services.PlanPrices{MonthlyCents: 999, YearlyCents: 9900})

	return NewRouter(RouterConfig{
		Log:                log,
		AuthHandler:        httpH.NewAuthHandler(authService, httpH.CookieConfig{}),
		AuthMiddleware:     httpMW.NewAuthMiddleware(log, authService),
		CourseHandler:      httpH.NewCourseHandler(courseService, generationService, translationService),
		CertificateHandler: httpH.NewCertificateHandler(certService),
		BillingHandler:     httpH.NewBillingHandler(billingService),
		MediaHandler:       httpH.NewMediaHandler(mediaService),
		HealthHandler:      httpH.NewHealthHandler(db),
	})
}

func do(r *gin.Engine, method, path, token string, body any, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func signup(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	rec := do(r, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "correct horse", "first_name": "Ada", "last_name": "Lovelace",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), httpMW.SessionCookie+"=") {
		t.Fatalf("session cookie not set: %q", rec.Header().Get("Set-Cookie"))
	}
	var s services.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil || s.Token == "" {
		t.Fatalf("decode session: %v", err)
	}
	return s.Token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) response.APIError {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	return env.Error
}

func TestVerifyUnknownCodeNegotiates(t *testing.T) {
	r := newTestRouter(t, 0)

	for _, path := range []string{"/verify/CG-ZZZZ-ZZZZ", "/api/certificates/verify/CG-ZZZZ-ZZZZ"} {
		rec := do(r, http.MethodGet, path, "", nil, map[string]string{"Accept": "application/json"})
		if rec.Code != http.StatusNotFound || errorCode(t, rec).Code != "not_found" {
			t.Fatalf("%s json: %d %s", path, rec.Code, rec.Body.String())
		}

		rec = do(r, http.MethodGet, path, "", nil, map[string]string{"Accept": "text/html"})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s html: %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("%s html content type %q", path, ct)
		}
		if !strings.Contains(rec.Body.String(), "Certificate not found") {
			t.Fatalf("%s html body: %s", path, rec.Body.String())
		}
	}
}

func TestFreePlanSecondCourseForbidden(t *testing.T) {
	r := newTestRouter(t, 0)
	token := signup(t, r, "free@example.com")

	rec := do(r, http.MethodPost, "/api/courses/generate", token, map[string]string{"topic": "Intro to Python", "language": "en"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first course: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Course *types.Course `json:"course"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode course: %v", err)
	}
	if created.Course.Visibility != types.VisibilityPrivate || len(created.Course.ModuleList()) != 2 {
		t.Fatalf("unexpected course: %+v", created.Course)
	}

	rec = do(r, http.MethodPost, "/api/courses/generate", token, map[string]string{"topic": "Rust"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("second course: %d %s", rec.Code, rec.Body.String())
	}
	if e := errorCode(t, rec); e.Code != "plan_limit" || !strings.Contains(e.Message, "upgrade") {
		t.Fatalf("unexpected error: %+v", e)
	}

	// The private course is hidden from anonymous readers.
	rec = do(r, http.MethodGet, "/api/courses/"+created.Course.ID.String(), "", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("anonymous read of private course: %d", rec.Code)
	}
	rec = do(r, http.MethodGet, "/api/courses/"+created.Course.ID.String(), token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner read: %d", rec.Code)
	}
}

func TestRapidOutlineRateLimited(t *testing.T) {
	r := newTestRouter(t, 5*time.Second)
	token := signup(t, r, "fast@example.com")

	first := do(r, http.MethodPost, "/api/courses/generate", token, map[string]string{"topic": "Go"}, nil)
	if first.Code != http.StatusCreated {
		t.Fatalf("first: %d %s", first.Code, first.Body.String())
	}
	rec := do(r, http.MethodPost, "/api/courses/generate", token, map[string]string{"topic": "Go"}, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d %s", rec.Code, rec.Body.String())
	}
	e := errorCode(t, rec)
	var secs int
	if _, err := fmt.Sscanf(e.Message, "please wait %d seconds before generating another outline", &secs); err != nil || secs < 1 || secs > 5 {
		t.Fatalf("unexpected message %q", e.Message)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t, 0)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/courses"},
		{http.MethodPost, "/api/courses/generate"},
		{http.MethodGet, "/api/media/search?q=cells"},
	} {
		if rec := do(r, tc.method, tc.path, "", nil, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: %d", tc.method, tc.path, rec.Code)
		}
	}

	token := signup(t, r, "me@example.com")
	rec := do(r, http.MethodGet, "/api/me", token, nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"max_courses":1`) {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("secrets leaked: %s", rec.Body.String())
	}
}

func TestUnconfiguredIntegrations(t *testing.T) {
	r := newTestRouter(t, 0)
	token := signup(t, r, "media@example.com")

	rec := do(r, http.MethodGet, "/api/media/search?q=cells", token, nil, nil)
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec).Code != "not_configured" {
		t.Fatalf("media: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(r, http.MethodPost, "/api/payments/webhook", "", map[string]string{"id": "evt"}, map[string]string{"Stripe-Signature": "t=1,v1=x"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("webhook: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(r, http.MethodGet, "/api/payments/plans", "", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"price_cents":999`) {
		t.Fatalf("plans: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(r, http.MethodGet, "/healthcheck", "", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: %d", rec.Code)
	}
}
