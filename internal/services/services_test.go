package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/generation"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
)

type testEnv struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	courseRepo   repos.CourseRepo
	progressRepo repos.ProgressRepo
	quizRepo     repos.QuizResponseRepo
	certRepo     repos.CertificateRepo
	eventRepo    repos.PaymentEventRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return &testEnv{
		db:           db,
		log:          log,
		userRepo:     repos.NewUserRepo(db, log),
		courseRepo:   repos.NewCourseRepo(db, log),
		progressRepo: repos.NewProgressRepo(db, log),
		quizRepo:     repos.NewQuizResponseRepo(db, log),
		certRepo:     repos.NewCertificateRepo(db, log),
		eventRepo:    repos.NewPaymentEventRepo(db, log),
	}
}

func (e *testEnv) user(t *testing.T, plan types.Plan) *types.User {
	t.Helper()
	return testutil.SeedUser(t, context.Background(), e.db, uuid.NewString()+"@example.com", plan)
}

func (e *testEnv) course(t *testing.T, owner *types.User, vis types.Visibility, modules, lessons int) *types.Course {
	t.Helper()
	return testutil.SeedCourse(t, context.Background(), e.db, owner.ID, vis, testutil.SampleModules(modules, lessons))
}

// as returns a context authenticated as u.
func as(u *types.User) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: u.ID, Plan: string(u.Plan)})
}

type fakeReply struct {
	out string
	err error
}

// fakeProvider replays replies in order, repeating the last one.
type fakeProvider struct {
	name    string
	replies []fakeReply

	mu         sync.Mutex
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) next() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i].out, f.replies[i].err
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, temperature float64) (string, error) {
	f.record(system, user)
	return f.next()
}

func (f *fakeProvider) GenerateText(ctx context.Context, system string, messages []openai.Message, temperature float64) (string, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	f.record(system, last)
	return f.next()
}

func (f *fakeProvider) record(system, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSystem, f.lastUser = system, user
}

func (f *fakeProvider) prompts() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSystem, f.lastUser
}

func (f *fakeProvider) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newOrchestrator(t *testing.T, primary *fakeProvider) *generation.Orchestrator {
	t.Helper()
	o, err := generation.NewOrchestrator(logger.Nop(), primary, nil, nil, generation.Config{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}
