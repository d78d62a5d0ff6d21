package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/media"
	"github.com/yungbote/coursegen-backend/internal/platform/ratelimit"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// outlineJSON returns an outline with more modules and lessons than any plan allows.
func outlineJSON() string {
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

const lessonJSON = `{"theory":"Variables hold values.","example":"x = 1","exercise":"Assign y.",
"key_takeaways":["names","values"],"estimated_minutes":500,"image_query":"python code",
"quiz":[{"question":"What is x?","options":["1","2"],"answer_index":0,"explanation":"x = 1"},
{"question":"broken","options":["only"],"answer_index":0}]}`

func newGenerationService(e *testEnv, primary *fakeProvider, t *testing.T, mediaSvc MediaService, window time.Duration) GenerationService {
	store := ratelimit.NewMemoryStore()
	outline := ratelimit.NewLimiter(store, e.log, "outline", window, "generating another outline")
	lessons := ratelimit.NewLimiter(store, e.log, "lessons", window, "generating more lessons")
	return NewGenerationService(e.db, e.log, e.userRepo, e.courseRepo, e.progressRepo, e.quizRepo, newOrchestrator(t, primary), mediaSvc, outline, lessons)
}

func TestGenerateOutlineFreePlan(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: outlineJSON()}}}
	svc := newGenerationService(e, primary, t, nil, 0)
	u := e.user(t, types.PlanFree)

	c, err := svc.GenerateOutline(as(u), OutlineInput{Topic: "Intro to Python", Language: "en"})
	if err != nil {
		t.Fatalf("GenerateOutline: %v", err)
	}
	if c.Visibility != types.VisibilityPrivate || c.UserID != u.ID {
		t.Fatalf("unexpected course: %+v", c)
	}
	mods := c.ModuleList()
	if len(mods) != 2 {
		t.Fatalf("free plan modules=%d", len(mods))
	}
	for _, m := range mods {
		if len(m.Lessons) != types.PlanFree.Limits().MaxLessons {
			t.Fatalf("lessons=%d", len(m.Lessons))
		}
	}

	_, err = svc.GenerateOutline(as(u), OutlineInput{Topic: "Another topic"})
	if apierr.KindOf(err) != apierr.KindPlanLimit {
		t.Fatalf("second course: %v", err)
	}
	if err.Error() != "free plan allows 1 course; upgrade to create more" {
		t.Fatalf("message=%q", err.Error())
	}
	if primary.count() != 1 {
		t.Fatalf("plan limit must be checked before calling the provider, calls=%d", primary.count())
	}
}

// lockRecorder notes which users were locked before a quota count.
type lockRecorder struct {
	repos.UserRepo
	locked []uuid.UUID
}

func (r *lockRecorder) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	r.locked = append(r.locked, userID)
	return r.UserRepo.GetByIDForUpdate(ctx, tx, userID)
}

func TestGenerateOutlineLocksUserBeforeCounting(t *testing.T) {
	e := newTestEnv(t)
	rec := &lockRecorder{UserRepo: e.userRepo}
	e.userRepo = rec
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: outlineJSON()}}}
	svc := newGenerationService(e, primary, t, nil, 0)
	u := e.user(t, types.PlanFree)

	if _, err := svc.GenerateOutline(as(u), OutlineInput{Topic: "Intro to Python"}); err != nil {
		t.Fatalf("GenerateOutline: %v", err)
	}
	if len(rec.locked) != 1 || rec.locked[0] != u.ID {
		t.Fatalf("expected one lock on %s, got %v", u.ID, rec.locked)
	}

	ghost := &types.User{ID: uuid.New(), Plan: types.PlanFree}
	_, err := svc.GenerateOutline(as(ghost), OutlineInput{Topic: "Intro to Python"})
	if apierr.KindOf(err) != apierr.KindUnauthorized {
		t.Fatalf("deleted account: %v", err)
	}
	if n, _ := e.courseRepo.CountByUser(context.Background(), nil, ghost.ID); n != 0 {
		t.Fatalf("course saved for missing user: %d", n)
	}
}

func TestGenerateOutlinePaidPlan(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: outlineJSON()}}}
	svc := newGenerationService(e, primary, t, nil, 0)
	u := e.user(t, types.PlanYearly)

	for i := 0; i < 2; i++ {
		c, err := svc.GenerateOutline(as(u), OutlineInput{Topic: "Go"})
		if err != nil {
			t.Fatalf("GenerateOutline %d: %v", i, err)
		}
		if len(c.ModuleList()) != 8 {
			t.Fatalf("paid plan modules=%d", len(c.ModuleList()))
		}
	}
}

func TestGenerateOutlineRateLimited(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: outlineJSON()}}}
	svc := newGenerationService(e, primary, t, nil, 5*time.Second)
	u := e.user(t, types.PlanMonthly)

	if _, err := svc.GenerateOutline(as(u), OutlineInput{Topic: "Go"}); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := svc.GenerateOutline(as(u), OutlineInput{Topic: "Go"})
	ae, ok := apierr.As(err)
	if !ok || ae.Kind != apierr.KindRateLimited || ae.RetryAfter <= 0 {
		t.Fatalf("second: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "please wait ") || !strings.HasSuffix(err.Error(), " seconds before generating another outline") {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestGenerateOutlineValidation(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: outlineJSON()}}}
	svc := newGenerationService(e, primary, t, nil, 0)
	u := e.user(t, types.PlanFree)

	_, err := svc.GenerateOutline(as(u), OutlineInput{Topic: "   "})
	if apierr.KindOf(err) != apierr.KindValidation {
		t.Fatalf("empty topic: %v", err)
	}
	if _, err := svc.GenerateOutline(context.Background(), OutlineInput{Topic: "Go"}); apierr.KindOf(err) != apierr.KindUnauthorized {
		t.Fatalf("anonymous: %v", err)
	}
	if primary.count() != 0 {
		t.Fatalf("provider called for invalid input")
	}
}

func TestRegenerateOutlineResetsProgress(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: outlineJSON()}}}
	svc := newGenerationService(e, primary, t, nil, 0)
	owner := e.user(t, types.PlanFree)
	other := e.user(t, types.PlanFree)
	c := e.course(t, owner, types.VisibilityPublic, 1, 2)

	ctx := context.Background()
	if err := e.progressRepo.Upsert(ctx, nil, &types.Progress{
		UserID:           other.ID,
		CourseID:         c.ID,
		CompletedLessons: datatypes.NewJSONType([]types.LessonKey{{ModuleOrder: 1, LessonOrder: 1}}),
		Percent:          50,
	}); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	if _, err := svc.GenerateOutline(as(other), OutlineInput{Topic: "Hijack", CourseID: &c.ID}); apierr.KindOf(err) != apierr.KindForbidden {
		t.Fatalf("non-owner regenerate: %v", err)
	}

	// Regeneration does not count against the course quota.
	updated, err := svc.GenerateOutline(as(owner), OutlineInput{Topic: "Intro to Python", CourseID: &c.ID})
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if updated.ID != c.ID || len(updated.ModuleList()) != 2 {
		t.Fatalf("unexpected course: %+v", updated)
	}
	if l, _ := updated.Lesson(types.LessonKey{ModuleOrder: 1, LessonOrder: 1}); l.Content != nil {
		t.Fatalf("prior content must be discarded")
	}
	p, err := e.progressRepo.Get(ctx, nil, other.ID, c.ID)
	if err != nil || p == nil || p.Percent != 0 || len(p.Completed()) != 0 {
		t.Fatalf("progress not reset: %+v %v", p, err)
	}
}

type fakeImages struct{ err error }

func (f *fakeImages) SearchImages(ctx context.Context, query string, limit int) ([]media.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]media.Result, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, media.Result{Kind: media.KindImage, URL: fmt.Sprintf("https://img.example.com/%s/%d", query, i), Source: "unsplash"})
	}
	return out, nil
}

type fakeVideos struct{ err error }

func (f *fakeVideos) SearchVideos(ctx context.Context, query string, limit int) ([]media.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []media.Result{{Kind: media.KindVideo, URL: "https://www.youtube.com/embed/abc", Source: "youtube"}}, nil
}

func TestGenerateLessons(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: lessonJSON}}}
	mediaSvc := NewMediaService(e.log, &fakeImages{}, &fakeVideos{err: apierr.Newf(apierr.KindQuotaExceeded, "quota")})
	svc := newGenerationService(e, primary, t, mediaSvc, 0)
	owner := e.user(t, types.PlanFree)

	mods := []types.Module{{Order: 1, Title: "Basics", Lessons: []types.Lesson{
		{Order: 1, Title: "Variables"},
		{Order: 2, Title: "Loops"},
		{Order: 3, Title: "Done", Content: &types.LessonContent{Theory: "kept"}},
	}}}
	c := testutilCourse(t, e, owner, mods)

	res, err := svc.GenerateLessons(as(owner), c.ID, LessonBatchInput{ModuleOrder: 1})
	if err != nil {
		t.Fatalf("GenerateLessons: %v", err)
	}
	if res.Requested != 2 || res.Completed != 2 || res.Partial {
		t.Fatalf("unexpected result: %+v", res.BatchResult)
	}
	l, _ := res.Course.Lesson(types.LessonKey{ModuleOrder: 1, LessonOrder: 1})
	if l.Content == nil || l.Content.Provider != "primary" || l.Content.EstimatedMinutes != 120 {
		t.Fatalf("unexpected content: %+v", l.Content)
	}
	if len(l.Content.Quiz) != 1 {
		t.Fatalf("invalid quiz question kept: %+v", l.Content.Quiz)
	}
	if len(l.Content.Media) != 2 || l.Content.Media[0].Kind != types.MediaImage {
		t.Fatalf("media failures must not fail the lesson: %+v", l.Content.Media)
	}
	kept, _ := res.Course.Lesson(types.LessonKey{ModuleOrder: 1, LessonOrder: 3})
	if kept.Content == nil || kept.Content.Theory != "kept" {
		t.Fatalf("existing content overwritten without regenerate")
	}

	if _, err := svc.GenerateLessons(as(owner), c.ID, LessonBatchInput{ModuleOrder: 1, LessonOrders: []int{9}}); apierr.KindOf(err) != apierr.KindValidation {
		t.Fatalf("unknown lesson: %v", err)
	}
	if _, err := svc.GenerateLessons(as(owner), c.ID, LessonBatchInput{ModuleOrder: 4}); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("unknown module: %v", err)
	}
}

func TestGenerateLessonsStopsOnQuota(t *testing.T) {
	e := newTestEnv(t)
	quota := apierr.Upstream(apierr.KindQuotaExceeded, "primary", errors.New("429"))
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: lessonJSON}, {err: quota}}}
	svc := newGenerationService(e, primary, t, nil, 0)
	owner := e.user(t, types.PlanFree)
	c := testutilCourse(t, e, owner, []types.Module{{Order: 1, Title: "m", Lessons: []types.Lesson{
		{Order: 1, Title: "a"}, {Order: 2, Title: "b"}, {Order: 3, Title: "c"},
	}}})

	res, err := svc.GenerateLessons(as(owner), c.ID, LessonBatchInput{ModuleOrder: 1, Regenerate: true})
	if err != nil {
		t.Fatalf("partial batch should succeed: %v", err)
	}
	if res.Completed != 1 || res.StoppedReason != "quota_exceeded" || !res.Partial || len(res.Errors) != 1 {
		t.Fatalf("unexpected result: %+v", res.BatchResult)
	}
	if primary.count() != 2 {
		t.Fatalf("batch should stop after quota error, calls=%d", primary.count())
	}
	// The finished lesson was persisted before the failure.
	if l, _ := res.Course.Lesson(types.LessonKey{ModuleOrder: 1, LessonOrder: 1}); l.Content == nil {
		t.Fatalf("completed lesson not saved")
	}

	svc = newGenerationService(e, &fakeProvider{name: "primary", replies: []fakeReply{{err: quota}}}, t, nil, 0)
	if _, err := svc.GenerateLessons(as(owner), c.ID, LessonBatchInput{ModuleOrder: 1, Regenerate: true}); apierr.KindOf(err) != apierr.KindQuotaExceeded {
		t.Fatalf("nothing completed should surface the stop error: %v", err)
	}
}

func testutilCourse(t *testing.T, e *testEnv, owner *types.User, mods []types.Module) *types.Course {
	t.Helper()
	c := &types.Course{UserID: owner.ID, Title: "Intro to Python", Topic: "Intro to Python", Language: "en"}
	c.SetModules(mods)
	if _, err := e.courseRepo.Create(context.Background(), nil, []*types.Course{c}); err != nil {
		t.Fatalf("create course: %v", err)
	}
	return c
}
