package generation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/coursegen-backend/internal/domain/user"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
)

const validOutlineJSON = `{"title":"Intro to Python","language":"en","summary":"Learn Python.",
"modules":[{"order":1,"title":"Basics","lessons":[{"order":1,"title":"Variables","summary":"Names for values."}]}]}`

type fakeReply struct {
	out string
	err error
}

// fakeProvider replays replies in order; the last reply repeats.
type fakeProvider struct {
	name    string
	replies []fakeReply
	// block makes every call wait for ctx to end.
	block bool

	mu    sync.Mutex
	temps []float64
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) next(ctx context.Context, temp float64) (string, error) {
	f.mu.Lock()
	f.temps = append(f.temps, temp)
	i := len(f.temps) - 1
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", apierr.Upstream(apierr.KindTimeout, f.name, ctx.Err())
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	r := f.replies[i]
	return r.out, r.err
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, temperature float64) (string, error) {
	return f.next(ctx, temperature)
}

func (f *fakeProvider) GenerateText(ctx context.Context, system string, messages []openai.Message, temperature float64) (string, error) {
	return f.next(ctx, temperature)
}

func (f *fakeProvider) calls() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.temps...)
}

func newTestOrchestrator(t *testing.T, primary, secondary Provider, cfg Config) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(logger.Nop(), primary, secondary, nil, cfg)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func outlineRequest() OutlineRequest {
	return OutlineRequest{Topic: "Intro to Python", Language: "en", Plan: user.PlanFree}
}

func TestGenerateOutlineRetriesParseFailureAtLowerTemperature(t *testing.T) {
	primary := &fakeProvider{name: "primary", replies: []fakeReply{
		{out: "not json at all"},
		{out: "```json\n" + validOutlineJSON + "\n```"},
	}}
	secondary := &fakeProvider{name: "secondary", replies: []fakeReply{{out: validOutlineJSON}}}
	o := newTestOrchestrator(t, primary, secondary, Config{})

	res, err := o.GenerateOutline(context.Background(), outlineRequest())
	if err != nil {
		t.Fatalf("GenerateOutline: %v", err)
	}
	if res.Provider != "primary" {
		t.Fatalf("provider=%q", res.Provider)
	}
	temps := primary.calls()
	if len(temps) != 2 || temps[0] != 0.7 || temps[1] != 0.3 {
		t.Fatalf("unexpected temperatures: %v", temps)
	}
	if len(secondary.calls()) != 0 {
		t.Fatalf("secondary should not be called")
	}
	if res.Outline.Modules[0].Lessons[0].Order != 1 {
		t.Fatalf("unexpected outline: %+v", res.Outline)
	}
}

func TestGenerateOutlineBlankReplyFallsBack(t *testing.T) {
	blank := `{"title":"   ","language":"en","summary":" ","modules":[{"order":1,"title":"  ","lessons":[{"order":1,"title":" ","summary":" "}]}]}`
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: blank}}}
	secondary := &fakeProvider{name: "secondary", replies: []fakeReply{{out: validOutlineJSON}}}
	o := newTestOrchestrator(t, primary, secondary, Config{})

	res, err := o.GenerateOutline(context.Background(), outlineRequest())
	if err != nil {
		t.Fatalf("GenerateOutline: %v", err)
	}
	if res.Provider != "secondary" || res.Outline.Title != "Intro to Python" {
		t.Fatalf("unexpected result: %s %+v", res.Provider, res.Outline)
	}
	if len(primary.calls()) != 2 {
		t.Fatalf("blank reply should be retried once, calls=%v", primary.calls())
	}
}

func TestGenerateOutlineFallsBackToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "primary", replies: []fakeReply{
		{err: apierr.Upstream(apierr.KindProviderUnavailable, "primary", errors.New("502"))},
	}}
	secondary := &fakeProvider{name: "secondary", replies: []fakeReply{{out: validOutlineJSON}}}
	o := newTestOrchestrator(t, primary, secondary, Config{})

	res, err := o.GenerateOutline(context.Background(), outlineRequest())
	if err != nil {
		t.Fatalf("GenerateOutline: %v", err)
	}
	if res.Provider != "secondary" {
		t.Fatalf("provider=%q", res.Provider)
	}
	if got := len(primary.calls()); got != 1 {
		t.Fatalf("provider errors must not be retried at a lower temperature, calls=%d", got)
	}
}

func TestGenerateOutlineWithoutSecondary(t *testing.T) {
	primary := &fakeProvider{name: "primary", replies: []fakeReply{
		{err: apierr.Upstream(apierr.KindQuotaExceeded, "primary", errors.New("429"))},
	}}
	o := newTestOrchestrator(t, primary, nil, Config{})

	_, err := o.GenerateOutline(context.Background(), outlineRequest())
	if apierr.KindOf(err) != apierr.KindQuotaExceeded {
		t.Fatalf("kind=%v err=%v", apierr.KindOf(err), err)
	}
	if apierr.StatusFor(err) != http.StatusTooManyRequests {
		t.Fatalf("status=%d", apierr.StatusFor(err))
	}
}

func TestGenerateOutlineCombinedError(t *testing.T) {
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: "{}"}}}
	secondary := &fakeProvider{name: "secondary", replies: []fakeReply{
		{err: apierr.Upstream(apierr.KindProviderAuth, "secondary", errors.New("401"))},
	}}
	o := newTestOrchestrator(t, primary, secondary, Config{})

	_, err := o.GenerateOutline(context.Background(), outlineRequest())
	if err == nil {
		t.Fatalf("expected error")
	}
	if apierr.KindOf(err) != apierr.KindProviderAuth {
		t.Fatalf("kind=%v", apierr.KindOf(err))
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("parse failure missing from combined error: %v", err)
	}
	if len(primary.calls()) != 2 || len(secondary.calls()) != 1 {
		t.Fatalf("calls primary=%d secondary=%d", len(primary.calls()), len(secondary.calls()))
	}
}

func TestGenerateOutlineTimeout(t *testing.T) {
	primary := &fakeProvider{name: "primary", block: true}
	secondary := &fakeProvider{name: "secondary", replies: []fakeReply{{out: validOutlineJSON}}}
	o := newTestOrchestrator(t, primary, secondary, Config{Timeout: 50 * time.Millisecond})

	_, err := o.GenerateOutline(context.Background(), outlineRequest())
	if apierr.KindOf(err) != apierr.KindTimeout {
		t.Fatalf("kind=%v err=%v", apierr.KindOf(err), err)
	}
	if apierr.StatusFor(err) != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", apierr.StatusFor(err))
	}
	if len(secondary.calls()) != 0 {
		t.Fatalf("secondary called after deadline")
	}
}

func TestMostSignificantKind(t *testing.T) {
	cases := []struct {
		name string
		errs []error
		want apierr.Kind
	}{
		{"parse only", []error{apierr.Wrap(apierr.KindParse, errors.New("x"))}, apierr.KindParse},
		{"unavailable over parse", []error{apierr.Wrap(apierr.KindParse, errors.New("x")), errors.New("plain")}, apierr.KindProviderUnavailable},
		{"quota over auth", []error{apierr.Wrap(apierr.KindProviderAuth, errors.New("x")), apierr.Wrap(apierr.KindQuotaExceeded, errors.New("y"))}, apierr.KindQuotaExceeded},
		{"timeout wins", []error{apierr.Wrap(apierr.KindQuotaExceeded, errors.New("x")), context.DeadlineExceeded}, apierr.KindTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MostSignificantKind(tc.errs); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestGenerateLessonDecodesContent(t *testing.T) {
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: `{"theory":"t","example":"e","exercise":"x",
"key_takeaways":["a"],"quiz":[],"estimated_minutes":10,"image_query":" python code "}`}}}
	o := newTestOrchestrator(t, primary, nil, Config{})

	res, err := o.GenerateLesson(context.Background(), LessonRequest{CourseTitle: "c", Language: "en", ModuleOrder: 1, ModuleTitle: "m", LessonOrder: 1, LessonTitle: "l"})
	if err != nil {
		t.Fatalf("GenerateLesson: %v", err)
	}
	if res.Content.Theory != "t" || res.ImageQuery != "python code" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTutorFallsBack(t *testing.T) {
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{err: apierr.Upstream(apierr.KindProviderUnavailable, "primary", errors.New("down"))}}}
	secondary := &fakeProvider{name: "secondary", replies: []fakeReply{{out: "Use a for loop."}}}
	o := newTestOrchestrator(t, primary, secondary, Config{})

	reply, provider, err := o.Tutor(context.Background(), TutorRequest{Messages: []openai.Message{{Role: "user", Content: "how do I loop?"}}})
	if err != nil {
		t.Fatalf("Tutor: %v", err)
	}
	if reply != "Use a for loop." || provider != "secondary" {
		t.Fatalf("reply=%q provider=%q", reply, provider)
	}
}
