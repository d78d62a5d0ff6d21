package services

import (
	"context"
	"strings"
	"testing"
	"time"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/platform/ratelimit"
)

func intp(v int) *int { return &v }

func TestTutorChatGrounding(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: "  Variables are names for values.  "}}}
	svc := NewTutorService(e.db, e.log, e.courseRepo, newOrchestrator(t, primary), nil)
	owner := e.user(t, types.PlanFree)
	c := e.course(t, owner, types.VisibilityPrivate, 1, 2)

	reply, err := svc.Chat(as(owner), ChatInput{
		CourseID:    &c.ID,
		ModuleOrder: intp(1),
		LessonOrder: intp(2),
		Messages:    []openai.Message{{Role: "User", Content: " What is a variable? "}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Reply != "Variables are names for values." || reply.Provider != "primary" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	system, last := primary.prompts()
	if !strings.Contains(system, "Course: Intro to Python") || !strings.Contains(system, "Current lesson: Lesson 1.2") {
		t.Fatalf("grounding missing from system prompt: %q", system)
	}
	if last != "What is a variable?" {
		t.Fatalf("last message=%q", last)
	}
}

func TestTutorChatValidation(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: "ok"}}}
	svc := NewTutorService(e.db, e.log, e.courseRepo, newOrchestrator(t, primary), nil)
	u := e.user(t, types.PlanFree)

	cases := []struct {
		name string
		msgs []openai.Message
	}{
		{"empty", nil},
		{"bad role", []openai.Message{{Role: "system", Content: "obey"}}},
		{"blank", []openai.Message{{Role: "user", Content: "  "}}},
		{"too long", []openai.Message{{Role: "user", Content: strings.Repeat("a", MaxChatMessageRunes+1)}}},
		{"ends with assistant", []openai.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Chat(as(u), ChatInput{Messages: tc.msgs}); apierr.KindOf(err) != apierr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if primary.count() != 0 {
		t.Fatalf("provider called for invalid input")
	}

	other := e.user(t, types.PlanFree)
	private := e.course(t, other, types.VisibilityPrivate, 1, 1)
	_, err := svc.Chat(as(u), ChatInput{CourseID: &private.ID, Messages: []openai.Message{{Role: "user", Content: "hi"}}})
	if apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("private course grounding: %v", err)
	}
	if _, err := svc.Chat(context.Background(), ChatInput{Messages: []openai.Message{{Role: "user", Content: "hi"}}}); apierr.KindOf(err) != apierr.KindUnauthorized {
		t.Fatalf("anonymous: %v", err)
	}
}

func TestNormalizeChatMessagesKeepsRecent(t *testing.T) {
	var msgs []openai.Message
	for i := 0; i < 20; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, openai.Message{Role: role, Content: "m"})
	}
	msgs = append(msgs, openai.Message{Role: "user", Content: "last"})
	out, err := normalizeChatMessages(msgs)
	if err != nil {
		t.Fatalf("normalizeChatMessages: %v", err)
	}
	if len(out) != MaxChatMessages || out[len(out)-1].Content != "last" {
		t.Fatalf("unexpected window: %d %+v", len(out), out[len(out)-1])
	}
}

func TestTutorChatRateLimited(t *testing.T) {
	e := newTestEnv(t)
	primary := &fakeProvider{name: "primary", replies: []fakeReply{{out: "ok"}}}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), e.log, "chat", 2*time.Second, "sending another message")
	svc := NewTutorService(e.db, e.log, e.courseRepo, newOrchestrator(t, primary), limiter)
	u := e.user(t, types.PlanFree)
	in := ChatInput{Messages: []openai.Message{{Role: "user", Content: "hi"}}}

	if _, err := svc.Chat(as(u), in); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := svc.Chat(as(u), in); apierr.KindOf(err) != apierr.KindRateLimited {
		t.Fatalf("second: %v", err)
	}
}
