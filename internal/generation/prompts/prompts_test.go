package prompts

import (
	"strings"
	"testing"
)

func TestRenderOutline(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sys, user, err := s.Render(Outline, OutlineData{
		Topic:      "Intro to Python",
		Language:   "en",
		Subtopics:  []string{"variables", "loops"},
		MaxModules: 2,
		MaxLessons: 5,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(sys, "between 1 and 2 modules") {
		t.Fatalf("system prompt missing limits: %q", sys)
	}
	for _, want := range []string{"Topic: Intro to Python", "- variables", "- loops"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q: %q", want, user)
		}
	}
}

func TestRenderTutorOptionalFields(t *testing.T) {
	s, _ := Load()
	sys, user, err := s.Render(Tutor, TutorData{CourseTitle: "Go basics"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(sys, "Course: Go basics") || strings.Contains(sys, "Current lesson") {
		t.Fatalf("unexpected tutor prompt %q", sys)
	}
	if user != "" {
		t.Fatalf("tutor user template should be empty, got %q", user)
	}
}

func TestRenderUnknown(t *testing.T) {
	s, _ := Load()
	if _, _, err := s.Render("nope", nil); err == nil {
		t.Fatalf("expected error for unknown prompt")
	}
}
