// Package prompts holds the embedded prompt templates used for generation.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

const (
	Outline = "outline"
	Lesson  = "lesson"
	Tutor   = "tutor"
)

type entry struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type pair struct {
	system *template.Template
	user   *template.Template
}

// Set is a parsed collection of prompt templates. It is safe for concurrent use.
type Set struct {
	byName map[string]pair
}

// Load parses the embedded templates.
func Load() (*Set, error) {
	return Parse(promptsYAML)
}

func Parse(raw []byte) (*Set, error) {
	var entries map[string]entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("error parsing prompt yaml: %w", err)
	}
	s := &Set{byName: make(map[string]pair, len(entries))}
	for name, e := range entries {
		sys, err := template.New(name + ".system").Option("missingkey=error").Parse(e.System)
		if err != nil {
			return nil, fmt.Errorf("prompt %s system: %w", name, err)
		}
		usr, err := template.New(name + ".user").Option("missingkey=error").Parse(e.User)
		if err != nil {
			return nil, fmt.Errorf("prompt %s user: %w", name, err)
		}
		s.byName[name] = pair{system: sys, user: usr}
	}
	return s, nil
}

// Render executes the named system and user templates against data.
func (s *Set) Render(name string, data any) (system, user string, err error) {
	p, ok := s.byName[name]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt %q", name)
	}
	var sb, ub bytes.Buffer
	if err := p.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s system: %w", name, err)
	}
	if err := p.user.Execute(&ub, data); err != nil {
		return "", "", fmt.Errorf("render %s user: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), strings.TrimSpace(ub.String()), nil
}

type OutlineData struct {
	Topic      string
	Language   string
	Subtopics  []string
	MaxModules int
	MaxLessons int
}

type LessonData struct {
	CourseTitle   string
	Language      string
	ModuleOrder   int
	ModuleTitle   string
	LessonOrder   int
	LessonTitle   string
	LessonSummary string
	Siblings      []string
}

type TutorData struct {
	CourseTitle   string
	CourseSummary string
	LessonTitle   string
	LessonExcerpt string
}
