package generation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/coursegen-backend/internal/domain/user"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
)

const (
	MaxTopicRunes         = 200
	MaxSubtopics          = 5
	MaxSubtopicRunes      = 100
	MaxSubtopicTotalRunes = 300
	DefaultLanguage       = "en"
)

var languagePattern = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

type OutlineRequest struct {
	Topic     string
	Language  string
	Subtopics []string
	Plan      user.Plan
}

// NormalizeOutlineRequest trims and validates raw input.
func NormalizeOutlineRequest(in OutlineRequest) (OutlineRequest, error) {
	out := OutlineRequest{Plan: user.ParsePlan(string(in.Plan))}

	out.Topic = strings.TrimSpace(in.Topic)
	n := utf8.RuneCountInString(out.Topic)
	if n == 0 {
		return OutlineRequest{}, apierr.Newf(apierr.KindValidation, "topic is required")
	}
	if n > MaxTopicRunes {
		return OutlineRequest{}, apierr.Newf(apierr.KindValidation, "topic must be at most %d characters", MaxTopicRunes)
	}

	lang, ok := NormalizeLanguage(in.Language)
	if !ok {
		return OutlineRequest{}, apierr.Newf(apierr.KindValidation, "language must be a BCP-47 code such as en or pt-BR")
	}
	out.Language = lang

	total := 0
	for _, s := range in.Subtopics {
		s = truncateRunes(strings.TrimSpace(s), MaxSubtopicRunes)
		if s == "" {
			continue
		}
		out.Subtopics = append(out.Subtopics, s)
		total += utf8.RuneCountInString(s)
	}
	if len(out.Subtopics) > MaxSubtopics {
		return OutlineRequest{}, apierr.Newf(apierr.KindValidation, "at most %d subtopics are allowed", MaxSubtopics)
	}
	if total > MaxSubtopicTotalRunes {
		return OutlineRequest{}, apierr.Newf(apierr.KindValidation, "subtopics must total at most %d characters", MaxSubtopicTotalRunes)
	}
	return out, nil
}

// NormalizeLanguage trims a BCP-47 tag, lower-cases the primary subtag and
// defaults empty input to en.
func NormalizeLanguage(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultLanguage, true
	}
	if !languagePattern.MatchString(s) {
		return "", false
	}
	parts := strings.Split(s, "-")
	parts[0] = strings.ToLower(parts[0])
	return strings.Join(parts, "-"), true
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
