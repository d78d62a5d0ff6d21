package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// OutlineV1 is the outline shape providers must return.
type OutlineV1 struct {
	Title    string            `json:"title" validate:"required,notblank"`
	Language string            `json:"language" validate:"required,notblank"`
	Summary  string            `json:"summary" validate:"required,notblank"`
	Modules  []OutlineModuleV1 `json:"modules" validate:"required,min=1,dive"`
}

type OutlineModuleV1 struct {
	Order   *float64          `json:"order" validate:"required"`
	Title   string            `json:"title" validate:"required,notblank"`
	Lessons []OutlineLessonV1 `json:"lessons" validate:"required,min=1,dive"`
}

type OutlineLessonV1 struct {
	Order   *float64 `json:"order" validate:"required"`
	Title   string   `json:"title" validate:"required,notblank"`
	Summary string   `json:"summary" validate:"required,notblank"`
}

// LessonContentV1 is the lesson shape providers must return. Quiz questions
// are checked one by one later so a bad question does not reject the lesson.
type LessonContentV1 struct {
	Theory           string           `json:"theory" validate:"required,notblank"`
	Example          string           `json:"example" validate:"required,notblank"`
	Exercise         string           `json:"exercise" validate:"required,notblank"`
	KeyTakeaways     []string         `json:"key_takeaways"`
	Quiz             []QuizQuestionV1 `json:"quiz"`
	EstimatedMinutes float64          `json:"estimated_minutes"`
	ImageQuery       string           `json:"image_query"`
}

type QuizQuestionV1 struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex float64  `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// ParseError reports why a provider response could not be accepted.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return "invalid provider response: " + e.Reason
	}
	return fmt.Sprintf("invalid provider response: %s: %s", e.Field, e.Reason)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func schemaValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Whitespace-only text is trimmed to nothing later, so it counts as missing.
		if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

func DecodeOutline(raw string) (OutlineV1, error) {
	var out OutlineV1
	if err := decodeStrict(raw, &out); err != nil {
		return OutlineV1{}, err
	}
	return out, nil
}

func DecodeLessonContent(raw string) (LessonContentV1, error) {
	var out LessonContentV1
	if err := decodeStrict(raw, &out); err != nil {
		return LessonContentV1{}, err
	}
	return out, nil
}

func decodeStrict(raw string, dst any) error {
	text := extractJSONObject(raw)
	if text == "" {
		return &ParseError{Reason: "no JSON object found"}
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ParseError{Field: typeErr.Field, Reason: "expected " + typeErr.Type.String() + ", got " + typeErr.Value}
		}
		return &ParseError{Reason: "malformed JSON: " + err.Error()}
	}
	if err := schemaValidator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			return &ParseError{Field: field, Reason: "failed " + fe.Tag()}
		}
		return &ParseError{Reason: err.Error()}
	}
	return nil
}

// extractJSONObject strips markdown fences and any prose around the outermost object.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// Strict json_schema definitions sent to providers.

func outlineSchema() map[string]any {
	lesson := object(map[string]any{
		"order":   map[string]any{"type": "integer"},
		"title":   map[string]any{"type": "string"},
		"summary": map[string]any{"type": "string"},
	})
	module := object(map[string]any{
		"order":   map[string]any{"type": "integer"},
		"title":   map[string]any{"type": "string"},
		"lessons": map[string]any{"type": "array", "items": lesson},
	})
	return object(map[string]any{
		"title":    map[string]any{"type": "string"},
		"language": map[string]any{"type": "string"},
		"summary":  map[string]any{"type": "string"},
		"modules":  map[string]any{"type": "array", "items": module},
	})
}

func lessonSchema() map[string]any {
	question := object(map[string]any{
		"question":     map[string]any{"type": "string"},
		"options":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"answer_index": map[string]any{"type": "integer"},
		"explanation":  map[string]any{"type": "string"},
	})
	return object(map[string]any{
		"theory":            map[string]any{"type": "string"},
		"example":           map[string]any{"type": "string"},
		"exercise":          map[string]any{"type": "string"},
		"key_takeaways":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"quiz":              map[string]any{"type": "array", "items": question},
		"estimated_minutes": map[string]any{"type": "integer"},
		"image_query":       map[string]any{"type": "string"},
	})
}

// object builds a strict object schema where every property is required.
func object(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}
