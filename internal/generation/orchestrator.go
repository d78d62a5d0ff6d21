// Package generation turns prompts into validated course material using the
// configured AI providers.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/coursegen-backend/internal/generation/prompts"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
)

// Provider is an AI text generation backend.
type Provider = openai.Client

type Config struct {
	// Timeout bounds one whole generation, every provider attempt included.
	Timeout          time.Duration
	Temperature      float64
	RetryTemperature float64
}

func DefaultConfig() Config {
	return Config{Timeout: 15 * time.Second, Temperature: 0.7, RetryTemperature: 0.3}
}

type Orchestrator struct {
	log       *logger.Logger
	primary   Provider
	secondary Provider
	prompts   *prompts.Set
	cfg       Config
	now       func() time.Time
}

// NewOrchestrator requires a primary provider; secondary may be nil.
func NewOrchestrator(log *logger.Logger, primary, secondary Provider, set *prompts.Set, cfg Config) (*Orchestrator, error) {
	if primary == nil {
		return nil, errors.New("generation: primary provider required")
	}
	if set == nil {
		var err error
		if set, err = prompts.Load(); err != nil {
			return nil, err
		}
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.RetryTemperature <= 0 {
		cfg.RetryTemperature = def.RetryTemperature
	}
	return &Orchestrator{
		log:       log.With("component", "GenerationOrchestrator"),
		primary:   primary,
		secondary: secondary,
		prompts:   set,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

func (o *Orchestrator) providers() []Provider {
	if o.secondary == nil {
		return []Provider{o.primary}
	}
	return []Provider{o.primary, o.secondary}
}

type OutlineResult struct {
	Outline  Outline
	Provider string
}

// GenerateOutline expects a request already passed through NormalizeOutlineRequest.
func (o *Orchestrator) GenerateOutline(ctx context.Context, req OutlineRequest) (OutlineResult, error) {
	limits := req.Plan.Limits()
	system, user, err := o.prompts.Render(prompts.Outline, prompts.OutlineData{
		Topic:      req.Topic,
		Language:   req.Language,
		Subtopics:  req.Subtopics,
		MaxModules: limits.MaxModules,
		MaxLessons: limits.MaxLessons,
	})
	if err != nil {
		return OutlineResult{}, apierr.Wrap(apierr.KindInternal, err)
	}

	var decoded OutlineV1
	provider, err := o.generateJSON(ctx, "outline", system, user, "course_outline", outlineSchema(), func(raw string) error {
		out, err := DecodeOutline(raw)
		if err != nil {
			return err
		}
		decoded = out
		return nil
	})
	if err != nil {
		return OutlineResult{}, err
	}
	return OutlineResult{
		Outline:  EnforceOutlineConstraints(decoded, req.Plan, req.Language),
		Provider: provider,
	}, nil
}

type LessonRequest struct {
	CourseTitle   string
	Language      string
	ModuleOrder   int
	ModuleTitle   string
	LessonOrder   int
	LessonTitle   string
	LessonSummary string
	Siblings      []string
}

type LessonResult struct {
	Content    LessonContentV1
	Provider   string
	ImageQuery string
}

func (o *Orchestrator) GenerateLesson(ctx context.Context, req LessonRequest) (LessonResult, error) {
	system, user, err := o.prompts.Render(prompts.Lesson, prompts.LessonData(req))
	if err != nil {
		return LessonResult{}, apierr.Wrap(apierr.KindInternal, err)
	}
	var decoded LessonContentV1
	provider, err := o.generateJSON(ctx, "lesson", system, user, "lesson_content", lessonSchema(), func(raw string) error {
		out, err := DecodeLessonContent(raw)
		if err != nil {
			return err
		}
		decoded = out
		return nil
	})
	if err != nil {
		return LessonResult{}, err
	}
	return LessonResult{Content: decoded, Provider: provider, ImageQuery: strings.TrimSpace(decoded.ImageQuery)}, nil
}

type TutorRequest struct {
	Context  prompts.TutorData
	Messages []openai.Message
}

// Tutor answers a chat conversation. Providers fall back on any error; there is
// no parse step for plain text.
func (o *Orchestrator) Tutor(ctx context.Context, req TutorRequest) (reply string, provider string, err error) {
	system, _, err := o.prompts.Render(prompts.Tutor, req.Context)
	if err != nil {
		return "", "", apierr.Wrap(apierr.KindInternal, err)
	}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	var errs []error
	for _, p := range o.providers() {
		if ctx.Err() != nil {
			break
		}
		start := o.now()
		text, err := p.GenerateText(ctx, system, req.Messages, o.cfg.Temperature)
		o.observe(p.Name(), "tutor", err, start)
		if err == nil {
			return text, p.Name(), nil
		}
		o.log.Warn("tutor provider failed", "provider", p.Name(), "kind", apierr.KindOf(err).String(), "error", err)
		errs = append(errs, err)
	}
	return "", "", o.combine(ctx, errs)
}

// generateJSON runs the provider chain under the generation timeout. A response
// that fails accept is retried once on the same provider at RetryTemperature
// before moving to the next provider.
func (o *Orchestrator) generateJSON(ctx context.Context, op, system, user, schemaName string, schema map[string]any, accept func(raw string) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	var errs []error
	for _, p := range o.providers() {
		for attempt, temp := range []float64{o.cfg.Temperature, o.cfg.RetryTemperature} {
			if ctx.Err() != nil {
				return "", o.combine(ctx, errs)
			}
			start := o.now()
			raw, err := p.GenerateJSON(ctx, system, user, schemaName, schema, temp)
			if err != nil {
				o.observe(p.Name(), op, err, start)
				o.log.Warn("provider call failed",
					"op", op,
					"provider", p.Name(),
					"attempt", attempt+1,
					"kind", apierr.KindOf(err).String(),
					"error", err,
				)
				errs = append(errs, err)
				break
			}
			if perr := accept(raw); perr != nil {
				perr = apierr.Upstream(apierr.KindParse, p.Name(), perr)
				o.observe(p.Name(), op, perr, start)
				o.log.Warn("provider response rejected",
					"op", op,
					"provider", p.Name(),
					"attempt", attempt+1,
					"temperature", temp,
					"error", perr,
				)
				if attempt == 1 {
					errs = append(errs, perr)
				}
				continue
			}
			o.observe(p.Name(), op, nil, start)
			return p.Name(), nil
		}
	}
	return "", o.combine(ctx, errs)
}

func (o *Orchestrator) timeoutErr(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Wrap(apierr.KindTimeout, fmt.Errorf("generation timed out after %s", o.cfg.Timeout))
	}
	return apierr.Wrap(apierr.KindProviderUnavailable, err)
}

// combine merges provider errors. The result carries the most significant kind.
func (o *Orchestrator) combine(ctx context.Context, errs []error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && MostSignificantKind(errs) != apierr.KindTimeout {
		errs = append(errs, o.timeoutErr(ctx))
	}
	if len(errs) == 0 {
		return apierr.Newf(apierr.KindProviderUnavailable, "no provider produced a result")
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return apierr.Wrap(MostSignificantKind(errs), fmt.Errorf("all providers failed: %w", errors.Join(errs...)))
}

var kindRank = map[apierr.Kind]int{
	apierr.KindTimeout:             5,
	apierr.KindQuotaExceeded:       4,
	apierr.KindProviderAuth:        3,
	apierr.KindProviderUnavailable: 2,
	apierr.KindParse:               1,
}

// MostSignificantKind ranks Timeout over QuotaExceeded over ProviderAuth over
// ProviderUnavailable over Parse. Unclassified errors count as ProviderUnavailable.
func MostSignificantKind(errs []error) apierr.Kind {
	best := apierr.KindUnknown
	bestRank := 0
	for _, err := range errs {
		k := apierr.KindOf(err)
		r, ok := kindRank[k]
		if !ok {
			k, r = apierr.KindProviderUnavailable, kindRank[apierr.KindProviderUnavailable]
		}
		if r > bestRank {
			best, bestRank = k, r
		}
	}
	if best == apierr.KindUnknown {
		return apierr.KindProviderUnavailable
	}
	return best
}

func (o *Orchestrator) observe(provider, op string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = apierr.KindOf(err).String()
	}
	observability.Current().ObserveLLM(provider, op, outcome, o.now().Sub(start))
}
