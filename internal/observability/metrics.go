package observability

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
)

type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	llmRequests   *CounterVec
	llmLatency    *HistogramVec
	generations   *CounterVec
	rateLimited   *CounterVec
	certificates  *CounterVec
	webhookEvents *CounterVec
	mediaLookups  *CounterVec

	all []collector
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process metrics, or nil when Init was never called.
func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once.
func Init() *Metrics {
	initOnce.Do(func() {
		instance = NewMetrics()
	})
	return instance
}

// NewMetrics builds an unregistered set, used directly by tests.
func NewMetrics() *Metrics {
	m := &Metrics{
		apiRequests: NewCounterVec("coursegen_api_requests_total", "HTTP requests served.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("coursegen_api_request_duration_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight: NewGauge("coursegen_api_inflight_requests", "HTTP requests in flight."),
		llmRequests: NewCounterVec("coursegen_llm_requests_total", "AI provider calls by outcome kind.", []string{"provider", "operation", "outcome"}),
		llmLatency:  NewHistogramVec("coursegen_llm_request_duration_seconds", "AI provider call latency.", []string{"provider", "operation"}, nil),
		generations: NewCounterVec("coursegen_generations_total", "Generation requests by outcome.", []string{"target", "outcome"}),
		rateLimited: NewCounterVec("coursegen_rate_limited_total", "Requests rejected by a rate limiter.", []string{"limiter"}),
		certificates: NewCounterVec("coursegen_certificates_total", "Certificate requests by result.", []string{"result"}),
		webhookEvents: NewCounterVec("coursegen_webhook_events_total", "Stripe webhook events by type and result.", []string{"type", "result"}),
		mediaLookups:  NewCounterVec("coursegen_media_lookups_total", "Media searches by source and outcome.", []string{"source", "outcome"}),
	}
	m.all = []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.generations,
		m.rateLimited, m.certificates, m.webhookEvents, m.mediaLookups,
	}
	return m
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.all {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveLLM records one provider attempt; outcome is "ok" or an error kind.
func (m *Metrics) ObserveLLM(provider, operation, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(provider, operation, outcome)
	m.llmLatency.Observe(dur.Seconds(), provider, operation)
}

func (m *Metrics) IncGeneration(target, outcome string) {
	if m != nil {
		m.generations.Inc(target, outcome)
	}
}

func (m *Metrics) IncRateLimited(limiter string) {
	if m != nil {
		m.rateLimited.Inc(limiter)
	}
}

func (m *Metrics) IncCertificate(result string) {
	if m != nil {
		m.certificates.Inc(result)
	}
}

func (m *Metrics) IncWebhookEvent(eventType, result string) {
	if m != nil {
		m.webhookEvents.Inc(eventType, result)
	}
}

func (m *Metrics) IncMediaLookup(source, outcome string) {
	if m != nil {
		m.mediaLookups.Inc(source, outcome)
	}
}

func (m *Metrics) GenerationCount(target, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.generations.Value(target, outcome)
}
