package analytics

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"viraflow-api/internal/ai"
)

type CtxKey string

const ctxRequestIDKey CtxKey = "analytics_request_id"

// Outcome labels for endpoint events.
const (
	OutcomeOK         = "ok"
	OutcomeBadRequest = "bad_request"
	OutcomeFailed     = "failed"
	OutcomeDegraded   = "degraded"
)

// Envelope is what we attach to every event. Never carries user text.
type Envelope struct {
	RequestID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
}

// FromRequest extracts event envelope fields from request headers.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	if platform != "ios" && platform != "android" && platform != "web" {
		platform = "unknown"
	}

	locale := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = strings.TrimSpace(r.Header.Get("X-Device-Locale"))
	}

	reqID, _ := RequestIDFromContext(r.Context())

	return Envelope{
		RequestID:    reqID,
		Platform:     platform,
		AppVersion:   strings.TrimSpace(r.Header.Get("X-App-Version")),
		DeviceLocale: locale,
	}
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxRequestIDKey).(string)
	return v, ok && v != ""
}

type Metrics struct {
	requests         *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamFailures *prometheus.CounterVec
	imageDropped     prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the metrics registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// MustNewMetrics registers the collectors with reg and panics on conflict.
// Tests pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "viraflow",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Gateway requests by endpoint, outcome and client platform.",
			},
			[]string{"endpoint", "outcome", "platform"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "viraflow",
				Subsystem: "upstream",
				Name:      "completion_duration_seconds",
				Help:      "Latency of completion API calls.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"purpose", "status"},
		),
		upstreamFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "viraflow",
				Subsystem: "upstream",
				Name:      "completion_failures_total",
				Help:      "Completion API calls that returned an error.",
			},
			[]string{"purpose"},
		),
		imageDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "viraflow",
				Subsystem: "gateway",
				Name:      "images_dropped_total",
				Help:      "Image attachments that failed to decode and were skipped.",
			},
		),
	}

	reg.MustRegister(m.requests, m.upstreamDuration, m.upstreamFailures, m.imageDropped)
	return m
}

// Log counts one endpoint event.
func (m *Metrics) Log(env Envelope, endpoint, outcome string) {
	if m == nil {
		return
	}
	platform := env.Platform
	if platform == "" {
		platform = "unknown"
	}
	m.requests.WithLabelValues(endpoint, outcome, platform).Inc()
}

func (m *Metrics) ImageDropped() {
	if m == nil {
		return
	}
	m.imageDropped.Inc()
}

func (m *Metrics) observeUpstream(purpose ai.Purpose, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.upstreamFailures.WithLabelValues(string(purpose)).Inc()
	}
	m.upstreamDuration.WithLabelValues(string(purpose), status).Observe(d.Seconds())
}

type instrumentedCompleter struct {
	next    ai.Completer
	metrics *Metrics
}

// InstrumentCompleter times every upstream call made through next.
func InstrumentCompleter(next ai.Completer, m *Metrics) ai.Completer {
	if m == nil {
		return next
	}
	return &instrumentedCompleter{next: next, metrics: m}
}

func (c *instrumentedCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	start := time.Now()
	text, err := c.next.Complete(ctx, req)
	c.metrics.observeUpstream(req.Purpose, err, time.Since(start))
	return text, err
}
