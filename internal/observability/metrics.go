package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters and histograms for desktop actions and model calls.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// guard their calls.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	m := observability.NewMetrics(reg)
//	m.ObserveAction("left_click", "success", time.Since(start))
type Metrics struct {
	// ActionCounter counts computer actions.
	// Labels: action, status (success|rejected|error)
	ActionCounter *prometheus.CounterVec

	// ActionDuration measures time spent executing a computer action in seconds.
	// Labels: action
	ActionDuration *prometheus.HistogramVec

	// ModelRequestCounter counts model API calls.
	// Labels: provider, model, status (success|error)
	ModelRequestCounter *prometheus.CounterVec

	// ModelRequestDuration measures model API latency in seconds.
	// Labels: provider, model
	ModelRequestDuration *prometheus.HistogramVec

	// ModelTokens tracks token consumption.
	// Labels: provider, model, type (input|output)
	ModelTokens *prometheus.CounterVec

	// ImagesTrimmed counts screenshots dropped from the conversation history.
	ImagesTrimmed prometheus.Counter
}

// NewMetrics registers all collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so registrations never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActionCounter: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskpilot",
			Name:      "actions_total",
			Help:      "Computer actions executed, by action and status.",
		}, []string{"action", "status"}),
		ActionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deskpilot",
			Name:      "action_duration_seconds",
			Help:      "Computer action execution time.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 100},
		}, []string{"action"}),
		ModelRequestCounter: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskpilot",
			Name:      "model_requests_total",
			Help:      "Model API requests, by provider, model and status.",
		}, []string{"provider", "model", "status"}),
		ModelRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deskpilot",
			Name:      "model_request_duration_seconds",
			Help:      "Model API request latency.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "model"}),
		ModelTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskpilot",
			Name:      "model_tokens_total",
			Help:      "Tokens consumed, by provider, model and direction.",
		}, []string{"provider", "model", "type"}),
		ImagesTrimmed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "deskpilot",
			Name:      "images_trimmed_total",
			Help:      "Screenshots removed from conversation history.",
		}),
	}
}

// ObserveAction records one computer action.
func (m *Metrics) ObserveAction(action, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ActionCounter.WithLabelValues(action, status).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// ObserveModelRequest records one model API call and its token usage.
func (m *Metrics) ObserveModelRequest(provider, model, status string, d time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.ModelRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.ModelRequestDuration.WithLabelValues(provider, model).Observe(d.Seconds())
	if inputTokens > 0 {
		m.ModelTokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.ModelTokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// ObserveImagesTrimmed records screenshots dropped from history.
func (m *Metrics) ObserveImagesTrimmed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ImagesTrimmed.Add(float64(n))
}
