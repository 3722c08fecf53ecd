package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for the tool pipeline.
//
// It tracks:
//   - Tool invocations by name and outcome, with execution latency
//   - Perception/reasoning service calls by operation and status
//   - Desktop helper command executions by binary and status
//   - HTTP requests on the transport surface
type Metrics struct {
	// ToolInvocations counts tool calls.
	// Labels: tool, outcome (success|failure)
	ToolInvocations *prometheus.CounterVec

	// ToolDuration measures tool execution time in seconds.
	// Labels: tool
	// Buckets: 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s, 10s, 30s, 60s
	ToolDuration *prometheus.HistogramVec

	// AIRequests counts perception/reasoning service calls.
	// Labels: operation (perceive|reason), status (success|error)
	AIRequests *prometheus.CounterVec

	// AIRequestDuration measures service call latency in seconds.
	// Labels: operation
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s
	AIRequestDuration *prometheus.HistogramVec

	// DesktopCommands counts helper binary executions.
	// Labels: binary (xdotool|wmctrl|scrot|...), status (success|error)
	DesktopCommands *prometheus.CounterVec

	// HTTPRequests counts transport requests.
	// Labels: path, status
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration measures request handling time in seconds.
	// Labels: path
	// Buckets: 0.001s, 0.005s, 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s
	HTTPDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector backed by its own registry, so
// multiple collectors can coexist in one process without
// duplicate-registration panics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		ToolInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskagent_tool_invocations_total",
				Help: "Total tool invocations by name and outcome",
			},
			[]string{"tool", "outcome"},
		),

		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskagent_tool_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),

		AIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskagent_ai_requests_total",
				Help: "Total perception/reasoning service calls by operation and status",
			},
			[]string{"operation", "status"},
		),

		AIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskagent_ai_request_duration_seconds",
				Help:    "Duration of perception/reasoning service calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),

		DesktopCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskagent_desktop_commands_total",
				Help: "Total desktop helper command executions by binary and status",
			},
			[]string{"binary", "status"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskagent_http_requests_total",
				Help: "Total HTTP requests by path and status code",
			},
			[]string{"path", "status"},
		),

		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskagent_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"path"},
		),

		registry: registry,
	}
}

// Registry exposes the underlying registry for exposition handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTool records one tool invocation.
//
// Example:
//
//	start := time.Now()
//	// ... execute tool ...
//	metrics.ObserveTool("click", "success", time.Since(start))
func (m *Metrics) ObserveTool(tool, outcome string, duration time.Duration) {
	m.ToolInvocations.WithLabelValues(tool, outcome).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveAIRequest records one perception/reasoning service call.
func (m *Metrics) ObserveAIRequest(operation, status string, duration time.Duration) {
	m.AIRequests.WithLabelValues(operation, status).Inc()
	m.AIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveDesktopCommand records one helper binary execution.
func (m *Metrics) ObserveDesktopCommand(binary, status string) {
	m.DesktopCommands.WithLabelValues(binary, status).Inc()
}

// ObserveHTTPRequest records one transport request.
func (m *Metrics) ObserveHTTPRequest(path, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(path, status).Inc()
	m.HTTPDuration.WithLabelValues(path).Observe(duration.Seconds())
}
