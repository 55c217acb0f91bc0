package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// Observer is the sink for agent-loop and event-loop telemetry: one
// RecordEvent per lifecycle point, one RecordMetric per gauge/counter
// sample, and Flush to force any buffered exporter to drain before
// shutdown. Five implementations cover every deployment shape: Noop
// (discard), LogObserver (structured logs), verboseObserver (human-watched
// terminal), MultiObserver (fan-out), and OTelObserver (batched OTLP span
// export). Implementations must be safe for concurrent use.
type Observer interface {
	Name() string
	RecordEvent(event models.ObserverEvent)
	RecordMetric(metric models.ObserverMetric)
	Flush() error
}

type noopObserver struct{}

// Noop returns an Observer that discards everything, the default for a
// Loop that hasn't had SetObserver called.
func Noop() Observer { return noopObserver{} }

func (noopObserver) Name() string                          { return "noop" }
func (noopObserver) RecordEvent(models.ObserverEvent)       {}
func (noopObserver) RecordMetric(models.ObserverMetric)     {}
func (noopObserver) Flush() error                           { return nil }

// LogObserver writes every event and metric through the teacher-style
// structured Logger, at Debug for metrics and Info/Error for events
// depending on Success.
type LogObserver struct {
	logger *Logger
}

// NewLogObserver wraps an existing Logger as an Observer.
func NewLogObserver(logger *Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Name() string { return "log" }

func (o *LogObserver) RecordEvent(event models.ObserverEvent) {
	ctx := contextBackground()
	args := []any{"kind", string(event.Kind)}
	if event.Provider != "" {
		args = append(args, "provider", event.Provider)
	}
	if event.Model != "" {
		args = append(args, "model", event.Model)
	}
	if event.Tool != "" {
		args = append(args, "tool", event.Tool)
	}
	if event.Channel != "" {
		args = append(args, "channel", event.Channel)
	}
	if event.DurationMS > 0 {
		args = append(args, "duration_ms", event.DurationMS)
	}
	if event.TokensUsed > 0 {
		args = append(args, "tokens_used", event.TokensUsed)
	}
	if event.MsgCount > 0 {
		args = append(args, "msg_count", event.MsgCount)
	}
	if event.Error != "" {
		args = append(args, "error", event.Error)
		o.logger.Error(ctx, "observer event", args...)
		return
	}
	o.logger.Info(ctx, "observer event", args...)
}

func (o *LogObserver) RecordMetric(metric models.ObserverMetric) {
	o.logger.Debug(contextBackground(), "observer metric",
		"kind", string(metric.Kind), "value", metric.Value)
}

func (o *LogObserver) Flush() error { return o.logger.Sync() }

// verboseObserver prints one arrow-prefixed line per event straight to a
// writer (stdout by default), for `--verbose` CLI runs where a human is
// watching the terminal instead of tailing structured logs.
type verboseObserver struct {
	out io.Writer
}

// NewVerboseObserver creates a verbose observer writing to w. A nil w
// defaults to os.Stdout.
func NewVerboseObserver(w io.Writer) Observer {
	if w == nil {
		w = os.Stdout
	}
	return &verboseObserver{out: w}
}

func (v *verboseObserver) Name() string { return "verbose" }

func (v *verboseObserver) RecordEvent(event models.ObserverEvent) {
	arrow := "->"
	if event.Error != "" {
		arrow = "!!"
	}
	fmt.Fprintf(v.out, "%s %s", arrow, event.Kind)
	if event.Provider != "" {
		fmt.Fprintf(v.out, " provider=%s", event.Provider)
	}
	if event.Model != "" {
		fmt.Fprintf(v.out, " model=%s", event.Model)
	}
	if event.Tool != "" {
		fmt.Fprintf(v.out, " tool=%s", event.Tool)
	}
	if event.Channel != "" {
		fmt.Fprintf(v.out, " channel=%s", event.Channel)
	}
	if event.DurationMS > 0 {
		fmt.Fprintf(v.out, " (%dms)", event.DurationMS)
	}
	if event.Error != "" {
		fmt.Fprintf(v.out, " error=%q", event.Error)
	}
	fmt.Fprintln(v.out)
}

func (v *verboseObserver) RecordMetric(metric models.ObserverMetric) {
	fmt.Fprintf(v.out, ".. %s=%v\n", metric.Kind, metric.Value)
}

func (v *verboseObserver) Flush() error { return nil }

// MultiObserver fans one event or metric out to every wrapped Observer.
// A failure to Flush one member does not stop the rest from flushing; all
// errors are joined.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver wires several observers together.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	return &MultiObserver{observers: observers}
}

func (m *MultiObserver) Name() string { return "multi" }

func (m *MultiObserver) RecordEvent(event models.ObserverEvent) {
	for _, o := range m.observers {
		o.RecordEvent(event)
	}
}

func (m *MultiObserver) RecordMetric(metric models.ObserverMetric) {
	for _, o := range m.observers {
		o.RecordMetric(metric)
	}
}

func (m *MultiObserver) Flush() error {
	var errs []error
	for _, o := range m.observers {
		if err := o.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("multi observer flush: %v", errs)
}

// PrometheusObserver projects ObserverEvent/ObserverMetric samples onto a
// small set of Prometheus collectors, grounded on the teacher's
// metrics.go vectors (LLMRequestDuration/LLMRequestCounter/
// ToolExecutionCounter/ToolExecutionDuration/ActiveSessions) but scoped to
// exactly what the agent loop and event loop emit.
type PrometheusObserver struct {
	llmDuration  *prometheus.HistogramVec
	llmCounter   *prometheus.CounterVec
	toolCounter  *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	activeSess   prometheus.Gauge
}

// NewPrometheusObserver registers its collectors against the default
// registry via promauto, following the teacher's NewMetrics pattern.
func NewPrometheusObserver() *PrometheusObserver {
	return &PrometheusObserver{
		llmDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_llm_request_duration_seconds",
			Help:    "LLM request latency in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		llmCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_llm_requests_total",
			Help: "LLM requests by provider and outcome.",
		}, []string{"provider", "status"}),
		toolCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_executions_total",
			Help: "Tool invocations by name and outcome.",
		}, []string{"tool", "status"}),
		toolDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_tool_execution_duration_seconds",
			Help:    "Tool execution time in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool"}),
		activeSess: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "agentcore_active_sessions",
			Help: "Currently active agent sessions.",
		}),
	}
}

func (p *PrometheusObserver) Name() string { return "prometheus" }

func (p *PrometheusObserver) RecordEvent(event models.ObserverEvent) {
	status := "success"
	if !event.Success && event.Error != "" {
		status = "error"
	}
	switch event.Kind {
	case models.EventLLMResponse:
		p.llmCounter.WithLabelValues(event.Provider, status).Inc()
		if event.DurationMS > 0 {
			p.llmDuration.WithLabelValues(event.Provider).Observe(float64(event.DurationMS) / 1000)
		}
	case models.EventToolCall:
		p.toolCounter.WithLabelValues(event.Tool, status).Inc()
		if event.DurationMS > 0 {
			p.toolDuration.WithLabelValues(event.Tool).Observe(float64(event.DurationMS) / 1000)
		}
	}
}

func (p *PrometheusObserver) RecordMetric(metric models.ObserverMetric) {
	if metric.Kind == models.MetricActiveSessions {
		p.activeSess.Set(metric.Value)
	}
}

func (p *PrometheusObserver) Flush() error { return nil }

func contextBackground() context.Context {
	return context.Background()
}
