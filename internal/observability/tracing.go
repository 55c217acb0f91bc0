package observability

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// OTelConfig configures the OTLP/HTTP span exporter. Fields left zero pick
// up the matching OTEL_EXPORTER_OTLP_* environment variable, following the
// teacher's env-override convention for ambient config.
type OTelConfig struct {
	// Endpoint is the OTLP/HTTP traces collector URL, e.g.
	// "http://localhost:4318/v1/traces". Flush is a no-op when empty.
	Endpoint string

	// ServiceName and ServiceVersion populate the exported resource.
	ServiceName    string
	ServiceVersion string

	// Headers are sent with every export POST (e.g. collector auth).
	Headers map[string]string

	// ResourceAttributes are merged into the exported resource alongside
	// service.name/service.version.
	ResourceAttributes map[string]string

	// MaxBatchSize triggers an automatic Flush once this many spans have
	// buffered. Zero picks the default.
	MaxBatchSize int
}

// DefaultOTelConfig reads OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_SERVICE_NAME,
// OTEL_SERVICE_VERSION, OTEL_EXPORTER_OTLP_HEADERS, and
// OTEL_RESOURCE_ATTRIBUTES, matching the env vars the OTel SDK itself
// recognizes.
func DefaultOTelConfig() OTelConfig {
	return OTelConfig{
		Endpoint:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:        envOrDefault("OTEL_SERVICE_NAME", "agentcore"),
		ServiceVersion:     os.Getenv("OTEL_SERVICE_VERSION"),
		Headers:            parseKVPairs(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		ResourceAttributes: parseKVPairs(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")),
		MaxBatchSize:       defaultOTelBatchSize,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseKVPairs splits a "k1=v1,k2=v2" string, the format OTEL_* headers and
// resource-attribute env vars use.
func parseKVPairs(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

const defaultOTelBatchSize = 50

// eventsWithStatus is the set of ObserverEventKind values whose Success
// field is meaningful (see models.ObserverEvent), and thus the only kinds
// whose exported span gets an ok/error status instead of unset.
var eventsWithStatus = map[models.ObserverEventKind]bool{
	models.EventLLMResponse: true,
	models.EventAgentEnd:    true,
	models.EventToolCall:    true,
}

// OTelObserver batches ObserverEvent samples into OTLP spans and exports
// them over OTLP/HTTP JSON, a hand-rolled equivalent of the SDK's batch
// span processor scoped to what this runtime actually emits: one span per
// lifecycle event, no manual Start/End pairing.
type OTelObserver struct {
	cfg    OTelConfig
	client *http.Client
	logger *Logger

	mu    sync.Mutex
	spans []models.Span
}

// NewOTelObserver creates an OTelObserver. A nil logger falls back to a
// default Logger so export failures are still reported somewhere.
func NewOTelObserver(cfg OTelConfig, logger *Logger) *OTelObserver {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultOTelBatchSize
	}
	if logger == nil {
		logger = NewLogger(LogConfig{})
	}
	return &OTelObserver{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (o *OTelObserver) Name() string { return "otel" }

// RecordEvent turns event into a span and buffers it, flushing once the
// batch reaches cfg.MaxBatchSize.
func (o *OTelObserver) RecordEvent(event models.ObserverEvent) {
	span := o.buildSpan(event)

	o.mu.Lock()
	o.spans = append(o.spans, span)
	shouldFlush := len(o.spans) >= o.cfg.MaxBatchSize
	o.mu.Unlock()

	if shouldFlush {
		if err := o.Flush(); err != nil {
			o.logger.Error(contextBackground(), "otel batch flush failed", "error", err)
		}
	}
}

// RecordMetric is a no-op: OTelObserver exports spans only, matching the
// narrower otel contract this runtime needs (metrics already go through
// PrometheusObserver).
func (o *OTelObserver) RecordMetric(models.ObserverMetric) {}

func (o *OTelObserver) buildSpan(event models.ObserverEvent) models.Span {
	status := models.SpanStatusUnset
	statusMsg := ""
	if eventsWithStatus[event.Kind] {
		if event.Success {
			status = models.SpanStatusOK
		} else {
			status = models.SpanStatusError
			statusMsg = event.Error
		}
	}

	now := time.Now()
	start := now
	if event.DurationMS > 0 {
		start = now.Add(-time.Duration(event.DurationMS) * time.Millisecond)
	}

	return models.Span{
		TraceID:    newTraceID(),
		SpanID:     newSpanID(),
		Name:       string(event.Kind),
		Kind:       models.SpanKindInternal,
		StartNanos: start.UnixNano(),
		EndNanos:   now.UnixNano(),
		Attributes: eventAttributes(event),
		Status:     status,
		StatusMsg:  statusMsg,
	}
}

// eventAttributes projects the subset of ObserverEvent fields that carry
// meaning for event.Kind onto span attributes.
func eventAttributes(event models.ObserverEvent) []models.Attribute {
	var attrs []models.Attribute
	if event.Provider != "" {
		attrs = append(attrs, models.Attribute{Key: "provider", Value: models.StringAttr(event.Provider)})
	}
	if event.Model != "" {
		attrs = append(attrs, models.Attribute{Key: "model", Value: models.StringAttr(event.Model)})
	}
	if event.Tool != "" {
		attrs = append(attrs, models.Attribute{Key: "tool", Value: models.StringAttr(event.Tool)})
	}
	if event.Channel != "" {
		attrs = append(attrs, models.Attribute{Key: "channel", Value: models.StringAttr(event.Channel)})
	}
	if event.MsgCount > 0 {
		attrs = append(attrs, models.Attribute{Key: "msg_count", Value: models.IntAttr(int64(event.MsgCount))})
	}
	if event.DurationMS > 0 {
		attrs = append(attrs, models.Attribute{Key: "duration_ms", Value: models.IntAttr(event.DurationMS)})
	}
	if event.TokensUsed > 0 {
		attrs = append(attrs, models.Attribute{Key: "tokens_used", Value: models.IntAttr(int64(event.TokensUsed))})
	}
	if eventsWithStatus[event.Kind] {
		attrs = append(attrs, models.Attribute{Key: "success", Value: models.BoolAttr(event.Success)})
	}
	return attrs
}

func newTraceID() string { return randomHex(16) }
func newSpanID() string  { return randomHex(8) }

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform has no entropy source;
		// an all-zero id still round-trips through the OTLP schema.
		return strings.Repeat("0", n*2)
	}
	return hex.EncodeToString(buf)
}

// Flush drains the buffered spans and POSTs them as a single OTLP/HTTP
// JSON export request. It is a no-op when no endpoint is configured or the
// buffer is empty, and it always drains the buffer even on export failure
// so a collector outage doesn't grow the batch without bound.
func (o *OTelObserver) Flush() error {
	o.mu.Lock()
	spans := o.spans
	o.spans = nil
	o.mu.Unlock()

	if len(spans) == 0 || o.cfg.Endpoint == "" {
		return nil
	}

	payload := o.buildPayload(spans)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal otlp payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, o.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build otlp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range o.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("export otlp spans: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.logger.Error(contextBackground(), "otlp export rejected",
			"status", resp.StatusCode, "span_count", len(spans))
	}
	return nil
}

func (o *OTelObserver) buildPayload(spans []models.Span) otlpExportRequest {
	resourceAttrs := make([]otlpKeyValue, 0, len(o.cfg.ResourceAttributes)+2)
	resourceAttrs = append(resourceAttrs,
		otlpKeyValue{Key: "service.name", Value: otlpAnyValue{StringValue: strPtr(o.cfg.ServiceName)}})
	if o.cfg.ServiceVersion != "" {
		resourceAttrs = append(resourceAttrs,
			otlpKeyValue{Key: "service.version", Value: otlpAnyValue{StringValue: strPtr(o.cfg.ServiceVersion)}})
	}
	for k, v := range o.cfg.ResourceAttributes {
		resourceAttrs = append(resourceAttrs, otlpKeyValue{Key: k, Value: otlpAnyValue{StringValue: strPtr(v)}})
	}

	otlpSpans := make([]otlpSpan, 0, len(spans))
	for _, s := range spans {
		otlpSpans = append(otlpSpans, otlpSpan{
			TraceID:           s.TraceID,
			SpanID:            s.SpanID,
			ParentSpanID:      s.ParentSpanID,
			Name:              s.Name,
			Kind:              spanKindCode(s.Kind),
			StartTimeUnixNano: s.StartNanos,
			EndTimeUnixNano:   s.EndNanos,
			Attributes:        attributesToOTLP(s.Attributes),
			Status:            otlpStatus{Code: otlpStatusCodeFromSpan(s.Status), Message: s.StatusMsg},
		})
	}

	return otlpExportRequest{
		ResourceSpans: []otlpResourceSpans{{
			Resource: otlpResource{Attributes: resourceAttrs},
			ScopeSpans: []otlpScopeSpans{{
				Scope: otlpScope{Name: "agentcore"},
				Spans: otlpSpans,
			}},
		}},
	}
}

// spanKindCode maps a SpanKind onto the OTLP enum; INTERNAL is the only
// kind this exporter produces.
func spanKindCode(k models.SpanKind) int {
	switch k {
	case models.SpanKindInternal:
		return 1
	default:
		return 0
	}
}

func attributesToOTLP(attrs []models.Attribute) []otlpKeyValue {
	out := make([]otlpKeyValue, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, modelAttrToOTLP(a))
	}
	return out
}

func modelAttrToOTLP(a models.Attribute) otlpKeyValue {
	switch {
	case a.Value.StringValue != nil:
		return otlpKeyValue{Key: a.Key, Value: otlpAnyValue{StringValue: a.Value.StringValue}}
	case a.Value.IntValue != nil:
		return otlpKeyValue{Key: a.Key, Value: otlpAnyValue{IntValue: a.Value.IntValue}}
	case a.Value.DoubleValue != nil:
		return otlpKeyValue{Key: a.Key, Value: otlpAnyValue{DoubleValue: a.Value.DoubleValue}}
	case a.Value.BoolValue != nil:
		return otlpKeyValue{Key: a.Key, Value: otlpAnyValue{BoolValue: a.Value.BoolValue}}
	default:
		return otlpKeyValue{Key: a.Key}
	}
}

// otlpStatusCodeFromSpan maps models.SpanStatusCode onto the OTLP wire
// enum (STATUS_CODE_UNSET=0, STATUS_CODE_OK=1, STATUS_CODE_ERROR=2).
func otlpStatusCodeFromSpan(s models.SpanStatusCode) int {
	switch s {
	case models.SpanStatusOK:
		return 1
	case models.SpanStatusError:
		return 2
	default:
		return 0
	}
}

func strPtr(s string) *string { return &s }

// otlpExportRequest mirrors the OTLP/HTTP JSON trace export request body
// (opentelemetry.proto.collector.trace.v1.ExportTraceServiceRequest),
// trimmed to the fields this exporter populates.
type otlpExportRequest struct {
	ResourceSpans []otlpResourceSpans `json:"resourceSpans"`
}

type otlpResourceSpans struct {
	Resource   otlpResource     `json:"resource"`
	ScopeSpans []otlpScopeSpans `json:"scopeSpans"`
}

type otlpResource struct {
	Attributes []otlpKeyValue `json:"attributes,omitempty"`
}

type otlpScopeSpans struct {
	Scope otlpScope  `json:"scope"`
	Spans []otlpSpan `json:"spans"`
}

type otlpScope struct {
	Name string `json:"name"`
}

type otlpSpan struct {
	TraceID           string         `json:"traceId"`
	SpanID            string         `json:"spanId"`
	ParentSpanID      string         `json:"parentSpanId,omitempty"`
	Name              string         `json:"name"`
	Kind              int            `json:"kind"`
	StartTimeUnixNano int64          `json:"startTimeUnixNano"`
	EndTimeUnixNano   int64          `json:"endTimeUnixNano"`
	Attributes        []otlpKeyValue `json:"attributes,omitempty"`
	Status            otlpStatus     `json:"status"`
}

type otlpStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

type otlpKeyValue struct {
	Key   string       `json:"key"`
	Value otlpAnyValue `json:"value"`
}

type otlpAnyValue struct {
	StringValue *string  `json:"stringValue,omitempty"`
	IntValue    *int64   `json:"intValue,omitempty"`
	DoubleValue *float64 `json:"doubleValue,omitempty"`
	BoolValue   *bool    `json:"boolValue,omitempty"`
}
