package models

// ObserverEventKind discriminates the shape of an ObserverEvent's payload.
type ObserverEventKind string

const (
	EventAgentStart     ObserverEventKind = "agent-start"
	EventLLMRequest     ObserverEventKind = "llm-request"
	EventLLMResponse    ObserverEventKind = "llm-response"
	EventAgentEnd       ObserverEventKind = "agent-end"
	EventToolCallStart  ObserverEventKind = "tool-call-start"
	EventToolCall       ObserverEventKind = "tool-call"
	EventTurnComplete   ObserverEventKind = "turn-complete"
	EventChannelMessage ObserverEventKind = "channel-message"
)

// ObserverEvent is a discriminated record describing one occurrence in the
// agent runtime. Exactly the fields relevant to Kind are populated; the
// rest are left at zero value.
type ObserverEvent struct {
	Kind ObserverEventKind

	// agent-start, llm-request, llm-response
	Provider string
	Model    string

	// llm-request
	MsgCount int

	// llm-response, agent-end, tool-call
	DurationMS int64
	Success    bool
	Error      string

	// agent-end
	TokensUsed int

	// tool-call-start, tool-call
	Tool string

	// channel-message
	Channel   string
	Direction Direction
}

// Direction indicates whether a channel message is inbound or outbound.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ObserverMetricKind names the one of the three recognized metrics.
type ObserverMetricKind string

const (
	MetricRequestLatencyMS ObserverMetricKind = "request-latency-ms"
	MetricTokensUsed       ObserverMetricKind = "tokens-used"
	MetricActiveSessions   ObserverMetricKind = "active-sessions"
)

// ObserverMetric is a single named numeric observation.
type ObserverMetric struct {
	Kind  ObserverMetricKind
	Value float64
}

// SpanStatusCode enumerates the three OTEL-style span outcomes.
type SpanStatusCode string

const (
	SpanStatusUnset SpanStatusCode = "unset"
	SpanStatusOK    SpanStatusCode = "ok"
	SpanStatusError SpanStatusCode = "error"
)

// SpanKind is always "internal" for spans produced by this exporter; kept
// as a named type so a future exporter variant can widen it.
type SpanKind string

const SpanKindInternal SpanKind = "internal"

// AttributeValue holds exactly one of a string, integer, double, or
// boolean value, mirroring the OTLP attribute value union.
type AttributeValue struct {
	StringValue *string
	IntValue    *int64
	DoubleValue *float64
	BoolValue   *bool
}

// StringAttr builds a string-valued attribute.
func StringAttr(v string) AttributeValue { return AttributeValue{StringValue: &v} }

// IntAttr builds an integer-valued attribute.
func IntAttr(v int64) AttributeValue { return AttributeValue{IntValue: &v} }

// BoolAttr builds a boolean-valued attribute.
func BoolAttr(v bool) AttributeValue { return AttributeValue{BoolValue: &v} }

// Attribute is a single named, typed span attribute.
type Attribute struct {
	Key   string
	Value AttributeValue
}

// Span is a single-point (start == end) span produced for one observer
// event: TraceID and SpanID are 16/8 random bytes rendered as hex.
type Span struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Name         string
	Kind         SpanKind
	StartNanos   int64
	EndNanos     int64
	Attributes   []Attribute
	Status       SpanStatusCode
	StatusMsg    string
}
