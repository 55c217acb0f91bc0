package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestOTelObserverBuildSpanStatus(t *testing.T) {
	o := NewOTelObserver(OTelConfig{}, nil)

	cases := []struct {
		name   string
		event  models.ObserverEvent
		status models.SpanStatusCode
	}{
		{"llm success", models.ObserverEvent{Kind: models.EventLLMResponse, Success: true}, models.SpanStatusOK},
		{"llm failure", models.ObserverEvent{Kind: models.EventLLMResponse, Success: false, Error: "boom"}, models.SpanStatusError},
		{"tool call success", models.ObserverEvent{Kind: models.EventToolCall, Success: true}, models.SpanStatusOK},
		{"agent end failure", models.ObserverEvent{Kind: models.EventAgentEnd, Success: false}, models.SpanStatusError},
		{"agent start carries no status", models.ObserverEvent{Kind: models.EventAgentStart, Success: false}, models.SpanStatusUnset},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			span := o.buildSpan(tc.event)
			if span.Status != tc.status {
				t.Errorf("status = %v, want %v", span.Status, tc.status)
			}
		})
	}
}

func TestOTelObserverTraceAndSpanIDsAreWellFormed(t *testing.T) {
	o := NewOTelObserver(OTelConfig{}, nil)
	span := o.buildSpan(models.ObserverEvent{Kind: models.EventAgentStart})

	if len(span.TraceID) != 32 {
		t.Errorf("trace id length = %d, want 32 hex chars", len(span.TraceID))
	}
	if len(span.SpanID) != 16 {
		t.Errorf("span id length = %d, want 16 hex chars", len(span.SpanID))
	}
}

func TestOTelObserverAutoFlushesAtBatchSize(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		var payload otlpExportRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		spans := payload.ResourceSpans[0].ScopeSpans[0].Spans
		if len(spans) != 2 {
			t.Errorf("exported span count = %d, want 2", len(spans))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	o := NewOTelObserver(OTelConfig{Endpoint: server.URL, MaxBatchSize: 2}, nil)
	o.RecordEvent(models.ObserverEvent{Kind: models.EventAgentStart})
	o.RecordEvent(models.ObserverEvent{Kind: models.EventAgentEnd, Success: true})

	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Fatalf("export POST count = %d, want 1 (auto-flush at batch size)", got)
	}

	o.mu.Lock()
	buffered := len(o.spans)
	o.mu.Unlock()
	if buffered != 0 {
		t.Fatalf("buffer not drained after auto-flush, len=%d", buffered)
	}
}

func TestOTelObserverFlushNoopWithoutEndpoint(t *testing.T) {
	o := NewOTelObserver(OTelConfig{}, nil)
	o.RecordEvent(models.ObserverEvent{Kind: models.EventAgentStart})

	if err := o.Flush(); err != nil {
		t.Fatalf("Flush() with no endpoint = %v, want nil", err)
	}
}

func TestOTelObserverFlushSendsHeaders(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	o := NewOTelObserver(OTelConfig{
		Endpoint: server.URL,
		Headers:  map[string]string{"Authorization": "Bearer test-token"},
	}, nil)
	o.RecordEvent(models.ObserverEvent{Kind: models.EventAgentStart})

	if err := o.Flush(); err != nil {
		t.Fatalf("Flush() = %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer test-token")
	}
}

func TestOTelObserverName(t *testing.T) {
	o := NewOTelObserver(OTelConfig{}, nil)
	if o.Name() != "otel" {
		t.Errorf("Name() = %q, want %q", o.Name(), "otel")
	}
}

func TestParseKVPairs(t *testing.T) {
	cases := []struct {
		in   string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"k=v", map[string]string{"k": "v"}},
		{"k1=v1,k2=v2", map[string]string{"k1": "v1", "k2": "v2"}},
		{" k1 = v1 , k2=v2 ", map[string]string{"k1": "v1", "k2": "v2"}},
		{"malformed,k=v", map[string]string{"k": "v"}},
	}

	for _, tc := range cases {
		got := parseKVPairs(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("parseKVPairs(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for k, v := range tc.want {
			if got[k] != v {
				t.Errorf("parseKVPairs(%q)[%q] = %q, want %q", tc.in, k, got[k], v)
			}
		}
	}
}

func TestOTlpStatusCodeMapping(t *testing.T) {
	cases := []struct {
		in   models.SpanStatusCode
		want int
	}{
		{models.SpanStatusUnset, 0},
		{models.SpanStatusOK, 1},
		{models.SpanStatusError, 2},
	}
	for _, tc := range cases {
		if got := otlpStatusCodeFromSpan(tc.in); got != tc.want {
			t.Errorf("otlpStatusCodeFromSpan(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEventAttributesOnlyIncludesSuccessForStatusKinds(t *testing.T) {
	attrs := eventAttributes(models.ObserverEvent{Kind: models.EventAgentStart, Success: true})
	for _, a := range attrs {
		if a.Key == "success" {
			t.Fatalf("unexpected success attribute on a kind with no meaningful Success field")
		}
	}

	attrs = eventAttributes(models.ObserverEvent{Kind: models.EventToolCall, Success: true, Tool: "edit"})
	found := false
	for _, a := range attrs {
		if a.Key == "success" {
			found = true
			if a.Value.BoolValue == nil || !*a.Value.BoolValue {
				t.Errorf("success attribute = %v, want true", a.Value.BoolValue)
			}
		}
	}
	if !found {
		t.Fatalf("expected a success attribute for EventToolCall")
	}
}
