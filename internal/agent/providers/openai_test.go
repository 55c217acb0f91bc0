package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestOpenAIProviderStreamsTextThenDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL)
	chunks, err := p.Complete(context.Background(), &agent.CompletionRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var text strings.Builder
	done := false
	for c := range chunks {
		if c.Error != nil {
			t.Fatalf("unexpected chunk error: %v", c.Error)
		}
		text.WriteString(c.Text)
		if c.Done {
			done = true
		}
	}
	if text.String() != "hello" {
		t.Errorf("text = %q, want %q", text.String(), "hello")
	}
	if !done {
		t.Error("expected a Done chunk")
	}
}

func TestOpenAIProviderAccumulatesStreamedToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"get_weather"}}]}}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]}}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"nyc\"}"}}]}}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL)
	chunks, err := p.Complete(context.Background(), &agent.CompletionRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "weather?"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var toolCall *models.ToolCall
	for c := range chunks {
		if c.ToolCall != nil {
			toolCall = c.ToolCall
		}
	}
	if toolCall == nil {
		t.Fatal("expected a tool call chunk")
	}
	if toolCall.Name != "get_weather" || toolCall.ID != "call_1" {
		t.Errorf("tool call = %+v", toolCall)
	}
	var args map[string]string
	if err := json.Unmarshal(toolCall.Input, &args); err != nil {
		t.Fatalf("tool call input not valid JSON: %v (%s)", err, toolCall.Input)
	}
	if args["city"] != "nyc" {
		t.Errorf("args = %+v", args)
	}
}

func TestOpenAIProviderMissingAPIKey(t *testing.T) {
	p := NewOpenAIProvider("", "")
	if _, err := p.Complete(context.Background(), &agent.CompletionRequest{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
