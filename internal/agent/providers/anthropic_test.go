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

func TestAnthropicProviderStreamsTextAndToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"type":"message_start","message":{"usage":{"input_tokens":12}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"search"}}`,
			`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"q\":"}}`,
			`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"go\"}"}}`,
			`{"type":"content_block_stop","index":1}`,
			`{"type":"message_delta","usage":{"output_tokens":5}}`,
			`{"type":"message_stop"}`,
		}
		for _, e := range events {
			io.WriteString(w, "data: "+e+"\n\n")
		}
	}))
	defer server.Close()

	p := NewAnthropicProvider("test-key", server.URL, "")
	chunks, err := p.Complete(context.Background(), &agent.CompletionRequest{
		System:   "be terse",
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var text strings.Builder
	var toolCall *models.ToolCall
	var done bool
	var inTok, outTok int
	for c := range chunks {
		if c.Error != nil {
			t.Fatalf("unexpected chunk error: %v", c.Error)
		}
		text.WriteString(c.Text)
		if c.ToolCall != nil {
			toolCall = c.ToolCall
		}
		if c.Done {
			done = true
			inTok, outTok = c.InputTokens, c.OutputTokens
		}
	}

	if text.String() != "Hi" {
		t.Errorf("text = %q, want %q", text.String(), "Hi")
	}
	if !done || inTok != 12 || outTok != 5 {
		t.Errorf("done=%v inTok=%d outTok=%d", done, inTok, outTok)
	}
	if toolCall == nil || toolCall.ID != "toolu_1" || toolCall.Name != "search" {
		t.Fatalf("tool call = %+v", toolCall)
	}
	var args map[string]string
	if err := json.Unmarshal(toolCall.Input, &args); err != nil || args["q"] != "go" {
		t.Errorf("tool call input = %s, err = %v", toolCall.Input, err)
	}
}

func TestConvertToAnthropicMessagesSkipsSystemAndMapsToolResult(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "ignored"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleTool, Content: "42", ToolCallID: "call_1"},
	}
	out := convertToAnthropicMessages(msgs)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[1].Content[0].Type != "tool_result" || out[1].Content[0].ToolUseID != "call_1" {
		t.Errorf("second message = %+v", out[1])
	}
}
