package vector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/agentcore/internal/agent"
)

// UpsertTool implements the "vector.upsert" tool Loop.IndexConversation
// calls at the end of a turn.
type UpsertTool struct {
	store Store
}

// NewUpsertTool creates the upsert tool over store.
func NewUpsertTool(store Store) *UpsertTool {
	return &UpsertTool{store: store}
}

func (t *UpsertTool) Name() string { return "vector.upsert" }

func (t *UpsertTool) Description() string {
	return "Index text into the session's vector store for later retrieval."
}

func (t *UpsertTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {"type": "string", "description": "Text to index."}
		},
		"required": ["text"]
	}`)
}

func (t *UpsertTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	tc, _ := agent.ToolContextFrom(ctx)
	if tc.DisableRag {
		return &agent.ToolResult{Content: `{"skipped":"rag_disabled"}`}, nil
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if input.Text == "" {
		return toolError("text is required"), nil
	}

	record := Record{ID: contentID(input.Text), SessionID: tc.SessionID, Text: input.Text}
	if err := t.store.Upsert(ctx, record); err != nil {
		return toolError(fmt.Sprintf("upsert: %v", err)), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf(`{"id":%q}`, record.ID)}, nil
}

func contentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
