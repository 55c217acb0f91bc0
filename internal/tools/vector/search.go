package vector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/agentcore/internal/agent"
)

// SearchTool implements the "vector.search" retrieval counterpart to
// UpsertTool, scoped to the calling session.
type SearchTool struct {
	store        Store
	defaultLimit int
}

// NewSearchTool creates the search tool over store.
func NewSearchTool(store Store) *SearchTool {
	return &SearchTool{store: store, defaultLimit: 5}
}

func (t *SearchTool) Name() string { return "vector.search" }

func (t *SearchTool) Description() string {
	return "Search the session's indexed vector store for relevant context."
}

func (t *SearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1}
		},
		"required": ["query"]
	}`)
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	tc, _ := agent.ToolContextFrom(ctx)
	if tc.DisableRag {
		return &agent.ToolResult{Content: `{"matches":[]}`}, nil
	}

	var input struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if input.Query == "" {
		return toolError("query is required"), nil
	}
	limit := input.Limit
	if limit <= 0 {
		limit = t.defaultLimit
	}

	matches, err := t.store.Search(ctx, tc.SessionID, input.Query, limit)
	if err != nil {
		return toolError(fmt.Sprintf("search: %v", err)), nil
	}

	payload, err := json.Marshal(struct {
		Matches []Match `json:"matches"`
	}{Matches: matches})
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
