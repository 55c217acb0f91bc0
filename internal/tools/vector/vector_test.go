package vector

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haasonsaas/agentcore/internal/agent"
)

func TestUpsertThenSearchRoundTrips(t *testing.T) {
	store := NewMemoryStore()
	upsert := NewUpsertTool(store)
	search := NewSearchTool(store)

	ctx := agent.WithToolContext(context.Background(), agent.ToolContext{SessionID: "sess-1"})

	params, _ := json.Marshal(map[string]string{"text": "the deploy runbook lives in ops/deploy.md"})
	result, err := upsert.Execute(ctx, params)
	if err != nil || result.IsError {
		t.Fatalf("upsert failed: err=%v result=%+v", err, result)
	}

	searchParams, _ := json.Marshal(map[string]string{"query": "deploy runbook"})
	result, err = search.Execute(ctx, searchParams)
	if err != nil || result.IsError {
		t.Fatalf("search failed: err=%v result=%+v", err, result)
	}

	var decoded struct {
		Matches []Match `json:"matches"`
	}
	if err := json.Unmarshal([]byte(result.Content), &decoded); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(decoded.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(decoded.Matches))
	}
}

func TestUpsertAndSearchSkipWhenRagDisabled(t *testing.T) {
	store := NewMemoryStore()
	upsert := NewUpsertTool(store)
	search := NewSearchTool(store)

	ctx := agent.WithToolContext(context.Background(), agent.ToolContext{SessionID: "sess-1", DisableRag: true})

	params, _ := json.Marshal(map[string]string{"text": "ignored"})
	if _, err := upsert.Execute(ctx, params); err != nil {
		t.Fatalf("upsert error: %v", err)
	}

	searchParams, _ := json.Marshal(map[string]string{"query": "ignored"})
	result, err := search.Execute(ctx, searchParams)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	var decoded struct {
		Matches []Match `json:"matches"`
	}
	if err := json.Unmarshal([]byte(result.Content), &decoded); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(decoded.Matches) != 0 {
		t.Errorf("expected no matches when RAG disabled, got %d", len(decoded.Matches))
	}
}

func TestSearchScopedToSession(t *testing.T) {
	store := NewMemoryStore()
	upsert := NewUpsertTool(store)
	search := NewSearchTool(store)

	ctxA := agent.WithToolContext(context.Background(), agent.ToolContext{SessionID: "sess-a"})
	ctxB := agent.WithToolContext(context.Background(), agent.ToolContext{SessionID: "sess-b"})

	params, _ := json.Marshal(map[string]string{"text": "rotate the api key weekly"})
	if _, err := upsert.Execute(ctxA, params); err != nil {
		t.Fatalf("upsert error: %v", err)
	}

	searchParams, _ := json.Marshal(map[string]string{"query": "rotate api key"})
	result, err := search.Execute(ctxB, searchParams)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	var decoded struct {
		Matches []Match `json:"matches"`
	}
	json.Unmarshal([]byte(result.Content), &decoded)
	if len(decoded.Matches) != 0 {
		t.Errorf("expected session isolation, got %d matches in other session", len(decoded.Matches))
	}
}
