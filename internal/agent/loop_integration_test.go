package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// fakeProvider scripts a fixed sequence of completions, one per Run
// iteration, so tests can drive the loop's reason-act cycle
// deterministically without a real LLM.
type fakeProvider struct {
	turns []fakeTurn
	calls int
}

type fakeTurn struct {
	text      string
	toolCalls []models.ToolCall
}

func (p *fakeProvider) Complete(_ context.Context, _ *CompletionRequest) (<-chan *CompletionChunk, error) {
	turn := p.turns[p.calls]
	p.calls++

	ch := make(chan *CompletionChunk, len(turn.toolCalls)+2)
	if turn.text != "" {
		ch <- &CompletionChunk{Text: turn.text}
	}
	for _, tc := range turn.toolCalls {
		tc := tc
		ch <- &CompletionChunk{ToolCall: &tc}
	}
	ch <- &CompletionChunk{Done: true}
	close(ch)
	return ch, nil
}

func (p *fakeProvider) Name() string        { return "fake" }
func (p *fakeProvider) Models() []Model     { return nil }
func (p *fakeProvider) SupportsTools() bool { return true }

// echoTool always succeeds, returning its input back as the tool content.
type echoTool struct{ name string }

func (t *echoTool) Name() string            { return t.name }
func (t *echoTool) Description() string     { return "echoes its input" }
func (t *echoTool) Schema() json.RawMessage { return nil }
func (t *echoTool) Execute(_ context.Context, params json.RawMessage) (*ToolResult, error) {
	return &ToolResult{Content: string(params)}, nil
}

func TestRunNoToolCallReturnsAssistantText(t *testing.T) {
	provider := &fakeProvider{turns: []fakeTurn{{text: "hello there"}}}
	loop := NewLoop("sess-1", provider, NewToolRegistry(), DefaultLoopConfig())

	got, err := loop.Run(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "hello there" {
		t.Errorf("Run() = %q, want %q", got, "hello there")
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}
}

func TestRunSingleToolCallExecutesThenAnswers(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&echoTool{name: "echo"})

	provider := &fakeProvider{turns: []fakeTurn{
		{toolCalls: []models.ToolCall{{ID: "call-1", Name: "echo", Input: json.RawMessage(`{"x":1}`)}}},
		{text: "done"},
	}}
	loop := NewLoop("sess-2", provider, registry, DefaultLoopConfig())

	got, err := loop.Run(context.Background(), "use the tool")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "done" {
		t.Errorf("Run() = %q, want %q", got, "done")
	}
	if provider.calls != 2 {
		t.Errorf("provider called %d times, want 2", provider.calls)
	}

	msgs := loop.Context().Messages()
	var sawToolResult bool
	for _, m := range msgs {
		if m.Role == models.RoleTool && m.ToolCallID == "call-1" {
			sawToolResult = true
			if m.Content != `{"x":1}` {
				t.Errorf("tool result content = %q, want %q", m.Content, `{"x":1}`)
			}
		}
	}
	if !sawToolResult {
		t.Error("expected a tool-result message for call-1, found none")
	}
}

func TestRunMissingToolIsCapturedNotRaised(t *testing.T) {
	provider := &fakeProvider{turns: []fakeTurn{
		{toolCalls: []models.ToolCall{{ID: "call-1", Name: "does-not-exist", Input: json.RawMessage(`{}`)}}},
		{text: "handled the error"},
	}}
	loop := NewLoop("sess-3", provider, NewToolRegistry(), DefaultLoopConfig())

	got, err := loop.Run(context.Background(), "call a missing tool")
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (tool-missing must be captured, not raised)", err)
	}
	if got != "handled the error" {
		t.Errorf("Run() = %q, want %q", got, "handled the error")
	}
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	cfg := DefaultLoopConfig()
	cfg.MaxIterations = 2

	registry := NewToolRegistry()
	registry.Register(&echoTool{name: "echo"})

	toolCall := models.ToolCall{ID: "call-1", Name: "echo", Input: json.RawMessage(`{}`)}
	provider := &fakeProvider{turns: []fakeTurn{
		{toolCalls: []models.ToolCall{toolCall}},
		{toolCalls: []models.ToolCall{toolCall}},
		{toolCalls: []models.ToolCall{toolCall}},
	}}
	loop := NewLoop("sess-4", provider, registry, cfg)

	_, err := loop.Run(context.Background(), "keep calling tools forever")
	if err == nil {
		t.Fatal("Run() error = nil, want a max-iterations LoopError")
	}
	if provider.calls != 2 {
		t.Errorf("provider called %d times, want 2 (bounded by MaxIterations)", provider.calls)
	}
}

type shuttingDown struct{}

func (shuttingDown) ShuttingDown() bool { return true }

func TestRunInterruptedAtBoundaryWhenShuttingDown(t *testing.T) {
	provider := &fakeProvider{turns: []fakeTurn{{text: "should never run"}}}
	loop := NewLoop("sess-5", provider, NewToolRegistry(), DefaultLoopConfig())
	loop.SetShutdownSignal(shuttingDown{})

	_, err := loop.Run(context.Background(), "hi")
	if err == nil {
		t.Fatal("Run() error = nil, want an interrupted LoopError")
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times, want 0 (interrupted before first iteration)", provider.calls)
	}
}

// memorySessionStore is an in-memory agent.SessionStore test double.
type memorySessionStore struct {
	saved map[string][]models.Message
}

func (s *memorySessionStore) Load(_ context.Context, sessionID string) ([]models.Message, error) {
	return s.saved[sessionID], nil
}

func (s *memorySessionStore) Save(_ context.Context, sessionID string, messages []models.Message) error {
	if s.saved == nil {
		s.saved = map[string][]models.Message{}
	}
	s.saved[sessionID] = messages
	return nil
}

func TestRunPersistsHistoryThroughSessionStore(t *testing.T) {
	store := &memorySessionStore{}
	provider := &fakeProvider{turns: []fakeTurn{{text: "first reply"}}}
	loop := NewLoop("sess-6", provider, NewToolRegistry(), DefaultLoopConfig())
	loop.SetSessionStore(store)

	if err := loop.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := loop.Run(context.Background(), "hi"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(store.saved["sess-6"]) == 0 {
		t.Fatal("expected Run to persist the session's messages via Save")
	}

	restored := NewLoop("sess-6", &fakeProvider{turns: []fakeTurn{{text: "second reply"}}}, NewToolRegistry(), DefaultLoopConfig())
	restored.SetSessionStore(store)
	if err := restored.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if restored.Context().Len() == 0 {
		t.Error("expected Init to restore prior history from the session store")
	}
}
