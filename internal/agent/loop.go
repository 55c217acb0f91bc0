// Package agent's Loop implements the bounded reason-act state machine,
// grounded on the teacher's internal/agent/loop.go (LoopConfig /
// sanitizeLoopConfig pattern, phased run/stream/execute-tools structure,
// LoopError wrapping) generalized from the teacher's unbounded
// multi-provider runtime down to a single bounded loop over one provider.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/agentcore/internal/agent/errs"
	"github.com/haasonsaas/agentcore/internal/observability"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// MaxIterations bounds the reason-act loop.
const MaxIterations = 8

// ChunkCallback is invoked for every user-visible text fragment produced
// while streaming. It must be non-blocking or very fast and must not hold
// any lock the caller's task handler holds.
type ChunkCallback func(chunkCtx any, chunk []byte)

// ShutdownSignal is satisfied by *eventloop.Loop; kept as a narrow
// interface here so this package does not import eventloop.
type ShutdownSignal interface {
	ShuttingDown() bool
}

// SessionStore is the write-through persistence collaborator, satisfied
// structurally by *sessions.FileStore and *sessions.SQLiteStore without
// this package importing internal/sessions.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) ([]models.Message, error)
	Save(ctx context.Context, sessionID string, messages []models.Message) error
}

// LoopConfig controls one Loop instance.
type LoopConfig struct {
	MaxIterations   int
	LoadChatHistory bool
	MaxChatHistory  int
	DisableRag      bool
	Logger          *slog.Logger
}

// DefaultLoopConfig returns the documented defaults.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxIterations:   MaxIterations,
		LoadChatHistory: true,
		MaxChatHistory:  10,
	}
}

func sanitizeLoopConfig(c LoopConfig) LoopConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = MaxIterations
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// LoopError wraps a failure with the phase and iteration it occurred in.
type LoopError struct {
	Phase     string
	Iteration int
	Cause     error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("agent loop: phase=%s iteration=%d: %v", e.Phase, e.Iteration, e.Cause)
}

func (e *LoopError) Unwrap() error { return e.Cause }

// Loop drives one conversation's reason-act iterations over a single
// provider and tool registry.
type Loop struct {
	cfg       LoopConfig
	provider  LLMProvider
	registry  *ToolRegistry
	observer  observability.Observer
	shutdown  ShutdownSignal
	store     SessionStore
	sessionID string

	ctx      *Context
	chunkFn  ChunkCallback
	chunkCtx any
}

// NewLoop constructs a Loop for one session. Observer defaults to a noop
// sink; the shutdown signal and session store are left nil until
// SetShutdownSignal/SetSessionStore are called, disabling those
// behaviors.
func NewLoop(sessionID string, provider LLMProvider, registry *ToolRegistry, cfg LoopConfig) *Loop {
	return &Loop{
		cfg:       sanitizeLoopConfig(cfg),
		provider:  provider,
		registry:  registry,
		sessionID: sessionID,
		ctx:       NewContext(),
		observer:  observability.Noop(),
	}
}

// SetObserver overrides the default noop observer.
func (l *Loop) SetObserver(o observability.Observer) {
	if o != nil {
		l.observer = o
	}
}

// SetShutdownSignal wires the shared cooperative-cancellation flag.
func (l *Loop) SetShutdownSignal(s ShutdownSignal) { l.shutdown = s }

// SetSessionStore wires the write-through persistence collaborator.
func (l *Loop) SetSessionStore(s SessionStore) { l.store = s }

// SetChunkCallback wires the streaming text sink and its opaque context.
func (l *Loop) SetChunkCallback(ctx any, fn ChunkCallback) {
	l.chunkCtx, l.chunkFn = ctx, fn
}

// Context returns the loop's conversation context.
func (l *Loop) Context() *Context { return l.ctx }

// Init builds the context and, if configured, loads prior session history
// into it before the first Run.
func (l *Loop) Init(ctx context.Context) error {
	if l.cfg.LoadChatHistory && l.store != nil {
		history, err := l.store.Load(ctx, l.sessionID)
		if err != nil {
			return fmt.Errorf("load session history: %w", err)
		}
		l.ctx.LoadHistory(history, l.cfg.MaxChatHistory)
	}
	return nil
}

func (l *Loop) emit(ev models.ObserverEvent) {
	if l.observer != nil {
		l.observer.RecordEvent(ev)
	}
}

// Run appends userText as a user message and drives the bounded
// reason-act loop until the model stops requesting tools or
// MaxIterations is reached, writing streamed text through the chunk
// callback. It returns Interrupted if shutdown was requested at an
// iteration boundary, and the last assistant message's content as the
// final answer otherwise.
func (l *Loop) Run(ctx context.Context, userText string) (string, error) {
	l.ctx.EnsureSystemPrompt()
	l.ctx.Append(models.Message{ID: uuid.NewString(), Role: models.RoleUser, Content: userText, CreatedAt: time.Now()})

	l.emit(models.ObserverEvent{Kind: models.EventAgentStart, Provider: l.provider.Name()})
	start := time.Now()

	var finalText string
	var runErr error

	for iter := 0; iter < l.cfg.MaxIterations; iter++ {
		if l.shutdown != nil && l.shutdown.ShuttingDown() {
			runErr = &LoopError{Phase: "boundary", Iteration: iter, Cause: errs.Interrupted}
			break
		}

		assistant, err := l.streamPhase(ctx)
		if err != nil {
			runErr = &LoopError{Phase: "stream", Iteration: iter, Cause: err}
			break
		}
		l.ctx.Append(assistant)
		finalText = assistant.Content

		if len(assistant.ToolCalls) == 0 {
			break
		}
		l.executeToolsPhase(ctx, assistant.ToolCalls)
	}

	durationMS := time.Since(start).Milliseconds()
	l.emit(models.ObserverEvent{
		Kind:       models.EventAgentEnd,
		DurationMS: durationMS,
		Success:    runErr == nil,
	})

	if runErr != nil {
		return "", runErr
	}

	if l.store != nil {
		if err := l.store.Save(ctx, l.sessionID, l.ctx.Messages()); err != nil {
			l.cfg.Logger.Warn("session write-through failed", "session_id", l.sessionID, "error", err)
		}
	}
	l.emit(models.ObserverEvent{Kind: models.EventTurnComplete, Provider: l.provider.Name()})
	return finalText, nil
}

// streamPhase builds the provider request from the full context plus tool
// specs, calls Complete, and accumulates the streamed chunks into one
// assistant message.
func (l *Loop) streamPhase(ctx context.Context) (models.Message, error) {
	req := &CompletionRequest{
		Messages: l.ctx.Messages(),
		Tools:    l.registry.AsToolSpecs(),
	}

	l.emit(models.ObserverEvent{Kind: models.EventLLMRequest, Provider: l.provider.Name(), MsgCount: len(req.Messages)})
	reqStart := time.Now()

	chunks, err := l.provider.Complete(ctx, req)
	if err != nil {
		l.emit(models.ObserverEvent{Kind: models.EventLLMResponse, Provider: l.provider.Name(), Success: false, Error: err.Error()})
		return models.Message{}, &errs.ProviderTransportError{Provider: l.provider.Name(), Cause: err}
	}

	var text string
	toolCallsByID := map[string]*models.ToolCall{}
	var order []string

	for chunk := range chunks {
		if chunk.Error != nil {
			l.emit(models.ObserverEvent{Kind: models.EventLLMResponse, Provider: l.provider.Name(), Success: false, Error: chunk.Error.Error(), DurationMS: time.Since(reqStart).Milliseconds()})
			return models.Message{}, &errs.ProviderTransportError{Provider: l.provider.Name(), Cause: chunk.Error}
		}
		if chunk.Text != "" {
			text += chunk.Text
			l.sendChunk([]byte(chunk.Text))
		}
		if chunk.Thinking != "" {
			l.sendChunk([]byte(chunk.Thinking))
		}
		if chunk.ToolCall != nil {
			if _, seen := toolCallsByID[chunk.ToolCall.ID]; !seen {
				order = append(order, chunk.ToolCall.ID)
			}
			toolCallsByID[chunk.ToolCall.ID] = chunk.ToolCall
		}
		if chunk.Done {
			l.emit(models.ObserverEvent{
				Kind: models.EventLLMResponse, Provider: l.provider.Name(), Success: true,
				DurationMS: time.Since(reqStart).Milliseconds(),
			})
		}
	}

	toolCalls := make([]models.ToolCall, 0, len(order))
	for _, id := range order {
		toolCalls = append(toolCalls, *toolCallsByID[id])
	}

	return models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   text,
		ToolCalls: toolCalls,
		CreatedAt: time.Now(),
	}, nil
}

// executeToolsPhase dispatches each tool call in order, appending exactly
// one tool-result message per call, and emits tool-call-start/tool-call
// observer events around each dispatch.
func (l *Loop) executeToolsPhase(ctx context.Context, calls []models.ToolCall) {
	for _, tc := range calls {
		l.emit(models.ObserverEvent{Kind: models.EventToolCallStart, Tool: tc.Name})
		start := time.Now()

		execCtx := WithToolContext(ctx, ToolContext{SessionID: l.sessionID, DisableRag: l.cfg.DisableRag})
		result, err := l.registry.Execute(execCtx, tc.Name, tc.Input)

		success := err == nil && result != nil && !result.IsError
		content := ""
		if err != nil {
			content = fmt.Sprintf("Error: %v", err)
		} else if result != nil {
			content = result.Content
		}

		l.ctx.Append(models.Message{
			ID:         uuid.NewString(),
			Role:       models.RoleTool,
			Content:    content,
			ToolCallID: tc.ID,
			CreatedAt:  time.Now(),
		})

		l.emit(models.ObserverEvent{
			Kind: models.EventToolCall, Tool: tc.Name, Success: success,
			DurationMS: time.Since(start).Milliseconds(),
		})
	}
}

func (l *Loop) sendChunk(chunk []byte) {
	if l.chunkFn != nil {
		l.chunkFn(l.chunkCtx, chunk)
	}
}

// IndexConversation upserts the latest user/assistant turn into the
// vector store via the registry's "vector.upsert" tool when RAG is
// enabled and the context holds at least one complete turn; it logs but
// does not raise failures, since indexing must never abort a run.
func (l *Loop) IndexConversation(ctx context.Context) {
	if l.cfg.DisableRag {
		return
	}
	nonSystem := 0
	for _, m := range l.ctx.Messages() {
		if m.Role != models.RoleSystem {
			nonSystem++
		}
	}
	if nonSystem < 2 {
		return
	}

	msgs := l.ctx.Messages()
	var user, assistant string
	for i := len(msgs) - 1; i >= 0; i-- {
		if assistant == "" && msgs[i].Role == models.RoleAssistant {
			assistant = msgs[i].Content
			continue
		}
		if user == "" && msgs[i].Role == models.RoleUser {
			user = msgs[i].Content
		}
		if user != "" && assistant != "" {
			break
		}
	}
	if user == "" && assistant == "" {
		return
	}

	payload, _ := json.Marshal(map[string]string{"text": user + "\n" + assistant})
	if _, err := l.registry.Execute(ctx, "vector.upsert", payload); err != nil {
		l.cfg.Logger.Warn("index conversation failed", "session_id", l.sessionID, "error", err)
	}
}
