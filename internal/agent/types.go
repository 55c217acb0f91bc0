// Package agent implements the bounded reason-act loop (spec 4.2) and the
// tool registry (spec 4.4) that together drive one agent run. Provider
// adapters live in the sibling internal/agent/providers package and
// satisfy the LLMProvider interface declared here, following the
// teacher's internal/agent/provider_types.go split between the agent
// package (interfaces, data shapes) and internal/agent/providers
// (implementations).
package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// LLMProvider is implemented once per wire family (OpenAI-compatible,
// Anthropic-compatible) by internal/agent/providers. Implementations must
// be safe for concurrent use.
type LLMProvider interface {
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
	Name() string
	Models() []Model
	SupportsTools() bool
}

// Model describes one model a provider can serve.
type Model struct {
	ID   string
	Name string
}

// ToolSpec is a tool definition as passed to a provider's request
// construction: name, description, and a verbatim JSON-schema payload.
type ToolSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// CompletionRequest is the provider-agnostic shape of one LLM call. The
// adapter translates Messages/Tools into the wire family's native body.
type CompletionRequest struct {
	Model                string
	System               string
	Messages             []models.Message
	Tools                []ToolSpec
	MaxTokens            int
	EnableThinking       bool
	ThinkingBudgetTokens int
}

// CompletionChunk is one unit of a streamed response: partial text,
// partial thinking, a finalized tool call, a terminal Done signal, or an
// Error that terminates the stream.
type CompletionChunk struct {
	Text         string
	Thinking     string
	ToolCall     *models.ToolCall
	Done         bool
	Error        error
	InputTokens  int
	OutputTokens int
}

// Tool is the executable-tool interface (spec 4.4's tool definition).
// Execute receives the ambient ToolContext via ctx (see WithToolContext /
// ToolContextFrom) rather than as a parameter, matching the teacher's
// plain context.Context signature and its context-key injection idiom.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is a tool's output before it is wrapped into a conversation
// message.
type ToolResult struct {
	Content string
	IsError bool
}
