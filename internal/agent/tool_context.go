package agent

import "context"

// EmbeddingFunc embeds text into a vector, used by RAG-gated tools.
type EmbeddingFunc func(ctx context.Context, text string) ([]float64, error)

// SpawnSubAgentFunc runs a nested agent turn and returns its final text.
type SpawnSubAgentFunc func(ctx context.Context, prompt string) (string, error)

// ToolContext carries the per-invocation collaborators a tool may use:
// configuration is borrowed (not copied), and the embedding/sub-agent
// callables are optional. It must not be retained past the Execute call
// that received it.
type ToolContext struct {
	SessionID     string
	DisableRag    bool
	Embed         EmbeddingFunc
	SpawnSubAgent SpawnSubAgentFunc
}

type toolContextKey struct{}

// WithToolContext attaches a ToolContext to ctx, following the teacher's
// context-key injection idiom for run/tool-call identifiers.
func WithToolContext(ctx context.Context, tc ToolContext) context.Context {
	return context.WithValue(ctx, toolContextKey{}, tc)
}

// ToolContextFrom extracts the ToolContext attached by WithToolContext, or
// the zero value with ok=false if none was attached.
func ToolContextFrom(ctx context.Context) (ToolContext, bool) {
	tc, ok := ctx.Value(toolContextKey{}).(ToolContext)
	return tc, ok
}
