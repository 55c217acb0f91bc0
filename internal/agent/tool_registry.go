package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool parameter limits, preventing a misbehaving tool call from
// exhausting memory, matching the teacher's tool_registry.go constants.
const (
	MaxToolNameLength = 256
	MaxToolParamsSize = 10 << 20
)

// ToolRegistry maps tool names to their definitions with thread-safe
// registration and lookup. Re-registering a name replaces the prior entry
// (last writer wins), per spec 4.4's invariant.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool by its Name().
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool by name, a no-op if absent.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by name and whether it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// AsToolSpecs returns the registered tools' schemas for passing to a
// provider's request construction.
func (r *ToolRegistry) AsToolSpecs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, ToolSpec{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	return specs
}

// Execute validates name/params size, lazily validates params against the
// tool's JSON schema, then dispatches. Missing tools and invalid
// parameters are returned as error ToolResults, never as a raised error —
// spec 4.2's "Tool-missing"/"Tool-failure are captured, never raised".
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (*ToolResult, error) {
	if len(name) > MaxToolNameLength {
		return &ToolResult{Content: fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength), IsError: true}, nil
	}
	if len(params) > MaxToolParamsSize {
		return &ToolResult{Content: fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize), IsError: true}, nil
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return &ToolResult{Content: "Error: Tool " + name + " not found", IsError: true}, nil
	}

	if err := validateAgainstSchema(tool.Schema(), params); err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error: invalid arguments for tool %s: %v", name, err), IsError: true}, nil
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error: %v", err), IsError: true}, nil
	}
	return result, nil
}

// validateAgainstSchema lazily compiles and validates params against the
// tool's JSON schema at dispatch time (spec 4.3's "argument string is
// syntactically valid JSON, validated lazily at tool dispatch"). An empty
// or unparsable schema is treated as "accept anything" rather than a
// validation failure, since the schema is author-supplied metadata, not a
// strict contract the registry itself defines.
func validateAgainstSchema(schema json.RawMessage, params json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool-schema.json", bytes.NewReader(schema)); err != nil {
		return nil
	}
	compiled, err := compiler.Compile("tool-schema.json")
	if err != nil {
		return nil
	}

	var doc any
	if len(params) == 0 {
		doc = map[string]any{}
	} else if err := json.Unmarshal(params, &doc); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	return compiled.Validate(doc)
}
