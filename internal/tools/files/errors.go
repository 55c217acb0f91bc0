package files

import (
	"encoding/json"

	"github.com/haasonsaas/agentcore/internal/agent"
)

// defaultMaxWriteBytes bounds write/edit/apply_patch output when Config
// doesn't set MaxWriteBytes, mirroring ReadTool's own default read cap.
const defaultMaxWriteBytes = 5_000_000

// toolError wraps message as an error ToolResult, JSON-encoded so every
// file tool reports failures in the same {"error": "..."} shape.
func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}

func maxWriteBytes(cfg Config) int {
	if cfg.MaxWriteBytes > 0 {
		return cfg.MaxWriteBytes
	}
	return defaultMaxWriteBytes
}
