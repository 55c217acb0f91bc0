// Package models provides the domain types shared across the agent core:
// messages, tool calls, sessions, tasks, events, and observer records.
package models

import (
	"encoding/json"
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is the unified conversation message format. Role, Content,
// ToolCallID and ToolCalls follow the invariant from the spec: a tool-role
// message carries ToolCallID and Content; an assistant message may carry
// Content, ToolCalls, or both; a system message carries Content only.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Clone deep-copies a message, including its tool-call slice, so the
// context can own an independent copy on insert.
func (m Message) Clone() Message {
	out := m
	if len(m.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			out.ToolCalls[i] = tc.Clone()
		}
	}
	return out
}

// ToolCall is a provider-assigned request to invoke a named tool with a
// JSON argument payload. Input is validated lazily at dispatch, not here.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// Clone deep-copies the raw JSON payload so context copies do not alias
// the original caller's buffer.
func (tc ToolCall) Clone() ToolCall {
	out := tc
	if len(tc.Input) > 0 {
		out.Input = append(json.RawMessage(nil), tc.Input...)
	}
	return out
}

// ToolResult is the outcome of a single tool invocation, fed back into the
// conversation as the content of a tool-role message.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Session identifies a persisted conversation thread.
type Session struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id,omitempty"`
	ParentID  string    `json:"parent_id,omitempty"` // set when this session is a branch/fork
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChannelType identifies the transport a message arrived on or should be
// sent through.
type ChannelType string

const ChannelConsole ChannelType = "console"
