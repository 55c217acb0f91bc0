package agent

import (
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// DefaultSystemPrompt is the fixed, self-descriptive prompt ensured to
// exist at index 0 of every context (spec 4.2's ensure-system-prompt).
const DefaultSystemPrompt = "You are a helpful assistant with access to tools. " +
	"Use them when they help answer the user's request, and explain your reasoning concisely."

// Context is the ordered, append-only sequence of messages for a single
// agent run. Messages are deep-copied on insert so the Context owns its
// own data independent of the caller's buffers; it must not be shared
// across goroutines (spec 4.2 / §5).
type Context struct {
	messages []models.Message
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{}
}

// Append deep-copies msg and adds it to the end of the context.
func (c *Context) Append(msg models.Message) {
	c.messages = append(c.messages, msg.Clone())
}

// Messages returns the context's messages. The returned slice aliases
// internal storage and must be treated as read-only by callers.
func (c *Context) Messages() []models.Message {
	return c.messages
}

// Len returns the number of messages in the context.
func (c *Context) Len() int { return len(c.messages) }

// Last returns the final message and true, or the zero value and false if
// the context is empty.
func (c *Context) Last() (models.Message, bool) {
	if len(c.messages) == 0 {
		return models.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// EnsureSystemPrompt prepends a system message with DefaultSystemPrompt
// when the first message is not already a system message. Idempotent:
// calling it twice results in the same context (spec 4.2, spec §8 law 2).
func (c *Context) EnsureSystemPrompt() {
	if len(c.messages) > 0 && c.messages[0].Role == models.RoleSystem {
		return
	}
	sys := models.Message{
		Role:      models.RoleSystem,
		Content:   DefaultSystemPrompt,
		CreatedAt: time.Now(),
	}
	c.messages = append([]models.Message{sys}, c.messages...)
}

// LoadHistory deep-copies prior messages (most-recent maxMessages, in
// order) into the context ahead of any messages already appended — used
// by init to restore prior session state (spec 4.2's init operation).
func (c *Context) LoadHistory(history []models.Message, maxMessages int) {
	if maxMessages > 0 && len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}
	loaded := make([]models.Message, len(history))
	for i, m := range history {
		loaded[i] = m.Clone()
	}
	c.messages = append(loaded, c.messages...)
}
