package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/internal/agent/errs"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// AnthropicProvider speaks the Anthropic-compatible wire family: the
// system prompt is a top-level request field rather than a message, every
// message's content is an array of typed blocks, and tool calls/results
// are tool_use/tool_result blocks rather than OpenAI's flat tool_calls
// field. It streams content_block_start/delta/stop and
// message_start/delta/stop events through the same shared sseReader
// OpenAIProvider uses, so only the event vocabulary differs between the
// two adapters, not the transport.
type AnthropicProvider struct {
	BaseProvider
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
}

// NewAnthropicProvider creates an Anthropic-compatible provider.
func NewAnthropicProvider(apiKey, baseURL, defaultModel string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if defaultModel == "" {
		defaultModel = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		BaseProvider: NewBaseProvider("anthropic", 3, time.Second),
		apiKey:       apiKey,
		baseURL:      baseURL,
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *AnthropicProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4"},
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4"},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku"},
	}
}

func (p *AnthropicProvider) SupportsTools() bool { return true }

// anthropicContentBlock is one entry of a message's content array: a text
// block, a tool_use block (assistant requesting a tool), or a tool_result
// block (the reply carried back on the next request).
type anthropicContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Stream    bool               `json:"stream"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key not configured")
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := anthropicRequest{
		Model:     model,
		System:    req.System,
		Messages:  convertToAnthropicMessages(req.Messages),
		MaxTokens: maxTokens,
		Stream:    true,
	}
	if len(req.Tools) > 0 {
		body.Tools = convertToAnthropicTools(req.Tools)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: encode request: %w", err)
	}

	var resp *http.Response
	err = p.Retry(ctx, isRetryableStatus, func() error {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(payload))
		if reqErr != nil {
			return reqErr
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", p.apiKey)
		httpReq.Header.Set("anthropic-version", "2023-06-01")

		r, doErr := p.client.Do(httpReq)
		if doErr != nil {
			return doErr
		}
		if r.StatusCode >= 400 {
			defer r.Body.Close()
			return &statusError{status: r.StatusCode}
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, &errs.ProviderTransportError{Provider: "anthropic", Status: statusOf(err), Cause: err}
	}

	chunks := make(chan *agent.CompletionChunk)
	go streamAnthropic(resp.Body, chunks)
	return chunks, nil
}

// anthropicSSEEvent mirrors the subset of the message_start/
// content_block_start/content_block_delta/content_block_stop/
// message_delta/message_stop event bodies this adapter consumes.
type anthropicSSEEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
	Message struct {
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func streamAnthropic(body io.ReadCloser, chunks chan<- *agent.CompletionChunk) {
	defer close(chunks)
	defer body.Close()

	reader := newSSEReader(body)

	var currentToolCall *models.ToolCall
	var currentInput bytes.Buffer
	var inputTokens, outputTokens int

	for {
		line, err := reader.next()
		if err != nil {
			if err != io.EOF {
				chunks <- &agent.CompletionChunk{Error: &errs.ProviderParseError{Cause: err}}
			}
			break
		}
		if line.field != "data" {
			continue
		}

		var ev anthropicSSEEvent
		if err := json.Unmarshal([]byte(line.payload), &ev); err != nil {
			chunks <- &agent.CompletionChunk{Error: &errs.ProviderParseError{Line: line.payload, Cause: err}}
			continue
		}

		switch ev.Type {
		case "message_start":
			if ev.Message.Usage.InputTokens > 0 {
				inputTokens = ev.Message.Usage.InputTokens
			}
		case "content_block_start":
			if ev.ContentBlock.Type == "tool_use" {
				currentToolCall = &models.ToolCall{ID: ev.ContentBlock.ID, Name: ev.ContentBlock.Name}
				currentInput.Reset()
			}
		case "content_block_delta":
			switch ev.Delta.Type {
			case "text_delta":
				if ev.Delta.Text != "" {
					chunks <- &agent.CompletionChunk{Text: ev.Delta.Text}
				}
			case "input_json_delta":
				currentInput.WriteString(ev.Delta.PartialJSON)
			}
		case "content_block_stop":
			if currentToolCall != nil {
				currentToolCall.Input = json.RawMessage(currentInput.String())
				chunks <- &agent.CompletionChunk{ToolCall: currentToolCall}
				currentToolCall = nil
			}
		case "message_delta":
			if ev.Usage.OutputTokens > 0 {
				outputTokens = ev.Usage.OutputTokens
			}
		case "message_stop":
			chunks <- &agent.CompletionChunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
			return
		}
	}

	chunks <- &agent.CompletionChunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
}

func convertToAnthropicMessages(messages []models.Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			continue
		}
		role := "user"
		var blocks []anthropicContentBlock
		switch m.Role {
		case models.RoleAssistant:
			role = "assistant"
			if m.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropicContentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Input})
			}
		case models.RoleTool:
			blocks = append(blocks, anthropicContentBlock{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content})
		default:
			if m.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: m.Content})
			}
		}
		out = append(out, anthropicMessage{Role: role, Content: blocks})
	}
	return out
}

func convertToAnthropicTools(tools []agent.ToolSpec) []anthropicTool {
	out := make([]anthropicTool, len(tools))
	for i, t := range tools {
		schema := t.Schema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out[i] = anthropicTool{Name: t.Name, Description: t.Description, InputSchema: schema}
	}
	return out
}
