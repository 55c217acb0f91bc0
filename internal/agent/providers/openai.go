package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/internal/agent/errs"
	"github.com/haasonsaas/agentcore/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider speaks the OpenAI-compatible wire family: flat
// role/content messages, tool_calls with function.name/function.arguments,
// and tool-role messages carrying tool_call_id. It borrows go-openai's
// request/response structs for marshaling but streams the HTTP body itself
// through the shared sseReader rather than the SDK's streaming client, so
// it shares exactly one SSE parser with AnthropicProvider.
type OpenAIProvider struct {
	BaseProvider
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider creates an OpenAI-compatible provider. baseURL
// defaults to the public OpenAI API, letting the same type front
// OpenAI-compatible gateways (OpenRouter, local proxies) by overriding it.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		BaseProvider: NewBaseProvider("openai", 3, time.Second),
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenAIProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "gpt-4o", Name: "GPT-4o"},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo"},
		{ID: "gpt-4o-mini", Name: "GPT-4o mini"},
	}
}

func (p *OpenAIProvider) SupportsTools() bool { return true }

// Complete issues a streaming chat completion request and returns a
// channel of chunks, closed when the stream ends or errors.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openai: api key not configured")
	}

	body := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  convertToOpenAIMessages(req.Messages, req.System),
		Stream:    true,
		MaxTokens: req.MaxTokens,
	}
	if len(req.Tools) > 0 {
		body.Tools = convertToOpenAITools(req.Tools)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}

	var resp *http.Response
	err = p.Retry(ctx, isRetryableStatus, func() error {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
		if reqErr != nil {
			return reqErr
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		return nil, &errs.ProviderTransportError{Provider: "openai", Status: statusOf(err), Cause: err}
	}

	chunks := make(chan *agent.CompletionChunk)
	go streamOpenAI(resp.Body, chunks)
	return chunks, nil
}

// streamOpenAI reads body as an SSE stream of OpenAI chat-completion-chunk
// JSON payloads, accumulating streamed tool-call argument deltas by index
// until the stream's [DONE] sentinel is reached.
func streamOpenAI(body io.ReadCloser, chunks chan<- *agent.CompletionChunk) {
	defer close(chunks)
	defer body.Close()

	reader := newSSEReader(body)
	toolCalls := map[int]*models.ToolCall{}
	var order []int

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
		if isDone(line.payload) {
			break
		}

		var chunk openai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(line.payload), &chunk); err != nil {
			chunks <- &agent.CompletionChunk{Error: &errs.ProviderParseError{Line: line.payload, Cause: err}}
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			chunks <- &agent.CompletionChunk{Text: delta.Content}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			cur, ok := toolCalls[idx]
			if !ok {
				cur = &models.ToolCall{}
				toolCalls[idx] = cur
				order = append(order, idx)
			}
			if tc.ID != "" {
				cur.ID = tc.ID
			}
			if tc.Function.Name != "" {
				cur.Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				cur.Input = append(cur.Input, []byte(tc.Function.Arguments)...)
			}
		}
		if chunk.Choices[0].FinishReason == openai.FinishReasonToolCalls {
			for _, idx := range order {
				chunks <- &agent.CompletionChunk{ToolCall: toolCalls[idx]}
			}
			toolCalls = map[int]*models.ToolCall{}
			order = nil
		}
	}

	for _, idx := range order {
		chunks <- &agent.CompletionChunk{ToolCall: toolCalls[idx]}
	}
	chunks <- &agent.CompletionChunk{Done: true}
}

func convertToOpenAIMessages(messages []models.Message, system string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		switch m.Role {
		case models.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		case models.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				})
			}
			out = append(out, msg)
		default:
			out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
		}
	}
	return out
}

func convertToOpenAITools(tools []agent.ToolSpec) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		var schema map[string]any
		if len(t.Schema) > 0 {
			_ = json.Unmarshal(t.Schema, &schema)
		}
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		}
	}
	return out
}

// statusError marks an HTTP response status as the retry predicate's
// input; 429 and 5xx are retryable, everything else is terminal.
type statusError struct{ status int }

func (e *statusError) Error() string { return "http status " + strconv.Itoa(e.status) }

func isRetryableStatus(err error) bool {
	se, ok := err.(*statusError)
	if !ok {
		return true // network/transport errors are retryable
	}
	return se.status == http.StatusTooManyRequests || se.status >= 500
}

func statusOf(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.status
	}
	return 0
}
