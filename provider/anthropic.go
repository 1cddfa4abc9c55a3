package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"llmbridge/logger"
)

const anthropicDefaultMaxTokens = 8192

// AnthropicProvider speaks the native Anthropic Messages API: top-level
// system blocks with optional prompt-cache markers, typed content blocks,
// and tool results attached to user-role messages rather than a dedicated
// tool role.
type AnthropicProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		BaseURL: "https://api.anthropic.com/v1",
		APIKey:  apiKey,
		Client:  http.DefaultClient,
	}
}

type anthCacheControl struct {
	Type string `json:"type"` // always "ephemeral"
}

type anthSystemBlock struct {
	Type         string            `json:"type"`
	Text         string            `json:"text"`
	CacheControl *anthCacheControl `json:"cache_control,omitempty"`
}

type anthContentBlock struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ID           string            `json:"id,omitempty"`
	Name         string            `json:"name,omitempty"`
	Input        any               `json:"input,omitempty"`
	ToolUseID    string            `json:"tool_use_id,omitempty"`
	Content      string            `json:"content,omitempty"`
	IsError      bool              `json:"is_error,omitempty"`
	Source       *anthImageSource  `json:"source,omitempty"`
	CacheControl *anthCacheControl `json:"cache_control,omitempty"`
}

type anthImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthMessage struct {
	Role    string             `json:"role"`
	Content []anthContentBlock `json:"content"`
}

type anthTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

type anthThinking struct {
	Type         string `json:"type"` // "enabled"
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type anthRequest struct {
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	System      []anthSystemBlock `json:"system,omitempty"`
	Messages    []anthMessage     `json:"messages"`
	Tools       []anthTool        `json:"tools,omitempty"`
	Temperature *float32          `json:"temperature,omitempty"`
	Thinking    *anthThinking     `json:"thinking,omitempty"`
	Stream      bool              `json:"stream"`
}

func anthMapMessages(msgs []Message) []anthMessage {
	var out []anthMessage
	for _, m := range msgs {
		switch m.Role {
		case RoleToolResult:
			var blocks []anthContentBlock
			for _, b := range m.Content {
				if b.Type != ContentToolResult {
					continue
				}
				blocks = append(blocks, anthContentBlock{
					Type:      "tool_result",
					ToolUseID: b.ToolCallID,
					Content:   b.Content,
					IsError:   b.IsError,
				})
			}
			out = append(out, anthMessage{Role: "user", Content: blocks})
		case RoleAssistant:
			var blocks []anthContentBlock
			for _, b := range m.Content {
				switch b.Type {
				case ContentText:
					blocks = append(blocks, anthContentBlock{Type: "text", Text: b.Text})
				case ContentThinking:
					blocks = append(blocks, anthContentBlock{Type: "thinking", Text: b.Text})
				case ContentToolCall:
					blocks = append(blocks, anthContentBlock{Type: "tool_use", ID: b.ID, Name: b.Name, Input: b.Arguments})
				}
			}
			out = append(out, anthMessage{Role: "assistant", Content: blocks})
		default: // user
			var blocks []anthContentBlock
			for _, b := range m.Content {
				switch b.Type {
				case ContentText:
					blocks = append(blocks, anthContentBlock{Type: "text", Text: b.Text})
				case ContentImage:
					blocks = append(blocks, anthContentBlock{Type: "image", Source: &anthImageSource{
						Type: "base64", MediaType: b.MediaType, Data: b.Data,
					}})
				}
			}
			out = append(out, anthMessage{Role: "user", Content: blocks})
		}
	}
	return out
}

func anthMapTools(tools []ToolDefinition) []anthTool {
	var out []anthTool
	for _, t := range tools {
		out = append(out, anthTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}
	return out
}

func (p *AnthropicProvider) Stream(ctx context.Context, req ChatRequest, events chan<- StreamEvent) error {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	wire := anthRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Messages:    anthMapMessages(req.Messages),
		Tools:       anthMapTools(req.Tools),
		Temperature: req.Temperature,
		Stream:      true,
	}
	if req.System != "" {
		wire.System = []anthSystemBlock{{
			Type:         "text",
			Text:         req.System,
			CacheControl: &anthCacheControl{Type: "ephemeral"},
		}}
	}
	if req.Thinking != nil && req.Thinking.Enabled {
		wire.Thinking = &anthThinking{Type: "enabled", BudgetTokens: req.Thinking.BudgetTokens}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		err = fmt.Errorf("anthropic: marshal request: %w", err)
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.BaseURL, "/")+"/messages", strings.NewReader(string(body)))
	if err != nil {
		err = fmt.Errorf("anthropic: build request: %w", err)
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("x-api-key", p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		msg := FormatAPIError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(raw)))
		apiErr := fmt.Errorf("%s", msg)
		events <- StreamEvent{Type: EventError, Err: apiErr}
		return apiErr
	}

	return p.consumeStream(resp.Body, events)
}

type anthCompletionResponse struct {
	Content []anthContentBlock `json:"content"`
}

// Complete issues a non-streaming Messages API request (stream=false) and
// decodes the single returned content array directly.
func (p *AnthropicProvider) Complete(ctx context.Context, req ChatRequest) (Message, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	wire := anthRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Messages:    anthMapMessages(req.Messages),
		Tools:       anthMapTools(req.Tools),
		Temperature: req.Temperature,
		Stream:      false,
	}
	if req.System != "" {
		wire.System = []anthSystemBlock{{Type: "text", Text: req.System}}
	}
	if req.Thinking != nil && req.Thinking.Enabled {
		wire.Thinking = &anthThinking{Type: "enabled", BudgetTokens: req.Thinking.BudgetTokens}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return Message{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.BaseURL, "/")+"/messages", strings.NewReader(string(body)))
	if err != nil {
		return Message{}, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("x-api-key", p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return Message{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return Message{}, fmt.Errorf("%s", FormatAPIError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(raw))))
	}

	var parsed anthCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Message{}, fmt.Errorf("anthropic: decode response: %w", err)
	}

	var blocks []ContentBlock
	for _, b := range parsed.Content {
		switch b.Type {
		case "text":
			blocks = append(blocks, NewTextBlock(b.Text))
		case "thinking":
			blocks = append(blocks, NewThinkingBlock(b.Text))
		case "tool_use":
			blocks = append(blocks, NewToolCallBlock(b.ID, b.Name, b.Input))
		}
	}
	return Message{Role: RoleAssistant, Content: blocks}, nil
}

type anthModelsResponse struct {
	Data []anthModelEntry `json:"data"`
}

type anthModelEntry struct {
	ID string `json:"id"`
}

// ListModels fetches GET /models, Anthropic's catalog listing endpoint.
// Pricing is not reported by this endpoint, so entries carry zero
// ModelPricing — callers combining backends for cost comparisons should
// prefer the OpenRouter/models.dev-backed ModelRegistry for Anthropic
// pricing data.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(p.BaseURL, "/")+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("x-api-key", p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic: /models: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var parsed anthModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("anthropic: /models: decode: %w", err)
	}

	out := make([]ModelInfo, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		out = append(out, ModelInfo{ID: m.ID, Name: m.ID, Provider: "anthropic", SupportsTools: true})
	}
	return out, nil
}

type anthStreamEnvelope struct {
	Type         string              `json:"type"`
	Message      *anthMsgStart       `json:"message,omitempty"`
	Index        int                 `json:"index"`
	ContentBlock *anthBlockInfo      `json:"content_block,omitempty"`
	Delta        *anthDelta          `json:"delta,omitempty"`
	Usage        *anthUsage          `json:"usage,omitempty"`
	Error        *anthAPIError       `json:"error,omitempty"`
}

type anthMsgStart struct {
	ID    string    `json:"id"`
	Model string    `json:"model"`
	Usage anthUsage `json:"usage"`
}

type anthBlockInfo struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type anthDelta struct {
	Type         string `json:"type,omitempty"`
	Text         string `json:"text,omitempty"`
	Thinking     string `json:"thinking,omitempty"`
	PartialJSON  string `json:"partial_json,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

type anthUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

type anthAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (p *AnthropicProvider) consumeStream(body io.Reader, events chan<- StreamEvent) error {
	parser := NewSSEParser()
	// Anthropic assigns content_block indexes directly (unlike OpenAI's
	// implicit per-tool-call index), so builders are keyed the same way.
	builders := NewToolBuilderSet()
	var usage Usage

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		for _, ev := range parser.Feed(scanner.Text() + "\n") {
			var env anthStreamEnvelope
			if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
				logger.Get().Warn().Err(err).Str("data", ev.Data).Msg("failed to decode anthropic stream event")
				continue
			}

			switch env.Type {
			case "message_start":
				if env.Message != nil {
					usage.InputTokens = env.Message.Usage.InputTokens
					usage.CacheReadTokens = env.Message.Usage.CacheReadInputTokens
					usage.CacheWriteTokens = env.Message.Usage.CacheCreationInputTokens
				}
			case "content_block_start":
				if env.ContentBlock != nil && env.ContentBlock.Type == "tool_use" {
					builders.At(env.Index).WithIDName(env.ContentBlock.ID, env.ContentBlock.Name)
				}
			case "content_block_delta":
				if env.Delta == nil {
					continue
				}
				switch env.Delta.Type {
				case "text_delta":
					events <- StreamEvent{Type: EventTextDelta, Text: env.Delta.Text}
				case "thinking_delta":
					events <- StreamEvent{Type: EventThinkingDelta, Text: env.Delta.Thinking}
				case "input_json_delta":
					builders.At(env.Index).Push(env.Delta.PartialJSON)
				}
			case "message_delta":
				if env.Usage != nil {
					usage.OutputTokens = env.Usage.OutputTokens
					if env.Usage.InputTokens != 0 {
						usage.InputTokens = env.Usage.InputTokens
					}
				}
			case "error":
				if env.Error != nil {
					apiErr := fmt.Errorf("%s", env.Error.Message)
					events <- StreamEvent{Type: EventError, Err: apiErr}
					return apiErr
				}
			case "content_block_stop":
				// Emit the closed block's tool call here, not at end of
				// stream, so it interleaves with surrounding text/thinking
				// deltas in wire order rather than all trailing at the end.
				if tc, ok := builders.At(env.Index).Finish(); ok {
					events <- StreamEvent{Type: EventToolCall, ToolCall: tc}
				}
			case "message_stop", "ping":
				// no event payload to emit
			}
		}
	}
	if err := scanner.Err(); err != nil {
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}

	events <- StreamEvent{Type: EventUsage, Usage: usage}
	events <- StreamEvent{Type: EventDone}
	return nil
}
