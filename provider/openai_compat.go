package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"llmbridge/logger"
)

// OpenAICompatProvider speaks the OpenAI chat-completions wire format that
// OpenAI itself, Groq, OpenRouter, and most self-hosted gateways share.
// Divergences between those flavors are captured in Quirks rather than
// branching on backend name throughout the streaming loop.
type OpenAICompatProvider struct {
	BaseURL string
	APIKey  string
	Quirks  Quirks
	Client  *http.Client
}

func NewOpenAICompatProvider(baseURL, apiKey string, quirks Quirks) *OpenAICompatProvider {
	if baseURL == "" {
		baseURL = quirks.BaseURL
	}
	return &OpenAICompatProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Quirks:  quirks,
		Client:  http.DefaultClient,
	}
}

type oaWireMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []oaWireToolRef `json:"tool_calls,omitempty"`
}

type oaWireToolRef struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function oaWireToolFnRef `json:"function"`
}

type oaWireToolFnRef struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type oaWireTool struct {
	Type     string         `json:"type"`
	Function oaWireFunction `json:"function"`
}

type oaWireFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type oaWireRequest struct {
	Model       string          `json:"model"`
	Messages    []oaWireMessage `json:"messages"`
	Tools       []oaWireTool    `json:"tools,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
	StreamOpts  *oaStreamOpts   `json:"stream_options,omitempty"`
}

type oaStreamOpts struct {
	IncludeUsage bool `json:"include_usage"`
}

// mapMessages converts the uniform Message model to OpenAI-compat wire
// shape: system role on its own, tool calls attached to the assistant
// message that issued them, tool results as role=tool with tool_call_id.
func mapMessages(system string, msgs []Message) []oaWireMessage {
	var out []oaWireMessage
	if system != "" {
		out = append(out, oaWireMessage{Role: "system", Content: system})
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleToolResult:
			for _, b := range m.Content {
				if b.Type != ContentToolResult {
					continue
				}
				out = append(out, oaWireMessage{
					Role:       "tool",
					Content:    b.Content,
					ToolCallID: b.ToolCallID,
				})
			}
		case RoleAssistant:
			var text strings.Builder
			var calls []oaWireToolRef
			for _, b := range m.Content {
				switch b.Type {
				case ContentText:
					text.WriteString(b.Text)
				case ContentThinking:
					// OpenAI-compat has no first-class thinking slot; drop it.
				case ContentToolCall:
					args, _ := json.Marshal(b.Arguments)
					calls = append(calls, oaWireToolRef{
						ID:   b.ID,
						Type: "function",
						Function: oaWireToolFnRef{
							Name:      b.Name,
							Arguments: string(args),
						},
					})
				}
			}
			out = append(out, oaWireMessage{Role: "assistant", Content: text.String(), ToolCalls: calls})
		default:
			var text strings.Builder
			for _, b := range m.Content {
				if b.Type == ContentText {
					text.WriteString(b.Text)
				}
			}
			out = append(out, oaWireMessage{Role: string(m.Role), Content: text.String()})
		}
	}
	return out
}

func mapTools(tools []ToolDefinition) []oaWireTool {
	var out []oaWireTool
	for _, t := range tools {
		out = append(out, oaWireTool{
			Type: "function",
			Function: oaWireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

type oaStreamChunk struct {
	Choices []oaStreamChoice  `json:"choices"`
	Usage   *oaStreamUsage    `json:"usage,omitempty"`
}

type oaStreamChoice struct {
	Delta        oaStreamDelta `json:"delta"`
	FinishReason *string       `json:"finish_reason"`
}

type oaStreamDelta struct {
	Role             string             `json:"role,omitempty"`
	Content          string             `json:"content,omitempty"`
	ReasoningContent string             `json:"reasoning_content,omitempty"`
	Reasoning        string             `json:"reasoning,omitempty"`
	ToolCalls        []oaStreamToolCall `json:"tool_calls,omitempty"`
}

type oaStreamToolCall struct {
	Index    int              `json:"index"`
	ID       string           `json:"id,omitempty"`
	Function *oaStreamFnCall  `json:"function,omitempty"`
}

type oaStreamFnCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type oaStreamUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Stream issues a streaming chat completion request and emits StreamEvents
// on events. The caller owns the channel: Stream never closes it, it only
// ever sends EventDone or EventError as its final event.
func (p *OpenAICompatProvider) Stream(ctx context.Context, req ChatRequest, events chan<- StreamEvent) error {
	wire := oaWireRequest{
		Model:       req.Model,
		Messages:    mapMessages(req.System, req.Messages),
		Tools:       mapTools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}
	if p.Quirks.UsageInFinalChunkOnly {
		wire.StreamOpts = &oaStreamOpts{IncludeUsage: true}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		err = fmt.Errorf("openai-compat: marshal request: %w", err)
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.BaseURL, "/")+"/chat/completions", strings.NewReader(string(body)))
	if err != nil {
		err = fmt.Errorf("openai-compat: build request: %w", err)
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

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

type oaCompletionResponse struct {
	Choices []oaCompletionChoice `json:"choices"`
}

type oaCompletionChoice struct {
	Message oaCompletionMessage `json:"message"`
}

type oaCompletionMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ToolCalls []oaWireToolRef `json:"tool_calls,omitempty"`
}

// Complete issues a non-streaming chat completion request and decodes the
// single response message directly — unlike Stream, tool_calls arrive
// whole here, so no ToolBuilder fragment assembly is needed.
func (p *OpenAICompatProvider) Complete(ctx context.Context, req ChatRequest) (Message, error) {
	wire := oaWireRequest{
		Model:       req.Model,
		Messages:    mapMessages(req.System, req.Messages),
		Tools:       mapTools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return Message{}, fmt.Errorf("openai-compat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.BaseURL, "/")+"/chat/completions", strings.NewReader(string(body)))
	if err != nil {
		return Message{}, fmt.Errorf("openai-compat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return Message{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return Message{}, fmt.Errorf("%s", FormatAPIError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(raw))))
	}

	var parsed oaCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Message{}, fmt.Errorf("openai-compat: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Message{}, fmt.Errorf("openai-compat: response had no choices")
	}

	msg := parsed.Choices[0].Message
	var blocks []ContentBlock
	if msg.Content != "" {
		blocks = append(blocks, NewTextBlock(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		var args any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			logger.Get().Warn().Err(err).Str("tool", tc.Function.Name).
				Msg("failed to parse tool call arguments in non-streaming completion")
			args = nil
		}
		blocks = append(blocks, NewToolCallBlock(tc.ID, tc.Function.Name, args))
	}
	return Message{Role: RoleAssistant, Content: blocks}, nil
}

type oaModelsResponse struct {
	Data []oaModelEntry `json:"data"`
}

type oaModelEntry struct {
	ID            string          `json:"id"`
	ContextLength int             `json:"context_length"`
	Pricing       *oaModelPricing `json:"pricing,omitempty"`
}

type oaModelPricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// ListModels fetches GET /models with bearer auth, mapping id,
// context_length, and pricing when the backend reports them — OpenAI
// itself omits pricing/context_length, so those fields default to zero.
func (p *OpenAICompatProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(p.BaseURL, "/")+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("openai-compat: build request: %w", err)
	}
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai-compat: /models: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var parsed oaModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("openai-compat: /models: decode: %w", err)
	}

	out := make([]ModelInfo, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		info := ModelInfo{ID: m.ID, Name: m.ID, Provider: p.Quirks.Name, ContextWindow: m.ContextLength, SupportsTools: true}
		if m.Pricing != nil {
			info.Pricing = ModelPricing{Input: parsePrice(m.Pricing.Prompt), Output: parsePrice(m.Pricing.Completion)}
		}
		out = append(out, info)
	}
	return out, nil
}

func (p *OpenAICompatProvider) consumeStream(body io.Reader, events chan<- StreamEvent) error {
	parser := NewSSEParser()
	builders := NewToolBuilderSet()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var usage Usage
	sawUsage := false

	flushLine := func(line string) error {
		for _, ev := range parser.Feed(line + "\n") {
			if ev.Data == "[DONE]" {
				continue
			}
			var chunk oaStreamChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				logger.Get().Warn().Err(err).Str("data", ev.Data).Msg("failed to decode openai-compat stream chunk")
				continue
			}

			if chunk.Usage != nil {
				usage.InputTokens = chunk.Usage.PromptTokens
				usage.OutputTokens = chunk.Usage.CompletionTokens
				sawUsage = true
			}

			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					events <- StreamEvent{Type: EventTextDelta, Text: choice.Delta.Content}
				}
				reasoning := choice.Delta.ReasoningContent
				if reasoning == "" {
					reasoning = choice.Delta.Reasoning
				}
				if reasoning != "" {
					events <- StreamEvent{Type: EventThinkingDelta, Text: reasoning}
				}
				for _, tc := range choice.Delta.ToolCalls {
					b := builders.At(tc.Index)
					name := ""
					args := ""
					if tc.Function != nil {
						name = tc.Function.Name
						args = tc.Function.Arguments
					}
					b.WithIDName(tc.ID, name)
					b.Push(args)
				}
			}
		}
		return nil
	}

	for scanner.Scan() {
		if err := flushLine(scanner.Text()); err != nil {
			events <- StreamEvent{Type: EventError, Err: err}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}

	for _, tc := range builders.FinishAll() {
		if tc.ID == "" {
			tc.ID = uuid.NewString()
		}
		events <- StreamEvent{Type: EventToolCall, ToolCall: tc}
	}

	if sawUsage {
		events <- StreamEvent{Type: EventUsage, Usage: usage}
	}
	events <- StreamEvent{Type: EventDone}
	return nil
}
