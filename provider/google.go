package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"llmbridge/logger"
)

// GoogleProvider speaks the Gemini API through the official genai SDK rather
// than hand-rolled HTTP/SSE, since Gemini's streaming transport is not plain
// SSE over chat-completions the way the other three backends are.
type GoogleProvider struct {
	APIKey string

	// ModelsBaseURL overrides the REST catalog endpoint ListModels calls;
	// empty means the real generativelanguage.googleapis.com host.
	ModelsBaseURL string
}

func NewGoogleProvider(apiKey string) *GoogleProvider {
	return &GoogleProvider{APIKey: apiKey}
}

func (p *GoogleProvider) Stream(ctx context.Context, req ChatRequest, events chan<- StreamEvent) error {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		err = fmt.Errorf("google: create client: %w", err)
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}

	contents := googleMapMessages(req.Messages)
	config := &genai.GenerateContentConfig{}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: googleMapTools(req.Tools)}}
	}
	if req.Thinking != nil && req.Thinking.Enabled {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
		if req.Thinking.BudgetTokens > 0 {
			budget := int32(req.Thinking.BudgetTokens)
			config.ThinkingConfig.ThinkingBudget = &budget
		}
	}
	if req.Temperature != nil {
		config.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	stream := client.Models.GenerateContentStream(ctx, req.Model, contents, config)

	var usage Usage
	for result, streamErr := range stream {
		if streamErr != nil {
			events <- StreamEvent{Type: EventError, Err: streamErr}
			return streamErr
		}
		if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
			continue
		}
		for _, part := range result.Candidates[0].Content.Parts {
			switch {
			case part.FunctionCall != nil:
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					logger.Get().Warn().Err(err).Str("tool", part.FunctionCall.Name).
						Msg("failed to marshal gemini function call arguments")
					args = []byte("{}")
				}
				id := part.FunctionCall.ID
				if id == "" {
					id = uuid.NewString()
				}
				var decoded any
				_ = json.Unmarshal(args, &decoded)
				events <- StreamEvent{Type: EventToolCall, ToolCall: ToolCallEvent{
					ID: id, Name: part.FunctionCall.Name, Arguments: decoded,
				}}
			case part.Thought:
				if part.Text != "" {
					events <- StreamEvent{Type: EventThinkingDelta, Text: part.Text}
				}
			case part.Text != "":
				events <- StreamEvent{Type: EventTextDelta, Text: part.Text}
			}
		}
		if result.UsageMetadata != nil {
			usage = Usage{
				InputTokens:      int(result.UsageMetadata.PromptTokenCount),
				OutputTokens:     int(result.UsageMetadata.CandidatesTokenCount) + int(result.UsageMetadata.ThoughtsTokenCount),
				CacheReadTokens:  int(result.UsageMetadata.CachedContentTokenCount),
			}
		}
	}

	events <- StreamEvent{Type: EventUsage, Usage: usage}
	events <- StreamEvent{Type: EventDone}
	return nil
}

// Complete issues a non-streaming GenerateContent call and folds the single
// response candidate into a Message.
func (p *GoogleProvider) Complete(ctx context.Context, req ChatRequest) (Message, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return Message{}, fmt.Errorf("google: create client: %w", err)
	}

	contents := googleMapMessages(req.Messages)
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: googleMapTools(req.Tools)}}
	}
	if req.Thinking != nil && req.Thinking.Enabled {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
		if req.Thinking.BudgetTokens > 0 {
			budget := int32(req.Thinking.BudgetTokens)
			config.ThinkingConfig.ThinkingBudget = &budget
		}
	}
	if req.Temperature != nil {
		config.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return Message{}, fmt.Errorf("google: generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return Message{Role: RoleAssistant}, nil
	}

	var blocks []ContentBlock
	for _, part := range result.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			blocks = append(blocks, NewToolCallBlock(id, part.FunctionCall.Name, part.FunctionCall.Args))
		case part.Thought:
			if part.Text != "" {
				blocks = append(blocks, NewThinkingBlock(part.Text))
			}
		case part.Text != "":
			blocks = append(blocks, NewTextBlock(part.Text))
		}
	}
	return Message{Role: RoleAssistant, Content: blocks}, nil
}

type googleModelsResponse struct {
	Models []googleModelEntry `json:"models"`
}

type googleModelEntry struct {
	Name                       string `json:"name"`
	DisplayName                string `json:"displayName"`
	InputTokenLimit            int    `json:"inputTokenLimit"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// ListModels fetches the Gemini REST catalog endpoint directly rather than
// through the genai SDK, since the SDK's model-listing surface doesn't map
// as cleanly onto the uniform ModelInfo shape as a plain decode does.
// Pricing is not reported by this endpoint; entries carry zero
// ModelPricing, matching Ollama's local-model convention.
func (p *GoogleProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	base := p.ModelsBaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		base+"/v1beta/models?key="+p.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("google: build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google: /models: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var parsed googleModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("google: /models: decode: %w", err)
	}

	out := make([]ModelInfo, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		supportsGenerate := false
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supportsGenerate = true
			}
		}
		if !supportsGenerate {
			continue
		}
		out = append(out, ModelInfo{
			ID:            m.Name,
			Name:          m.DisplayName,
			Provider:      "google",
			ContextWindow: m.InputTokenLimit,
			SupportsTools: true,
		})
	}
	return out, nil
}

// googleMapMessages folds the uniform Message model into genai Content turns.
// Gemini has no tool role: tool results travel as user-role FunctionResponse
// parts, same as Anthropic's tool_result-as-user-message convention.
func googleMapMessages(msgs []Message) []*genai.Content {
	var out []*genai.Content
	var role string
	var parts []*genai.Part

	flush := func() {
		if len(parts) > 0 {
			out = append(out, &genai.Content{Role: role, Parts: parts})
			parts = nil
		}
	}

	for _, m := range msgs {
		var turnRole string
		switch m.Role {
		case RoleAssistant:
			turnRole = "model"
		default:
			turnRole = "user"
		}
		if turnRole != role && role != "" {
			flush()
		}
		role = turnRole

		for _, b := range m.Content {
			switch b.Type {
			case ContentText:
				if b.Text != "" {
					parts = append(parts, &genai.Part{Text: b.Text})
				}
			case ContentThinking:
				if b.Text != "" {
					parts = append(parts, &genai.Part{Text: b.Text, Thought: true})
				}
			case ContentToolCall:
				args, ok := b.Arguments.(map[string]any)
				if !ok {
					args = map[string]any{}
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: b.ID, Name: b.Name, Args: args},
				})
			case ContentToolResult:
				response := map[string]any{"output": b.Content}
				if b.IsError {
					response = map[string]any{"error": b.Content}
				}
				// The uniform model doesn't carry the original call's function
				// name on a ToolResult block; Gemini only uses Name to echo
				// the call back, so the call id serves as a stable stand-in.
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{ID: b.ToolCallID, Name: b.ToolCallID, Response: response},
				})
			case ContentImage:
				parts = append(parts, &genai.Part{
					InlineData: &genai.Blob{MIMEType: b.MediaType, Data: []byte(b.Data)},
				})
			}
		}
	}
	flush()
	return out
}

func googleMapTools(tools []ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		out = append(out, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  googleSchemaFromParameters(t.Parameters),
		})
	}
	return out
}

// googleSchemaFromParameters accepts the caller-supplied JSON-schema-shaped
// ToolDefinition.Parameters value and re-expresses it as a genai.Schema,
// since the SDK wants its own typed struct rather than a bare map for
// function parameters. Only the top-level type, required list, and each
// property's type and description are carried over.
func googleSchemaFromParameters(params any) *genai.Schema {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	var generic struct {
		Type       string                    `json:"type"`
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	schema := &genai.Schema{Type: genai.Type(generic.Type), Required: generic.Required}
	if len(generic.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(generic.Properties))
		for name, prop := range generic.Properties {
			propType, _ := prop["type"].(string)
			desc, _ := prop["description"].(string)
			schema.Properties[name] = &genai.Schema{Type: genai.Type(propType), Description: desc}
		}
	}
	return schema
}
