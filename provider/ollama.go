package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// OllamaProvider talks to a local Ollama daemon. It reuses the
// OpenAI-compatible wire format for chat (Ollama's /v1/chat/completions
// endpoint is OpenAI-compatible) but adds its own model discovery against
// the native /api/tags endpoint, since Ollama does not speak OpenRouter's
// or models.dev's catalog format.
type OllamaProvider struct {
	BaseURL string // native root, e.g. http://localhost:11434 (no /v1)
	compat  *OpenAICompatProvider
	client  *http.Client
}

func NewOllamaProvider() *OllamaProvider {
	base := os.Getenv("OLLAMA_HOST")
	if base == "" {
		base = "http://localhost:11434"
	}
	base = strings.TrimRight(base, "/")

	quirks := QuirksOllama
	quirks.BaseURL = base + "/v1"

	return &OllamaProvider{
		BaseURL: base,
		compat:  NewOpenAICompatProvider(base+"/v1", "", quirks),
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

func (p *OllamaProvider) IsAvailable() bool {
	resp, err := p.client.Get(p.BaseURL + "/api/tags")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Stream wraps the OpenAI-compatible transport, but first rewrites
// Thinking content blocks in the message history into <thought>...</thought>
// wrapped text, since Ollama's OpenAI-compat endpoint has no native
// thinking-block concept.
func (p *OllamaProvider) Stream(ctx context.Context, req ChatRequest, events chan<- StreamEvent) error {
	req.Messages = wrapThinkingAsText(req.Messages)
	return p.compat.Stream(ctx, req, events)
}

// Complete wraps the OpenAI-compatible transport the same way Stream does,
// rewriting Thinking blocks to text before delegating.
func (p *OllamaProvider) Complete(ctx context.Context, req ChatRequest) (Message, error) {
	req.Messages = wrapThinkingAsText(req.Messages)
	return p.compat.Complete(ctx, req)
}

func wrapThinkingAsText(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		if m.Role != RoleAssistant {
			out[i] = m
			continue
		}
		var changed bool
		blocks := make([]ContentBlock, 0, len(m.Content))
		for _, b := range m.Content {
			if b.Type == ContentThinking {
				changed = true
				blocks = append(blocks, NewTextBlock(fmt.Sprintf("<thought>\n%s\n</thought>\n", b.Text)))
				continue
			}
			blocks = append(blocks, b)
		}
		if changed {
			out[i] = Message{Role: m.Role, Content: blocks}
		} else {
			out[i] = m
		}
	}
	return out
}

type ollamaTagsResponse struct {
	Models []ollamaModel `json:"models"`
}

type ollamaModel struct {
	Name    string            `json:"name"`
	Details ollamaModelDetail `json:"details"`
}

type ollamaModelDetail struct {
	ParameterSize string `json:"parameter_size"`
	Family        string `json:"family"`
}

// ListModels queries /api/tags and maps the result into the uniform
// ModelInfo shape. Local models are free (zero pricing) and context-window
// size is heuristically inferred from the parameter count, since Ollama's
// tag listing does not report context length directly.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tags ollamaTagsResponse
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("ollama: decode /api/tags: %w", err)
	}

	out := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		out = append(out, ModelInfo{
			ID:               m.Name,
			Name:             m.Name,
			Provider:         "ollama",
			ContextWindow:    contextWindowHeuristic(m.Details.ParameterSize),
			SupportsTools:    true,
			SupportsVision:   strings.Contains(strings.ToLower(m.Details.Family), "llava") || strings.Contains(strings.ToLower(m.Name), "vision"),
			SupportsThinking: false,
			SupportsCache:    false,
			Pricing:          ModelPricing{},
			Created:          0,
		})
	}
	return out, nil
}

func contextWindowHeuristic(parameterSize string) int {
	if strings.Contains(parameterSize, "70") || strings.Contains(parameterSize, "32") || strings.Contains(parameterSize, "34") {
		return 128_000
	}
	return 32_000
}
