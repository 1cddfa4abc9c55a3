package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaListModelsAppliesContextHeuristicAndVisionDetection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[
			{"name":"llama3:70b","details":{"parameter_size":"70B","family":"llama"}},
			{"name":"llava:7b","details":{"parameter_size":"7B","family":"llava"}},
			{"name":"phi3:3.8b","details":{"parameter_size":"3.8B","family":"phi"}}
		]}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider()
	p.BaseURL = srv.URL
	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 3)

	assert.Equal(t, 128_000, models[0].ContextWindow)
	assert.False(t, models[0].SupportsVision)

	assert.True(t, models[1].SupportsVision)

	assert.Equal(t, 32_000, models[2].ContextWindow)
	assert.Equal(t, 0.0, models[2].Pricing.Input)
}

func TestOllamaCompleteWrapsThinkingBeforeDelegating(t *testing.T) {
	var captured oaWireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"}}]}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider()
	p.compat.BaseURL = srv.URL

	msg, err := p.Complete(context.Background(), ChatRequest{
		Model: "llama3",
		Messages: []Message{
			{Role: RoleAssistant, Content: []ContentBlock{NewThinkingBlock("hmm")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", msg.Content[0].Text)
	require.Len(t, captured.Messages, 1)
	assert.Contains(t, captured.Messages[0].Content, "<thought>")
}

func TestOllamaIsAvailableReflectsTagsEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewOllamaProvider()
	p.BaseURL = srv.URL
	assert.True(t, p.IsAvailable())
}

func TestOllamaWrapsThinkingBlocksAsTaggedText(t *testing.T) {
	msgs := []Message{
		{Role: RoleAssistant, Content: []ContentBlock{
			NewThinkingBlock("considering options"),
			NewTextBlock("done"),
		}},
	}
	out := wrapThinkingAsText(msgs)
	require.Len(t, out[0].Content, 2)
	assert.Equal(t, ContentText, out[0].Content[0].Type)
	assert.Contains(t, out[0].Content[0].Text, "<thought>")
	assert.Contains(t, out[0].Content[0].Text, "considering options")
}
