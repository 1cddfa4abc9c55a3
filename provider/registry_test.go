package provider

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, openrouterBody string) *ModelRegistry {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openrouterBody))
	})
	orSrv := httptest.NewServer(mux)
	t.Cleanup(orSrv.Close)

	r := NewModelRegistry("test-key")
	r.baseURL = orSrv.URL
	return r
}

func TestRegistryParsesOpenRouterStringPricing(t *testing.T) {
	body := `{"data":[{"id":"openai/gpt-4o","name":"GPT-4o","context_length":128000,
		"pricing":{"prompt":"0.000005","completion":"0.000015","cache_read":"0.0000025"},
		"architecture":{"input_modalities":["text","image"]}}]}`

	r := newTestRegistry(t, body)
	models, err := r.fetchOpenRouter()
	require.NoError(t, err)
	require.Len(t, models, 1)

	m := models[0]
	assert.Equal(t, "openai/gpt-4o", m.ID)
	assert.Equal(t, 128000, m.ContextWindow)
	assert.True(t, m.SupportsVision)
	assert.InDelta(t, 0.000005, m.Pricing.Input, 1e-12)
	require.NotNil(t, m.Pricing.CacheRead)
	assert.InDelta(t, 0.0000025, *m.Pricing.CacheRead, 1e-12)
}

func TestRegistryMalformedPriceDefaultsToZero(t *testing.T) {
	body := `{"data":[{"id":"x/y","name":"Y","context_length":8000,"pricing":{"prompt":"not-a-number","completion":""}}]}`
	r := newTestRegistry(t, body)
	models, err := r.fetchOpenRouter()
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, 0.0, models[0].Pricing.Input)
	assert.Equal(t, 0.0, models[0].Pricing.Output)
	assert.Nil(t, models[0].Pricing.CacheRead)
}

// seededRegistry builds a registry whose cache is already warm, so
// ListModels/SelectSummarizationModel exercise pure filtering logic
// without touching the network.
func seededRegistry(models []ModelInfo) *ModelRegistry {
	r := &ModelRegistry{ttl: time.Hour}
	r.cache = ModelCache{Models: models, FetchedAt: time.Now()}
	return r
}

func TestRegistryListModelsFiltersByContextAndTools(t *testing.T) {
	r := seededRegistry([]ModelInfo{
		{ID: "a", ContextWindow: 4000, SupportsTools: true},
		{ID: "b", ContextWindow: 128000, SupportsTools: false},
		{ID: "c", ContextWindow: 128000, SupportsTools: true},
	})

	filtered, err := r.ListModels(ModelFilter{MinContext: 100000, RequireTools: true})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "c", filtered[0].ID)
}

func TestRegistrySelectSummarizationModelPicksNewestCheap(t *testing.T) {
	models := []ModelInfo{
		{ID: "old-cheap", ContextWindow: 128000, Pricing: ModelPricing{Input: 0.10}, Created: 1_700_000_000},
		{ID: "new-cheap", ContextWindow: 128000, Pricing: ModelPricing{Input: 0.12}, Created: 1_750_000_000},
		{ID: "expensive", ContextWindow: 128000, Pricing: ModelPricing{Input: 15.0}, Created: 1_760_000_000},
	}

	m, ok := SelectSummarizationModel(models)
	require.True(t, ok)
	assert.Equal(t, "new-cheap", m.ID)
}

func TestRegistrySelectSummarizationModelNoPricingReturnsNone(t *testing.T) {
	models := []ModelInfo{
		{ID: "local-model", ContextWindow: 32000, Pricing: ModelPricing{}},
	}
	_, ok := SelectSummarizationModel(models)
	assert.False(t, ok)
}

func TestRegistrySelectSummarizationModelSkipsSmallContext(t *testing.T) {
	models := []ModelInfo{
		{ID: "tiny-ctx", ContextWindow: 4000, Pricing: ModelPricing{Input: 0.05}, Created: 1_750_000_000},
	}
	_, ok := SelectSummarizationModel(models)
	assert.False(t, ok)
}

func TestRegistrySelectSummarizationModelViaRegistry(t *testing.T) {
	r := seededRegistry([]ModelInfo{
		{ID: "old-cheap", ContextWindow: 128000, Pricing: ModelPricing{Input: 0.10}, Created: 1_700_000_000},
		{ID: "new-cheap", ContextWindow: 128000, Pricing: ModelPricing{Input: 0.12}, Created: 1_750_000_000},
		{ID: "expensive", ContextWindow: 128000, Pricing: ModelPricing{Input: 15.0}, Created: 1_760_000_000},
	})

	m, ok := r.SelectSummarizationModel()
	require.True(t, ok)
	assert.Equal(t, "new-cheap", m.ID)
}

func TestRegistryGetModelFindsByID(t *testing.T) {
	r := seededRegistry([]ModelInfo{{ID: "claude-sonnet-4"}, {ID: "gpt-4o"}})
	m, ok := r.GetModel("gpt-4o")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", m.ID)

	_, ok = r.GetModel("nonexistent")
	assert.False(t, ok)
}

func TestRegistryModelCount(t *testing.T) {
	r := seededRegistry([]ModelInfo{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	assert.Equal(t, 3, r.ModelCount())
}
