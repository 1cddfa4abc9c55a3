package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"llmbridge/logger"
)

// ModelFilter narrows ModelRegistry.ListModels results.
type ModelFilter struct {
	MinContext     int
	RequireTools   bool
	RequireVision  bool
	PreferCache    bool
	MaxInputPrice  *float64
	IDPrefix       string
}

// ModelCache is the registry's fetched-model snapshot plus the time it was
// taken. FetchedAt is the zero Time until the first successful fetch.
type ModelCache struct {
	Models    []ModelInfo
	FetchedAt time.Time
}

// ModelRegistry merges model catalogs from OpenRouter ("provider/model" id
// space) and models.dev (native model names), caching the merged result
// for TTL and refreshing lazily on the next read after it expires. A
// zero-value mutex-guarded cache, not a background refresher: staleness is
// resolved on demand, matching the Rust original's RwLock-guarded cache.
type ModelRegistry struct {
	client  *http.Client
	apiKey  string
	baseURL string
	ttl     time.Duration

	mu    sync.RWMutex
	cache ModelCache
}

func NewModelRegistry(apiKey string) *ModelRegistry {
	return &ModelRegistry{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://openrouter.ai/api/v1",
		ttl:     2 * time.Hour,
	}
}

func (r *ModelRegistry) cacheValid() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.cache.FetchedAt.IsZero() && time.Since(r.cache.FetchedAt) < r.ttl
}

// GetModels returns the cached catalog, refreshing it first if stale.
func (r *ModelRegistry) GetModels() ([]ModelInfo, error) {
	if !r.cacheValid() {
		if err := r.refresh(); err != nil {
			return nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, len(r.cache.Models))
	copy(out, r.cache.Models)
	return out, nil
}

// GetModel looks up one model by id after ensuring the cache is fresh.
func (r *ModelRegistry) GetModel(id string) (*ModelInfo, bool) {
	models, err := r.GetModels()
	if err != nil {
		return nil, false
	}
	for i := range models {
		if models[i].ID == id {
			return &models[i], true
		}
	}
	return nil, false
}

func (r *ModelRegistry) ModelCount() int {
	models, err := r.GetModels()
	if err != nil {
		return 0
	}
	return len(models)
}

// ListModels applies a ModelFilter over the cached catalog.
func (r *ModelRegistry) ListModels(f ModelFilter) ([]ModelInfo, error) {
	all, err := r.GetModels()
	if err != nil {
		return nil, err
	}
	var out []ModelInfo
	for _, m := range all {
		if f.MinContext > 0 && m.ContextWindow < f.MinContext {
			continue
		}
		if f.RequireTools && !m.SupportsTools {
			continue
		}
		if f.RequireVision && !m.SupportsVision {
			continue
		}
		if f.PreferCache && !m.SupportsCache {
			continue
		}
		if f.MaxInputPrice != nil && m.Pricing.Input > *f.MaxInputPrice {
			continue
		}
		if f.IDPrefix != "" && !hasPrefix(m.ID, f.IDPrefix) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// summarizationMinContext is the context-window floor a model must clear
// to be eligible for background summarization work.
const summarizationMinContext = 8000

// summarizationCheapMultiple bounds how far above the cheapest eligible
// price a model can sit and still count as "cheap": a model priced at
// more than 2x the floor is a different tier, not a pricing variant of
// the same generation, so it's excluded before the newest-first pick.
const summarizationCheapMultiple = 2.0

// SelectSummarizationModel fetches the current catalog and delegates to
// SelectSummarizationModel for the pick, used by the caller to find a
// cheap, modern model for background summarization rather than the main
// conversation model.
func (r *ModelRegistry) SelectSummarizationModel() (*ModelInfo, bool) {
	models, err := r.GetModels()
	if err != nil {
		return nil, false
	}
	return SelectSummarizationModel(models)
}

// SelectSummarizationModel chooses a cheap, modern model from a model
// list: eligible candidates must have a strictly positive input price
// (excluding free/local models whose pricing is unknown) and a context
// window of at least summarizationMinContext. Eligible candidates are
// narrowed to the cheap price tier (within summarizationCheapMultiple of
// the cheapest eligible price), and the newest model in that tier wins,
// tie-broken by lowest input price.
func SelectSummarizationModel(models []ModelInfo) (*ModelInfo, bool) {
	var eligible []ModelInfo
	for _, m := range models {
		if m.Pricing.Input > 0 && m.ContextWindow >= summarizationMinContext {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return nil, false
	}

	minPrice := eligible[0].Pricing.Input
	for _, m := range eligible[1:] {
		if m.Pricing.Input < minPrice {
			minPrice = m.Pricing.Input
		}
	}
	threshold := minPrice * summarizationCheapMultiple

	best := eligible[0]
	haveBest := false
	for _, m := range eligible {
		if m.Pricing.Input > threshold {
			continue
		}
		if !haveBest || m.Created > best.Created ||
			(m.Created == best.Created && m.Pricing.Input < best.Pricing.Input) {
			best = m
			haveBest = true
		}
	}
	return &best, true
}

// refresh repopulates the cache by fetching OpenRouter (if an API key is
// configured) and models.dev, merging by id with first-occurrence-wins
// (OpenRouter entries take priority since they carry live pricing).
// withBackoff wraps the fetch so a transient failure from either source
// gets a few retries before giving up and leaving the stale cache in place.
func (r *ModelRegistry) refresh() error {
	var merged []ModelInfo
	seen := make(map[string]bool)

	if r.apiKey != "" {
		models, err := r.withBackoff(r.fetchOpenRouter)
		if err != nil {
			logger.Get().Warn().Err(err).Msg("openrouter model fetch failed, falling back to models.dev only")
		} else {
			for _, m := range models {
				if !seen[m.ID] {
					merged = append(merged, m)
					seen[m.ID] = true
				}
			}
		}
	}

	devModels, err := r.withBackoff(r.fetchModelsDev)
	if err != nil {
		if len(merged) == 0 {
			return fmt.Errorf("model registry: no catalog source available: %w", err)
		}
		logger.Get().Warn().Err(err).Msg("models.dev fetch failed, using openrouter-only catalog")
	} else {
		for _, m := range devModels {
			if !seen[m.ID] {
				merged = append(merged, m)
				seen[m.ID] = true
			}
		}
	}

	r.mu.Lock()
	r.cache = ModelCache{Models: merged, FetchedAt: time.Now()}
	r.mu.Unlock()
	return nil
}

func (r *ModelRegistry) withBackoff(fn func() ([]ModelInfo, error)) ([]ModelInfo, error) {
	var result []ModelInfo
	op := func() error {
		models, err := fn()
		if err != nil {
			return err
		}
		result = models
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return result, nil
}

type openRouterModelsResponse struct {
	Data []openRouterModel `json:"data"`
}

type openRouterModel struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	ContextLength int                   `json:"context_length"`
	Created       int64                 `json:"created"`
	Pricing       openRouterPricing     `json:"pricing"`
	Architecture  *openRouterArchitecture `json:"architecture,omitempty"`
}

// openRouterPricing fields are strings in the wire API ("0.000003" etc),
// not numbers; parsePrice defaults malformed or absent values to 0 and
// parseOptionalPrice to nil, rather than erroring the whole catalog fetch
// over one bad model entry.
type openRouterPricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
	CacheRead  string `json:"cache_read,omitempty"`
	CacheWrite string `json:"cache_write,omitempty"`
}

type openRouterArchitecture struct {
	InputModalities []string `json:"input_modalities"`
}

func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseOptionalPrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (r *ModelRegistry) fetchOpenRouter() ([]ModelInfo, error) {
	httpReq, err := http.NewRequest(http.MethodGet, r.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openrouter /models: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var parsed openRouterModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("openrouter /models: decode: %w", err)
	}

	out := make([]ModelInfo, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		supportsVision := false
		if m.Architecture != nil {
			for _, mod := range m.Architecture.InputModalities {
				if mod == "image" {
					supportsVision = true
				}
			}
		}
		out = append(out, ModelInfo{
			ID:             m.ID,
			Name:           m.Name,
			Provider:       "openrouter",
			ContextWindow:  m.ContextLength,
			SupportsTools:  true,
			SupportsVision: supportsVision,
			SupportsCache:  m.Pricing.CacheRead != "",
			Pricing: ModelPricing{
				Input:      parsePrice(m.Pricing.Prompt),
				Output:     parsePrice(m.Pricing.Completion),
				CacheRead:  parseOptionalPrice(m.Pricing.CacheRead),
				CacheWrite: parseOptionalPrice(m.Pricing.CacheWrite),
			},
			Created: m.Created,
		})
	}
	return out, nil
}

// fetchModelsDev fetches the models.dev catalog. Native (non "provider/id")
// names mean entries from this source never collide with OpenRouter's
// "provider/model" id space, so the merge is really a union, not a
// dedup-heavy overwrite.
func (r *ModelRegistry) fetchModelsDev() ([]ModelInfo, error) {
	resp, err := r.client.Get("https://models.dev/api.json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("models.dev: HTTP %d", resp.StatusCode)
	}

	var data map[string]struct {
		Models map[string]struct {
			ID          string  `json:"id"`
			Name        string  `json:"name"`
			Reasoning   bool    `json:"reasoning"`
			ToolCall    bool    `json:"tool_call"`
			Attachment  bool    `json:"attachment"`
			ReleaseDate string  `json:"release_date"`
			Cost        struct {
				Input      float64 `json:"input"`
				Output     float64 `json:"output"`
				CacheRead  float64 `json:"cache_read"`
				CacheWrite float64 `json:"cache_write"`
			} `json:"cost"`
			Limit struct {
				Context int `json:"context"`
			} `json:"limit"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("models.dev: decode: %w", err)
	}

	var out []ModelInfo
	for providerKey, providerData := range data {
		for modelID, m := range providerData.Models {
			out = append(out, ModelInfo{
				ID:               modelID,
				Name:             m.Name,
				Provider:         providerKey,
				ContextWindow:    m.Limit.Context,
				SupportsTools:    m.ToolCall,
				SupportsVision:   m.Attachment,
				SupportsThinking: m.Reasoning,
				SupportsCache:    m.Cost.CacheRead > 0,
				Pricing: ModelPricing{
					Input:      m.Cost.Input,
					Output:     m.Cost.Output,
					CacheRead:  nonZeroPtr(m.Cost.CacheRead),
					CacheWrite: nonZeroPtr(m.Cost.CacheWrite),
				},
			})
		}
	}
	return out, nil
}

func nonZeroPtr(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
