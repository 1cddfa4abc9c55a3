package provider

// Quirks captures the small per-flavor divergences among otherwise
// OpenAI-compatible backends. These must stay named and explicit rather
// than collapsed into a single lowest-common-denominator behavior: a
// backend that sends reasoning under "reasoning_content" and one that
// sends it under "reasoning" are both common in the wild, and guessing
// wrong silently drops thinking output instead of erroring.
type Quirks struct {
	Name string

	// BaseURL is the default API base when the caller does not override one.
	BaseURL string

	// ReasoningField names the delta field this flavor uses for
	// reasoning/thinking text: "reasoning_content", "reasoning", or "" if
	// the flavor never streams reasoning separately from content.
	ReasoningField string

	// UsageInFinalChunkOnly is true when usage only appears on the last
	// streamed chunk (after choices is empty), matching OpenAI's
	// stream_options.include_usage behavior.
	UsageInFinalChunkOnly bool

	// SendsDoneSentinel is true when the stream ends with a literal
	// "data: [DONE]\n\n" frame rather than the connection simply closing.
	SendsDoneSentinel bool

	// RequiresAlternatingRoles is true for backends that reject
	// consecutive same-role messages. OpenAICompatProvider does not read
	// it: mapMessages sends turns as given and does not merge adjacent
	// same-role turns.
	RequiresAlternatingRoles bool
}

var (
	QuirksOpenAI = Quirks{
		Name:                  "openai",
		BaseURL:               "https://api.openai.com/v1",
		ReasoningField:        "",
		UsageInFinalChunkOnly: true,
		SendsDoneSentinel:     true,
	}

	QuirksGroq = Quirks{
		Name:                  "groq",
		BaseURL:               "https://api.groq.com/openai/v1",
		ReasoningField:        "reasoning",
		UsageInFinalChunkOnly: true,
		SendsDoneSentinel:     true,
	}

	QuirksOpenRouter = Quirks{
		Name:                  "openrouter",
		BaseURL:               "https://openrouter.ai/api/v1",
		ReasoningField:        "reasoning",
		UsageInFinalChunkOnly: true,
		SendsDoneSentinel:     true,
	}

	// QuirksDeepSeekViaOpenRouter is distinct from the generic OpenRouter
	// entry because DeepSeek (and Kimi) models use reasoning_content,
	// while most other OpenRouter-routed models use reasoning.
	QuirksDeepSeekViaOpenRouter = Quirks{
		Name:                  "openrouter-deepseek",
		BaseURL:               "https://openrouter.ai/api/v1",
		ReasoningField:        "reasoning_content",
		UsageInFinalChunkOnly: true,
		SendsDoneSentinel:     true,
	}

	QuirksOllama = Quirks{
		Name:                     "ollama",
		BaseURL:                  "http://localhost:11434/v1",
		ReasoningField:           "",
		UsageInFinalChunkOnly:    true,
		SendsDoneSentinel:        false,
		RequiresAlternatingRoles: false,
	}

	// QuirksGenericCompat is the fallback for an unrecognized
	// OpenAI-compatible endpoint: assume the least capability so nothing
	// silently misparses.
	QuirksGenericCompat = Quirks{
		Name:                  "generic-openai-compatible",
		ReasoningField:        "",
		UsageInFinalChunkOnly: true,
		SendsDoneSentinel:     true,
	}
)
