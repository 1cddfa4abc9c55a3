package provider

import "os"

// Backend is a closed enumeration of the LLM backends this module knows
// how to speak to. It exists so the Provider Facade and callers can
// discover which backends have usable credentials without constructing a
// full adaptor first.
type Backend string

const (
	BackendOpenRouter Backend = "openrouter"
	BackendAnthropic  Backend = "anthropic"
	BackendOpenAI     Backend = "openai"
	BackendOllama     Backend = "ollama"
	BackendGroq       Backend = "groq"
	BackendGoogle     Backend = "google"
)

// AllBackends lists every known backend in a stable order.
var AllBackends = []Backend{
	BackendOpenRouter,
	BackendAnthropic,
	BackendOpenAI,
	BackendOllama,
	BackendGroq,
	BackendGoogle,
}

func (b Backend) Name() string {
	switch b {
	case BackendOpenRouter:
		return "OpenRouter"
	case BackendAnthropic:
		return "Anthropic"
	case BackendOpenAI:
		return "OpenAI"
	case BackendOllama:
		return "Ollama"
	case BackendGroq:
		return "Groq"
	case BackendGoogle:
		return "Google"
	default:
		return string(b)
	}
}

func (b Backend) ID() string {
	return string(b)
}

// EnvVars lists the environment variables searched, in order, for this
// backend's API key. Ollama has none: it authenticates with nothing.
func (b Backend) EnvVars() []string {
	switch b {
	case BackendOpenRouter:
		return []string{"OPENROUTER_API_KEY"}
	case BackendAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	case BackendOpenAI:
		return []string{"OPENAI_API_KEY"}
	case BackendOllama:
		return nil
	case BackendGroq:
		return []string{"GROQ_API_KEY"}
	case BackendGoogle:
		return []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	default:
		return nil
	}
}

// APIKey returns the first non-empty value among EnvVars, or "" if none is
// set. Ollama always reports a present (empty string) key since it needs
// none.
func (b Backend) APIKey() (string, bool) {
	vars := b.EnvVars()
	if len(vars) == 0 {
		if b == BackendOllama {
			return "", true
		}
		return "", false
	}
	for _, v := range vars {
		if val := os.Getenv(v); val != "" {
			return val, true
		}
	}
	return "", false
}

func (b Backend) IsAvailable() bool {
	_, ok := b.APIKey()
	return ok
}

// BackendStatus reports whether a Backend has usable credentials.
type BackendStatus struct {
	Backend   Backend
	Available bool
}

func DetectAllBackends() []BackendStatus {
	out := make([]BackendStatus, 0, len(AllBackends))
	for _, b := range AllBackends {
		out = append(out, BackendStatus{Backend: b, Available: b.IsAvailable()})
	}
	return out
}

func AvailableBackends() []Backend {
	var out []Backend
	for _, b := range AllBackends {
		if b.IsAvailable() {
			out = append(out, b)
		}
	}
	return out
}
