package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllBackendsHaveNames(t *testing.T) {
	for _, b := range AllBackends {
		assert.NotEmpty(t, b.Name())
		assert.NotEmpty(t, b.ID())
	}
}

func TestOllamaAlwaysAvailable(t *testing.T) {
	key, ok := BackendOllama.APIKey()
	assert.True(t, ok)
	assert.Equal(t, "", key)
	assert.True(t, BackendOllama.IsAvailable())
}

func TestAnthropicUnavailableWithoutEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	assert.False(t, BackendAnthropic.IsAvailable())
}

func TestAnthropicAvailableWithEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	assert.True(t, BackendAnthropic.IsAvailable())
}

func TestGoogleFallsBackToSecondEnvVar(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gem-test")
	key, ok := BackendGoogle.APIKey()
	assert.True(t, ok)
	assert.Equal(t, "gem-test", key)
}
