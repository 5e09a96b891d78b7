package compat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/provider"
)

func findPreset(t *testing.T, id string) Preset {
	t.Helper()
	for _, p := range Presets {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("preset %q not found", id)
	return Preset{}
}

func TestPresets_Coverage(t *testing.T) {
	ids := map[string]bool{}
	for _, p := range Presets {
		assert.NotEmpty(t, p.DisplayName, "preset %s", p.ID)
		assert.False(t, ids[p.ID], "duplicate preset %s", p.ID)
		ids[p.ID] = true
	}
	for _, want := range []string{
		"deepseek", "mistral", "cohere", "google", "groq", "xai",
		"together", "openrouter", "fireworks", "perplexity",
		"moonshot", "qwen", "zhipu", "lmstudio",
	} {
		assert.True(t, ids[want], "missing preset %s", want)
	}
}

func TestPresets_EmptyStreamQuirkFlags(t *testing.T) {
	// Only the vendors observed to return empty streams carry the flag.
	for _, p := range Presets {
		want := p.ID == "zhipu" || p.ID == "google"
		adapter := NewAdapter(p)
		assert.Equal(t, want, adapter.Descriptor().EmptyStreamFallback, "preset %s", p.ID)
	}
}

func TestAdapter_MissingAPIKey(t *testing.T) {
	adapter := NewAdapter(findPreset(t, "deepseek"))

	_, err := adapter.CreateModel("deepseek-chat", core.Credentials{})
	require.Error(t, err)

	var cfgErr *core.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "apiKey", cfgErr.Field)
	assert.False(t, adapter.ValidateCredentials(core.Credentials{}))
}

func TestAdapter_CreateModel(t *testing.T) {
	adapter := NewAdapter(findPreset(t, "groq"))

	handle, err := adapter.CreateModel("", core.Credentials{"apiKey": "gsk-test"})
	require.NoError(t, err)

	info := handle.Info()
	assert.Equal(t, "groq", info.Provider)
	assert.Equal(t, adapter.Descriptor().DefaultModel, info.Model)
	assert.True(t, info.SupportsTools)
	assert.False(t, info.EmptyStreamFallback)
}

func TestAdapter_QuirkFlagReachesHandle(t *testing.T) {
	adapter := NewAdapter(findPreset(t, "zhipu"))

	handle, err := adapter.CreateModel("glm-4", core.Credentials{"apiKey": "zp-test"})
	require.NoError(t, err)
	assert.True(t, handle.Info().EmptyStreamFallback)
}

func TestAdapter_LMStudioNeedsNoKey(t *testing.T) {
	adapter := NewAdapter(findPreset(t, "lmstudio"))
	assert.Empty(t, adapter.Descriptor().RequiredCredentialFields)
	assert.True(t, adapter.ValidateCredentials(core.Credentials{}))

	_, err := adapter.CreateModel("local-model", core.Credentials{})
	assert.NoError(t, err)
}

func TestRegisterAll(t *testing.T) {
	r := provider.NewRegistry()
	RegisterAll(r)

	assert.Len(t, r.Descriptors(), len(Presets))
	a, ok := r.Get("Mistral")
	require.True(t, ok)
	assert.Equal(t, "mistral", a.Descriptor().ID)
}
