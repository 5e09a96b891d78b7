package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidekick-ai/sidekick/core"
)

type stubAdapter struct {
	desc Descriptor
}

func (a *stubAdapter) Descriptor() Descriptor { return a.desc }
func (a *stubAdapter) CreateModel(string, core.Credentials) (core.ModelHandle, error) {
	return nil, nil
}
func (a *stubAdapter) AvailableModels(context.Context, core.Credentials) []ModelInfo { return nil }
func (a *stubAdapter) ValidateCredentials(core.Credentials) bool                     { return true }

func TestRegistry_CaseInsensitiveLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubAdapter{desc: Descriptor{ID: "OpenAI"}})

	for _, id := range []string{"openai", "OPENAI", "OpenAI", " openai "} {
		a, ok := r.Get(id)
		require.True(t, ok, "lookup %q", id)
		assert.Equal(t, "OpenAI", a.Descriptor().ID)
	}

	_, ok := r.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_EnumerationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubAdapter{desc: Descriptor{ID: "alpha"}})
	r.Register(&stubAdapter{desc: Descriptor{ID: "beta"}})
	r.Register(&stubAdapter{desc: Descriptor{ID: "gamma"}})

	descs := r.Descriptors()
	require.Len(t, descs, 3)
	assert.Equal(t, "alpha", descs[0].ID)
	assert.Equal(t, "beta", descs[1].ID)
	assert.Equal(t, "gamma", descs[2].ID)
}

func TestRegistry_ReplaceKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubAdapter{desc: Descriptor{ID: "alpha", DisplayName: "old"}})
	r.Register(&stubAdapter{desc: Descriptor{ID: "beta"}})
	r.Register(&stubAdapter{desc: Descriptor{ID: "Alpha", DisplayName: "new"}})

	descs := r.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "new", descs[0].DisplayName)
	assert.Equal(t, "beta", descs[1].ID)
}

func TestRequireCredentials(t *testing.T) {
	desc := Descriptor{ID: "stub", RequiredCredentialFields: []string{"apiKey"}}

	err := RequireCredentials(desc, core.Credentials{"apiKey": "sk-test"})
	assert.NoError(t, err)

	err = RequireCredentials(desc, core.Credentials{})
	require.Error(t, err)
	cfgErr, ok := err.(*core.ConfigError)
	require.True(t, ok, "expected *core.ConfigError, got %T", err)
	assert.Equal(t, "apiKey", cfgErr.Field)
}

func TestStaticModels(t *testing.T) {
	models := StaticModels("m1", "m2")
	require.Len(t, models, 2)
	assert.Equal(t, "m1", models[0].ID)
	assert.Equal(t, "m2", models[1].ID)
}
