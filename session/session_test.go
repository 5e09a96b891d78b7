package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/internal/testutil"
	"github.com/sidekick-ai/sidekick/provider"
)

func newTestRegistry() (*provider.Registry, *testutil.MockHandle) {
	handle := &testutil.MockHandle{
		InfoValue: core.HandleInfo{Provider: "stub", Model: "stub-1", SupportsTools: true},
	}
	r := provider.NewRegistry()
	r.Register(&testutil.FakeAdapter{
		Desc: provider.Descriptor{
			ID:                       "stub",
			RequiredCredentialFields: []string{"apiKey"},
			DefaultModel:             "stub-1",
		},
		Handle: handle,
	})
	r.Register(&testutil.FakeAdapter{
		Desc:   provider.Descriptor{ID: "nodefault", AllowsCustomModel: true},
		Handle: handle,
	})
	return r, handle
}

func TestSession_InitializeSuccess(t *testing.T) {
	r, _ := newTestRegistry()
	s := New(r)

	err := s.Initialize(core.ModelConfig{
		ProviderID:  "Stub",
		ModelID:     "stub-2",
		Credentials: core.Credentials{"apiKey": "sk-test"},
	})
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State())
	assert.True(t, s.Ready())

	handle, err := s.Handle()
	require.NoError(t, err)
	assert.NotNil(t, handle)

	cfg, ok := s.Config()
	require.True(t, ok)
	assert.Equal(t, "stub", cfg.ProviderID)
	assert.Equal(t, "stub-2", cfg.ModelID)
}

func TestSession_DefaultModelSubstitution(t *testing.T) {
	r, _ := newTestRegistry()
	s := New(r)

	err := s.Initialize(core.ModelConfig{
		ProviderID:  "stub",
		Credentials: core.Credentials{"apiKey": "sk-test"},
	})
	require.NoError(t, err)

	cfg, ok := s.Config()
	require.True(t, ok)
	assert.Equal(t, "stub-1", cfg.ModelID)
}

func TestSession_UnsupportedProvider(t *testing.T) {
	r, _ := newTestRegistry()
	s := New(r)

	err := s.Initialize(core.ModelConfig{ProviderID: "nope"})
	require.Error(t, err)

	var cfgErr *core.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "provider", cfgErr.Field)

	// State is cleared entirely.
	assert.Equal(t, StateUninitialized, s.State())
	_, ok := s.Config()
	assert.False(t, ok)
	_, herr := s.Handle()
	assert.ErrorIs(t, herr, core.ErrNotInitialized)
}

func TestSession_MissingCredentialClearsState(t *testing.T) {
	r, _ := newTestRegistry()
	s := New(r)

	// Establish a working handle first; the failed re-init must not keep it.
	require.NoError(t, s.Initialize(core.ModelConfig{
		ProviderID:  "stub",
		Credentials: core.Credentials{"apiKey": "sk-test"},
	}))

	err := s.Initialize(core.ModelConfig{ProviderID: "stub"})
	require.Error(t, err)
	assert.Equal(t, StateUninitialized, s.State())
	_, herr := s.Handle()
	assert.ErrorIs(t, herr, core.ErrNotInitialized)
}

func TestSession_NoModelChosenRecordsConfig(t *testing.T) {
	r, _ := newTestRegistry()
	s := New(r)

	err := s.Initialize(core.ModelConfig{ProviderID: "nodefault"})
	require.Error(t, err)

	var cfgErr *core.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "modelId", cfgErr.Field)

	// Configured-but-no-model is distinguishable from unconfigured: the
	// config is recorded even though no handle exists.
	assert.Equal(t, StateFailed, s.State())
	cfg, ok := s.Config()
	require.True(t, ok)
	assert.Equal(t, "nodefault", cfg.ProviderID)
	_, herr := s.Handle()
	assert.ErrorIs(t, herr, core.ErrNotInitialized)
}

func TestSession_ResetIdempotent(t *testing.T) {
	r, _ := newTestRegistry()
	s := New(r)

	require.NoError(t, s.Initialize(core.ModelConfig{
		ProviderID:  "stub",
		Credentials: core.Credentials{"apiKey": "sk-test"},
	}))

	s.Reset()
	assert.Equal(t, StateUninitialized, s.State())
	_, ok := s.Config()
	assert.False(t, ok)

	// A second Reset is a no-op.
	s.Reset()
	assert.Equal(t, StateUninitialized, s.State())
}
