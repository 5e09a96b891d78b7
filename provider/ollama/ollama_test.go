package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidekick-ai/sidekick/core"
)

func TestAdapter_CredentialLess(t *testing.T) {
	adapter := NewAdapter()
	assert.Empty(t, adapter.Descriptor().RequiredCredentialFields)
	assert.True(t, adapter.ValidateCredentials(nil))
	assert.True(t, adapter.ValidateCredentials(core.Credentials{"anything": "x"}))

	handle, err := adapter.CreateModel("", core.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "ollama", handle.Info().Provider)
	assert.Equal(t, "llama3.2", handle.Info().Model)
}

func TestAvailableModels_LiveDiscovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"qwen2.5-coder:7b"}]}`))
	}))
	defer srv.Close()

	models := NewAdapter().AvailableModels(context.Background(),
		core.Credentials{"baseUrl": srv.URL})
	require.Len(t, models, 2)
	assert.Equal(t, "llama3.2:latest", models[0].ID)
	assert.Equal(t, "qwen2.5-coder:7b", models[1].ID)
}

func TestAvailableModels_FallsBackWhenUnreachable(t *testing.T) {
	models := NewAdapter().AvailableModels(context.Background(),
		core.Credentials{"baseUrl": "http://127.0.0.1:1"})
	require.NotEmpty(t, models)
	assert.Equal(t, "llama3.2", models[0].ID)
}

func TestAvailableModels_FallsBackOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	models := NewAdapter().AvailableModels(context.Background(),
		core.Credentials{"baseUrl": srv.URL})
	require.NotEmpty(t, models)
	assert.Equal(t, "llama3.2", models[0].ID)
}
