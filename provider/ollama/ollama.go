// Package ollama provides a provider adapter for a local Ollama server. Chat
// goes through Ollama's OpenAI-compatible endpoint; model discovery queries
// the native /api/tags endpoint live, degrading to a static list when the
// server is unreachable.
package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/option"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/provider"
	"github.com/sidekick-ai/sidekick/provider/openai"
)

// defaultBaseURL is the Ollama server address when the credentials carry no
// "baseUrl" override.
const defaultBaseURL = "http://localhost:11434"

// discoveryTimeout bounds the live /api/tags call before falling back to the
// static model list.
const discoveryTimeout = 3 * time.Second

var fallbackModels = []string{
	"llama3.2",
	"llama3.1",
	"qwen2.5-coder",
	"mistral-nemo",
	"deepseek-coder",
}

// Adapter implements provider.Adapter for Ollama. The provider is
// credential-less: a local server needs no API key, only an optional base
// URL.
type Adapter struct {
	descriptor provider.Descriptor
	httpClient *http.Client
}

// NewAdapter constructs the Ollama adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		descriptor: provider.Descriptor{
			ID:                       "ollama",
			DisplayName:              "Ollama",
			RequiredCredentialFields: nil,
			AllowsCustomModel:        true,
			DefaultModel:             "llama3.2",
		},
		httpClient: &http.Client{Timeout: discoveryTimeout},
	}
}

// Descriptor implements provider.Adapter.
func (a *Adapter) Descriptor() provider.Descriptor { return a.descriptor }

// CreateModel implements provider.Adapter.
func (a *Adapter) CreateModel(modelID string, creds core.Credentials) (core.ModelHandle, error) {
	if modelID == "" {
		modelID = a.descriptor.DefaultModel
	}
	base := baseURL(creds)

	return openai.NewHandle(openai.HandleConfig{
		Provider: a.descriptor.ID,
		Model:    modelID,
		ClientOptions: []option.RequestOption{
			option.WithBaseURL(base + "/v1"),
			// The compat endpoint ignores auth but the SDK insists on a key.
			option.WithAPIKey("ollama"),
		},
	}), nil
}

// AvailableModels implements provider.Adapter with live discovery. It GETs
// {base}/api/tags with a short timeout and returns the installed models; any
// non-success response degrades to the static fallback list.
func (a *Adapter) AvailableModels(ctx context.Context, creds core.Credentials) []provider.ModelInfo {
	reqCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL(creds)+"/api/tags", nil)
	if err != nil {
		return provider.StaticModels(fallbackModels...)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return provider.StaticModels(fallbackModels...)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return provider.StaticModels(fallbackModels...)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil || len(tags.Models) == 0 {
		return provider.StaticModels(fallbackModels...)
	}

	infos := make([]provider.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		infos = append(infos, provider.ModelInfo{ID: m.Name})
	}
	return infos
}

// ValidateCredentials implements provider.Adapter. Ollama is credential-less,
// so any credential set is acceptable.
func (a *Adapter) ValidateCredentials(core.Credentials) bool { return true }

func baseURL(creds core.Credentials) string {
	base := creds.Get("baseUrl")
	if base == "" {
		base = defaultBaseURL
	}
	return strings.TrimSuffix(base, "/")
}
