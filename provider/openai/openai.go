package openai

import (
	"context"

	"github.com/openai/openai-go/option"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/provider"
)

var openaiModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"o3-mini",
}

// Adapter implements provider.Adapter for the OpenAI platform.
type Adapter struct {
	descriptor provider.Descriptor
}

// NewAdapter constructs the OpenAI adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		descriptor: provider.Descriptor{
			ID:                       "openai",
			DisplayName:              "OpenAI",
			RequiredCredentialFields: []string{"apiKey"},
			AllowsCustomModel:        true,
			DefaultModel:             "gpt-4o-mini",
		},
	}
}

// Descriptor implements provider.Adapter.
func (a *Adapter) Descriptor() provider.Descriptor { return a.descriptor }

// CreateModel implements provider.Adapter.
func (a *Adapter) CreateModel(modelID string, creds core.Credentials) (core.ModelHandle, error) {
	if err := provider.RequireCredentials(a.descriptor, creds); err != nil {
		return nil, err
	}
	if modelID == "" {
		modelID = a.descriptor.DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(creds.Get("apiKey"))}
	if base := creds.Get("baseUrl"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return NewHandle(HandleConfig{
		Provider:      a.descriptor.ID,
		Model:         modelID,
		ClientOptions: opts,
	}), nil
}

// AvailableModels implements provider.Adapter. The platform has no cheap
// unauthenticated discovery endpoint, so the static list is authoritative.
func (a *Adapter) AvailableModels(context.Context, core.Credentials) []provider.ModelInfo {
	return provider.StaticModels(openaiModels...)
}

// ValidateCredentials implements provider.Adapter.
func (a *Adapter) ValidateCredentials(creds core.Credentials) bool {
	return provider.RequireCredentials(a.descriptor, creds) == nil
}
