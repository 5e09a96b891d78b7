package openai

import (
	"context"

	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/provider"
)

// defaultAzureAPIVersion is used when the credentials carry no explicit
// "apiVersion" field.
const defaultAzureAPIVersion = "2024-06-01"

// AzureAdapter implements provider.Adapter for Azure OpenAI. The model id is
// the deployment name, so custom models are always allowed and there is no
// default.
type AzureAdapter struct {
	descriptor provider.Descriptor
}

// NewAzureAdapter constructs the Azure OpenAI adapter.
func NewAzureAdapter() *AzureAdapter {
	return &AzureAdapter{
		descriptor: provider.Descriptor{
			ID:                       "azure",
			DisplayName:              "Azure OpenAI",
			RequiredCredentialFields: []string{"apiKey", "baseUrl"},
			AllowsCustomModel:        true,
		},
	}
}

// Descriptor implements provider.Adapter.
func (a *AzureAdapter) Descriptor() provider.Descriptor { return a.descriptor }

// CreateModel implements provider.Adapter.
func (a *AzureAdapter) CreateModel(modelID string, creds core.Credentials) (core.ModelHandle, error) {
	if err := provider.RequireCredentials(a.descriptor, creds); err != nil {
		return nil, err
	}
	if modelID == "" {
		return nil, core.NewConfigError("modelId",
			"provider %q requires a deployment name as the model id", a.descriptor.ID)
	}

	apiVersion := creds.Get("apiVersion")
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}

	opts := []option.RequestOption{
		azure.WithEndpoint(creds.Get("baseUrl"), apiVersion),
		azure.WithAPIKey(creds.Get("apiKey")),
	}

	return NewHandle(HandleConfig{
		Provider:      a.descriptor.ID,
		Model:         modelID,
		ClientOptions: opts,
	}), nil
}

// AvailableModels implements provider.Adapter. Deployments are named by the
// user on the Azure side; nothing sensible to enumerate.
func (a *AzureAdapter) AvailableModels(context.Context, core.Credentials) []provider.ModelInfo {
	return nil
}

// ValidateCredentials implements provider.Adapter.
func (a *AzureAdapter) ValidateCredentials(creds core.Credentials) bool {
	return provider.RequireCredentials(a.descriptor, creds) == nil
}
