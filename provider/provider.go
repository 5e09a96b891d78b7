// Package provider defines the uniform contract that hides vendor SDK shape
// differences behind one interface, plus the registry mapping provider ids to
// adapter instances. Every vendor SDK has different constructor argument
// names and default model ids; centralizing this per adapter keeps the
// dispatch path free of vendor switches and makes adding a vendor a
// pure-addition change.
package provider

import (
	"context"

	"github.com/sidekick-ai/sidekick/core"
)

// Descriptor is the immutable, registry-build-time description of a provider.
type Descriptor struct {
	// ID is the canonical lowercase provider identifier ("openai", "ollama").
	ID string `json:"id"`
	// DisplayName is shown in provider-selection UI.
	DisplayName string `json:"display_name"`
	// RequiredCredentialFields lists credential fields that must be present
	// before CreateModel may be called. Empty for credential-less local
	// providers.
	RequiredCredentialFields []string `json:"required_credential_fields"`
	// AllowsCustomModel reports whether the user may type an arbitrary model
	// id instead of picking from the known list.
	AllowsCustomModel bool `json:"allows_custom_model"`
	// DefaultModel is substituted when the configuration names no model.
	// Empty means the user must choose explicitly.
	DefaultModel string `json:"default_model,omitempty"`
	// EmptyStreamFallback marks vendors whose streaming endpoint has returned
	// empty results while non-streaming generation still answers. Handles
	// built from such descriptors carry the flag so only the affected vendors
	// are subject to the dispatch-loop workaround.
	EmptyStreamFallback bool `json:"-"`
}

// ModelInfo describes one selectable model of a provider.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Adapter normalizes one vendor's model-construction API to the common
// provider contract. Implementations must be safe for concurrent use.
type Adapter interface {
	// Descriptor returns the immutable provider description.
	Descriptor() Descriptor

	// CreateModel constructs a live handle for the given model id. It fails
	// with *core.ConfigError when a required credential field is absent and
	// with *core.ProviderError when the underlying vendor construction fails;
	// raw SDK errors never leak.
	CreateModel(modelID string, creds core.Credentials) (core.ModelHandle, error)

	// AvailableModels returns the models selectable for this provider.
	// Best-effort: providers with a live discovery endpoint query it with a
	// short timeout and degrade to their static list on any failure. Model
	// listing is a convenience, never a correctness-critical path, so this
	// does not return an error.
	AvailableModels(ctx context.Context, creds core.Credentials) []ModelInfo

	// ValidateCredentials attempts handle construction without generation.
	// It never makes a live inference call, so validation is necessarily
	// weak: a syntactically valid but revoked key still passes.
	ValidateCredentials(creds core.Credentials) bool
}

// RequireCredentials checks the descriptor's required fields against the
// supplied credentials, returning a *core.ConfigError naming the first
// missing field.
func RequireCredentials(d Descriptor, creds core.Credentials) error {
	for _, field := range d.RequiredCredentialFields {
		if !creds.Has(field) {
			return core.NewConfigError(field,
				"provider %q requires credential field %q", d.ID, field)
		}
	}
	return nil
}

// StaticModels converts a list of model ids to ModelInfo values. Shared by
// adapters whose fallback list is a plain id slice.
func StaticModels(ids ...string) []ModelInfo {
	infos := make([]ModelInfo, len(ids))
	for i, id := range ids {
		infos[i] = ModelInfo{ID: id}
	}
	return infos
}
