// Package compat provides provider adapters for vendors exposing
// OpenAI-compatible Chat Completions endpoints. Each vendor is described by
// a Preset (base URL, default model, credential shape, quirks); a single
// adapter implementation parameterized by preset covers the whole family, so
// adding a vendor is one table entry.
package compat

import (
	"context"

	"github.com/openai/openai-go/option"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/provider"
	"github.com/sidekick-ai/sidekick/provider/openai"
)

// Preset describes one OpenAI-compatible vendor.
type Preset struct {
	ID          string
	DisplayName string
	BaseURL     string
	// RequiresAPIKey is false only for local servers (LM Studio).
	RequiresAPIKey bool
	// AllowsCustomModel permits arbitrary model ids (aggregators, local).
	AllowsCustomModel bool
	DefaultModel      string
	Models            []string
	// EmptyStreamFallback marks vendors observed to return empty streaming
	// results while answering correctly on non-streaming generation.
	EmptyStreamFallback bool
}

// Presets is the built-in vendor table, in UI listing order.
var Presets = []Preset{
	{
		ID: "deepseek", DisplayName: "DeepSeek",
		BaseURL: "https://api.deepseek.com/v1", RequiresAPIKey: true,
		DefaultModel: "deepseek-chat",
		Models:       []string{"deepseek-chat", "deepseek-reasoner"},
	},
	{
		ID: "mistral", DisplayName: "Mistral AI",
		BaseURL: "https://api.mistral.ai/v1", RequiresAPIKey: true,
		DefaultModel: "mistral-large-latest",
		Models:       []string{"mistral-large-latest", "mistral-small-latest", "codestral-latest"},
	},
	{
		ID: "cohere", DisplayName: "Cohere",
		BaseURL: "https://api.cohere.ai/compatibility/v1", RequiresAPIKey: true,
		DefaultModel: "command-r-plus",
		Models:       []string{"command-r-plus", "command-r", "command-r7b-12-2024"},
	},
	{
		ID: "google", DisplayName: "Google Gemini",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", RequiresAPIKey: true,
		DefaultModel: "gemini-2.0-flash",
		Models:       []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
		// The Gemini compatibility endpoint has returned empty streams while
		// still answering on the non-streaming path.
		EmptyStreamFallback: true,
	},
	{
		ID: "groq", DisplayName: "Groq",
		BaseURL: "https://api.groq.com/openai/v1", RequiresAPIKey: true,
		DefaultModel: "llama-3.3-70b-versatile",
		Models:       []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant", "mixtral-8x7b-32768"},
	},
	{
		ID: "xai", DisplayName: "xAI",
		BaseURL: "https://api.x.ai/v1", RequiresAPIKey: true,
		DefaultModel: "grok-2-latest",
		Models:       []string{"grok-2-latest", "grok-beta"},
	},
	{
		ID: "together", DisplayName: "Together AI",
		BaseURL: "https://api.together.xyz/v1", RequiresAPIKey: true, AllowsCustomModel: true,
		DefaultModel: "meta-llama/Llama-3.3-70B-Instruct-Turbo",
		Models:       []string{"meta-llama/Llama-3.3-70B-Instruct-Turbo", "Qwen/Qwen2.5-Coder-32B-Instruct"},
	},
	{
		ID: "openrouter", DisplayName: "OpenRouter",
		BaseURL: "https://openrouter.ai/api/v1", RequiresAPIKey: true, AllowsCustomModel: true,
		DefaultModel: "openrouter/auto",
	},
	{
		ID: "fireworks", DisplayName: "Fireworks AI",
		BaseURL: "https://api.fireworks.ai/inference/v1", RequiresAPIKey: true, AllowsCustomModel: true,
		DefaultModel: "accounts/fireworks/models/llama-v3p1-70b-instruct",
	},
	{
		ID: "perplexity", DisplayName: "Perplexity",
		BaseURL: "https://api.perplexity.ai", RequiresAPIKey: true,
		DefaultModel: "sonar",
		Models:       []string{"sonar", "sonar-pro", "sonar-reasoning"},
	},
	{
		ID: "moonshot", DisplayName: "Moonshot AI",
		BaseURL: "https://api.moonshot.cn/v1", RequiresAPIKey: true,
		DefaultModel: "moonshot-v1-8k",
		Models:       []string{"moonshot-v1-8k", "moonshot-v1-32k", "moonshot-v1-128k"},
	},
	{
		ID: "qwen", DisplayName: "Qwen (DashScope)",
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", RequiresAPIKey: true,
		DefaultModel: "qwen-plus",
		Models:       []string{"qwen-plus", "qwen-turbo", "qwen-max", "qwen2.5-coder-32b-instruct"},
	},
	{
		ID: "zhipu", DisplayName: "Zhipu GLM",
		BaseURL: "https://open.bigmodel.cn/api/paas/v4", RequiresAPIKey: true,
		DefaultModel: "glm-4-flash",
		Models:       []string{"glm-4-plus", "glm-4-flash", "glm-4-long"},
		// Zhipu's streaming endpoint has been observed to complete with zero
		// deltas; the non-streaming endpoint answers the same prompt.
		EmptyStreamFallback: true,
	},
	{
		ID: "lmstudio", DisplayName: "LM Studio",
		BaseURL: "http://localhost:1234/v1", RequiresAPIKey: false, AllowsCustomModel: true,
	},
}

// Adapter implements provider.Adapter for one preset.
type Adapter struct {
	preset     Preset
	descriptor provider.Descriptor
}

// NewAdapter constructs an adapter for the given preset.
func NewAdapter(p Preset) *Adapter {
	var required []string
	if p.RequiresAPIKey {
		required = []string{"apiKey"}
	}
	return &Adapter{
		preset: p,
		descriptor: provider.Descriptor{
			ID:                       p.ID,
			DisplayName:              p.DisplayName,
			RequiredCredentialFields: required,
			AllowsCustomModel:        p.AllowsCustomModel,
			DefaultModel:             p.DefaultModel,
			EmptyStreamFallback:      p.EmptyStreamFallback,
		},
	}
}

// RegisterAll registers adapters for every built-in preset.
func RegisterAll(r *provider.Registry) {
	for _, p := range Presets {
		r.Register(NewAdapter(p))
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
		if a.descriptor.DefaultModel == "" {
			return nil, core.NewConfigError("modelId",
				"provider %q has no default model; choose one explicitly", a.descriptor.ID)
		}
		modelID = a.descriptor.DefaultModel
	}

	base := creds.Get("baseUrl")
	if base == "" {
		base = a.preset.BaseURL
	}
	opts := []option.RequestOption{option.WithBaseURL(base)}
	if key := creds.Get("apiKey"); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	} else {
		// Local servers ignore auth but the SDK insists on a key.
		opts = append(opts, option.WithAPIKey(a.preset.ID))
	}

	return openai.NewHandle(openai.HandleConfig{
		Provider:            a.descriptor.ID,
		Model:               modelID,
		EmptyStreamFallback: a.preset.EmptyStreamFallback,
		ClientOptions:       opts,
	}), nil
}

// AvailableModels implements provider.Adapter with the preset's static list.
func (a *Adapter) AvailableModels(context.Context, core.Credentials) []provider.ModelInfo {
	if len(a.preset.Models) == 0 && a.preset.DefaultModel != "" {
		return provider.StaticModels(a.preset.DefaultModel)
	}
	return provider.StaticModels(a.preset.Models...)
}

// ValidateCredentials implements provider.Adapter.
func (a *Adapter) ValidateCredentials(creds core.Credentials) bool {
	return provider.RequireCredentials(a.descriptor, creds) == nil
}
