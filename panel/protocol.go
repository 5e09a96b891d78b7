// Package panel implements the editor-facing controller: it decodes the JSON
// command protocol spoken by the chat panel, orchestrates configuration,
// provider discovery, and message dispatch, and encodes the outbound event
// stream back to the panel.
package panel

import (
	"encoding/json"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/provider"
)

// Inbound commands sent by the panel.
const (
	CmdGetConfigStatus      = "getConfigStatus"
	CmdSaveConfiguration    = "saveConfiguration"
	CmdSendMessage          = "sendMessage"
	CmdGetProviders         = "getProviders"
	CmdGetModelsForProvider = "getModelsForProvider"
	CmdClearConversation    = "clearConversation"
)

// Outbound commands sent to the panel.
const (
	CmdConfigStatus        = "configStatus"
	CmdConfigSaved         = "configSaved"
	CmdConfigError         = "configError"
	CmdProvidersResult     = "providersResult"
	CmdModelsResult        = "modelsResult"
	CmdResponseChunk       = "aiResponseChunk"
	CmdThinkingStep        = "aiThinkingStep"
	CmdResponseComplete    = "aiResponseComplete"
	CmdToolResult          = "toolResult"
	CmdError               = "error"
	CmdConversationCleared = "conversationCleared"
)

// Envelope is the uniform wire frame in both directions.
type Envelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutboundEnvelope is an Envelope with a not-yet-encoded payload.
type OutboundEnvelope struct {
	Command string `json:"command"`
	Payload any    `json:"payload,omitempty"`
}

// SaveConfigurationPayload carries the settings form. The API key travels
// inbound only; it is stored in the secret store and never echoed back.
type SaveConfigurationPayload struct {
	Provider string `json:"provider"`
	Model    string `json:"modelId,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	BaseURL  string `json:"baseUrl,omitempty"`
}

// SendMessagePayload carries one user chat message. ID is the correlation id
// echoed on every event produced by this message; the controller generates
// one when the panel omits it.
type SendMessagePayload struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// GetModelsPayload names the provider whose models should be listed. Config
// may carry connection overrides (baseUrl) for the listing call.
type GetModelsPayload struct {
	ProviderID string                  `json:"providerId"`
	Config     *GetModelsConfigPayload `json:"config,omitempty"`
}

// GetModelsConfigPayload overrides stored connection settings for one
// model-listing request.
type GetModelsConfigPayload struct {
	BaseURL string `json:"baseUrl,omitempty"`
}

// ConfigStatusPayload reports the current configuration without secrets.
// ProviderSet and APIKeySet describe what has been stored; IsModelInitialized
// reports whether a live model handle exists right now.
type ConfigStatusPayload struct {
	ProviderSet        bool   `json:"providerSet"`
	APIKeySet          bool   `json:"apiKeySet"`
	IsModelInitialized bool   `json:"isModelInitialized"`
	Provider           string `json:"provider,omitempty"`
	Model              string `json:"modelId,omitempty"`
	BaseURL            string `json:"baseUrl,omitempty"`
}

// ConfigErrorPayload reports a rejected configuration.
type ConfigErrorPayload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ProviderInfo is the UI-facing subset of a provider descriptor.
type ProviderInfo struct {
	ID                       string   `json:"id"`
	DisplayName              string   `json:"displayName"`
	RequiredCredentialFields []string `json:"requiredCredentialFields"`
	AllowsCustomModel        bool     `json:"allowsCustomModel"`
	DefaultModel             string   `json:"defaultModel,omitempty"`
}

// ProvidersResultPayload lists the registered providers in registry order.
type ProvidersResultPayload struct {
	Providers []ProviderInfo `json:"providers"`
}

// ModelsResultPayload lists the selectable models of one provider.
type ModelsResultPayload struct {
	ProviderID string               `json:"providerId"`
	Models     []provider.ModelInfo `json:"models"`
}

// ChunkPayload carries an incremental piece of assistant text, tagged with
// the correlation id of the sendMessage that produced it.
type ChunkPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ThinkingPayload reports a transient progress step.
type ThinkingPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CompletePayload terminates one assistant response.
type CompletePayload struct {
	ID           string           `json:"id"`
	FinishReason string           `json:"finishReason,omitempty"`
	Usage        *core.TokenUsage `json:"usage,omitempty"`
}

// ToolResultPayload reports one executed tool call. Result is the JSON object
// produced by the tool registry.
type ToolResultPayload struct {
	ID     string          `json:"id,omitempty"`
	CallID string          `json:"callId"`
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result"`
}

// ErrorPayload carries a user-facing error message. ID is set when the error
// terminates a specific sendMessage.
type ErrorPayload struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}
