package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/dispatch"
	"github.com/sidekick-ai/sidekick/logging"
	"github.com/sidekick-ai/sidekick/provider"
	"github.com/sidekick-ai/sidekick/session"
	"github.com/sidekick-ai/sidekick/workspace"
)

// discoveryTimeout bounds live model listing triggered from the UI.
const discoveryTimeout = 5 * time.Second

// Emitter delivers outbound envelopes to the connected panel. Implementations
// must be safe for concurrent use; dispatch streams from a goroutine while
// the read loop may emit command responses.
type Emitter interface {
	Emit(command string, payload any) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(command string, payload any) error

// Emit calls the wrapped function.
func (f EmitterFunc) Emit(command string, payload any) error { return f(command, payload) }

// Controller wires the panel protocol to the backend: provider registry,
// model session, dispatcher, configuration store and secret store. It
// implements dispatch.Sink so streaming output flows straight to the panel.
type Controller struct {
	registry    *provider.Registry
	session     *session.ModelSession
	dispatcher  *dispatch.Dispatcher
	configStore *workspace.ConfigStore
	secrets     workspace.SecretStore
	emitter     Emitter
	logger      logging.Logger
}

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	Logger logging.Logger
}

// NewController constructs a panel controller. emitter receives every
// outbound message.
func NewController(
	registry *provider.Registry,
	sess *session.ModelSession,
	dispatcher *dispatch.Dispatcher,
	configStore *workspace.ConfigStore,
	secrets workspace.SecretStore,
	emitter Emitter,
	optFns ...func(o *ControllerOptions),
) *Controller {
	opts := ControllerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Controller{
		registry:    registry,
		session:     sess,
		dispatcher:  dispatcher,
		configStore: configStore,
		secrets:     secrets,
		emitter:     emitter,
		logger:      opts.Logger,
	}
}

// HandleMessage processes one inbound frame. Unknown commands and malformed
// payloads produce an error envelope, never a dropped connection.
func (c *Controller) HandleMessage(ctx context.Context, raw []byte) {
	command := gjson.GetBytes(raw, "command").String()
	if command == "" {
		c.emitError("malformed message: missing command")
		return
	}
	c.logger.Debug("panel.command", "command", command)

	switch command {
	case CmdGetConfigStatus:
		c.handleGetConfigStatus()
	case CmdSaveConfiguration:
		c.handleSaveConfiguration(raw)
	case CmdSendMessage:
		c.handleSendMessage(ctx, raw)
	case CmdGetProviders:
		c.handleGetProviders()
	case CmdGetModelsForProvider:
		c.handleGetModels(ctx, raw)
	case CmdClearConversation:
		c.dispatcher.ResetHistory()
		c.emit(CmdConversationCleared, nil)
	default:
		c.emitError(fmt.Sprintf("unknown command %q", command))
	}
}

// ReloadFromStore restores the persisted configuration on startup: loads the
// panel config, fetches the provider's API key from the secret store, and
// re-initializes the model session. A workspace with no stored configuration
// is not an error.
func (c *Controller) ReloadFromStore(ctx context.Context) error {
	cfg, err := c.configStore.Load()
	if err != nil {
		return err
	}
	if cfg.Provider == "" {
		return nil
	}

	creds := core.Credentials{}
	if cfg.BaseURL != "" {
		creds["baseUrl"] = cfg.BaseURL
	}
	if key, kerr := c.secrets.Get(workspace.SecretKey(cfg.Provider)); kerr == nil {
		creds["apiKey"] = key
	} else if !errors.Is(kerr, workspace.ErrSecretNotFound) {
		return kerr
	}

	if err := c.session.Initialize(core.ModelConfig{
		ProviderID:  cfg.Provider,
		ModelID:     cfg.Model,
		Credentials: creds,
	}); err != nil {
		// Stale or incomplete persisted config; the panel will surface it via
		// getConfigStatus rather than failing startup.
		c.logger.Warn("panel.reload.initialize_failed", "provider", cfg.Provider, "error", err.Error())
	}
	return nil
}

func (c *Controller) handleGetConfigStatus() {
	c.emit(CmdConfigStatus, c.configStatus())
}

// configStatus assembles the secret-free configuration snapshot shared by the
// configStatus and configSaved messages.
func (c *Controller) configStatus() ConfigStatusPayload {
	status := ConfigStatusPayload{}
	if cfg, err := c.configStore.Load(); err == nil && cfg.Provider != "" {
		status.ProviderSet = true
		status.Provider = cfg.Provider
		status.Model = cfg.Model
		status.BaseURL = cfg.BaseURL
		_, kerr := c.secrets.Get(workspace.SecretKey(cfg.Provider))
		status.APIKeySet = kerr == nil
	}
	if cfg, ok := c.session.Config(); ok {
		status.ProviderSet = true
		status.Provider = cfg.ProviderID
		status.Model = cfg.ModelID
	}
	status.IsModelInitialized = c.session.Ready()
	return status
}

func (c *Controller) handleSaveConfiguration(raw []byte) {
	var payload SaveConfigurationPayload
	if err := json.Unmarshal([]byte(gjson.GetBytes(raw, "payload").Raw), &payload); err != nil {
		c.emit(CmdConfigError, ConfigErrorPayload{Message: "malformed saveConfiguration payload"})
		return
	}

	providerID := core.CanonicalProviderID(payload.Provider)
	adapter, ok := c.registry.Get(providerID)
	if !ok {
		c.emit(CmdConfigError, ConfigErrorPayload{
			Field:   "provider",
			Message: fmt.Sprintf("unsupported provider %q", payload.Provider),
		})
		return
	}

	creds := core.Credentials{}
	if payload.BaseURL != "" {
		creds["baseUrl"] = payload.BaseURL
	}
	if payload.APIKey != "" {
		creds["apiKey"] = payload.APIKey
	} else if key, err := c.secrets.Get(workspace.SecretKey(providerID)); err == nil {
		// Saving without re-entering the key keeps the stored one.
		creds["apiKey"] = key
	}

	if err := provider.RequireCredentials(adapter.Descriptor(), creds); err != nil {
		c.emit(CmdConfigError, ConfigErrorPayload{Field: errorField(err), Message: err.Error()})
		return
	}

	if err := c.session.Initialize(core.ModelConfig{
		ProviderID:  providerID,
		ModelID:     payload.Model,
		Credentials: creds,
	}); err != nil {
		c.emit(CmdConfigError, ConfigErrorPayload{Message: err.Error(), Field: errorField(err)})
		return
	}

	// Persist only after the configuration proved constructible. The API key
	// goes to the secret store; the config file never sees it.
	if payload.APIKey != "" {
		if err := c.secrets.Set(workspace.SecretKey(providerID), payload.APIKey); err != nil {
			c.emit(CmdConfigError, ConfigErrorPayload{Message: "failed to store API key: " + err.Error()})
			return
		}
	}
	committed, _ := c.session.Config()
	if err := c.configStore.Save(workspace.PanelConfig{
		Provider: providerID,
		Model:    committed.ModelID,
		BaseURL:  payload.BaseURL,
	}); err != nil {
		c.emit(CmdConfigError, ConfigErrorPayload{Message: "failed to persist configuration: " + err.Error()})
		return
	}

	c.emit(CmdConfigSaved, c.configStatus())
	c.handleGetConfigStatus()
}

func (c *Controller) handleSendMessage(ctx context.Context, raw []byte) {
	text := gjson.GetBytes(raw, "payload.text").String()
	if text == "" {
		c.emitError("empty message")
		return
	}
	id := gjson.GetBytes(raw, "payload.id").String()
	if id == "" {
		id = core.NewID()
	}
	if c.dispatcher.Busy() {
		c.emit(CmdError, ErrorPayload{ID: id, Message: "A response is already in progress."})
		return
	}

	// The dispatch loop blocks for the whole model round trip; run it off the
	// read loop so the connection keeps servicing commands. Overlapping sends
	// are rejected by the dispatcher itself.
	go func() {
		if err := c.dispatcher.Send(ctx, id, text, c); err != nil {
			if errors.Is(err, dispatch.ErrBusy) {
				return // the running dispatch already owns the terminal event
			}
			c.logger.Warn("panel.send.failed", "error", err.Error())
		}
	}()
}

func (c *Controller) handleGetProviders() {
	descs := c.registry.Descriptors()
	infos := make([]ProviderInfo, 0, len(descs))
	for _, d := range descs {
		infos = append(infos, ProviderInfo{
			ID:                       d.ID,
			DisplayName:              d.DisplayName,
			RequiredCredentialFields: d.RequiredCredentialFields,
			AllowsCustomModel:        d.AllowsCustomModel,
			DefaultModel:             d.DefaultModel,
		})
	}
	c.emit(CmdProvidersResult, ProvidersResultPayload{Providers: infos})
}

func (c *Controller) handleGetModels(ctx context.Context, raw []byte) {
	providerID := core.CanonicalProviderID(gjson.GetBytes(raw, "payload.providerId").String())
	adapter, ok := c.registry.Get(providerID)
	if !ok {
		c.emitError(fmt.Sprintf("unsupported provider %q", providerID))
		return
	}

	creds := core.Credentials{}
	if key, err := c.secrets.Get(workspace.SecretKey(providerID)); err == nil {
		creds["apiKey"] = key
	}
	if cfg, err := c.configStore.Load(); err == nil && cfg.BaseURL != "" &&
		core.CanonicalProviderID(cfg.Provider) == providerID {
		creds["baseUrl"] = cfg.BaseURL
	}
	// The request may carry a not-yet-saved base URL from the settings form.
	if override := gjson.GetBytes(raw, "payload.config.baseUrl").String(); override != "" {
		creds["baseUrl"] = override
	}

	dctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()
	models := adapter.AvailableModels(dctx, creds)
	c.emit(CmdModelsResult, ModelsResultPayload{ProviderID: providerID, Models: models})
}

// Chunk implements dispatch.Sink.
func (c *Controller) Chunk(id, text string) {
	c.emit(CmdResponseChunk, ChunkPayload{ID: id, Text: text})
}

// Thinking implements dispatch.Sink.
func (c *Controller) Thinking(id, step string) {
	c.emit(CmdThinkingStep, ThinkingPayload{ID: id, Text: step})
}

// ToolResult implements dispatch.Sink.
func (c *Controller) ToolResult(id string, result core.ToolResult) {
	c.emit(CmdToolResult, ToolResultPayload{
		ID:     id,
		CallID: result.CallID,
		Name:   result.Name,
		Result: json.RawMessage(result.Result),
	})
}

// Complete implements dispatch.Sink.
func (c *Controller) Complete(id, finishReason string, usage *core.TokenUsage) {
	c.emit(CmdResponseComplete, CompletePayload{ID: id, FinishReason: finishReason, Usage: usage})
}

// Error implements dispatch.Sink.
func (c *Controller) Error(id, message string) {
	c.emit(CmdError, ErrorPayload{ID: id, Message: message})
}

func (c *Controller) emit(command string, payload any) {
	if err := c.emitter.Emit(command, payload); err != nil {
		c.logger.Warn("panel.emit.failed", "command", command, "error", err.Error())
	}
}

func (c *Controller) emitError(message string) {
	c.emit(CmdError, ErrorPayload{Message: message})
}

func errorField(err error) string {
	var cfgErr *core.ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Field
	}
	return ""
}
