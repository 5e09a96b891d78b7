// Package sidekick provides a high-level façade over the chat backend:
// provider registry, model session, tool registry, dispatch loop and panel
// controller. Most applications interact with this package by:
//  1. Creating a Sidekick via New() (pointing it at a workspace directory)
//  2. Restoring persisted configuration with ReloadFromStore, or configuring
//     a model through the panel protocol
//  3. Serving the panel protocol (NewPanelController + panel.Server) or
//     driving the dispatcher directly
//
// The façade delegates streaming and tool execution to dispatch.Dispatcher
// while keeping setup ergonomics concise. All defaults are safe for local
// development; editor hosts typically supply a structured logger and a real
// secret store key.
package sidekick

import (
	"context"
	"path/filepath"

	"github.com/sidekick-ai/sidekick/dispatch"
	"github.com/sidekick-ai/sidekick/logging"
	"github.com/sidekick-ai/sidekick/panel"
	"github.com/sidekick-ai/sidekick/provider"
	"github.com/sidekick-ai/sidekick/provider/anthropic"
	"github.com/sidekick-ai/sidekick/provider/compat"
	"github.com/sidekick-ai/sidekick/provider/ollama"
	"github.com/sidekick-ai/sidekick/provider/openai"
	"github.com/sidekick-ai/sidekick/session"
	"github.com/sidekick-ai/sidekick/tool"
	"github.com/sidekick-ai/sidekick/workspace"
)

// Options configure a Sidekick instance.
type Options struct {
	// ConfigPath locates the persisted panel configuration. Defaults to
	// <workspace>/.sidekick/config.yaml.
	ConfigPath string

	// SecretDBPath locates the encrypted secret database. Defaults to
	// <workspace>/.sidekick/secrets.db. Ignored when SecretStore is set.
	SecretDBPath string

	// SecretKey is the 16/24/32 byte AES key protecting stored API keys.
	// Required unless SecretStore is set; editor hosts derive it from their
	// own secret storage.
	SecretKey []byte

	// SecretStore overrides the default SQLite-backed store.
	SecretStore workspace.SecretStore

	// Providers overrides the default provider registry.
	Providers *provider.Registry

	// Tools overrides the default tool registry.
	Tools *tool.Registry

	// SystemPrompt overrides the default assistant prompt.
	SystemPrompt string

	// Notifier surfaces tool activity to the editor. Defaults to no-op.
	Notifier workspace.Notifier

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Sidekick aggregates the backend components serving one editor chat panel.
type Sidekick struct {
	registry    *provider.Registry
	session     *session.ModelSession
	tools       *tool.Registry
	ws          *workspace.Workspace
	dispatcher  *dispatch.Dispatcher
	configStore *workspace.ConfigStore
	secrets     workspace.SecretStore
	logger      logging.Logger
}

// New creates a Sidekick rooted at the given workspace directory. Any unset
// component is initialized with its default implementation.
func New(workspaceDir string, optFns ...func(o *Options)) (*Sidekick, error) {
	opts := Options{
		Notifier: workspace.NoOpNotifier{},
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	ws, err := workspace.New(workspaceDir)
	if err != nil {
		return nil, err
	}

	if opts.ConfigPath == "" {
		opts.ConfigPath = filepath.Join(workspaceDir, ".sidekick", "config.yaml")
	}
	secrets := opts.SecretStore
	if secrets == nil {
		if opts.SecretDBPath == "" {
			opts.SecretDBPath = filepath.Join(workspaceDir, ".sidekick", "secrets.db")
		}
		secrets, err = workspace.NewSQLiteSecretStore(opts.SecretDBPath, opts.SecretKey)
		if err != nil {
			return nil, err
		}
	}

	registry := opts.Providers
	if registry == nil {
		registry = DefaultRegistry()
	}
	tools := opts.Tools
	if tools == nil {
		tools = tool.DefaultRegistry()
	}

	sess := session.New(registry, func(o *session.Options) { o.Logger = opts.Logger })
	dispatcher := dispatch.New(sess, tools, ws, func(o *dispatch.Options) {
		if opts.SystemPrompt != "" {
			o.SystemPrompt = opts.SystemPrompt
		}
		o.Notifier = opts.Notifier
		o.Logger = opts.Logger
	})

	return &Sidekick{
		registry:    registry,
		session:     sess,
		tools:       tools,
		ws:          ws,
		dispatcher:  dispatcher,
		configStore: workspace.NewConfigStore(opts.ConfigPath),
		secrets:     secrets,
		logger:      opts.Logger,
	}, nil
}

// DefaultRegistry builds the built-in provider set: the first-party OpenAI,
// Azure OpenAI, Anthropic and Ollama adapters plus the OpenAI-compatible
// vendor presets. Hosts may Register additional adapters afterwards.
func DefaultRegistry() *provider.Registry {
	r := provider.NewRegistry()
	r.Register(openai.NewAdapter())
	r.Register(openai.NewAzureAdapter())
	r.Register(anthropic.NewAdapter())
	r.Register(ollama.NewAdapter())
	compat.RegisterAll(r)
	return r
}

// Registry returns the provider registry.
func (s *Sidekick) Registry() *provider.Registry { return s.registry }

// Session returns the model session.
func (s *Sidekick) Session() *session.ModelSession { return s.session }

// Tools returns the tool registry.
func (s *Sidekick) Tools() *tool.Registry { return s.tools }

// Workspace returns the rooted workspace filesystem.
func (s *Sidekick) Workspace() *workspace.Workspace { return s.ws }

// Dispatcher returns the dispatch loop.
func (s *Sidekick) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// Secrets returns the secret store.
func (s *Sidekick) Secrets() workspace.SecretStore { return s.secrets }

// NewPanelController wires a panel controller over this instance. emitter
// receives every outbound protocol message.
func (s *Sidekick) NewPanelController(emitter panel.Emitter) *panel.Controller {
	return panel.NewController(
		s.registry, s.session, s.dispatcher, s.configStore, s.secrets, emitter,
		func(o *panel.ControllerOptions) { o.Logger = s.logger },
	)
}

// Send is a convenience wrapper around the dispatcher for embedding without
// the panel protocol. A correlation id is generated for the request.
func (s *Sidekick) Send(ctx context.Context, text string, sink dispatch.Sink) error {
	return s.dispatcher.Send(ctx, "", text, sink)
}

// Close releases held resources (the secret store database).
func (s *Sidekick) Close() error {
	if closer, ok := s.secrets.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
