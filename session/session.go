// Package session owns the single live model handle and the configuration
// used to create it. Re-initialization is serialized and atomic from the
// caller's perspective: the old handle is discarded only once the new one
// exists, or both handle and config are cleared on failure.
package session

import (
	"sync"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/logging"
	"github.com/sidekick-ai/sidekick/provider"
)

// State enumerates the model session lifecycle.
type State int

const (
	// StateUninitialized is the zero state and the state after Reset.
	StateUninitialized State = iota
	// StateInitializing covers the window of an in-flight Initialize.
	StateInitializing
	// StateReady means a live handle exists.
	StateReady
	// StateFailed means the last Initialize failed; Handle errors until the
	// next successful Initialize.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ModelSession holds at most one initialized model handle plus the config
// used to create it. It is an explicit, constructed object injected into the
// panel controller rather than process-global state, so panels and tests
// cannot bleed into each other.
type ModelSession struct {
	mu       sync.Mutex
	state    State
	handle   core.ModelHandle
	config   *core.ModelConfig
	registry *provider.Registry
	logger   logging.Logger
}

// Options configure a ModelSession.
type Options struct {
	Logger logging.Logger
}

// New constructs an uninitialized session bound to a provider registry.
func New(registry *provider.Registry, optFns ...func(o *Options)) *ModelSession {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelSession{registry: registry, logger: opts.Logger}
}

// Initialize resolves the adapter for config's provider and atomically
// replaces any prior handle and config with the new ones.
//
// Failure semantics:
//   - unknown provider: state cleared entirely, *core.ConfigError naming the id
//   - missing credential / construction failure: handle cleared, config cleared
//   - no model id and no provider default: handle cleared, but the config is
//     still recorded so callers can tell "configured but no model chosen yet"
//     apart from "not configured at all"
func (s *ModelSession) Initialize(config core.ModelConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateInitializing
	config.ProviderID = core.CanonicalProviderID(config.ProviderID)

	adapter, ok := s.registry.Get(config.ProviderID)
	if !ok {
		s.clearLocked()
		err := core.NewConfigError("provider", "unsupported provider %q", config.ProviderID)
		s.logger.Warn("session.initialize.unsupported_provider", "provider", config.ProviderID)
		return err
	}

	desc := adapter.Descriptor()
	modelID := config.ModelID
	if modelID == "" {
		modelID = desc.DefaultModel
	}
	if modelID == "" {
		// Configured but no model chosen yet: record the config, no handle.
		s.handle = nil
		s.config = &config
		s.state = StateFailed
		return core.NewConfigError("modelId",
			"provider %q has no default model and none was chosen", config.ProviderID)
	}

	handle, err := adapter.CreateModel(modelID, config.Credentials)
	if err != nil {
		s.clearLocked()
		s.logger.Warn("session.initialize.failed",
			"provider", config.ProviderID, "model", modelID, "error", err.Error())
		return err
	}

	committed := config
	committed.ModelID = modelID
	s.handle = handle
	s.config = &committed
	s.state = StateReady
	s.logger.Info("session.initialized", "provider", config.ProviderID, "model", modelID)
	return nil
}

// Handle returns the live model handle, or core.ErrNotInitialized when the
// session is not Ready.
func (s *ModelSession) Handle() (core.ModelHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.handle == nil {
		return nil, core.ErrNotInitialized
	}
	return s.handle, nil
}

// Config returns the recorded configuration, if any.
func (s *ModelSession) Config() (core.ModelConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return core.ModelConfig{}, false
	}
	return *s.config, true
}

// State returns the current lifecycle state.
func (s *ModelSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether a live handle exists.
func (s *ModelSession) Ready() bool { return s.State() == StateReady }

// Reset clears handle and config unconditionally. Used when editor-side
// configuration changes or the hosting panel closes. Calling Reset on an
// already uninitialized session is a no-op.
func (s *ModelSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *ModelSession) clearLocked() {
	s.handle = nil
	s.config = nil
	s.state = StateUninitialized
}
