package panel

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/dispatch"
	"github.com/sidekick-ai/sidekick/internal/testutil"
	"github.com/sidekick-ai/sidekick/provider"
	"github.com/sidekick-ai/sidekick/session"
	"github.com/sidekick-ai/sidekick/tool"
	"github.com/sidekick-ai/sidekick/workspace"
)

// captureEmitter records outbound envelopes as marshaled JSON frames.
type captureEmitter struct {
	mu     sync.Mutex
	frames []string
}

func (e *captureEmitter) Emit(command string, payload any) error {
	data, err := json.Marshal(OutboundEnvelope{Command: command, Payload: payload})
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frames = append(e.frames, string(data))
	return nil
}

func (e *captureEmitter) Frames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.frames...)
}

// last returns the most recent frame with the given command, if any.
func (e *captureEmitter) last(command string) (string, bool) {
	frames := e.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if gjson.Get(frames[i], "command").String() == command {
			return frames[i], true
		}
	}
	return "", false
}

type fixture struct {
	controller *Controller
	emitter    *captureEmitter
	handle     *testutil.MockHandle
	secrets    *workspace.MemorySecretStore
	sess       *session.ModelSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	handle := &testutil.MockHandle{
		InfoValue: core.HandleInfo{Provider: "stub", Model: "stub-1"},
	}
	registry := provider.NewRegistry()
	registry.Register(&testutil.FakeAdapter{
		Desc: provider.Descriptor{
			ID:                       "stub",
			DisplayName:              "Stub",
			RequiredCredentialFields: []string{"apiKey"},
			DefaultModel:             "stub-1",
		},
		Handle: handle,
		Models: []provider.ModelInfo{{ID: "stub-1"}, {ID: "stub-2"}},
	})

	sess := session.New(registry)
	tools := tool.NewRegistry()
	ws := workspace.NewMem()
	dispatcher := dispatch.New(sess, tools, ws)
	configStore := workspace.NewConfigStore(filepath.Join(t.TempDir(), "config.yaml"))
	secrets := workspace.NewMemorySecretStore()
	emitter := &captureEmitter{}

	controller := NewController(registry, sess, dispatcher, configStore, secrets, emitter)
	return &fixture{
		controller: controller,
		emitter:    emitter,
		handle:     handle,
		secrets:    secrets,
		sess:       sess,
	}
}

func (f *fixture) handleJSON(t *testing.T, frame string) {
	t.Helper()
	f.controller.HandleMessage(context.Background(), []byte(frame))
}

func TestController_GetProviders(t *testing.T) {
	f := newFixture(t)
	f.handleJSON(t, `{"command":"getProviders"}`)

	frame, ok := f.emitter.last(CmdProvidersResult)
	require.True(t, ok)
	providers := gjson.Get(frame, "payload.providers").Array()
	require.Len(t, providers, 1)
	assert.Equal(t, "stub", providers[0].Get("id").String())
	assert.Equal(t, "Stub", providers[0].Get("displayName").String())
}

func TestController_SaveConfigurationRoundTrip(t *testing.T) {
	f := newFixture(t)

	f.handleJSON(t, `{"command":"saveConfiguration","payload":{"provider":"stub","modelId":"stub-2","apiKey":"sk-secret-123"}}`)

	// configSaved carries the same status shape as configStatus.
	saved, ok := f.emitter.last(CmdConfigSaved)
	require.True(t, ok, "expected configSaved")
	assert.True(t, gjson.Get(saved, "payload.providerSet").Bool())

	frame, ok := f.emitter.last(CmdConfigStatus)
	require.True(t, ok)
	assert.True(t, gjson.Get(frame, "payload.providerSet").Bool())
	assert.True(t, gjson.Get(frame, "payload.apiKeySet").Bool())
	assert.True(t, gjson.Get(frame, "payload.isModelInitialized").Bool())
	assert.Equal(t, "stub", gjson.Get(frame, "payload.provider").String())
	assert.Equal(t, "stub-2", gjson.Get(frame, "payload.modelId").String())

	// The API key reaches the secret store but is never echoed outbound.
	key, err := f.secrets.Get(workspace.SecretKey("stub"))
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-123", key)
	for _, fr := range f.emitter.Frames() {
		assert.NotContains(t, fr, "sk-secret-123")
	}
}

func TestController_SaveConfigurationUnsupportedProvider(t *testing.T) {
	f := newFixture(t)

	f.handleJSON(t, `{"command":"saveConfiguration","payload":{"provider":"nope","apiKey":"k"}}`)

	frame, ok := f.emitter.last(CmdConfigError)
	require.True(t, ok)
	assert.Equal(t, "provider", gjson.Get(frame, "payload.field").String())
	assert.Contains(t, gjson.Get(frame, "payload.message").String(), "nope")
	assert.False(t, f.sess.Ready())
}

func TestController_SaveConfigurationMissingKey(t *testing.T) {
	f := newFixture(t)

	f.handleJSON(t, `{"command":"saveConfiguration","payload":{"provider":"stub"}}`)

	frame, ok := f.emitter.last(CmdConfigError)
	require.True(t, ok)
	assert.Equal(t, "apiKey", gjson.Get(frame, "payload.field").String())
}

func TestErrorField(t *testing.T) {
	assert.Equal(t, "apiKey", errorField(core.NewConfigError("apiKey", "missing")))
	// Errors without an attributable field yield an empty field, not a panic.
	assert.Equal(t, "", errorField(errors.New("boom")))
}

func TestController_SaveKeepsStoredKey(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.secrets.Set(workspace.SecretKey("stub"), "sk-stored"))

	// Re-saving without re-entering the key reuses the stored one.
	f.handleJSON(t, `{"command":"saveConfiguration","payload":{"provider":"stub","modelId":"stub-1"}}`)

	_, saved := f.emitter.last(CmdConfigSaved)
	assert.True(t, saved)
	assert.True(t, f.sess.Ready())
}

func TestController_GetConfigStatusUnconfigured(t *testing.T) {
	f := newFixture(t)
	f.handleJSON(t, `{"command":"getConfigStatus"}`)

	frame, ok := f.emitter.last(CmdConfigStatus)
	require.True(t, ok)
	assert.False(t, gjson.Get(frame, "payload.providerSet").Bool())
	assert.False(t, gjson.Get(frame, "payload.apiKeySet").Bool())
	assert.False(t, gjson.Get(frame, "payload.isModelInitialized").Bool())
}

func TestController_GetModelsForProvider(t *testing.T) {
	f := newFixture(t)
	f.handleJSON(t, `{"command":"getModelsForProvider","payload":{"providerId":"STUB"}}`)

	frame, ok := f.emitter.last(CmdModelsResult)
	require.True(t, ok)
	assert.Equal(t, "stub", gjson.Get(frame, "payload.providerId").String())
	models := gjson.Get(frame, "payload.models").Array()
	require.Len(t, models, 2)
	assert.Equal(t, "stub-1", models[0].Get("id").String())
}

func TestController_SendMessageStreamsToPanel(t *testing.T) {
	f := newFixture(t)
	f.handle.Scripts = [][]core.StreamEvent{{
		core.TextDeltaEvent("Hi"),
		core.TextDeltaEvent(" there"),
		core.CompletionEvent("stop", &core.TokenUsage{TotalTokens: 3}),
	}}

	f.handleJSON(t, `{"command":"saveConfiguration","payload":{"provider":"stub","apiKey":"sk-test"}}`)
	require.True(t, f.sess.Ready())

	f.handleJSON(t, `{"command":"sendMessage","payload":{"text":"hello"}}`)

	// Dispatch runs off the read loop; wait for the terminal frame.
	require.Eventually(t, func() bool {
		_, ok := f.emitter.last(CmdResponseComplete)
		return ok
	}, time.Second, 5*time.Millisecond)

	var text strings.Builder
	for _, fr := range f.emitter.Frames() {
		if gjson.Get(fr, "command").String() == CmdResponseChunk {
			text.WriteString(gjson.Get(fr, "payload.text").String())
		}
	}
	assert.Equal(t, "Hi there", text.String())
}

func TestController_SendMessageEchoesCorrelationID(t *testing.T) {
	f := newFixture(t)
	f.handle.Scripts = [][]core.StreamEvent{{
		core.TextDeltaEvent("hi"),
		core.CompletionEvent("stop", nil),
	}}

	f.handleJSON(t, `{"command":"saveConfiguration","payload":{"provider":"stub","apiKey":"sk-test"}}`)
	require.True(t, f.sess.Ready())

	f.handleJSON(t, `{"command":"sendMessage","payload":{"id":"req-1","text":"hello"}}`)

	require.Eventually(t, func() bool {
		_, ok := f.emitter.last(CmdResponseComplete)
		return ok
	}, time.Second, 5*time.Millisecond)

	chunk, ok := f.emitter.last(CmdResponseChunk)
	require.True(t, ok)
	assert.Equal(t, "req-1", gjson.Get(chunk, "payload.id").String())

	complete, _ := f.emitter.last(CmdResponseComplete)
	assert.Equal(t, "req-1", gjson.Get(complete, "payload.id").String())
}

func TestController_SendMessageWithoutConfig(t *testing.T) {
	f := newFixture(t)
	f.handleJSON(t, `{"command":"sendMessage","payload":{"text":"hello"}}`)

	require.Eventually(t, func() bool {
		_, ok := f.emitter.last(CmdError)
		return ok
	}, time.Second, 5*time.Millisecond)

	frame, _ := f.emitter.last(CmdError)
	assert.Contains(t, gjson.Get(frame, "payload.message").String(), "No AI model is configured")
}

func TestController_ClearConversation(t *testing.T) {
	f := newFixture(t)
	f.handleJSON(t, `{"command":"clearConversation"}`)

	_, ok := f.emitter.last(CmdConversationCleared)
	assert.True(t, ok)
}

func TestController_UnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.handleJSON(t, `{"command":"bogus"}`)

	frame, ok := f.emitter.last(CmdError)
	require.True(t, ok)
	assert.Contains(t, gjson.Get(frame, "payload.message").String(), "bogus")
}

func TestController_MalformedFrame(t *testing.T) {
	f := newFixture(t)
	f.handleJSON(t, `{"payload":{}}`)

	_, ok := f.emitter.last(CmdError)
	assert.True(t, ok)
}

func TestController_ReloadFromStore(t *testing.T) {
	f := newFixture(t)

	// Persist a configuration, then reload into a fresh session.
	f.handleJSON(t, `{"command":"saveConfiguration","payload":{"provider":"stub","modelId":"stub-2","apiKey":"sk-test"}}`)
	require.True(t, f.sess.Ready())
	f.sess.Reset()
	require.False(t, f.sess.Ready())

	require.NoError(t, f.controller.ReloadFromStore(context.Background()))
	assert.True(t, f.sess.Ready())

	cfg, ok := f.sess.Config()
	require.True(t, ok)
	assert.Equal(t, "stub", cfg.ProviderID)
	assert.Equal(t, "stub-2", cfg.ModelID)
}
