// Package dispatch runs the conversation loop between the editor panel and a
// model handle: it streams assistant output, executes requested tool calls,
// feeds results back to the model for follow-up rounds, and guarantees
// exactly one terminal notification per user message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/logging"
	"github.com/sidekick-ai/sidekick/session"
	"github.com/sidekick-ai/sidekick/tool"
	"github.com/sidekick-ai/sidekick/workspace"
)

// ErrBusy is returned by Send when a previous dispatch is still running.
// Concurrent sends are rejected rather than queued; the UI disables input
// while a response is streaming, so overlap indicates a protocol bug.
var ErrBusy = errors.New("a message is already being processed")

// maxToolRounds bounds how many times the model may chain tool calls within
// one user message before the loop gives up.
const maxToolRounds = 8

// defaultSystemPrompt frames the assistant for editor work.
const defaultSystemPrompt = "You are an AI coding assistant embedded in a code editor. " +
	"You help the user understand, write, and modify code in their workspace. " +
	"Use the available tools to read and edit files when needed. " +
	"Be concise; prefer showing code over describing it."

// Sink receives dispatch output. The panel controller implements it by
// translating each call into an outbound UI message. Every call carries the
// correlation id of the Send that produced it, so a client with multiple
// requests in flight can thread events back to their request.
//
// For every Send exactly one of Complete or Error is invoked, after all
// Chunk/Thinking/ToolResult calls.
type Sink interface {
	// Chunk delivers an incremental piece of assistant text.
	Chunk(id, text string)
	// Thinking reports a transient progress step (tool about to run).
	Thinking(id, step string)
	// ToolResult reports an executed tool call outcome.
	ToolResult(id string, result core.ToolResult)
	// Complete signals successful end of the response.
	Complete(id, finishReason string, usage *core.TokenUsage)
	// Error signals abnormal end of the response.
	Error(id, message string)
}

// Dispatcher owns the conversation history and the streaming loop. One
// dispatcher serves one panel.
type Dispatcher struct {
	session  *session.ModelSession
	tools    *tool.Registry
	ws       *workspace.Workspace
	notifier workspace.Notifier
	logger   logging.Logger

	systemPrompt string

	busy atomic.Bool

	mu      sync.Mutex
	history []core.Message
}

// Options configure a Dispatcher.
type Options struct {
	// SystemPrompt replaces the default editor assistant prompt.
	SystemPrompt string
	// Notifier surfaces tool failures to the editor.
	Notifier workspace.Notifier
	// Logger receives structured dispatch logs.
	Logger logging.Logger
}

// New constructs a Dispatcher over a model session and a tool registry.
func New(sess *session.ModelSession, tools *tool.Registry, ws *workspace.Workspace, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		SystemPrompt: defaultSystemPrompt,
		Notifier:     workspace.NoOpNotifier{},
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{
		session:      sess,
		tools:        tools,
		ws:           ws,
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		systemPrompt: opts.SystemPrompt,
	}
}

// Busy reports whether a dispatch is currently running.
func (d *Dispatcher) Busy() bool { return d.busy.Load() }

// ResetHistory drops the conversation, keeping the model session intact.
func (d *Dispatcher) ResetHistory() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = nil
}

// HistoryLen returns the number of stored conversation turns.
func (d *Dispatcher) HistoryLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history)
}

// Send processes one user message end to end: append to history, stream the
// model response through sink, execute any tool calls, and loop until the
// model finishes without requesting tools. Exactly one sink.Complete or
// sink.Error is emitted, and every sink call is tagged with id; an empty id
// is replaced with a generated one. Send blocks until the dispatch finishes;
// callers wanting asynchrony run it in a goroutine.
func (d *Dispatcher) Send(ctx context.Context, id, text string, sink Sink) error {
	if id == "" {
		id = core.NewID()
	}
	if !d.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer d.busy.Store(false)

	handle, err := d.session.Handle()
	if err != nil {
		sink.Error(id, "No AI model is configured. Open settings to choose a provider and model.")
		return err
	}

	d.mu.Lock()
	d.history = append(d.history, core.Message{Role: "user", Content: text})
	d.mu.Unlock()

	start := time.Now()
	info := handle.Info()
	finishReason, usage, err := d.run(ctx, id, handle, sink)

	logging.LogModelCall(d.logger, info.Provider, info.Model, tokensOf(usage), time.Since(start), err == nil, err)

	if err != nil {
		sink.Error(id, userFacing(err))
		return err
	}
	sink.Complete(id, finishReason, usage)
	return nil
}

// run executes the tool-round loop. It returns the final finish reason and
// usage, or an error if the stream failed.
func (d *Dispatcher) run(ctx context.Context, id string, handle core.ModelHandle, sink Sink) (string, *core.TokenUsage, error) {
	for round := 0; round < maxToolRounds; round++ {
		req := d.buildRequest(handle)

		text, calls, finishReason, usage, err := d.streamOnce(ctx, id, handle, req, sink)
		if err != nil {
			return "", nil, err
		}

		// Vendors with the empty-stream quirk occasionally close the stream
		// with no content at all; retry once through the non-streaming path.
		if text == "" && len(calls) == 0 && handle.Info().EmptyStreamFallback {
			d.logger.Warn("dispatch.empty_stream_fallback", "provider", handle.Info().Provider)
			fallback, gerr := handle.Generate(ctx, req)
			if gerr != nil {
				return "", nil, gerr
			}
			text = fallback
			if text != "" {
				sink.Chunk(id, text)
			}
		}

		d.appendAssistant(text, calls)

		if len(calls) == 0 {
			return finishReason, usage, nil
		}

		if err := d.executeCalls(ctx, id, calls, sink); err != nil {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("model exceeded %d consecutive tool rounds", maxToolRounds)
}

// streamOnce consumes a single model stream, relaying text deltas to the sink
// and collecting tool calls for execution after the stream ends.
func (d *Dispatcher) streamOnce(
	ctx context.Context,
	id string,
	handle core.ModelHandle,
	req core.Request,
	sink Sink,
) (text string, calls []core.ToolCall, finishReason string, usage *core.TokenUsage, err error) {
	events, errs := handle.Stream(ctx, req)

	var sb strings.Builder
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Type {
			case core.EventTextDelta:
				sb.WriteString(ev.Text)
				sink.Chunk(id, ev.Text)
			case core.EventToolCall:
				if ev.ToolCall != nil {
					calls = append(calls, *ev.ToolCall)
				}
			case core.EventCompletion:
				finishReason = ev.FinishReason
				usage = ev.Usage
			case core.EventError:
				err = &core.StreamError{Message: ev.Message}
			}
		case serr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if serr != nil {
				err = serr
			}
		case <-ctx.Done():
			return "", nil, "", nil, ctx.Err()
		}
	}
	if err != nil {
		return "", nil, "", nil, err
	}
	return sb.String(), calls, finishReason, usage, nil
}

// executeCalls runs the requested tools in order and appends their results to
// the history as tool messages. A failed tool does not abort the round; its
// failure result is fed back so the model can react.
func (d *Dispatcher) executeCalls(ctx context.Context, id string, calls []core.ToolCall, sink Sink) error {
	for _, call := range calls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sink.Thinking(id, fmt.Sprintf("Running %s...", call.Name))

		toolCtx := tool.NewContext(ctx, d.ws, d.notifier, d.logger, call.ID)
		result, execErr := d.tools.Execute(toolCtx, call)
		if execErr != nil {
			d.logger.Warn("dispatch.tool_failed", "tool", call.Name, "error", execErr.Error())
		}
		sink.ToolResult(id, result)

		d.mu.Lock()
		d.history = append(d.history, core.Message{
			Role:       "tool",
			Content:    result.Result,
			ToolCallID: call.ID,
		})
		d.mu.Unlock()
	}
	return nil
}

// buildRequest assembles the full prompt: system message, conversation
// history, and tool declarations when the handle supports them.
func (d *Dispatcher) buildRequest(handle core.ModelHandle) core.Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	messages := make([]core.Message, 0, len(d.history)+1)
	messages = append(messages, core.Message{Role: "system", Content: d.systemPrompt})
	messages = append(messages, d.history...)

	req := core.Request{Messages: messages}
	if handle.Info().SupportsTools && d.tools != nil {
		req.Tools = d.tools.Definitions()
	}
	return req
}

func (d *Dispatcher) appendAssistant(text string, calls []core.ToolCall) {
	if text == "" && len(calls) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = append(d.history, core.Message{Role: "assistant", Content: text, ToolCalls: calls})
}

func tokensOf(usage *core.TokenUsage) int {
	if usage == nil {
		return 0
	}
	return usage.TotalTokens
}

// userFacing maps dispatch failures to a message suitable for the panel.
func userFacing(err error) string {
	var streamErr *core.StreamError
	if errors.As(err, &streamErr) {
		return "The AI provider returned an error: " + streamErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The AI provider took too long to respond."
	}
	return "Failed to get a response: " + err.Error()
}
