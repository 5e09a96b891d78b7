package core

import "context"

// Message is a single turn of the normalized conversation sent to a model.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages only
}

// ToolCall is a complete function call requested by a model, unified across
// vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // complete JSON arguments string
}

// ToolDefinition declaratively exposes a callable capability to the model.
// Parameters is a JSON Schema object (minimal draft-agnostic subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the dispatch loop.
type Request struct {
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int64            `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

// TokenUsage captures token accounting reported with a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// HandleInfo describes a constructed model handle.
type HandleInfo struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	SupportsTools bool   `json:"supports_tools"`

	// EmptyStreamFallback marks vendors whose streaming endpoint has been
	// observed to return an empty result while the non-streaming endpoint
	// still answers. The dispatch loop applies a one-shot Generate fallback
	// only when this is set.
	EmptyStreamFallback bool `json:"empty_stream_fallback,omitempty"`
}

// ModelHandle is the opaque, adapter-produced object capable of streaming or
// single-shot generation. Exactly one handle is live per model session; it is
// created by ModelSession.Initialize and discarded by Reset or a subsequent
// Initialize.
type ModelHandle interface {
	// Stream opens a streamed generation. Events arrive on the first channel
	// in vendor order ending with exactly one EventCompletion (or one
	// EventError); transport-level failures arrive on the error channel.
	// Both channels are closed when the stream ends.
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, <-chan error)

	// Generate performs a single non-streaming completion and returns the
	// text of the first choice. Used by the empty-stream fallback path.
	Generate(ctx context.Context, req Request) (string, error)

	// Info returns metadata about the underlying provider and model.
	Info() HandleInfo
}
