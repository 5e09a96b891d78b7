package core

import "github.com/google/uuid"

// EventType discriminates StreamEvent variants.
type EventType int

const (
	// EventTextDelta carries an incremental chunk of assistant text.
	EventTextDelta EventType = iota
	// EventToolCall carries a complete tool invocation requested by the model.
	EventToolCall
	// EventToolResult carries the outcome of an executed tool call.
	EventToolResult
	// EventCompletion terminates a stream successfully.
	EventCompletion
	// EventError terminates a stream with a failure.
	EventError
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventTextDelta:
		return "text_delta"
	case EventToolCall:
		return "tool_call"
	case EventToolResult:
		return "tool_result"
	case EventCompletion:
		return "completion"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// ToolResult is the outcome of one executed tool call, JSON-encoded so it can
// be fed back to the model verbatim.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Result string `json:"result"` // JSON object: {"success":true,...} or {"success":false,"error":...}
}

// StreamEvent is the tagged union relayed from a model stream to the UI.
// Ordering: zero or more TextDelta/ToolCall/ToolResult events followed by
// exactly one Completion or one Error, terminal either way.
type StreamEvent struct {
	Type         EventType   `json:"type"`
	Text         string      `json:"text,omitempty"`          // EventTextDelta
	ToolCall     *ToolCall   `json:"tool_call,omitempty"`     // EventToolCall
	ToolResult   *ToolResult `json:"tool_result,omitempty"`   // EventToolResult
	FinishReason string      `json:"finish_reason,omitempty"` // EventCompletion
	Usage        *TokenUsage `json:"usage,omitempty"`         // EventCompletion
	Message      string      `json:"message,omitempty"`       // EventError
}

// TextDeltaEvent builds an incremental text event.
func TextDeltaEvent(text string) StreamEvent {
	return StreamEvent{Type: EventTextDelta, Text: text}
}

// ToolCallEvent builds a tool invocation event.
func ToolCallEvent(call ToolCall) StreamEvent {
	return StreamEvent{Type: EventToolCall, ToolCall: &call}
}

// CompletionEvent builds the terminal success event.
func CompletionEvent(finishReason string, usage *TokenUsage) StreamEvent {
	return StreamEvent{Type: EventCompletion, FinishReason: finishReason, Usage: usage}
}

// ErrorEvent builds the terminal failure event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}

// NewID generates a unique identifier used for correlation ids and tool call
// fallbacks.
func NewID() string { return uuid.NewString() }
