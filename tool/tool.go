// Package tool implements the function / tool calling subsystem that exposes
// editor workspace capabilities (file access, directory management, search,
// patching, command execution) to the model with schema validated arguments
// and consistent error handling. Executors never throw past their boundary:
// every failure becomes a {success:false, error} result handed back to the
// model plus an editor-visible error notification.
package tool

import (
	"context"
	"fmt"

	"github.com/sidekick-ai/sidekick/logging"
	"github.com/sidekick-ai/sidekick/workspace"
)

// Tool defines one named capability the model may invoke mid-generation.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description returns a human-readable description provided to the model
	// so it understands when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already validated arguments. The returned
	// value must be JSON-serializable; map[string]any results are merged
	// into the {success:true} envelope.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// Context gives executors access to the editor capability surface for the
// duration of one call.
type Context struct {
	ctx      context.Context
	ws       *workspace.Workspace
	notifier workspace.Notifier
	logger   logging.Logger
	callID   string
}

// NewContext builds a per-call context.
func NewContext(
	ctx context.Context,
	ws *workspace.Workspace,
	notifier workspace.Notifier,
	logger logging.Logger,
	callID string,
) *Context {
	if notifier == nil {
		notifier = workspace.NoOpNotifier{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{ctx: ctx, ws: ws, notifier: notifier, logger: logger, callID: callID}
}

// Ctx returns the cancellation context of the call.
func (c *Context) Ctx() context.Context { return c.ctx }

// Workspace returns the rooted filesystem surface.
func (c *Context) Workspace() *workspace.Workspace { return c.ws }

// Notifier returns the editor notification surface.
func (c *Context) Notifier() workspace.Notifier { return c.notifier }

// Logger returns the call logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// CallID returns the function call identifier correlating model request and
// tool execution.
func (c *Context) CallID() string { return c.callID }

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Error codes used across executors.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeUnsafePath  = "UNSAFE_PATH"
	CodeLockTimeout = "LOCK_TIMEOUT"
)
