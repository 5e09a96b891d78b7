package tool

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/logging"
)

// Registry maps tool names to implementations. Parameter schemas are
// compiled at registration time and every invocation is validated before the
// executor runs.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its parameter schema. Registering a tool
// whose schema does not compile is a programming error and fails loudly.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}

	raw, err := json.Marshal(t.Parameters())
	if err != nil {
		return fmt.Errorf("marshal schema for tool %q: %w", name, err)
	}
	schema, err := jsonschema.CompileString(name+".schema.json", string(raw))
	if err != nil {
		return fmt.Errorf("compile schema for tool %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	r.schemas[name] = schema
	return nil
}

// MustRegister is Register for static tool sets assembled at startup.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool definitions exposed to the model, in
// registration order.
func (r *Registry) Definitions() []core.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]core.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, core.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute runs one tool call end to end: argument decoding, schema
// validation, execution with panic recovery, and result normalization. The
// returned ToolResult always carries a well-formed JSON object — either
// {"success":true,...} or {"success":false,"error":...} — so it can be fed
// back to the model verbatim. The error return is non-nil when execution
// failed; the failure is already reflected in the result and has been
// surfaced to the editor notifier.
func (r *Registry) Execute(toolCtx *Context, call core.ToolCall) (core.ToolResult, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	result, err := r.execute(toolCtx, call)
	logging.LogToolCall(logger, call.Name, time.Since(start), err == nil, err)

	if err != nil {
		toolCtx.Notifier().Error(fmt.Sprintf("Tool %s failed: %s", call.Name, err.Error()))
		return core.ToolResult{
			CallID: call.ID,
			Name:   call.Name,
			Result: failureJSON(err),
		}, err
	}
	return core.ToolResult{CallID: call.ID, Name: call.Name, Result: successJSON(result)}, nil
}

func (r *Registry) execute(toolCtx *Context, call core.ToolCall) (result any, err error) {
	r.mu.RLock()
	impl, ok := r.tools[call.Name]
	schema := r.schemas[call.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, NewToolError(call.Name, "unknown tool", CodeNotFound)
	}

	var args map[string]any
	if call.Arguments == "" {
		args = map[string]any{}
	} else if uerr := json.Unmarshal([]byte(call.Arguments), &args); uerr != nil {
		return nil, &ToolError{
			Tool:    call.Name,
			Message: fmt.Sprintf("arguments are not a JSON object: %v", uerr),
			Code:    CodeValidation,
		}
	}

	if verr := schema.Validate(anyMap(args)); verr != nil {
		return nil, &ToolError{
			Tool:    call.Name,
			Message: fmt.Sprintf("parameter validation failed: %v", verr),
			Code:    CodeValidation,
			Details: verr.Error(),
		}
	}

	defer func() { // panic safety
		if rec := recover(); rec != nil {
			err = &ToolError{
				Tool:    call.Name,
				Message: fmt.Sprintf("panic: %v", rec),
				Code:    CodeExecution,
			}
		}
	}()

	result, err = impl.Call(toolCtx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: call.Name, Message: err.Error(), Code: CodeExecution}
	}
	return result, nil
}

// anyMap widens the concrete map type so the schema validator sees a plain
// JSON-decoded value.
func anyMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func successJSON(result any) string {
	envelope := map[string]any{"success": true}
	if m, ok := result.(map[string]any); ok {
		for k, v := range m {
			envelope[k] = v
		}
	} else if result != nil {
		envelope["result"] = result
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return `{"success":true}`
	}
	return string(data)
}

func failureJSON(err error) string {
	data, merr := json.Marshal(map[string]any{"success": false, "error": err.Error()})
	if merr != nil {
		return `{"success":false,"error":"tool execution failed"}`
	}
	return string(data)
}
