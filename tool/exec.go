package tool

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

const (
	defaultCommandTimeout = 30 * time.Second
	maxCommandTimeout     = 300 * time.Second
)

// NewRunCommandTool executes a shell command with the workspace root as the
// working directory. Output is combined stdout+stderr, capped at the
// workspace command output limit. A non-zero exit is reported in the result
// rather than treated as a tool failure, so the model sees the diagnostic
// output.
func NewRunCommandTool() *FunctionTool {
	return NewFunctionTool(
		"run_command",
		"Run a shell command in the workspace root and return its output. Use for builds, tests, and other project tooling.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "Shell command to execute",
				},
				"timeout_seconds": map[string]any{
					"type":        "integer",
					"description": "Maximum runtime in seconds (default 30, max 300)",
					"minimum":     1,
					"maximum":     300,
				},
			},
			"required": []string{"command"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			command, _ := args["command"].(string)

			timeout := defaultCommandTimeout
			if secs, ok := intArg(args, "timeout_seconds"); ok {
				timeout = time.Duration(secs) * time.Second
				if timeout > maxCommandTimeout {
					timeout = maxCommandTimeout
				}
			}

			ctx, cancel := context.WithTimeout(toolCtx.Ctx(), timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			cmd.Dir = toolCtx.Workspace().Root()

			start := time.Now()
			output, err := cmd.CombinedOutput()
			elapsed := time.Since(start)

			limit := toolCtx.Workspace().Limits().MaxCommandOutput
			truncated := false
			if len(output) > limit {
				output = output[:limit]
				truncated = true
			}

			if ctx.Err() == context.DeadlineExceeded {
				return nil, NewToolError("run_command",
					fmt.Sprintf("command timed out after %s", timeout), CodeExecution)
			}

			exitCode := 0
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					exitCode = exitErr.ExitCode()
				} else {
					return nil, NewToolError("run_command",
						fmt.Sprintf("failed to start command: %v", err), CodeExecution)
				}
			}

			return map[string]any{
				"command":     command,
				"exit_code":   exitCode,
				"output":      string(output),
				"truncated":   truncated,
				"duration_ms": elapsed.Milliseconds(),
			}, nil
		},
	)
}
