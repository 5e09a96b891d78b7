package tool

import (
	"fmt"
	"strings"
)

// NewOpenFileTool reports whether a file exists and asks the editor to focus
// it. The actual focusing is an editor concern; the backend only checks the
// path and notifies.
func NewOpenFileTool() *FunctionTool {
	return NewFunctionTool(
		"open_file",
		"Open a file in the editor so the user can see it. Use this after creating or modifying a file the user should review.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Workspace-relative path of the file to open",
				},
			},
			"required": []string{"path"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			ws := toolCtx.Workspace()
			if _, err := ws.Stat(path); err != nil {
				return nil, NewToolError("open_file", fmt.Sprintf("file not found: %s", path), CodeNotFound)
			}
			toolCtx.Notifier().Info(fmt.Sprintf("Opened %s", path))
			return map[string]any{"path": path, "opened": true}, nil
		},
	)
}

// NewReadFileTool reads file content, optionally limited to a line range.
// Output is truncated at the workspace read limit.
func NewReadFileTool() *FunctionTool {
	return NewFunctionTool(
		"read_file",
		"Read the contents of a file in the workspace. Optionally restrict to a line range with start_line and end_line (1-based, inclusive).",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Workspace-relative path of the file to read",
				},
				"start_line": map[string]any{
					"type":        "integer",
					"description": "First line to include (1-based). Defaults to the beginning of the file.",
					"minimum":     1,
				},
				"end_line": map[string]any{
					"type":        "integer",
					"description": "Last line to include (1-based, inclusive). Defaults to the end of the file.",
					"minimum":     1,
				},
			},
			"required": []string{"path"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			ws := toolCtx.Workspace()

			content, truncated, err := ws.ReadFile(path)
			if err != nil {
				return nil, err
			}

			result := map[string]any{"path": path}
			start, hasStart := intArg(args, "start_line")
			end, hasEnd := intArg(args, "end_line")
			if hasStart || hasEnd {
				lines := strings.Split(content, "\n")
				total := len(lines)
				if !hasStart {
					start = 1
				}
				if !hasEnd || end > total {
					end = total
				}
				if start > total || start > end {
					return nil, NewToolError("read_file",
						fmt.Sprintf("line range %d-%d out of bounds (file has %d lines)", start, end, total),
						CodeValidation)
				}
				content = strings.Join(lines[start-1:end], "\n")
				result["start_line"] = start
				result["end_line"] = end
				result["total_lines"] = total
			}

			result["content"] = content
			result["truncated"] = truncated
			return result, nil
		},
	)
}

// NewWriteFileTool creates or overwrites a file. Overwriting an existing
// file requires an explicit flag so the model cannot clobber content by
// accident. Parent directories are created as needed.
func NewWriteFileTool() *FunctionTool {
	return NewFunctionTool(
		"write_file",
		"Create a new file with the given content. To replace an existing file, set overwrite to true.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Workspace-relative path of the file to write",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full content of the file",
				},
				"overwrite": map[string]any{
					"type":        "boolean",
					"description": "Set to true to replace the file if it already exists. Defaults to false.",
				},
			},
			"required": []string{"path", "content"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			overwrite, _ := args["overwrite"].(bool)
			ws := toolCtx.Workspace()

			exists, err := ws.Exists(path)
			if err != nil {
				return nil, err
			}
			if exists && !overwrite {
				return nil, NewToolError("write_file",
					fmt.Sprintf("file %s already exists; pass overwrite=true to replace it", path),
					CodeValidation)
			}

			if err := ws.WriteFile(path, []byte(content)); err != nil {
				return nil, err
			}
			toolCtx.Notifier().Info(fmt.Sprintf("Wrote %s (%d bytes)", path, len(content)))
			return map[string]any{"path": path, "bytes_written": len(content), "created": !exists}, nil
		},
	)
}

// intArg extracts an integer argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
