package tool

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// NewListDirectoryTool lists directory entries, optionally filtered by a
// doublestar glob pattern matched against entry names.
func NewListDirectoryTool() *FunctionTool {
	return NewFunctionTool(
		"list_directory",
		"List the entries of a directory in the workspace. Optionally filter entries with a glob pattern (e.g. \"*.go\", \"**/*.md\").",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Workspace-relative directory path. Use \".\" for the workspace root.",
				},
				"pattern": map[string]any{
					"type":        "string",
					"description": "Optional glob pattern to filter entry names",
				},
			},
			"required": []string{"path"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			dir, _ := args["path"].(string)
			pattern, _ := args["pattern"].(string)
			ws := toolCtx.Workspace()

			entries, truncated, err := ws.ReadDir(dir)
			if err != nil {
				return nil, err
			}

			items := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				if pattern != "" {
					matched, merr := doublestar.Match(pattern, e.Name())
					if merr != nil {
						return nil, NewToolError("list_directory",
							fmt.Sprintf("invalid glob pattern %q: %v", pattern, merr), CodeValidation)
					}
					if !matched {
						continue
					}
				}
				item := map[string]any{
					"name": e.Name(),
					"type": entryType(e.IsDir()),
				}
				if !e.IsDir() {
					item["size"] = e.Size()
				}
				items = append(items, item)
			}

			return map[string]any{
				"path":      dir,
				"entries":   items,
				"count":     len(items),
				"truncated": truncated,
			}, nil
		},
	)
}

func entryType(isDir bool) string {
	if isDir {
		return "directory"
	}
	return "file"
}

// NewCreateDirectoryTool creates a directory, including parents.
func NewCreateDirectoryTool() *FunctionTool {
	return NewFunctionTool(
		"create_directory",
		"Create a directory (and any missing parent directories) in the workspace.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Workspace-relative path of the directory to create",
				},
			},
			"required": []string{"path"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			dir, _ := args["path"].(string)
			if err := toolCtx.Workspace().MkdirAll(dir); err != nil {
				return nil, err
			}
			return map[string]any{"path": dir, "created": true}, nil
		},
	)
}

// NewDeleteDirectoryTool removes a directory tree. The path must be at least
// two segments deep; the check runs before any filesystem access so the
// workspace root or a top-level directory can never be deleted by a shallow
// or mistyped path.
func NewDeleteDirectoryTool() *FunctionTool {
	return NewFunctionTool(
		"delete_directory",
		"Delete a directory and all of its contents. Only nested directories (at least two path segments deep) can be deleted.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Workspace-relative path of the directory to delete",
				},
			},
			"required": []string{"path"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			dir, _ := args["path"].(string)

			cleaned := path.Clean(strings.ReplaceAll(dir, "\\", "/"))
			cleaned = strings.TrimPrefix(cleaned, "./")
			if cleaned == "." || cleaned == "/" || cleaned == "" {
				return nil, NewToolError("delete_directory",
					"refusing to delete the workspace root", CodeUnsafePath)
			}
			segments := strings.Split(strings.Trim(cleaned, "/"), "/")
			if len(segments) < 2 {
				return nil, NewToolError("delete_directory",
					fmt.Sprintf("refusing to delete top-level path %q; deletion requires a nested path", dir),
					CodeUnsafePath)
			}

			ws := toolCtx.Workspace()
			info, err := ws.Stat(dir)
			if err != nil {
				return nil, NewToolError("delete_directory",
					fmt.Sprintf("directory not found: %s", dir), CodeNotFound)
			}
			if !info.IsDir() {
				return nil, NewToolError("delete_directory",
					fmt.Sprintf("%s is not a directory", dir), CodeValidation)
			}

			if err := ws.RemoveAll(dir); err != nil {
				return nil, err
			}
			toolCtx.Notifier().Warn(fmt.Sprintf("Deleted directory %s", dir))
			return map[string]any{"path": dir, "deleted": true}, nil
		},
	)
}

// statFileArgs describes the stat_file arguments; its schema is derived by
// reflection.
type statFileArgs struct {
	Path string `json:"path" description:"Workspace-relative path of the file or directory to inspect"`
}

// NewStatFileTool reports metadata for a file or directory.
func NewStatFileTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		"stat_file",
		"Get metadata (size, type, modification time) for a file or directory in the workspace.",
		statFileArgs{},
		func(toolCtx *Context, args map[string]any) (any, error) {
			p, _ := args["path"].(string)
			info, err := toolCtx.Workspace().Stat(p)
			if err != nil {
				return nil, NewToolError("stat_file", fmt.Sprintf("not found: %s", p), CodeNotFound)
			}
			return map[string]any{
				"path":     p,
				"type":     entryType(info.IsDir()),
				"size":     info.Size(),
				"modified": info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
			}, nil
		},
	)
}
