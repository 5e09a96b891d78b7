package tool

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// maxSearchFileSize skips binary blobs and generated bundles during content
// search.
const maxSearchFileSize = 1 << 20

// NewSearchFilesTool searches file contents with a regular expression,
// optionally restricted to paths matching a doublestar glob. Matches are
// capped and long lines truncated per the workspace limits.
func NewSearchFilesTool() *FunctionTool {
	return NewFunctionTool(
		"search_files",
		"Search file contents in the workspace with a regular expression. Optionally restrict the search to paths matching a glob pattern (e.g. \"**/*.go\").",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Regular expression to search for (Go/RE2 syntax)",
				},
				"include": map[string]any{
					"type":        "string",
					"description": "Optional glob pattern restricting which files are searched",
				},
				"case_sensitive": map[string]any{
					"type":        "boolean",
					"description": "Match case-sensitively. Defaults to false.",
				},
			},
			"required": []string{"query"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			include, _ := args["include"].(string)
			caseSensitive, _ := args["case_sensitive"].(bool)

			expr := query
			if !caseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, NewToolError("search_files",
					fmt.Sprintf("invalid regular expression %q: %v", query, err), CodeValidation)
			}
			if include != "" {
				if !doublestar.ValidatePattern(include) {
					return nil, NewToolError("search_files",
						fmt.Sprintf("invalid glob pattern %q", include), CodeValidation)
				}
			}

			ws := toolCtx.Workspace()
			limits := ws.Limits()

			type match struct {
				Path string `json:"path"`
				Line int    `json:"line"`
				Text string `json:"text"`
			}
			var matches []match
			truncated := false

			walkErr := ws.Walk(".", func(p string, info fs.FileInfo, err error) error {
				if err != nil {
					return nil // skip unreadable entries
				}
				name := info.Name()
				if info.IsDir() {
					if name != "." && strings.HasPrefix(name, ".") {
						return fs.SkipDir
					}
					return nil
				}
				if info.Size() > maxSearchFileSize {
					return nil
				}
				rel := strings.TrimPrefix(strings.TrimPrefix(p, "/"), "./")
				if include != "" {
					ok, _ := doublestar.Match(include, rel)
					if !ok {
						return nil
					}
				}

				data, rerr := afero.ReadFile(ws.Fs(), p)
				if rerr != nil || !isText(data) {
					return nil
				}
				for i, line := range strings.Split(string(data), "\n") {
					if !re.MatchString(line) {
						continue
					}
					if len(matches) >= limits.MaxSearchResults {
						truncated = true
						return errSearchCapped
					}
					text := strings.TrimRight(line, "\r")
					if len(text) > limits.MaxSearchLineLength {
						text = text[:limits.MaxSearchLineLength]
					}
					matches = append(matches, match{Path: rel, Line: i + 1, Text: text})
				}
				return nil
			})
			if walkErr != nil && walkErr != errSearchCapped {
				return nil, walkErr
			}

			return map[string]any{
				"query":     query,
				"matches":   matches,
				"count":     len(matches),
				"truncated": truncated,
			}, nil
		},
	)
}

// errSearchCapped aborts the walk once the result cap is reached.
var errSearchCapped = fmt.Errorf("search result cap reached")

// isText applies a cheap binary sniff: NUL bytes in the first 8 KiB mean the
// file is skipped.
func isText(data []byte) bool {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	for _, b := range data[:n] {
		if b == 0 {
			return false
		}
	}
	return true
}
