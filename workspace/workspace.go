// Package workspace makes the editor capability surface concrete: a rooted
// filesystem for tool executors, a persisted panel configuration store, an
// encrypted secret store for API keys, and the "show message" notifier.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Limits bounds how much data tool executors hand to the model. Results are
// capped before reaching the prompt; the UI-facing copy may carry more.
type Limits struct {
	// MaxReadBytes caps a single file read.
	MaxReadBytes int
	// MaxSearchResults caps content-search matches.
	MaxSearchResults int
	// MaxSearchLineLength truncates individual matched lines.
	MaxSearchLineLength int
	// MaxListEntries caps directory listing entries.
	MaxListEntries int
	// MaxCommandOutput caps captured command output.
	MaxCommandOutput int
}

// DefaultLimits are generous enough for source files while keeping prompts
// bounded.
func DefaultLimits() Limits {
	return Limits{
		MaxReadBytes:        50_000,
		MaxSearchResults:    200,
		MaxSearchLineLength: 500,
		MaxListEntries:      500,
		MaxCommandOutput:    20_000,
	}
}

// Workspace is the rooted filesystem tool executors operate against. Paths
// are workspace-relative; escapes above the root are rejected before any
// filesystem call.
type Workspace struct {
	fs     afero.Fs
	root   string
	limits Limits
}

// Options configure a Workspace.
type Options struct {
	Limits Limits
}

// New constructs a Workspace rooted at dir on the OS filesystem.
func New(dir string, optFns ...func(o *Options)) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("workspace root %q: %w", abs, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %q is not a directory", abs)
	}

	opts := Options{Limits: DefaultLimits()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Workspace{
		fs:     afero.NewBasePathFs(afero.NewOsFs(), abs),
		root:   abs,
		limits: opts.Limits,
	}, nil
}

// NewMem constructs an in-memory Workspace for tests.
func NewMem(optFns ...func(o *Options)) *Workspace {
	opts := Options{Limits: DefaultLimits()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Workspace{fs: afero.NewMemMapFs(), root: "/", limits: opts.Limits}
}

// Root returns the absolute workspace root on the host filesystem ("/" for
// in-memory workspaces).
func (w *Workspace) Root() string { return w.root }

// Limits returns the configured truncation caps.
func (w *Workspace) Limits() Limits { return w.limits }

// Fs exposes the underlying rooted filesystem for walk-style consumers.
func (w *Workspace) Fs() afero.Fs { return w.fs }

// Resolve canonicalizes a workspace-relative path, rejecting attempts to
// escape the root. Cleaning the path relative to the root leaves any escaping
// ".." as a leading segment, so only that needs checking; names that merely
// contain dots ("a..b.txt") pass through.
func (w *Workspace) Resolve(rel string) (string, error) {
	cleaned := path.Clean(strings.TrimLeft(filepath.ToSlash(rel), "/"))
	if cleaned == "." {
		return ".", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return cleaned, nil
}

// ReadFile reads a file, reporting whether the content was truncated at the
// configured cap. The returned string never exceeds MaxReadBytes.
func (w *Workspace) ReadFile(rel string) (content string, truncated bool, err error) {
	p, err := w.Resolve(rel)
	if err != nil {
		return "", false, err
	}
	data, err := afero.ReadFile(w.fs, p)
	if err != nil {
		return "", false, err
	}
	if len(data) > w.limits.MaxReadBytes {
		return string(data[:w.limits.MaxReadBytes]), true, nil
	}
	return string(data), false, nil
}

// WriteFile writes content, creating parent directories as needed.
func (w *Workspace) WriteFile(rel string, content []byte) error {
	p, err := w.Resolve(rel)
	if err != nil {
		return err
	}
	if dir := path.Dir(p); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return afero.WriteFile(w.fs, p, content, 0o644)
}

// Exists reports whether a path exists.
func (w *Workspace) Exists(rel string) (bool, error) {
	p, err := w.Resolve(rel)
	if err != nil {
		return false, err
	}
	return afero.Exists(w.fs, p)
}

// Stat returns file metadata.
func (w *Workspace) Stat(rel string) (fs.FileInfo, error) {
	p, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return w.fs.Stat(p)
}

// ReadDir lists directory entries sorted by name, capped at MaxListEntries.
func (w *Workspace) ReadDir(rel string) ([]fs.FileInfo, bool, error) {
	p, err := w.Resolve(rel)
	if err != nil {
		return nil, false, err
	}
	infos, err := afero.ReadDir(w.fs, p)
	if err != nil {
		return nil, false, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	if len(infos) > w.limits.MaxListEntries {
		return infos[:w.limits.MaxListEntries], true, nil
	}
	return infos, false, nil
}

// MkdirAll creates a directory and any missing parents.
func (w *Workspace) MkdirAll(rel string) error {
	p, err := w.Resolve(rel)
	if err != nil {
		return err
	}
	return w.fs.MkdirAll(p, 0o755)
}

// RemoveAll removes a directory tree. Callers are responsible for safety
// checks on the path; the workspace only guarantees root containment.
func (w *Workspace) RemoveAll(rel string) error {
	p, err := w.Resolve(rel)
	if err != nil {
		return err
	}
	return w.fs.RemoveAll(p)
}

// Walk traverses the workspace tree rooted at rel.
func (w *Workspace) Walk(rel string, walkFn filepath.WalkFunc) error {
	p, err := w.Resolve(rel)
	if err != nil {
		return err
	}
	return afero.Walk(w.fs, p, walkFn)
}
