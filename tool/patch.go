package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var errLockHeld = errors.New("file lock held")

// fileLocks serializes read-modify-write cycles per file path. Locks are
// advisory and process-local; concurrent patch calls against the same file
// poll with exponential backoff until the holder releases or the wait budget
// runs out.
type fileLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newFileLocks() *fileLocks {
	return &fileLocks{held: make(map[string]struct{})}
}

func (l *fileLocks) tryAcquire(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[path]; taken {
		return false
	}
	l.held[path] = struct{}{}
	return true
}

// acquire polls for the lock with exponential backoff, bounded by maxWait and
// the caller's context.
func (l *fileLocks) acquire(ctx context.Context, path string, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxWait

	return backoff.Retry(func() error {
		if l.tryAcquire(path) {
			return nil
		}
		return errLockHeld
	}, backoff.WithContext(bo, ctx))
}

func (l *fileLocks) release(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, path)
}

// defaultLockWait bounds how long a patch call waits for a contended file.
const defaultLockWait = 5 * time.Second

// NewApplyPatchTool applies a diff-match-patch formatted patch to one file.
// The read-modify-write cycle runs under a per-file lock so concurrent
// patches to the same file cannot interleave.
func NewApplyPatchTool() *FunctionTool {
	locks := newFileLocks()

	return NewFunctionTool(
		"apply_patch",
		"Apply a patch to an existing file. The patch must be in diff-match-patch text format (as produced by patch_toText). Prefer this over write_file for targeted edits to large files.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Workspace-relative path of the file to patch",
				},
				"patch": map[string]any{
					"type":        "string",
					"description": "Patch text in diff-match-patch format",
				},
			},
			"required": []string{"path", "patch"},
		},
		func(toolCtx *Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			patchText, _ := args["patch"].(string)
			ws := toolCtx.Workspace()

			dmp := diffmatchpatch.New()
			patches, err := dmp.PatchFromText(patchText)
			if err != nil {
				return nil, NewToolError("apply_patch",
					fmt.Sprintf("malformed patch: %v", err), CodeValidation)
			}
			if len(patches) == 0 {
				return nil, NewToolError("apply_patch", "patch contains no hunks", CodeValidation)
			}

			resolved, err := ws.Resolve(path)
			if err != nil {
				return nil, NewToolError("apply_patch", err.Error(), CodeUnsafePath)
			}
			if err := locks.acquire(toolCtx.Ctx(), resolved, defaultLockWait); err != nil {
				return nil, NewToolError("apply_patch",
					fmt.Sprintf("file %s is locked by another operation", path), CodeLockTimeout)
			}
			defer locks.release(resolved)

			content, truncated, err := ws.ReadFile(path)
			if err != nil {
				return nil, NewToolError("apply_patch",
					fmt.Sprintf("file not found: %s", path), CodeNotFound)
			}
			if truncated {
				return nil, NewToolError("apply_patch",
					fmt.Sprintf("file %s exceeds the patchable size limit", path), CodeExecution)
			}

			patched, applied := dmp.PatchApply(patches, content)
			for i, ok := range applied {
				if !ok {
					return nil, NewToolError("apply_patch",
						fmt.Sprintf("hunk %d did not apply; the file content has diverged from the patch", i+1),
						CodeExecution)
				}
			}

			if err := ws.WriteFile(path, []byte(patched)); err != nil {
				return nil, err
			}
			toolCtx.Notifier().Info(fmt.Sprintf("Patched %s (%d hunks)", path, len(patches)))
			return map[string]any{"path": path, "hunks_applied": len(patches)}, nil
		},
	)
}
