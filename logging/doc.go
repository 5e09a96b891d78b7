// Package logging provides a tiny abstraction over slog so the rest of the
// module can depend on a minimal interface (Logger) while callers plug in any
// structured logger. It also offers a richer PanelLogger with contextual
// helpers (component, panel id) and domain specific helpers for tool and
// model calls.
package logging
