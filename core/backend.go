package core

import (
	"context"

	"golang.org/x/sys/unix"

	"pkt.systems/termmux/schema"
)

// Backend is the uniform session contract the registry drives. Both
// implementations satisfy it: the native backend owns PTYs and emulates
// screens in-process, the tmux backend delegates every operation to a
// running tmux server. Callers never branch on the concrete type.
type Backend interface {
	// Launch starts command (empty means the user's shell) in dir with the
	// given geometry and returns the new session's metadata.
	Launch(ctx context.Context, id schema.SessionID, command, dir string, rows, cols int) (schema.SessionInfo, error)

	// SendKeys delivers raw input bytes to the session.
	SendKeys(ctx context.Context, id schema.SessionID, data []byte) error

	// Screen renders the visible grid. With includeColors the per-cell
	// rendition is preserved as SGR sequences.
	Screen(ctx context.Context, id schema.SessionID, includeColors bool) (string, error)

	// Cursor reports the cursor position and visibility.
	Cursor(ctx context.Context, id schema.SessionID) (schema.CursorPosition, error)

	// Resize changes the session geometry.
	Resize(ctx context.Context, id schema.SessionID, rows, cols int) error

	// Scrollback returns up to n lines of off-screen history. supported is
	// false when the backend cannot provide history for this session.
	Scrollback(ctx context.Context, id schema.SessionID, n int) (text string, supported bool, err error)

	// SetScrollback changes the session's history limit, trimming retained
	// lines when shrunk.
	SetScrollback(ctx context.Context, id schema.SessionID, lines int) error

	// CaptureStart begins teeing raw output to path.
	CaptureStart(ctx context.Context, id schema.SessionID, path string) error

	// CaptureStop ends an active capture and reports what was written.
	CaptureStop(ctx context.Context, id schema.SessionID) (schema.CaptureSummary, error)

	// Kill signals the session and tears it down without waiting for
	// readers to drain.
	Kill(ctx context.Context, id schema.SessionID, sig unix.Signal) error

	// Exists reports whether the backend still tracks the session.
	Exists(ctx context.Context, id schema.SessionID) bool

	// List snapshots metadata for every live session.
	List(ctx context.Context) ([]schema.SessionInfo, error)

	// Name identifies the backend flavor.
	Name() schema.BackendType
}
