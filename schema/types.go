package schema

import (
	"fmt"
	"strings"
	"time"
)

// SessionID identifies a terminal session. IDs are opaque, unique among
// live sessions, and never reused while the session is registered.
type SessionID string

// BackendType selects the transport behind the session engine.
type BackendType string

const (
	// BackendNative runs sessions on directly-owned pseudo terminals.
	BackendNative BackendType = "native"
	// BackendTmux delegates sessions to an external tmux server.
	BackendTmux BackendType = "tmux"
)

// ParseBackendType validates a backend selector from config or environment.
func ParseBackendType(value string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "native", "pty", "internal":
		return BackendNative, nil
	case "tmux":
		return BackendTmux, nil
	default:
		return "", fmt.Errorf("%w: unknown backend %q (valid: native, tmux)", ErrInvalidBackend, value)
	}
}

// SessionStatus is the lifecycle state of a session. Running is the only
// non-terminal state after launch; Stopped, Exited and Killed are terminal.
type SessionStatus string

const (
	// StatusLaunching marks a session that has not started its pump yet.
	StatusLaunching SessionStatus = "launching"
	// StatusRunning marks a live session.
	StatusRunning SessionStatus = "running"
	// StatusStopped marks a session whose device closed without a known exit code.
	StatusStopped SessionStatus = "stopped"
	// StatusExited marks a session whose process exited on its own.
	StatusExited SessionStatus = "exited"
	// StatusKilled marks a session terminated by an explicit kill.
	StatusKilled SessionStatus = "killed"
)

// Terminal reports whether the status is final.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusStopped, StatusExited, StatusKilled:
		return true
	default:
		return false
	}
}

// SessionInfo is the metadata snapshot shared by every backend.
type SessionInfo struct {
	ID         SessionID
	Command    string
	WorkingDir string
	CreatedAt  time.Time
	Rows       int
	Cols       int
	Status     SessionStatus
	// ExitCode is meaningful only when Status is StatusExited.
	ExitCode int
}

// CursorPosition locates the cursor on the visible grid (0-indexed).
type CursorPosition struct {
	Row     int
	Col     int
	Visible bool
}

// CaptureSummary describes a finished capture.
type CaptureSummary struct {
	Path     string
	Bytes    int64
	Duration time.Duration
}
