package schema

import (
	"fmt"
	"os"
)

// Engine defaults. The scrollback and session limits match the values the
// engine advertises to callers; resize requests below the minimums are
// rejected during normalization, not clamped silently.
const (
	// DefaultRows is the grid height used when a launch omits rows.
	DefaultRows = 24
	// DefaultCols is the grid width used when a launch omits cols.
	DefaultCols = 80
	// DefaultScrollbackLines bounds the per-session scrollback ring.
	DefaultScrollbackLines = 1000
	// DefaultMaxSessions caps concurrently live sessions per registry.
	DefaultMaxSessions = 15
)

// EngineConfig defines defaults and limits for the session engine.
type EngineConfig struct {
	Backend         BackendType
	Rows            int
	Cols            int
	ScrollbackLines int
	MaxSessions     int
	// CaptureDir receives capture files when a caller passes a relative path.
	CaptureDir string
	// LogDir receives per-session I/O logs; empty disables I/O logging.
	LogDir string
}

// NormalizeEngineConfig applies defaults and validates the config.
func NormalizeEngineConfig(cfg EngineConfig) (EngineConfig, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendNative
	}
	switch cfg.Backend {
	case BackendNative, BackendTmux:
	default:
		return EngineConfig{}, fmt.Errorf("%w: %q", ErrInvalidBackend, cfg.Backend)
	}
	if cfg.Rows <= 0 {
		cfg.Rows = DefaultRows
	}
	if cfg.Cols <= 0 {
		cfg.Cols = DefaultCols
	}
	if cfg.ScrollbackLines <= 0 {
		cfg.ScrollbackLines = DefaultScrollbackLines
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.CaptureDir != "" {
		if err := os.MkdirAll(cfg.CaptureDir, 0o755); err != nil {
			return EngineConfig{}, fmt.Errorf("capture dir: %w", err)
		}
	}
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return EngineConfig{}, fmt.Errorf("log dir: %w", err)
		}
	}
	return cfg, nil
}
