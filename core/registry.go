package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"pkt.systems/pslog"

	"pkt.systems/termmux/internal/logx"
	"pkt.systems/termmux/schema"
)

// RegistryDeps captures optional dependencies for the session registry.
type RegistryDeps struct {
	Backend Backend
	Logger  pslog.Logger
}

// Registry owns session identity and capacity on top of a backend. It
// allocates ids, enforces the session cap, and forwards every terminal
// operation unchanged. Its lock guards only the id table and is never held
// across backend calls.
type Registry struct {
	cfg     schema.EngineConfig
	backend Backend
	log     pslog.Logger

	mu  sync.Mutex
	ids map[schema.SessionID]struct{}
}

// NewRegistry normalizes cfg, builds the configured backend unless deps
// provide one, and returns a ready registry.
func NewRegistry(cfg schema.EngineConfig, deps RegistryDeps) (*Registry, error) {
	normalized, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized

	log := deps.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}

	backend := deps.Backend
	if backend == nil {
		switch cfg.Backend {
		case schema.BackendTmux:
			backend, err = NewTmuxBackend(cfg, log)
			if err != nil {
				return nil, err
			}
		default:
			backend = NewNativeBackend(cfg, log)
		}
	}

	return &Registry{
		cfg:     cfg,
		backend: backend,
		log:     logx.WithBackend(log, backend.Name()),
		ids:     make(map[schema.SessionID]struct{}),
	}, nil
}

// Backend exposes the backend flavor in use.
func (r *Registry) Backend() schema.BackendType { return r.backend.Name() }

// Launch starts a new session. Sessions whose backend state is gone are
// reclaimed first; when the cap is still reached, ErrCapacityExceeded is
// returned and nothing is queued.
func (r *Registry) Launch(ctx context.Context, command, dir string, rows, cols int) (schema.SessionInfo, error) {
	if rows <= 0 {
		rows = r.cfg.Rows
	}
	if cols <= 0 {
		cols = r.cfg.Cols
	}

	r.reclaim(ctx)

	r.mu.Lock()
	if len(r.ids) >= r.cfg.MaxSessions {
		r.mu.Unlock()
		return schema.SessionInfo{}, fmt.Errorf("%w: %d sessions", schema.ErrCapacityExceeded, r.cfg.MaxSessions)
	}
	id := newID()
	r.ids[id] = struct{}{}
	r.mu.Unlock()

	info, err := r.backend.Launch(ctx, id, command, dir, rows, cols)
	if err != nil {
		r.mu.Lock()
		delete(r.ids, id)
		r.mu.Unlock()
		return schema.SessionInfo{}, err
	}
	return info, nil
}

// reclaim drops ids the backend no longer tracks. Existence checks run
// without the registry lock.
func (r *Registry) reclaim(ctx context.Context) {
	r.mu.Lock()
	ids := make([]schema.SessionID, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var gone []schema.SessionID
	for _, id := range ids {
		if !r.backend.Exists(ctx, id) {
			gone = append(gone, id)
		}
	}
	if len(gone) == 0 {
		return
	}
	r.mu.Lock()
	for _, id := range gone {
		delete(r.ids, id)
	}
	r.mu.Unlock()
	r.log.Debug("reclaimed dead sessions", "count", len(gone))
}

func (r *Registry) known(id schema.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// SendKeys delivers raw input bytes to a session.
func (r *Registry) SendKeys(ctx context.Context, id schema.SessionID, data []byte) error {
	return r.backend.SendKeys(ctx, id, data)
}

// Screen renders the visible grid of a session.
func (r *Registry) Screen(ctx context.Context, id schema.SessionID, includeColors bool) (string, error) {
	return r.backend.Screen(ctx, id, includeColors)
}

// Cursor reports cursor position and visibility.
func (r *Registry) Cursor(ctx context.Context, id schema.SessionID) (schema.CursorPosition, error) {
	return r.backend.Cursor(ctx, id)
}

// Resize changes the session geometry.
func (r *Registry) Resize(ctx context.Context, id schema.SessionID, rows, cols int) error {
	return r.backend.Resize(ctx, id, rows, cols)
}

// Scrollback returns up to n lines of history; supported is false when the
// backend cannot provide any.
func (r *Registry) Scrollback(ctx context.Context, id schema.SessionID, n int) (string, bool, error) {
	if n <= 0 || n > r.cfg.ScrollbackLines {
		n = r.cfg.ScrollbackLines
	}
	return r.backend.Scrollback(ctx, id, n)
}

// SetScrollback changes a session's history limit. Negative values are
// treated as zero.
func (r *Registry) SetScrollback(ctx context.Context, id schema.SessionID, lines int) error {
	if lines < 0 {
		lines = 0
	}
	return r.backend.SetScrollback(ctx, id, lines)
}

// CaptureStart begins teeing raw session output. An empty path places the
// file under the configured capture directory.
func (r *Registry) CaptureStart(ctx context.Context, id schema.SessionID, path string) error {
	if path == "" {
		dir := r.cfg.CaptureDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, fmt.Sprintf("capture-%s-%d.raw", id, time.Now().Unix()))
	}
	return r.backend.CaptureStart(ctx, id, path)
}

// CaptureStop ends an active capture and reports what was written.
func (r *Registry) CaptureStop(ctx context.Context, id schema.SessionID) (schema.CaptureSummary, error) {
	return r.backend.CaptureStop(ctx, id)
}

// Kill terminates a session. sig 0 defaults to SIGTERM. Killing a session
// that is registered but already dead is a no-op; unknown ids report
// ErrSessionNotFound.
func (r *Registry) Kill(ctx context.Context, id schema.SessionID, sig unix.Signal) error {
	if !r.known(id) {
		return schema.ErrSessionNotFound
	}
	if sig == 0 {
		sig = unix.SIGTERM
	}
	err := r.backend.Kill(ctx, id, sig)
	if err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
		return err
	}
	return nil
}

// Exists reports whether the session is still live on the backend.
func (r *Registry) Exists(ctx context.Context, id schema.SessionID) bool {
	return r.backend.Exists(ctx, id)
}

// List snapshots metadata for every session the backend tracks.
func (r *Registry) List(ctx context.Context) ([]schema.SessionInfo, error) {
	return r.backend.List(ctx)
}
