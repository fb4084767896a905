package core

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"pkt.systems/pslog"

	"pkt.systems/termmux/internal/logx"
	"pkt.systems/termmux/schema"
)

// NativeBackend runs sessions on pseudo terminals it owns, pushing output
// into in-memory screens as it arrives. Exited sessions stay readable until
// killed or reclaimed.
type NativeBackend struct {
	cfg schema.EngineConfig
	log pslog.Logger

	mu       sync.RWMutex
	sessions map[schema.SessionID]*session
}

// NewNativeBackend builds the PTY-backed backend. cfg must already be
// normalized.
func NewNativeBackend(cfg schema.EngineConfig, log pslog.Logger) *NativeBackend {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &NativeBackend{
		cfg:      cfg,
		log:      logx.WithBackend(log, schema.BackendNative),
		sessions: make(map[schema.SessionID]*session),
	}
}

func (b *NativeBackend) Name() schema.BackendType { return schema.BackendNative }

func (b *NativeBackend) Launch(ctx context.Context, id schema.SessionID, command, dir string, rows, cols int) (schema.SessionInfo, error) {
	if command == "" {
		command = DefaultCommand()
	}
	log := logx.WithSession(b.log, id)

	dev, err := openDevice(command, dir, rows, cols)
	if err != nil {
		log.Error("session launch failed", "error", err, "command", command)
		return schema.SessionInfo{}, err
	}

	var traffic *ioLogger
	if b.cfg.LogDir != "" {
		path := filepath.Join(b.cfg.LogDir, "session-"+string(id)+".log")
		traffic, err = newIOLogger(path, id)
		if err != nil {
			log.Warn("session traffic log unavailable", "error", err, "path", path)
		}
	}

	info := schema.SessionInfo{
		ID:         id,
		Command:    command,
		WorkingDir: dir,
		CreatedAt:  time.Now(),
		Rows:       rows,
		Cols:       cols,
		Status:     schema.StatusLaunching,
	}
	s := newSession(id, info, dev, newScreen(rows, cols, b.cfg.ScrollbackLines), traffic, log)

	b.mu.Lock()
	b.sessions[id] = s
	b.mu.Unlock()

	s.start()
	info.Status = schema.StatusRunning
	log.Info("session launched", "command", command, "rows", rows, "cols", cols)
	return info, nil
}

func (b *NativeBackend) get(id schema.SessionID) (*session, error) {
	b.mu.RLock()
	s, ok := b.sessions[id]
	b.mu.RUnlock()
	if !ok {
		return nil, schema.ErrSessionNotFound
	}
	return s, nil
}

func (b *NativeBackend) SendKeys(ctx context.Context, id schema.SessionID, data []byte) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (b *NativeBackend) Screen(ctx context.Context, id schema.SessionID, includeColors bool) (string, error) {
	s, err := b.get(id)
	if err != nil {
		return "", err
	}
	return s.contents(includeColors), nil
}

func (b *NativeBackend) Cursor(ctx context.Context, id schema.SessionID) (schema.CursorPosition, error) {
	s, err := b.get(id)
	if err != nil {
		return schema.CursorPosition{}, err
	}
	return s.cursor(), nil
}

func (b *NativeBackend) Resize(ctx context.Context, id schema.SessionID, rows, cols int) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	return s.resize(rows, cols)
}

func (b *NativeBackend) Scrollback(ctx context.Context, id schema.SessionID, n int) (string, bool, error) {
	s, err := b.get(id)
	if err != nil {
		return "", false, err
	}
	return s.scrollback(n), true, nil
}

func (b *NativeBackend) SetScrollback(ctx context.Context, id schema.SessionID, lines int) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	s.setScrollback(lines)
	return nil
}

func (b *NativeBackend) CaptureStart(ctx context.Context, id schema.SessionID, path string) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	return s.captureStart(path)
}

func (b *NativeBackend) CaptureStop(ctx context.Context, id schema.SessionID) (schema.CaptureSummary, error) {
	s, err := b.get(id)
	if err != nil {
		return schema.CaptureSummary{}, err
	}
	return s.captureStop()
}

// Kill signals the process, marks the session killed, drops it from the
// table and returns. The pump drains and cleans up on its own; kill never
// waits for it.
func (b *NativeBackend) Kill(ctx context.Context, id schema.SessionID, sig unix.Signal) error {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if ok {
		delete(b.sessions, id)
	}
	b.mu.Unlock()
	if !ok {
		return schema.ErrSessionNotFound
	}

	s.mu.Lock()
	alreadyDead := s.info.Status.Terminal()
	if !alreadyDead {
		s.info.Status = schema.StatusKilled
	}
	s.mu.Unlock()

	if !alreadyDead {
		_ = s.device.Terminate(sig)
	}
	// Closing the master unblocks the pump's read if the signal alone does
	// not end the process.
	_ = s.device.Close()
	s.log.Info("session killed", "signal", int(sig), "already_dead", alreadyDead)
	return nil
}

func (b *NativeBackend) Exists(ctx context.Context, id schema.SessionID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.sessions[id]
	return ok
}

func (b *NativeBackend) List(ctx context.Context) ([]schema.SessionInfo, error) {
	b.mu.RLock()
	sessions := make([]*session, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.RUnlock()

	infos := make([]schema.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.snapshot())
	}
	return infos, nil
}
