package core

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"pkt.systems/pslog"

	"pkt.systems/termmux/internal/logx"
	"pkt.systems/termmux/schema"
)

// TmuxBackend delegates every session operation to a running tmux server:
// no pump, no in-process emulation, state is pulled on demand with tmux
// subcommands. Sessions are namespaced termmux-<pid>-<id> so concurrent
// engines on one server cannot collide.
type TmuxBackend struct {
	cfg schema.EngineConfig
	log pslog.Logger

	mu       sync.RWMutex
	sessions map[schema.SessionID]*tmuxSession
}

type tmuxSession struct {
	name string
	info schema.SessionInfo

	capturePath    string
	captureStarted time.Time
}

// NewTmuxBackend verifies tmux is reachable and builds the pull-model
// backend. Missing tmux reports schema.ErrBackendUnavailable.
func NewTmuxBackend(cfg schema.EngineConfig, log pslog.Logger) (*TmuxBackend, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, fmt.Errorf("%w: tmux not found in PATH", schema.ErrBackendUnavailable)
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &TmuxBackend{
		cfg:      cfg,
		log:      logx.WithBackend(log, schema.BackendTmux),
		sessions: make(map[schema.SessionID]*tmuxSession),
	}, nil
}

func (b *TmuxBackend) Name() schema.BackendType { return schema.BackendTmux }

func sessionName(id schema.SessionID) string {
	return fmt.Sprintf("termmux-%d-%s", os.Getpid(), id)
}

// tmuxTarget prefixes = so the server matches the session name exactly;
// bare -t arguments prefix-match, so term-1 would also hit term-10. The
// trailing : marks the string as a session name for target-pane parsing
// too: tmux 3.3a rejects a bare =name in pane contexts such as
// capture-pane and send-keys.
func tmuxTarget(name string) string { return "=" + name + ":" }

func (b *TmuxBackend) run(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "tmux", args...).Output()
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w", args[0], err)
	}
	return string(out), nil
}

func (b *TmuxBackend) get(id schema.SessionID) (*tmuxSession, error) {
	b.mu.RLock()
	s, ok := b.sessions[id]
	b.mu.RUnlock()
	if !ok {
		return nil, schema.ErrSessionNotFound
	}
	return s, nil
}

func (b *TmuxBackend) Launch(ctx context.Context, id schema.SessionID, command, dir string, rows, cols int) (schema.SessionInfo, error) {
	if command == "" {
		command = DefaultCommand()
	}
	name := sessionName(id)
	log := logx.WithSession(b.log, id)

	info := schema.SessionInfo{
		ID:         id,
		Command:    command,
		WorkingDir: dir,
		CreatedAt:  time.Now(),
		Rows:       rows,
		Cols:       cols,
		Status:     schema.StatusLaunching,
	}

	args := []string{
		"new-session", "-d", "-s", name,
		"-x", strconv.Itoa(cols), "-y", strconv.Itoa(rows),
	}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	args = append(args, command)
	if _, err := b.run(ctx, args...); err != nil {
		log.Error("session launch failed", "error", err, "command", command)
		return schema.SessionInfo{}, fmt.Errorf("%w: %v", schema.ErrLaunchFailed, err)
	}

	if b.cfg.ScrollbackLines > 0 {
		if _, err := b.run(ctx, "set-option", "-t", tmuxTarget(name), "history-limit", strconv.Itoa(b.cfg.ScrollbackLines)); err != nil {
			log.Warn("history limit not applied", "error", err)
		}
	}
	// Windows track the requested geometry instead of following clients.
	_, _ = b.run(ctx, "set-option", "-t", tmuxTarget(name), "window-size", "manual")

	info.Status = schema.StatusRunning
	b.mu.Lock()
	b.sessions[id] = &tmuxSession{name: name, info: info}
	b.mu.Unlock()

	log.Info("session launched", "tmux_session", name, "command", command, "rows", rows, "cols", cols)
	return info, nil
}

func (b *TmuxBackend) SendKeys(ctx context.Context, id schema.SessionID, data []byte) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	text := string(data)
	// tmux treats a bare ; as a command separator even after -l, so such
	// payloads go through hex-encoded send-keys instead.
	if strings.Contains(text, ";") {
		args := []string{"send-keys", "-t", tmuxTarget(s.name), "-H"}
		for _, c := range data {
			args = append(args, fmt.Sprintf("%02x", c))
		}
		_, err = b.run(ctx, args...)
		return err
	}
	_, err = b.run(ctx, "send-keys", "-t", tmuxTarget(s.name), "-l", "--", text)
	return err
}

func (b *TmuxBackend) Screen(ctx context.Context, id schema.SessionID, includeColors bool) (string, error) {
	s, err := b.get(id)
	if err != nil {
		return "", err
	}
	args := []string{"capture-pane", "-p", "-t", tmuxTarget(s.name)}
	if includeColors {
		args = append(args, "-e")
	}
	out, err := b.run(ctx, args...)
	if err != nil {
		return "", err
	}
	rows, cols := b.geometry(s)
	return padGrid(out, rows, cols), nil
}

// padGrid normalizes capture-pane output to exactly rows lines of cols
// columns, matching the native screen's fixed-size rendering.
func padGrid(out string, rows, cols int) string {
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	var b strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		var line string
		if r < len(lines) {
			line = lines[r]
		}
		n := visibleWidth(line)
		b.WriteString(line)
		for ; n < cols; n++ {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// visibleWidth counts printable cells, skipping CSI sequences that -e
// leaves in the line.
func visibleWidth(line string) int {
	n := 0
	inCSI := false
	for _, r := range line {
		switch {
		case inCSI:
			if r >= 0x40 && r <= 0x7e {
				inCSI = false
			}
		case r == 0x1b:
			inCSI = true
		default:
			n++
		}
	}
	return n
}

// geometry reads the tracked size under the lock; Resize mutates it.
func (b *TmuxBackend) geometry(s *tmuxSession) (rows, cols int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return s.info.Rows, s.info.Cols
}

func (b *TmuxBackend) Cursor(ctx context.Context, id schema.SessionID) (schema.CursorPosition, error) {
	s, err := b.get(id)
	if err != nil {
		return schema.CursorPosition{}, err
	}
	out, err := b.run(ctx, "display-message", "-t", tmuxTarget(s.name), "-p", "#{cursor_x},#{cursor_y},#{cursor_flag}")
	if err != nil {
		return schema.CursorPosition{}, err
	}
	parts := strings.Split(strings.TrimSpace(out), ",")
	if len(parts) < 3 {
		return schema.CursorPosition{}, fmt.Errorf("tmux display-message: unexpected reply %q", out)
	}
	col, _ := strconv.Atoi(parts[0])
	row, _ := strconv.Atoi(parts[1])
	return schema.CursorPosition{Row: row, Col: col, Visible: parts[2] != "0"}, nil
}

func (b *TmuxBackend) Resize(ctx context.Context, id schema.SessionID, rows, cols int) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	args := []string{"-t", tmuxTarget(s.name), "-x", strconv.Itoa(cols), "-y", strconv.Itoa(rows)}
	if _, err := b.run(ctx, append([]string{"resize-window"}, args...)...); err != nil {
		// Older servers lack resize-window.
		if _, err := b.run(ctx, append([]string{"resize-pane"}, args...)...); err != nil {
			return err
		}
	}
	b.mu.Lock()
	s.info.Rows, s.info.Cols = rows, cols
	b.mu.Unlock()
	return nil
}

func (b *TmuxBackend) Scrollback(ctx context.Context, id schema.SessionID, n int) (string, bool, error) {
	s, err := b.get(id)
	if err != nil {
		return "", false, err
	}
	if n <= 0 {
		return "", true, nil
	}
	out, err := b.run(ctx, "capture-pane", "-p", "-t", tmuxTarget(s.name),
		"-S", fmt.Sprintf("-%d", n), "-E", "-1")
	if err != nil {
		// -E -1 fails when no history exists yet.
		return "", true, nil
	}
	return strings.TrimSuffix(out, "\n"), true, nil
}

// SetScrollback adjusts the session's history-limit. tmux applies the new
// limit to panes created afterwards; already-retained history is untouched.
func (b *TmuxBackend) SetScrollback(ctx context.Context, id schema.SessionID, lines int) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	if lines < 0 {
		lines = 0
	}
	_, err = b.run(ctx, "set-option", "-t", tmuxTarget(s.name), "history-limit", strconv.Itoa(lines))
	return err
}

func (b *TmuxBackend) CaptureStart(ctx context.Context, id schema.SessionID, path string) error {
	s, err := b.get(id)
	if err != nil {
		return err
	}
	b.mu.Lock()
	active := s.capturePath != ""
	b.mu.Unlock()
	if active {
		return schema.ErrCaptureActive
	}
	if _, err := b.run(ctx, "pipe-pane", "-o", "-t", tmuxTarget(s.name), fmt.Sprintf("cat >> %q", path)); err != nil {
		return err
	}
	b.mu.Lock()
	s.capturePath = path
	s.captureStarted = time.Now()
	b.mu.Unlock()
	return nil
}

func (b *TmuxBackend) CaptureStop(ctx context.Context, id schema.SessionID) (schema.CaptureSummary, error) {
	s, err := b.get(id)
	if err != nil {
		return schema.CaptureSummary{}, err
	}
	b.mu.Lock()
	path, started := s.capturePath, s.captureStarted
	s.capturePath = ""
	b.mu.Unlock()
	if path == "" {
		return schema.CaptureSummary{}, schema.ErrCaptureNotActive
	}
	// Running pipe-pane without a command detaches the pipe.
	_, _ = b.run(ctx, "pipe-pane", "-t", tmuxTarget(s.name))

	var size int64
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	return schema.CaptureSummary{Path: path, Bytes: size, Duration: time.Since(started)}, nil
}

func (b *TmuxBackend) Kill(ctx context.Context, id schema.SessionID, sig unix.Signal) error {
	b.mu.Lock()
	s, ok := b.sessions[id]
	if ok {
		delete(b.sessions, id)
	}
	b.mu.Unlock()
	if !ok {
		return schema.ErrSessionNotFound
	}
	// tmux owns the process tree; kill-session is the only teardown it
	// offers, regardless of the requested signal.
	if _, err := b.run(ctx, "kill-session", "-t", tmuxTarget(s.name)); err != nil {
		logx.WithSession(b.log, id).Debug("kill-session on dead session", "error", err)
	}
	logx.WithSession(b.log, id).Info("session killed", "tmux_session", s.name)
	return nil
}

func (b *TmuxBackend) Exists(ctx context.Context, id schema.SessionID) bool {
	s, err := b.get(id)
	if err != nil {
		return false
	}
	return exec.CommandContext(ctx, "tmux", "has-session", "-t", tmuxTarget(s.name)).Run() == nil
}

func (b *TmuxBackend) List(ctx context.Context) ([]schema.SessionInfo, error) {
	b.mu.RLock()
	infos := make([]schema.SessionInfo, 0, len(b.sessions))
	names := make([]string, 0, len(b.sessions))
	for _, s := range b.sessions {
		infos = append(infos, s.info)
		names = append(names, s.name)
	}
	b.mu.RUnlock()

	for i := range infos {
		if exec.CommandContext(ctx, "tmux", "has-session", "-t", tmuxTarget(names[i])).Run() != nil {
			infos[i].Status = schema.StatusExited
		}
	}
	return infos, nil
}
