package core

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"pkt.systems/termmux/schema"
)

func requireTmux(t *testing.T) *TmuxBackend {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed")
	}
	cfg := testConfig(t)
	cfg.Backend = schema.BackendTmux
	b, err := NewTmuxBackend(cfg, nil)
	if err != nil {
		t.Fatalf("new tmux backend: %v", err)
	}
	return b
}

func TestTmuxUnavailableWithoutBinary(t *testing.T) {
	if _, err := exec.LookPath("tmux"); err == nil {
		t.Skip("tmux present; unavailability path not reachable")
	}
	if _, err := NewTmuxBackend(testConfig(t), nil); err == nil {
		t.Fatal("expected ErrBackendUnavailable")
	}
}

func TestTmuxLaunchScreenKill(t *testing.T) {
	ctx := context.Background()
	b := requireTmux(t)
	info, err := b.Launch(ctx, newID(), "printf 'tmux says hi\\n'; sleep 30", "", 24, 80)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer b.Kill(ctx, info.ID, unix.SIGTERM)

	waitFor(t, 10*time.Second, "output on screen", func() bool {
		screen, err := b.Screen(ctx, info.ID, false)
		return err == nil && strings.Contains(screen, "tmux says hi")
	})

	screen, err := b.Screen(ctx, info.ID, false)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	rows := strings.Split(screen, "\n")
	if len(rows) != 24 {
		t.Fatalf("screen has %d rows, want 24", len(rows))
	}

	if err := b.Kill(ctx, info.ID, unix.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if b.Exists(ctx, info.ID) {
		t.Fatal("session exists after kill")
	}
}

func TestTmuxSendKeysWithSemicolon(t *testing.T) {
	ctx := context.Background()
	b := requireTmux(t)
	info, err := b.Launch(ctx, newID(), "cat", "", 24, 80)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer b.Kill(ctx, info.ID, unix.SIGTERM)

	if err := b.SendKeys(ctx, info.ID, []byte("a;b;c\r")); err != nil {
		t.Fatalf("send keys: %v", err)
	}
	waitFor(t, 10*time.Second, "semicolon payload echoed", func() bool {
		screen, err := b.Screen(ctx, info.ID, false)
		return err == nil && strings.Contains(screen, "a;b;c")
	})
}

// Session names must match exactly; a bare tmux target would treat
// termmux-<pid>-pane as a prefix of termmux-<pid>-pane-extra.
func TestTmuxKillDoesNotPrefixMatch(t *testing.T) {
	ctx := context.Background()
	b := requireTmux(t)
	short, err := b.Launch(ctx, "pane", "sleep 30", "", 24, 80)
	if err != nil {
		t.Fatalf("launch pane: %v", err)
	}
	long, err := b.Launch(ctx, "pane-extra", "sleep 30", "", 24, 80)
	if err != nil {
		t.Fatalf("launch pane-extra: %v", err)
	}
	defer b.Kill(ctx, long.ID, unix.SIGTERM)

	if err := b.Kill(ctx, short.ID, unix.SIGTERM); err != nil {
		t.Fatalf("kill pane: %v", err)
	}
	if !b.Exists(ctx, long.ID) {
		t.Fatal("killing pane tore down pane-extra")
	}
	if b.Exists(ctx, short.ID) {
		t.Fatal("pane still exists after kill")
	}
}

func TestTmuxScreenDuringResize(t *testing.T) {
	ctx := context.Background()
	b := requireTmux(t)
	info, err := b.Launch(ctx, newID(), "sleep 30", "", 24, 80)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer b.Kill(ctx, info.ID, unix.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_ = b.Resize(ctx, info.ID, 20+i%5, 80)
		}
	}()
	for i := 0; i < 20; i++ {
		if _, err := b.Screen(ctx, info.ID, false); err != nil {
			t.Fatalf("screen during resize: %v", err)
		}
	}
	<-done
}

func TestTmuxCursorReported(t *testing.T) {
	ctx := context.Background()
	b := requireTmux(t)
	info, err := b.Launch(ctx, newID(), "sleep 30", "", 24, 80)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer b.Kill(ctx, info.ID, unix.SIGTERM)

	pos, err := b.Cursor(ctx, info.ID)
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if pos.Row < 0 || pos.Row >= 24 || pos.Col < 0 || pos.Col >= 80 {
		t.Fatalf("cursor out of range: %+v", pos)
	}
}

// Backends must agree on rendered text up to trailing whitespace; tmux
// reflows some output, so only trimmed lines are compared.
func TestCrossBackendScreenParity(t *testing.T) {
	ctx := context.Background()
	tb := requireTmux(t)
	nb := NewNativeBackend(testConfig(t), nil)

	const command = "printf 'parity line one\\nparity line two\\n'; sleep 30"
	ni, err := nb.Launch(ctx, newID(), command, "", 24, 80)
	if err != nil {
		t.Fatalf("native launch: %v", err)
	}
	defer nb.Kill(ctx, ni.ID, unix.SIGTERM)
	ti, err := tb.Launch(ctx, newID(), command, "", 24, 80)
	if err != nil {
		t.Fatalf("tmux launch: %v", err)
	}
	defer tb.Kill(ctx, ti.ID, unix.SIGTERM)

	var native, tmux string
	waitFor(t, 10*time.Second, "both screens settled", func() bool {
		native, _ = nb.Screen(ctx, ni.ID, false)
		tmux, _ = tb.Screen(ctx, ti.ID, false)
		return strings.Contains(native, "parity line two") && strings.Contains(tmux, "parity line two")
	})

	nl := strings.Split(native, "\n")
	tl := strings.Split(tmux, "\n")
	for i := 0; i < 2; i++ {
		if strings.TrimRight(nl[i], " ") != strings.TrimRight(tl[i], " ") {
			t.Fatalf("row %d diverged: native %q tmux %q", i, nl[i], tl[i])
		}
	}
}
