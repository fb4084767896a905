package core

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"pkt.systems/termmux/schema"
)

// device owns one PTY-backed process: the pty master file, the child
// process, and a waiter that records the exit code without blocking any
// caller.
type device struct {
	ptmx *os.File
	cmd  *exec.Cmd

	mu       sync.Mutex
	closed   bool
	exited   bool
	exitCode int

	done chan struct{}
}

// DefaultCommand returns the command a session runs when none is given.
func DefaultCommand() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// openDevice spawns command under "/bin/sh -c" on a fresh PTY sized
// rows x cols. Spawn failures wrap schema.ErrLaunchFailed.
func openDevice(command, dir string, rows, cols int) (*device, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrLaunchFailed, err)
	}

	d := &device{ptmx: ptmx, cmd: cmd, done: make(chan struct{})}
	go d.wait()
	return d, nil
}

// wait reaps the child and records its exit code. It runs once per device.
func (d *device) wait() {
	err := d.cmd.Wait()
	code := 0
	if err != nil {
		code = -1
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		}
	}
	d.mu.Lock()
	d.exited = true
	d.exitCode = code
	d.mu.Unlock()
	close(d.done)
}

// Read streams raw output from the PTY master. It returns io.EOF (or EIO,
// which callers treat the same) once the child side closes.
func (d *device) Read(p []byte) (int, error) {
	return d.ptmx.Read(p)
}

// Write delivers input bytes to the process. Writing to a dead device
// returns schema.ErrDeviceClosed.
func (d *device) Write(p []byte) (int, error) {
	d.mu.Lock()
	dead := d.closed || d.exited
	d.mu.Unlock()
	if dead {
		return 0, schema.ErrDeviceClosed
	}
	return d.ptmx.Write(p)
}

// Resize updates the PTY window size, signalling SIGWINCH to the child.
// Resizing a dead device is a no-op.
func (d *device) Resize(rows, cols int) error {
	d.mu.Lock()
	dead := d.closed || d.exited
	d.mu.Unlock()
	if dead {
		return nil
	}
	return pty.Setsize(d.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// ExitStatus reports the exit code without blocking. ok is false while the
// process is still running.
func (d *device) ExitStatus() (code int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exitCode, d.exited
}

// Terminate sends sig to the child process. Signalling a reaped process
// is a no-op.
func (d *device) Terminate(sig unix.Signal) error {
	d.mu.Lock()
	exited := d.exited
	d.mu.Unlock()
	if exited || d.cmd.Process == nil {
		return nil
	}
	// The process may exit between the check and the signal; that is not
	// an error worth surfacing.
	_ = d.cmd.Process.Signal(sig)
	return nil
}

// Close releases the PTY master. It never waits for the child; the waiter
// goroutine reaps it independently.
func (d *device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return d.ptmx.Close()
}
