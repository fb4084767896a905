package core

import (
	"os"
	"time"

	"pkt.systems/termmux/schema"
)

// capture tees the raw output stream of one session into a file. It is
// driven by the session pump under the session lock, so no internal locking
// is needed.
type capture struct {
	f       *os.File
	path    string
	started time.Time
	bytes   int64
}

func startCapture(path string) (*capture, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &capture{f: f, path: path, started: time.Now()}, nil
}

func (c *capture) write(p []byte) {
	n, err := c.f.Write(p)
	c.bytes += int64(n)
	_ = err // a full disk must not stall the pump
}

// stop flushes and closes the file exactly once and reports what was
// written.
func (c *capture) stop() (schema.CaptureSummary, error) {
	err := c.f.Close()
	return schema.CaptureSummary{
		Path:     c.path,
		Bytes:    c.bytes,
		Duration: time.Since(c.started),
	}, err
}
