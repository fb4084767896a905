package core

import (
	"sync"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/termmux/schema"
)

const pumpReadSize = 4096

// session is one live native terminal: a PTY device, its emulated screen,
// optional capture and traffic log, and metadata. mu is the only point of
// contention between the pump and API callers.
type session struct {
	id schema.SessionID

	mu       sync.Mutex
	info     schema.SessionInfo
	screen   *screen
	capture  *capture
	pending  *schema.CaptureSummary // parked by the pump when the device dies mid-capture
	traffic  *ioLogger
	device   *device
	pumpDone chan struct{}

	log pslog.Logger
}

func newSession(id schema.SessionID, info schema.SessionInfo, dev *device, scr *screen, traffic *ioLogger, log pslog.Logger) *session {
	return &session{
		id:       id,
		info:     info,
		screen:   scr,
		traffic:  traffic,
		device:   dev,
		pumpDone: make(chan struct{}),
		log:      log,
	}
}

// start flips the session from launching to running and begins the pump.
func (s *session) start() {
	s.mu.Lock()
	if s.info.Status == schema.StatusLaunching {
		s.info.Status = schema.StatusRunning
	}
	s.mu.Unlock()
	go s.pump()
}

// pump drains the PTY until EOF, feeding the screen and any active capture
// and traffic log. It records the terminal status itself; nothing ever
// joins it.
func (s *session) pump() {
	defer close(s.pumpDone)
	buf := make([]byte, pumpReadSize)
	for {
		n, err := s.device.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.screen.Feed(buf[:n])
			if s.capture != nil {
				s.capture.write(buf[:n])
			}
			s.mu.Unlock()
			if s.traffic != nil {
				s.traffic.log(dirOut, string(buf[:n]))
			}
		}
		if err != nil {
			// EOF or EIO: the child side of the PTY is gone.
			break
		}
	}
	s.finish()
}

// finish marks the session exited unless a kill already recorded a terminal
// status. An active capture is closed so its file is flushed; the summary
// stays retrievable through captureStop.
func (s *session) finish() {
	select {
	case <-s.device.done:
	case <-time.After(time.Second):
	}
	code, reaped := s.device.ExitStatus()

	s.mu.Lock()
	if !s.info.Status.Terminal() {
		if reaped {
			s.info.Status = schema.StatusExited
			s.info.ExitCode = code
		} else {
			// Device closed but the child was never reaped; no exit code
			// to report.
			s.info.Status = schema.StatusStopped
		}
	}
	if s.capture != nil {
		// Close the file now; the summary stays retrievable through
		// captureStop.
		summary, _ := s.capture.stop()
		s.pending = &summary
		s.capture = nil
	}
	s.mu.Unlock()

	s.log.Debug("session pump finished", "exit_code", code)
	_ = s.device.Close()
	if s.traffic != nil {
		_ = s.traffic.close()
	}
}

func (s *session) snapshot() schema.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *session) write(data []byte) error {
	s.mu.Lock()
	dead := s.info.Status.Terminal()
	s.mu.Unlock()
	if dead {
		return schema.ErrDeviceClosed
	}
	if s.traffic != nil {
		s.traffic.log(dirIn, string(data))
	}
	_, err := s.device.Write(data)
	return err
}

func (s *session) resize(rows, cols int) error {
	s.mu.Lock()
	s.screen.Resize(rows, cols)
	s.info.Rows, s.info.Cols = rows, cols
	s.mu.Unlock()
	if s.traffic != nil {
		s.traffic.logResize(rows, cols)
	}
	return s.device.Resize(rows, cols)
}

func (s *session) contents(includeColors bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen.Contents(includeColors)
}

func (s *session) cursor() schema.CursorPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, col, visible := s.screen.Cursor()
	return schema.CursorPosition{Row: row, Col: col, Visible: visible}
}

func (s *session) scrollback(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen.Scrollback(n)
}

func (s *session) setScrollback(lines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen.setScrollbackMax(lines)
}

func (s *session) captureStart(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture != nil {
		return schema.ErrCaptureActive
	}
	if s.info.Status.Terminal() {
		return schema.ErrDeviceClosed
	}
	c, err := startCapture(path)
	if err != nil {
		return err
	}
	s.capture = c
	s.pending = nil
	return nil
}

func (s *session) captureStop() (schema.CaptureSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.capture; c != nil {
		s.capture = nil
		return c.stop()
	}
	if p := s.pending; p != nil {
		s.pending = nil
		return *p, nil
	}
	return schema.CaptureSummary{}, schema.ErrCaptureNotActive
}
