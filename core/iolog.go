package core

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"pkt.systems/termmux/schema"
)

// ioDirection labels one traffic record in a session I/O log.
type ioDirection string

const (
	dirIn     ioDirection = "in"
	dirOut    ioDirection = "out"
	dirResize ioDirection = "resize"
)

type ioRecord struct {
	TS      string           `json:"ts"`
	Session schema.SessionID `json:"session"`
	Dir     ioDirection      `json:"dir"`
	Data    string           `json:"data"`
}

// ioLogger appends one JSON document per line to a per-session traffic log.
// Input and the pump write concurrently, so appends are serialized here.
type ioLogger struct {
	mu sync.Mutex
	f  *os.File
	id schema.SessionID
}

func newIOLogger(path string, id schema.SessionID) (*ioLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &ioLogger{f: f, id: id}, nil
}

func (l *ioLogger) log(dir ioDirection, data string) {
	rec := ioRecord{
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Session: l.id,
		Dir:     dir,
		Data:    data,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return
	}
	l.mu.Lock()
	_, _ = l.f.Write(append(line, '\n'))
	l.mu.Unlock()
}

func (l *ioLogger) logResize(rows, cols int) {
	l.log(dirResize, fmt.Sprintf("%dx%d", rows, cols))
}

func (l *ioLogger) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
