// Package log persists the id subsystem's audit trail as hour-rotated,
// zstd-compressed JSONL files. The trail is the durable record; the sqlite
// index built from the same events is a disposable read model.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"idprop.dev/internal/idprop"
)

// EventTrail implements idprop.EventSink. It is safe for use from multiple
// goroutines (the inspector feed and the host callbacks may share it).
type EventTrail struct {
	dir    string
	prefix string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewEventTrail(dir string) *EventTrail {
	return &EventTrail{dir: dir, prefix: "idprop"}
}

func (t *EventTrail) WriteEvent(ev idprop.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != t.curHour {
		if err := t.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return err
	}
	return t.w.Flush()
}

func (t *EventTrail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *EventTrail) rotateLocked(hour string) error {
	if err := t.closeLocked(); err != nil {
		return err
	}
	path := t.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	t.f = f
	t.enc = enc
	t.w = bufio.NewWriterSize(enc, 64*1024)
	t.curHour = hour
	return nil
}

func (t *EventTrail) closeLocked() error {
	var err error
	if t.w != nil {
		_ = t.w.Flush()
	}
	if t.enc != nil {
		err = t.enc.Close()
		t.enc = nil
	}
	if t.f != nil {
		_ = t.f.Close()
		t.f = nil
	}
	t.w = nil
	return err
}

func (t *EventTrail) pathForHour(hour string) string {
	return filepath.Join(t.dir, fmt.Sprintf("%s-%s.jsonl.zst", t.prefix, hour))
}
