package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"idprop.dev/internal/idprop"
	"idprop.dev/internal/scene"
)

func TestEventTrail_WritesReadableJSONL(t *testing.T) {
	dir := t.TempDir()
	trail := NewEventTrail(dir)

	events := []idprop.Event{
		{At: time.Now().UTC(), Type: idprop.EventAllocate, Kind: scene.KindObjects, ID: 1, Name: "A"},
		{At: time.Now().UTC(), Type: idprop.EventBroken, Kind: scene.KindMaterials, ID: 9},
	}
	for _, ev := range events {
		if err := trail.WriteEvent(ev); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := trail.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("files = %d, want 1 (single hour)", len(entries))
	}
	name := entries[0].Name()
	if filepath.Ext(name) != ".zst" {
		t.Fatalf("unexpected file %q", name)
	}

	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []idprop.Event
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var ev idprop.Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line %d: %v", len(got), err)
		}
		got = append(got, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events read back = %d, want 2", len(got))
	}
	if got[0].Type != idprop.EventAllocate || got[0].Name != "A" {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].Type != idprop.EventBroken || got[1].Kind != scene.KindMaterials {
		t.Fatalf("got[1] = %+v", got[1])
	}
}
