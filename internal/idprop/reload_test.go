package idprop

import (
	"testing"

	"idprop.dev/internal/scene"
)

// captureSink records events for assertions.
type captureSink struct {
	events []Event
}

func (c *captureSink) WriteEvent(ev Event) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *captureSink) byType(eventType string) []Event {
	var out []Event
	for _, ev := range c.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestReload_DedupesByNameDescending(t *testing.T) {
	d := scene.NewDocument()
	sink := &captureSink{}
	s := New(d, Config{Sink: sink})

	col := d.Collection(scene.KindObjects)
	a, _ := col.Add("A")
	if _, err := s.EnsureID(scene.KindObjects, a); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	dup, err := col.Duplicate("A", "A_copy")
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if a.PropInt("id") != 1 || dup.PropInt("id") != 1 {
		t.Fatalf("premise: both should carry id 1")
	}

	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	// Name-descending scan: A_copy is visited first and keeps id 1; A is the
	// later claimant, reset and re-minted.
	if dup.PropInt("id") != 1 {
		t.Fatalf("A_copy id = %d, want 1 (scan winner)", dup.PropInt("id"))
	}
	if a.PropInt("id") == 1 {
		t.Fatalf("A kept id 1; collision not repaired")
	}
	if a.PropInt("id") == 0 {
		t.Fatalf("A left unset; reload should re-mint immediately")
	}
	if n := len(sink.byType(EventCollision)); n != 1 {
		t.Fatalf("collision events = %d, want 1", n)
	}

	// Exactly one live block per id afterwards.
	if got := s.Resolve(scene.KindObjects, 1); got != "A_copy" {
		t.Fatalf("resolve(1) = %q, want A_copy", got)
	}
	if got := s.Resolve(scene.KindObjects, a.PropInt("id")); got != "A" {
		t.Fatalf("resolve(%d) = %q, want A", a.PropInt("id"), got)
	}
}

func TestReload_FreshMintIsNotACollision(t *testing.T) {
	d := scene.NewDocument()
	sink := &captureSink{}
	s := New(d, Config{Sink: sink})

	col := d.Collection(scene.KindObjects)
	b, _ := col.Add("A")

	// One never-identified block, no duplicates: the rebuild mints its id
	// and must not mistake its own freshly seeded cache entry for a claimant.
	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := len(sink.byType(EventCollision)); n != 0 {
		t.Fatalf("collision events = %d, want 0 (no duplicate ids existed)", n)
	}
	if n := len(sink.byType(EventAllocate)); n != 1 {
		t.Fatalf("allocations = %d, want 1", n)
	}
	if got := b.PropInt("id"); got != 1 {
		t.Fatalf("id = %d, want 1 (exactly one counter value consumed)", got)
	}
	for _, sc := range d.Scenes() {
		if got := sc.PropInt(CounterKey(scene.KindObjects)); got != 2 {
			t.Fatalf("counter = %d, want 2 (one advance)", got)
		}
	}
}

func TestReload_MintsIDsForEveryBlock(t *testing.T) {
	d, s := newTestSystem(t)
	col := d.Collection(scene.KindObjects)
	col.Add("A")
	col.Add("B")

	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, b := range col.Blocks() {
		if b.PropInt("id") == 0 {
			t.Fatalf("block %q has no id after reload", b.Name())
		}
	}
}

func TestReload_NoScenesPropagates(t *testing.T) {
	d, s := newTestSystem(t)
	d.Collection(scene.KindObjects).Add("A")
	d.RemoveScene("Scene")
	if err := s.Reload(); err == nil {
		t.Fatalf("expected ErrNoScenes from reload")
	}
}

func TestAttach_RunsImmediatelyAndOnLoad(t *testing.T) {
	d := scene.NewDocument()
	sink := &captureSink{}
	s := New(d, Config{Sink: sink})
	d.Collection(scene.KindObjects).Add("A")

	if err := s.Attach(); err != nil {
		t.Fatalf("attach: %v", err)
	}
	// The immediate rebuild covered the already-open document.
	if n := len(sink.byType(EventAllocate)); n != 1 {
		t.Fatalf("allocations after attach = %d, want 1", n)
	}

	// Redundant re-attach must not double-register the handler.
	if err := s.Attach(); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	d.EmitLoaded()
	d.EmitLoaded()
	// Two loads, one handler each: rebuilds run but allocate nothing new.
	if n := len(sink.byType(EventAllocate)); n != 1 {
		t.Fatalf("allocations after loads = %d, want still 1", n)
	}

	s.Detach()
	s.Detach() // redundant detach is fine
	d.Collection(scene.KindObjects).Add("B")
	d.EmitLoaded()
	if n := len(sink.byType(EventAllocate)); n != 1 {
		t.Fatalf("detached handler still firing")
	}
}
