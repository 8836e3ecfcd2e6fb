package idprop

import (
	"time"

	"idprop.dev/internal/scene"
)

// Audit event types. These are the subsystem's whole observable taxonomy:
// everything recoverable is absorbed into one of these instead of an error.
const (
	EventAllocate  = "ALLOCATE"  // first-touch id mint
	EventReassign  = "REASSIGN"  // duplicate re-identified at write time
	EventCollision = "COLLISION" // duplicate id reset during load rebuild
	EventBroken    = "BROKEN_REF"
	EventSetRef    = "SET_REF"
	EventClearRef  = "CLEAR_REF"
)

// Event is one id-subsystem occurrence, shaped for JSONL trails, the sqlite
// index, and the inspector feed alike.
type Event struct {
	At    time.Time  `json:"at"`
	Type  string     `json:"type"`
	Kind  scene.Kind `json:"kind"`
	ID    int64      `json:"id,omitempty"`
	Name  string     `json:"name,omitempty"`
	Field string     `json:"field,omitempty"`
}

// EventSink consumes audit events. Implementations decide their own
// durability; the subsystem never blocks on them and ignores their errors.
type EventSink interface {
	WriteEvent(Event) error
}

// SinkMux fans one event out to several sinks. Nil sinks are skipped.
type SinkMux struct {
	sinks []EventSink
}

func NewSinkMux(sinks ...EventSink) *SinkMux {
	m := &SinkMux{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *SinkMux) WriteEvent(ev Event) error {
	for _, s := range m.sinks {
		_ = s.WriteEvent(ev)
	}
	return nil
}

func (s *System) emit(ev Event) {
	if s.sink == nil {
		return
	}
	ev.At = time.Now().UTC()
	_ = s.sink.WriteEvent(ev)
}
