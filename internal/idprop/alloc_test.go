package idprop

import (
	"errors"
	"testing"

	"idprop.dev/internal/scene"
)

func newTestSystem(t *testing.T) (*scene.Document, *System) {
	t.Helper()
	d := scene.NewDocument()
	return d, New(d, Config{})
}

func TestEnsureID_LazyAndIdempotent(t *testing.T) {
	d, s := newTestSystem(t)
	a, _ := d.Collection(scene.KindObjects).Add("A")

	if a.PropInt("id") != 0 {
		t.Fatalf("id minted before first access")
	}
	first, err := s.EnsureID(scene.KindObjects, a)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := s.EnsureID(scene.KindObjects, a)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first != second {
		t.Fatalf("ids differ across calls: %d vs %d", first, second)
	}
	if first != 1 {
		t.Fatalf("first id = %d, want 1", first)
	}

	// The counter advanced exactly once.
	if got := d.Scenes()[0].PropInt(CounterKey(scene.KindObjects)); got != 2 {
		t.Fatalf("counter = %d after one mint, want 2", got)
	}
}

func TestEnsureID_SequentialMints(t *testing.T) {
	d, s := newTestSystem(t)
	col := d.Collection(scene.KindObjects)
	for i, name := range []string{"A", "B", "C"} {
		b, _ := col.Add(name)
		id, err := s.EnsureID(scene.KindObjects, b)
		if err != nil {
			t.Fatalf("ensure %s: %v", name, err)
		}
		if want := int64(i + 1); id != want {
			t.Fatalf("id for %s = %d, want %d", name, id, want)
		}
	}
}

func TestEnsureID_UnknownKind(t *testing.T) {
	d, s := newTestSystem(t)
	a, _ := d.Collection(scene.KindObjects).Add("A")
	if _, err := s.EnsureID(scene.Kind("meshes"), a); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
}

func TestEnsureID_NoScenesPropagates(t *testing.T) {
	d, s := newTestSystem(t)
	d.RemoveScene("Scene")
	a, _ := d.Collection(scene.KindObjects).Add("A")
	if _, err := s.EnsureID(scene.KindObjects, a); !errors.Is(err, ErrNoScenes) {
		t.Fatalf("err = %v, want ErrNoScenes", err)
	}
}

func TestEffectiveID_LocalEqualsRaw(t *testing.T) {
	d, s := newTestSystem(t)
	a, _ := d.Collection(scene.KindObjects).Add("A")
	eff, err := s.EffectiveID(scene.KindObjects, a)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff != a.PropInt("id") {
		t.Fatalf("effective %d != raw %d for a local block", eff, a.PropInt("id"))
	}
}

func TestEffectiveID_LibraryOffset(t *testing.T) {
	d, s := newTestSystem(t)
	lib, _ := d.Collection(scene.KindLibraries).Add("props.lib")
	b, err := d.Collection(scene.KindObjects).AddLinked("Chair", lib)
	if err != nil {
		t.Fatalf("link: %v", err)
	}

	eff, err := s.EffectiveID(scene.KindObjects, b)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	// Computing the offset minted the library's own id (1), so the linked
	// block lands in range (1+1)*LibIDSpace.
	libID := lib.PropInt("id")
	if libID != 1 {
		t.Fatalf("library id = %d, want 1", libID)
	}
	want := b.PropInt("id") + (libID+1)*LibIDSpace
	if eff != want {
		t.Fatalf("effective = %d, want %d", eff, want)
	}
	if eff < LibIDSpace {
		t.Fatalf("linked id %d collides with local id space", eff)
	}
}
