// Package scene is the host-side object model: a document of named data-block
// collections plus the scene list that carries hidden per-document counters.
// It is authoritative; everything the reference subsystem caches is advisory
// and rebuilt from here.
package scene

import (
	"fmt"
	"sort"
)

// Scene is a top-level scene. Scenes carry hidden integer props used as
// redundant copies of the per-kind id counters, so the counter maximum
// survives scene deletion and document reload.
type Scene struct {
	name  string
	props map[string]int64
}

func (s *Scene) Name() string { return s.name }

func (s *Scene) PropInt(key string) int64 { return s.props[key] }

func (s *Scene) SetPropInt(key string, v int64) { s.props[key] = v }

// Props returns a copy of the scene's props.
func (s *Scene) Props() map[string]int64 {
	out := make(map[string]int64, len(s.props))
	for k, v := range s.props {
		out[k] = v
	}
	return out
}

type loadHandler struct {
	name string
	fn   func(*Document)
}

// Document is one open file: the tracked collections, the scene list, and the
// load-handler registry (the host's "file opened" event).
type Document struct {
	collections map[Kind]*Collection
	scenes      []*Scene
	onLoad      []loadHandler
}

// NewDocument returns a document with one default scene, matching the host
// guarantee that at least one scene always exists. Tests exercise the
// zero-scene failure path by removing it.
func NewDocument() *Document {
	d := &Document{collections: make(map[Kind]*Collection)}
	for _, k := range Kinds {
		d.collections[k] = newCollection(k)
	}
	d.scenes = append(d.scenes, &Scene{name: "Scene", props: make(map[string]int64)})
	return d
}

// Collection returns the collection for a tracked kind, or nil for unknown
// kinds.
func (d *Document) Collection(k Kind) *Collection { return d.collections[k] }

// Scenes returns the live scenes in creation order.
func (d *Document) Scenes() []*Scene {
	out := make([]*Scene, len(d.scenes))
	copy(out, d.scenes)
	return out
}

func (d *Document) AddScene(name string) (*Scene, error) {
	for _, s := range d.scenes {
		if s.name == name {
			return nil, fmt.Errorf("scene: scene %q already exists", name)
		}
	}
	s := &Scene{name: name, props: make(map[string]int64)}
	d.scenes = append(d.scenes, s)
	return s, nil
}

func (d *Document) RemoveScene(name string) bool {
	for i, s := range d.scenes {
		if s.name == name {
			d.scenes = append(d.scenes[:i], d.scenes[i+1:]...)
			return true
		}
	}
	return false
}

// Reset drops all scenes and collection members but keeps registered load
// handlers, mirroring a host replacing document contents on file open.
func (d *Document) Reset() {
	for _, k := range Kinds {
		d.collections[k] = newCollection(k)
	}
	d.scenes = nil
}

// AddLoadHandler registers a named handler fired by EmitLoaded. Registering an
// already-present name replaces the handler, so redundant setup is safe.
func (d *Document) AddLoadHandler(name string, fn func(*Document)) {
	d.RemoveLoadHandler(name)
	d.onLoad = append(d.onLoad, loadHandler{name: name, fn: fn})
}

// RemoveLoadHandler unregisters by name; removing an absent name is a no-op.
func (d *Document) RemoveLoadHandler(name string) {
	for i, h := range d.onLoad {
		if h.name == name {
			d.onLoad = append(d.onLoad[:i], d.onLoad[i+1:]...)
			return
		}
	}
}

// EmitLoaded fires all load handlers in registration order.
func (d *Document) EmitLoaded() {
	// Copy first: a handler may re-register itself.
	hs := make([]loadHandler, len(d.onLoad))
	copy(hs, d.onLoad)
	for _, h := range hs {
		h.fn(d)
	}
}

// Counts reports the member count per kind, keys sorted for deterministic
// rendering.
func (d *Document) Counts() map[string]int {
	out := make(map[string]int, len(Kinds))
	keys := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = d.collections[Kind(k)].Len()
	}
	return out
}
