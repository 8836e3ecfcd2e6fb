package idprop

import (
	"encoding/json"

	"idprop.dev/internal/scene"
)

// Validator restricts which blocks a reference may point at. Returning false
// soft-rejects a Set: the write is silently dropped, by contract with the UI
// layer.
type Validator func(*scene.Block) bool

// PropertyOption configures a reference property.
type PropertyOption func(*Property)

func WithValidator(v Validator) PropertyOption {
	return func(p *Property) { p.validator = v }
}

// Property is a string-valued reference field: reads resolve the stored id to
// the target's current name, writes look the name up and store the target's
// effective id under a hidden key on the owning block.
type Property struct {
	sys       *System
	kind      scene.Kind
	name      string
	valueKey  string
	validator Validator
}

// ValueKey derives the hidden storage key for a field's display name.
func ValueKey(displayName string) string { return displayName + "_id" }

// NewReference creates a reference property targeting one collection kind.
// The display name determines where the raw id is stored on owning blocks.
func (s *System) NewReference(kind scene.Kind, displayName string, opts ...PropertyOption) (*Property, error) {
	if !scene.KnownKind(kind) {
		return nil, ErrUnknownKind
	}
	p := &Property{
		sys:      s,
		kind:     kind,
		name:     displayName,
		valueKey: ValueKey(displayName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Property) Name() string { return p.name }

func (p *Property) Kind() scene.Kind { return p.kind }

// Get resolves the owner's stored id to the target's current name, or
// NotFound for a broken or empty reference.
func (p *Property) Get(owner *scene.Block) string {
	return p.sys.Resolve(p.kind, owner.PropInt(p.valueKey))
}

// Set points the reference at the block currently named value.
//
//   - "" clears the reference to the unset sentinel.
//   - An unknown name, or one the validator rejects, is silently ignored.
//   - A target whose hash disagrees with the cache's expectation for its id
//     is a fresh duplicate still carrying the original's id: it is re-minted
//     before its id is stored, so exactly one of the copies keeps the old id.
//
// The only propagated failure is the structural ErrNoScenes precondition.
func (p *Property) Set(owner *scene.Block, value string) error {
	if value == "" {
		owner.SetPropInt(p.valueKey, 0)
		p.sys.emit(Event{Type: EventClearRef, Kind: p.kind, Field: p.name})
		return nil
	}

	col := p.sys.doc.Collection(p.kind)
	target, ok := col.Get(value)
	if !ok {
		return nil
	}
	if p.validator != nil && !p.validator(target) {
		return nil
	}

	id, err := p.sys.EffectiveID(p.kind, target)
	if err != nil {
		return err
	}

	hash := target.ContentHash()
	if expected, cached := p.sys.caches[p.kind].idToHash[id]; !cached || expected != hash {
		// The id is claimed by a different storage identity (or fell out of
		// the cache entirely): treat the target as a duplicate and re-mint.
		target.SetPropInt(idKey, 0)
		id, err = p.sys.EffectiveID(p.kind, target)
		if err != nil {
			return err
		}
		// EffectiveID recorded the fresh (id, hash, name) triple already.
		p.sys.emit(Event{Type: EventReassign, Kind: p.kind, ID: id, Name: target.Name()})
	}

	owner.SetPropInt(p.valueKey, id)
	p.sys.emit(Event{Type: EventSetRef, Kind: p.kind, ID: id, Name: value, Field: p.name})
	return nil
}

// describePayload is what the UI layer reads off a generated property to know
// which collection to search.
type describePayload struct {
	FieldName string `json:"field_name"`
}

// Describe returns the property's description payload as JSON.
func (p *Property) Describe() string {
	raw, _ := json.Marshal(describePayload{FieldName: string(p.kind)})
	return string(raw)
}
