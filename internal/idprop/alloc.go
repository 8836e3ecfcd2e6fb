package idprop

import "idprop.dev/internal/scene"

// ensureRawID assigns a raw id on first touch and reports whether it minted.
func (s *System) ensureRawID(kind scene.Kind, b *scene.Block) (int64, bool, error) {
	if !scene.KnownKind(kind) {
		return 0, false, ErrUnknownKind
	}
	if id := b.PropInt(idKey); id != 0 {
		return id, false, nil
	}
	id, err := maxCounter(s.doc, kind)
	if err != nil {
		return 0, false, err
	}
	advanceCounter(s.doc, kind, id)
	b.SetPropInt(idKey, id)
	return id, true, nil
}

// ensure mints on first touch and returns both the raw and the effective id.
// Only a genuinely fresh assignment updates the identity cache: refreshing it
// on the idempotent path would let a duplicated block overwrite the entry
// that identifies the original.
func (s *System) ensure(kind scene.Kind, b *scene.Block) (raw, eff int64, err error) {
	raw, fresh, err := s.ensureRawID(kind, b)
	if err != nil {
		return 0, 0, err
	}
	eff = raw
	if lib := b.Library(); lib != nil {
		// Library blocks are always local, so their raw id is their
		// effective id. Computing the offset may mint it.
		libID, _, err := s.ensure(scene.KindLibraries, lib)
		if err != nil {
			return 0, 0, err
		}
		eff += (libID + 1) * s.libIDSpace
	}
	if fresh {
		s.caches[kind].put(eff, b.ContentHash(), b.Name())
		s.emit(Event{Type: EventAllocate, Kind: kind, ID: eff, Name: b.Name()})
	}
	return raw, eff, nil
}

// EnsureID returns the block's raw id, minting one on first access.
// Re-entrant calls for the same block short-circuit on the stored value.
func (s *System) EnsureID(kind scene.Kind, b *scene.Block) (int64, error) {
	raw, _, err := s.ensure(kind, b)
	return raw, err
}

// EffectiveID is the externally visible id: the raw id, offset into the
// owning library's id range for linked blocks.
func (s *System) EffectiveID(kind scene.Kind, b *scene.Block) (int64, error) {
	_, eff, err := s.ensure(kind, b)
	return eff, err
}

// effectiveStoredID computes a block's effective id without minting anything,
// for use on read paths. ok is false when the block (or its library) has no
// id yet; such a block cannot be the target of any stored reference.
func (s *System) effectiveStoredID(b *scene.Block) (int64, bool) {
	raw := b.PropInt(idKey)
	if raw == 0 {
		return 0, false
	}
	if lib := b.Library(); lib != nil {
		libID := lib.PropInt(idKey)
		if libID == 0 {
			return 0, false
		}
		return raw + (libID+1)*s.libIDSpace, true
	}
	return raw, true
}
