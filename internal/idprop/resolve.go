package idprop

import "idprop.dev/internal/scene"

// NotFound is the broken-reference sentinel. The stored raw id is left
// intact when resolution fails, so a target that reappears (undo, re-link)
// heals the reference without any repair step.
const NotFound = ""

// Resolve returns the current name of the block whose effective id is id, or
// NotFound. Cache entries are verified against the live collection before
// being believed; any miss falls back to a linear scan, O(collection size).
func (s *System) Resolve(kind scene.Kind, id int64) string {
	if !scene.KnownKind(kind) || id == 0 {
		return NotFound
	}
	col := s.doc.Collection(kind)
	c := s.caches[kind]

	hash, ok := c.idToHash[id]
	if !ok {
		// The cache has never seen this id. The stored ids on live blocks
		// are authoritative, so scan for a claimant before giving up.
		if b := s.scanForStoredID(col, id); b != nil {
			hash = b.ContentHash()
			c.put(id, hash, b.Name())
			return b.Name()
		}
		s.emit(Event{Type: EventBroken, Kind: kind, ID: id})
		return NotFound
	}

	// Fast path: the cached name still names a live block with the same
	// storage identity.
	if name, ok := c.hashToName[hash]; ok {
		if b, live := col.Get(name); live && b.ContentHash() == hash {
			return name
		}
	}

	// The target was renamed (or the name was taken over by another block):
	// rescan for the storage identity and adopt its current name.
	s.noteScan(col)
	for _, b := range col.Blocks() {
		if b.ContentHash() == hash {
			c.adoptName(hash, b.Name())
			return b.Name()
		}
	}

	// The storage identity is gone, but the cached hash was only advisory: a
	// live block claiming this id in its stored props (a target restored by
	// undo, or the surviving duplicate) still wins over a stale entry.
	if b := s.scanForStoredID(col, id); b != nil {
		c.put(id, b.ContentHash(), b.Name())
		return b.Name()
	}

	s.emit(Event{Type: EventBroken, Kind: kind, ID: id})
	return NotFound
}

// scanForStoredID finds the live block whose stored effective id equals id.
// Blocks with no id yet are skipped; minting on a read path is not allowed.
func (s *System) scanForStoredID(col *scene.Collection, id int64) *scene.Block {
	s.noteScan(col)
	for _, b := range col.Blocks() {
		if got, ok := s.effectiveStoredID(b); ok && got == id {
			return b
		}
	}
	return nil
}

func (s *System) noteScan(col *scene.Collection) {
	if n := col.Len(); n > s.scanSoftLimit {
		s.log.Printf("full scan of %s with %d members (soft limit %d)", col.Kind(), n, s.scanSoftLimit)
	}
}
