package idprop

import "idprop.dev/internal/scene"

// loadHandlerName keys this subsystem's entry in the document's load-handler
// registry, so Attach/Detach stay idempotent.
const loadHandlerName = "idprop.reload"

// Reload rebuilds every identity cache from scratch by scanning the live
// collections. Blocks are visited in descending name order; the first block
// seen with a given effective id keeps it, later claimants are reset to the
// unset sentinel and re-minted immediately. The tie-break is arbitrary but
// deterministic, so two loads of the same document pick the same winners.
//
// Losers permanently lose their old identity: references that pointed at a
// loser resolve to the winner from here on, which is the documented cost of
// opportunistic collision repair.
func (s *System) Reload() error {
	for _, kind := range scene.Kinds {
		if err := s.rebuildKind(kind); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) rebuildKind(kind scene.Kind) error {
	c := s.caches[kind]
	c.clear()

	col := s.doc.Collection(kind)
	blocks := col.Blocks()
	// Blocks() is ascending by name; walk it backwards.
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		id, err := s.EffectiveID(kind, b)
		if err != nil {
			return err
		}
		// A fresh mint inside EffectiveID seeds the cache with this block's
		// own entry; only an entry with another block's hash is a claimant.
		if h, taken := c.idToHash[id]; taken && h != b.ContentHash() {
			b.SetPropInt(idKey, 0)
			s.emit(Event{Type: EventCollision, Kind: kind, ID: id, Name: b.Name()})
			id, err = s.EffectiveID(kind, b)
			if err != nil {
				return err
			}
		}
		c.put(id, b.ContentHash(), b.Name())
	}
	return nil
}

// Attach registers Reload on the document's load event and runs it once
// immediately to cover the already-open document. Attach is idempotent and
// unregisters any previous registration first, since the hosting environment
// may re-run setup without a clean teardown.
func (s *System) Attach() error {
	s.doc.AddLoadHandler(loadHandlerName, func(*scene.Document) {
		if err := s.Reload(); err != nil {
			s.log.Printf("reload: %v", err)
		}
	})
	return s.Reload()
}

// Detach unregisters the load handler. Safe to call redundantly.
func (s *System) Detach() {
	s.doc.RemoveLoadHandler(loadHandlerName)
}
