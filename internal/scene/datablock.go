package scene

import (
	"sync/atomic"
)

// Kind names one tracked collection of data blocks.
type Kind string

const (
	KindObjects   Kind = "objects"
	KindMaterials Kind = "materials"
	KindGroups    Kind = "groups"
	KindLibraries Kind = "libraries"
)

// Kinds lists the tracked collections in their canonical order.
var Kinds = []Kind{KindObjects, KindMaterials, KindGroups, KindLibraries}

func KnownKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// handleSeq mints storage handles. Handles are never reused within a process,
// so a duplicated or re-created block always carries a fresh one.
var handleSeq atomic.Uint64

// Block is a single data block: a named member of one collection, carrying a
// hidden integer custom-prop store and an immutable storage handle.
//
// The name is user-editable and not stable over time. The handle is the
// block's storage identity: it survives renames, and a duplicate gets a new
// one even though it copies the name-derived fields and all custom props.
type Block struct {
	name    string
	props   map[string]int64
	library *Block
	handle  uint64
}

func newBlock(name string, lib *Block) *Block {
	return &Block{
		name:    name,
		props:   make(map[string]int64),
		library: lib,
		handle:  handleSeq.Add(1),
	}
}

func (b *Block) Name() string { return b.name }

// Library reports the library block this block was linked in from, or nil for
// local blocks.
func (b *Block) Library() *Block { return b.library }

// PropInt reads a hidden custom prop. Absent keys read as 0; callers treat 0
// as the unset sentinel, so absence and an explicit 0 are indistinguishable.
func (b *Block) PropInt(key string) int64 { return b.props[key] }

func (b *Block) SetPropInt(key string, v int64) {
	if v == 0 {
		// Keep snapshots free of phantom zero-valued keys.
		delete(b.props, key)
		return
	}
	b.props[key] = v
}

// Props returns a copy of the non-zero custom props.
func (b *Block) Props() map[string]int64 {
	out := make(map[string]int64, len(b.props))
	for k, v := range b.props {
		out[k] = v
	}
	return out
}

// ContentHash is the block's storage fingerprint: invariant under rename,
// distinct across duplication.
func (b *Block) ContentHash() string { return contentHash(b.handle) }
