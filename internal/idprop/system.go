// Package idprop assigns lazily-minted integer ids to scene data blocks and
// resolves stored ids back to current names, so references survive renames
// and detect duplication. The live document stays authoritative; everything
// here is advisory state rebuilt on load.
//
// The host scripting environment is single-threaded and callback-driven, so a
// System is not safe for concurrent use and takes no locks. Sinks attached to
// it may carry their own synchronization.
package idprop

import (
	"log"
	"os"

	"idprop.dev/internal/scene"
)

// LibIDSpace is the default id range reserved per linked library: ids of
// blocks linked in from library n are offset by (n+1) * LibIDSpace, which
// keeps them clear of local ids as long as no single file mints more than
// LibIDSpace of them.
const LibIDSpace = 10_000_000

// idKey is the hidden custom prop holding a block's own raw id.
const idKey = "id"

// Config carries the knobs a System needs. Zero values select defaults.
type Config struct {
	// LibIDSpace overrides the per-library id range.
	LibIDSpace int64
	// ScanSoftLimit is the collection size above which full-scan recovery
	// logs a warning. Scans stay correct beyond it, just slow.
	ScanSoftLimit int
	// Sink receives audit events; nil discards them.
	Sink EventSink
	Logger *log.Logger
}

// System owns the id subsystem for one document: the per-kind counters (via
// the document's scenes), the identity caches, and reference properties.
type System struct {
	doc           *scene.Document
	libIDSpace    int64
	scanSoftLimit int
	sink          EventSink
	log           *log.Logger

	caches map[scene.Kind]*kindCache
}

func New(doc *scene.Document, cfg Config) *System {
	s := &System{
		doc:           doc,
		libIDSpace:    cfg.LibIDSpace,
		scanSoftLimit: cfg.ScanSoftLimit,
		sink:          cfg.Sink,
		log:           cfg.Logger,
		caches:        make(map[scene.Kind]*kindCache),
	}
	if s.libIDSpace <= 0 {
		s.libIDSpace = LibIDSpace
	}
	if s.scanSoftLimit <= 0 {
		s.scanSoftLimit = 10_000
	}
	if s.log == nil {
		s.log = log.New(os.Stderr, "[idprop] ", log.LstdFlags)
	}
	for _, k := range scene.Kinds {
		s.caches[k] = newKindCache()
	}
	return s
}

func (s *System) Document() *scene.Document { return s.doc }
