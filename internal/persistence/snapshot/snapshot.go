// Package snapshot saves and restores a scene document as zstd-compressed
// JSON. The format carries exactly the persisted-state layout the id
// subsystem depends on: per-block custom props (stored raw ids under their
// value keys) and per-scene counter props. Storage handles are deliberately
// not persisted; every load mints fresh ones, which is why the identity
// caches must be rebuilt afterwards.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"idprop.dev/internal/scene"
)

const Version = 1

type Header struct {
	Version    int    `json:"version"`
	DocumentID string `json:"document_id"`
}

type SceneV1 struct {
	Name  string           `json:"name"`
	Props map[string]int64 `json:"props,omitempty"`
}

type BlockV1 struct {
	Name  string           `json:"name"`
	Props map[string]int64 `json:"props,omitempty"`
	// Library is the name of the owning library block for linked blocks.
	Library string `json:"library,omitempty"`
}

type DocumentV1 struct {
	Header      Header               `json:"header"`
	Scenes      []SceneV1            `json:"scenes"`
	Collections map[string][]BlockV1 `json:"collections"`
}

// Capture serializes the live document. Collections iterate in canonical kind
// order and blocks in name order, so captures are stable for a given document
// state.
func Capture(doc *scene.Document, documentID string) DocumentV1 {
	v := DocumentV1{
		Header:      Header{Version: Version, DocumentID: documentID},
		Collections: make(map[string][]BlockV1, len(scene.Kinds)),
	}
	for _, sc := range doc.Scenes() {
		v.Scenes = append(v.Scenes, SceneV1{Name: sc.Name(), Props: sc.Props()})
	}
	for _, kind := range scene.Kinds {
		col := doc.Collection(kind)
		blocks := make([]BlockV1, 0, col.Len())
		for _, b := range col.Blocks() {
			bv := BlockV1{Name: b.Name(), Props: b.Props()}
			if lib := b.Library(); lib != nil {
				bv.Library = lib.Name()
			}
			blocks = append(blocks, bv)
		}
		v.Collections[string(kind)] = blocks
	}
	return v
}

// RestoreInto replaces doc's contents with the snapshot and fires the
// document's load handlers, mirroring the host's file-open flow. Libraries
// restore first so linked blocks can resolve their owner.
func RestoreInto(doc *scene.Document, v DocumentV1) error {
	if v.Header.Version != Version {
		return fmt.Errorf("snapshot: unsupported version %d", v.Header.Version)
	}
	doc.Reset()
	for _, sv := range v.Scenes {
		sc, err := doc.AddScene(sv.Name)
		if err != nil {
			return err
		}
		for k, val := range sv.Props {
			sc.SetPropInt(k, val)
		}
	}

	libs := doc.Collection(scene.KindLibraries)
	for _, bv := range v.Collections[string(scene.KindLibraries)] {
		if err := restoreBlock(libs, bv, nil); err != nil {
			return err
		}
	}
	for _, kind := range scene.Kinds {
		if kind == scene.KindLibraries {
			continue
		}
		col := doc.Collection(kind)
		for _, bv := range v.Collections[string(kind)] {
			var lib *scene.Block
			if bv.Library != "" {
				var ok bool
				lib, ok = libs.Get(bv.Library)
				if !ok {
					return fmt.Errorf("snapshot: %s block %q links missing library %q", kind, bv.Name, bv.Library)
				}
			}
			if err := restoreBlock(col, bv, lib); err != nil {
				return err
			}
		}
	}

	doc.EmitLoaded()
	return nil
}

func restoreBlock(col *scene.Collection, bv BlockV1, lib *scene.Block) error {
	var b *scene.Block
	var err error
	if lib != nil {
		b, err = col.AddLinked(bv.Name, lib)
	} else {
		b, err = col.Add(bv.Name)
	}
	if err != nil {
		return err
	}
	for k, val := range bv.Props {
		b.SetPropInt(k, val)
	}
	return nil
}

// Save writes the snapshot atomically (temp file + rename) as zstd-compressed
// JSON.
func Save(path string, v DocumentV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := json.NewEncoder(enc).Encode(v); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Load(path string) (DocumentV1, error) {
	var v DocumentV1
	f, err := os.Open(path)
	if err != nil {
		return v, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return v, err
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return v, nil
}
