package scene

import (
	"fmt"
	"sort"
)

// Collection holds the live blocks of one kind, keyed by their current name.
// Names are unique within a collection at any instant but carry no identity
// over time; renames are routine.
type Collection struct {
	kind   Kind
	byName map[string]*Block
}

func newCollection(kind Kind) *Collection {
	return &Collection{kind: kind, byName: make(map[string]*Block)}
}

func (c *Collection) Kind() Kind { return c.kind }

func (c *Collection) Len() int { return len(c.byName) }

// Get returns the live block currently holding name.
func (c *Collection) Get(name string) (*Block, bool) {
	b, ok := c.byName[name]
	return b, ok
}

// Add creates a new local block. The name must be unused.
func (c *Collection) Add(name string) (*Block, error) {
	return c.add(name, nil)
}

// AddLinked creates a block linked in from an external library. lib must be a
// member of the document's libraries collection.
func (c *Collection) AddLinked(name string, lib *Block) (*Block, error) {
	if lib == nil {
		return nil, fmt.Errorf("scene: linked block %q needs a library", name)
	}
	return c.add(name, lib)
}

func (c *Collection) add(name string, lib *Block) (*Block, error) {
	if name == "" {
		return nil, fmt.Errorf("scene: empty block name in %s", c.kind)
	}
	if _, exists := c.byName[name]; exists {
		return nil, fmt.Errorf("scene: %s already has a block named %q", c.kind, name)
	}
	b := newBlock(name, lib)
	c.byName[name] = b
	return b, nil
}

// Rename moves a block to a new unused name. The block's storage handle, and
// therefore its content hash, is unchanged.
func (c *Collection) Rename(oldName, newName string) error {
	b, ok := c.byName[oldName]
	if !ok {
		return fmt.Errorf("scene: no %s block named %q", c.kind, oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, exists := c.byName[newName]; exists {
		return fmt.Errorf("scene: %s already has a block named %q", c.kind, newName)
	}
	delete(c.byName, oldName)
	b.name = newName
	c.byName[newName] = b
	return nil
}

// Duplicate copies a block under a new name: all custom props (including any
// stored ids) come along, but the copy gets a fresh storage handle. This is
// exactly how duplicate-id collisions enter a document.
func (c *Collection) Duplicate(name, newName string) (*Block, error) {
	src, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("scene: no %s block named %q", c.kind, name)
	}
	dup, err := c.add(newName, src.library)
	if err != nil {
		return nil, err
	}
	for k, v := range src.props {
		dup.props[k] = v
	}
	return dup, nil
}

// Remove deletes a block. Resolution of references to it becomes broken, not
// an error.
func (c *Collection) Remove(name string) bool {
	if _, ok := c.byName[name]; !ok {
		return false
	}
	delete(c.byName, name)
	return true
}

// Names returns all current names in ascending order.
func (c *Collection) Names() []string {
	out := make([]string, 0, len(c.byName))
	for name := range c.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Blocks returns the live blocks in ascending name order.
func (c *Collection) Blocks() []*Block {
	names := c.Names()
	out := make([]*Block, 0, len(names))
	for _, name := range names {
		out = append(out, c.byName[name])
	}
	return out
}
