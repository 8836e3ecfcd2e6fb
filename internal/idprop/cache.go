package idprop

// kindCache is the advisory identity cache for one collection kind: effective
// id to content hash, and content hash to last known name. Entries are never
// trusted without verifying against the live collection; a miss or a stale
// entry falls back to a full scan.
type kindCache struct {
	idToHash   map[int64]string
	hashToName map[string]string
}

func newKindCache() *kindCache {
	return &kindCache{
		idToHash:   make(map[int64]string),
		hashToName: make(map[string]string),
	}
}

func (c *kindCache) clear() {
	c.idToHash = make(map[int64]string)
	c.hashToName = make(map[string]string)
}

// put records both directions for a freshly verified (id, hash, name) triple.
func (c *kindCache) put(id int64, hash, name string) {
	c.idToHash[id] = hash
	c.hashToName[hash] = name
}

// adoptName updates only the hash-to-name side after a rename is discovered.
func (c *kindCache) adoptName(hash, name string) {
	c.hashToName[hash] = name
}
