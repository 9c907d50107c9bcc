package montage

// FrameCache memoizes resolved property values for one movie during one
// frame. Entries are keyed by entity ID, then by property path. The movie
// clears it at the start of every tick, so a value is computed at most once
// per (entity, path) per frame.
type FrameCache struct {
	entries map[uint32]map[string]any
	count   int
}

// Get returns the cached value for (id, path).
func (c *FrameCache) Get(id uint32, path string) (any, bool) {
	byPath, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	v, ok := byPath[path]
	return v, ok
}

// Put stores v for (id, path), creating the entity bucket lazily.
func (c *FrameCache) Put(id uint32, path string, v any) {
	if c.entries == nil {
		c.entries = make(map[uint32]map[string]any)
	}
	byPath, ok := c.entries[id]
	if !ok {
		byPath = make(map[string]any)
		c.entries[id] = byPath
	}
	if _, exists := byPath[path]; !exists {
		c.count++
	}
	byPath[path] = v
}

// Forget drops every entry of one entity.
func (c *FrameCache) Forget(id uint32) {
	c.count -= len(c.entries[id])
	delete(c.entries, id)
}

// Clear drops every entry.
func (c *FrameCache) Clear() {
	clear(c.entries)
	c.count = 0
}

// Len returns the number of cached values.
func (c *FrameCache) Len() int {
	return c.count
}
