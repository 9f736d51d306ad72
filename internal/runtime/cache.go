package runtime

import (
	"reflect"
	"sync"
)

// ResolvedNode is a declarative node together with its runtime object.
type ResolvedNode struct {
	NodeID   string
	NodeType string
	Props    map[string]any
	Object   any
}

// ResolutionCache keeps resolved nodes across runs of one engine. An entry
// is reused only while the node's type and props are unchanged.
type ResolutionCache struct {
	mu      sync.Mutex
	entries map[string]*ResolvedNode
}

func NewResolutionCache() *ResolutionCache {
	return &ResolutionCache{entries: make(map[string]*ResolvedNode)}
}

// Lookup returns the cached entry for id if it was resolved from the same
// type and props.
func (c *ResolutionCache) Lookup(id, nodeType string, props map[string]any) (*ResolvedNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[id]
	if !ok || r.NodeType != nodeType || !reflect.DeepEqual(r.Props, props) {
		return nil, false
	}
	return r, true
}

func (c *ResolutionCache) Store(r *ResolvedNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[r.NodeID] = r
}

// Invalidate forgets one node.
func (c *ResolutionCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Reset forgets every node.
func (c *ResolutionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *ResolutionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
