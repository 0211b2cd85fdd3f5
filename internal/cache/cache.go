package cache

import (
	"sort"
	"sync"

	"github.com/lviewgo/recorder/pkg/core"
)

// EntityCache keeps the last decoded value of every object address and the
// addresses that could not be decoded on recent frames. A missing decode is
// not a death: the previous value stays until the address leaves the object
// list.
type EntityCache struct {
	m           sync.Mutex
	Entities    map[core.Address]core.Entity
	undecodable map[core.Address]int
}

func NewEntityCache() *EntityCache {
	return &EntityCache{
		m:           sync.Mutex{},
		Entities:    make(map[core.Address]core.Entity),
		undecodable: make(map[core.Address]int),
	}
}

// Reset forgets every address, as when a new session starts.
func (c *EntityCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Entities = make(map[core.Address]core.Entity)
	c.undecodable = make(map[core.Address]int)
}

func (c *EntityCache) Get(addr core.Address) (core.Entity, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if e, ok := c.Entities[addr]; ok {
		return e, true
	}
	return core.Entity{}, false
}

// Put stores a successful decode and clears the failure streak of its address.
func (c *EntityCache) Put(e core.Entity) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Entities[e.Address] = e
	delete(c.undecodable, e.Address)
}

// MarkUndecodable records a failed decode and returns the number of
// consecutive frames the address has failed.
func (c *EntityCache) MarkUndecodable(addr core.Address) int {
	c.m.Lock()
	defer c.m.Unlock()
	c.undecodable[addr]++
	return c.undecodable[addr]
}

// Undecodable returns the failure streak of addr, or 0.
func (c *EntityCache) Undecodable(addr core.Address) int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.undecodable[addr]
}

// Retain drops every address that is not in live and returns how many
// entities were evicted.
func (c *EntityCache) Retain(live []core.Address) int {
	keep := make(map[core.Address]struct{}, len(live))
	for _, a := range live {
		keep[a] = struct{}{}
	}

	c.m.Lock()
	defer c.m.Unlock()
	evicted := 0
	for a := range c.Entities {
		if _, ok := keep[a]; !ok {
			delete(c.Entities, a)
			evicted++
		}
	}
	for a := range c.undecodable {
		if _, ok := keep[a]; !ok {
			delete(c.undecodable, a)
		}
	}
	return evicted
}

func (c *EntityCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Entities)
}

// Snapshot returns the cached entities ordered by address.
func (c *EntityCache) Snapshot() []core.Entity {
	c.m.Lock()
	out := make([]core.Entity, 0, len(c.Entities))
	for _, e := range c.Entities {
		out = append(out, e)
	}
	c.m.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
