package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lviewgo/recorder/pkg/core"
)

func TestEntityCache_NewEntityCache(t *testing.T) {
	cache := NewEntityCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.Entities)
	assert.Equal(t, 0, cache.Len())
}

func TestEntityCache_PutAndGet(t *testing.T) {
	cache := NewEntityCache()

	e := core.Entity{Name: "SRU_Baron", Address: 0x1000, NetworkID: 7, Health: 9000}
	cache.Put(e)

	got, ok := cache.Get(0x1000)
	require.True(t, ok)
	assert.Equal(t, e, got)

	_, ok = cache.Get(0x2000)
	assert.False(t, ok)
}

func TestEntityCache_PutReplaces(t *testing.T) {
	cache := NewEntityCache()

	cache.Put(core.Entity{Address: 0x1000, Health: 100})
	cache.Put(core.Entity{Address: 0x1000, Health: 50})

	got, _ := cache.Get(0x1000)
	assert.Equal(t, float32(50), got.Health)
	assert.Equal(t, 1, cache.Len())
}

func TestEntityCache_Undecodable(t *testing.T) {
	cache := NewEntityCache()
	cache.Put(core.Entity{Address: 0x1000, Health: 100})

	assert.Equal(t, 1, cache.MarkUndecodable(0x1000))
	assert.Equal(t, 2, cache.MarkUndecodable(0x1000))
	assert.Equal(t, 2, cache.Undecodable(0x1000))

	// the last good value survives a failed frame
	got, ok := cache.Get(0x1000)
	require.True(t, ok)
	assert.Equal(t, float32(100), got.Health)

	cache.Put(core.Entity{Address: 0x1000, Health: 90})
	assert.Equal(t, 0, cache.Undecodable(0x1000))
}

func TestEntityCache_Retain(t *testing.T) {
	cache := NewEntityCache()
	cache.Put(core.Entity{Address: 0x1000})
	cache.Put(core.Entity{Address: 0x2000})
	cache.Put(core.Entity{Address: 0x3000})
	cache.MarkUndecodable(0x4000)

	evicted := cache.Retain([]core.Address{0x2000, 0x5000})

	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get(0x2000)
	assert.True(t, ok)
	assert.Equal(t, 0, cache.Undecodable(0x4000))
}

func TestEntityCache_SnapshotOrdered(t *testing.T) {
	cache := NewEntityCache()
	cache.Put(core.Entity{Address: 0x3000})
	cache.Put(core.Entity{Address: 0x1000})
	cache.Put(core.Entity{Address: 0x2000})

	snap := cache.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, core.Address(0x1000), snap[0].Address)
	assert.Equal(t, core.Address(0x2000), snap[1].Address)
	assert.Equal(t, core.Address(0x3000), snap[2].Address)
}

func TestEntityCache_Reset(t *testing.T) {
	cache := NewEntityCache()
	cache.Put(core.Entity{Address: 0x1000})
	cache.MarkUndecodable(0x2000)

	cache.Reset()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.Undecodable(0x2000))
}

func TestEntityCache_ConcurrentAccess(t *testing.T) {
	cache := NewEntityCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(addr core.Address) {
			defer wg.Done()
			cache.Put(core.Entity{Address: addr})
		}(core.Address(i))
		go func(addr core.Address) {
			defer wg.Done()
			cache.MarkUndecodable(addr + 1000)
		}(core.Address(i))
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}
