package memory

import "sync"

// Scratch is the pair of buffers one decode works in: the primary object
// buffer and the deep (unit info) buffer.
type Scratch struct {
	Primary []byte
	Deep    []byte
}

// ScratchPool hands out Scratch pairs of fixed sizes. A pair belongs to one
// caller between Get and Put.
type ScratchPool struct {
	primarySize int
	deepSize    int
	pool        sync.Pool
}

// NewScratchPool creates a pool of buffer pairs with the given sizes.
func NewScratchPool(primarySize, deepSize int) *ScratchPool {
	p := &ScratchPool{
		primarySize: primarySize,
		deepSize:    deepSize,
	}
	p.pool.New = func() any {
		return &Scratch{
			Primary: make([]byte, primarySize),
			Deep:    make([]byte, deepSize),
		}
	}
	return p
}

// Get returns a pair with zeroed contents.
func (p *ScratchPool) Get() *Scratch {
	s := p.pool.Get().(*Scratch)
	clear(s.Primary)
	clear(s.Deep)
	return s
}

// Put returns a pair to the pool. Pairs of the wrong size are dropped.
func (p *ScratchPool) Put(s *Scratch) {
	if s == nil || len(s.Primary) != p.primarySize || len(s.Deep) != p.deepSize {
		return
	}
	p.pool.Put(s)
}

// PrimarySize returns the primary buffer size.
func (p *ScratchPool) PrimarySize() int {
	return p.primarySize
}

// DeepSize returns the deep buffer size.
func (p *ScratchPool) DeepSize() int {
	return p.deepSize
}
