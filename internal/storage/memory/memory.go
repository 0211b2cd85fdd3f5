package memory

import (
	"sync"

	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/pkg/core"
)

// EntityRecord groups one object address with every state recorded for it
type EntityRecord struct {
	Address    core.Address
	FirstFrame uint
	States     []core.EntityState
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	entities map[core.Address]*EntityRecord
	order    []core.Address
	frames   []core.FrameStats

	idCounter      uint
	lastExportPath string
	lastExportMeta core.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		entities: make(map[core.Address]*EntityRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	b.session = s

	b.entities = make(map[core.Address]*EntityRecord)
	b.order = nil
	b.frames = nil

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.exportJSON()
}

// RecordEntity appends a state to the record of its address
func (b *Backend) RecordEntity(s *core.EntityState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	addr := s.Entity.Address
	rec, ok := b.entities[addr]
	if !ok {
		rec = &EntityRecord{Address: addr, FirstFrame: s.Frame}
		b.entities[addr] = rec
		b.order = append(b.order, addr)
	}
	rec.States = append(rec.States, *s)
	return nil
}

// RecordFrame stores the statistics of one scan
func (b *Backend) RecordFrame(f *core.FrameStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, *f)
	return nil
}

// GetEntity returns the record of an address
func (b *Backend) GetEntity(addr core.Address) (*EntityRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.entities[addr]
	return rec, ok
}

// FrameCount returns the number of frames recorded in the current session
func (b *Backend) FrameCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}

// GetExportedFilePath returns the path of the last export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
