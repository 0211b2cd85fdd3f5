package memory

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lviewgo/recorder/pkg/core"
)

// Region is a contiguous copy of process memory.
type Region struct {
	Base core.Address `json:"base"`
	Data []byte       `json:"data"`
}

func (r Region) contains(addr core.Address, n int) bool {
	if addr < r.Base {
		return false
	}
	off := uint64(addr - r.Base)
	return off+uint64(n) <= uint64(len(r.Data))
}

// SnapshotReader serves reads from captured regions. It is used for replay
// of dump files and as the read capability in tests.
type SnapshotReader struct {
	mu      sync.RWMutex
	regions []Region
	faults  map[core.Address]error
	reads   atomic.Int64
}

// NewSnapshotReader creates a reader over the given regions.
func NewSnapshotReader(regions ...Region) *SnapshotReader {
	s := &SnapshotReader{faults: make(map[core.Address]error)}
	for _, r := range regions {
		s.Map(r.Base, r.Data)
	}
	return s
}

// Map adds or replaces the region starting at base.
func (s *SnapshotReader) Map(base core.Address, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.regions {
		if r.Base == base {
			s.regions[i].Data = data
			return
		}
	}
	s.regions = append(s.regions, Region{Base: base, Data: data})
	sort.Slice(s.regions, func(i, j int) bool { return s.regions[i].Base < s.regions[j].Base })
}

// Fail makes every read starting at addr return err until Heal is called.
func (s *SnapshotReader) Fail(addr core.Address, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[addr] = err
}

// Heal removes a fault installed with Fail.
func (s *SnapshotReader) Heal(addr core.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, addr)
}

// Reads returns the number of ReadMemory calls served so far.
func (s *SnapshotReader) Reads() int64 {
	return s.reads.Load()
}

// Regions returns a copy of the mapped regions.
func (s *SnapshotReader) Regions() []Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// ReadMemory implements Reader.
func (s *SnapshotReader) ReadMemory(ctx context.Context, addr core.Address, buf []byte) error {
	s.reads.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.faults[addr]; ok {
		return err
	}
	for _, r := range s.regions {
		if r.contains(addr, len(buf)) {
			off := addr - r.Base
			copy(buf, r.Data[off:])
			return nil
		}
	}
	return ErrAddressNotMapped
}

// Dump is a saved snapshot of the object regions of one frame.
type Dump struct {
	CapturedAt  time.Time      `json:"capturedAt"`
	GameVersion string         `json:"gameVersion"`
	GameTime    float32        `json:"gameTime"`
	Objects     []core.Address `json:"objects"`
	Regions     []Region       `json:"regions"`
}

// SaveDump writes d as gzipped JSON.
func SaveDump(path string, d Dump) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	if err := writeDump(f, d); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close dump file: %w", err)
	}
	return nil
}

// writeDump gzips d as JSON into w. The gzip trailer is only written by
// Close, so its error is the one that tells whether the dump is complete.
func writeDump(w io.Writer, d Dump) error {
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(d); err != nil {
		gzWriter.Close()
		return fmt.Errorf("error encoding dump: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush dump: %w", err)
	}
	return nil
}

// LoadDump reads a dump written by SaveDump.
func LoadDump(path string) (Dump, error) {
	var d Dump

	f, err := os.Open(path)
	if err != nil {
		return d, fmt.Errorf("failed to open dump file: %w", err)
	}
	defer f.Close()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		return d, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gzReader.Close()

	if err := json.NewDecoder(gzReader).Decode(&d); err != nil {
		return d, fmt.Errorf("error decoding dump: %w", err)
	}
	return d, nil
}
