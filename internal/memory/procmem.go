package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/lviewgo/recorder/pkg/core"
)

// ProcReader reads another process through /proc/<pid>/mem.
type ProcReader struct {
	pid  int
	mu   sync.RWMutex
	file *os.File
}

// OpenProcess opens the memory file of pid for reading.
func OpenProcess(pid int) (*ProcReader, error) {
	return openMemFile(pid, fmt.Sprintf("/proc/%d/mem", pid))
}

func openMemFile(pid int, path string) (*ProcReader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("open process %d: %w", pid, ErrAccessDenied)
		}
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	return &ProcReader{pid: pid, file: f}, nil
}

// PID returns the process id the reader is attached to.
func (p *ProcReader) PID() int {
	return p.pid
}

// ReadMemory implements Reader. It does not retry.
func (p *ProcReader) ReadMemory(ctx context.Context, addr core.Address, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.file == nil {
		return ErrProcessNotOpen
	}

	n, err := p.file.ReadAt(buf, int64(addr))
	if err != nil {
		return classifyReadErr(err)
	}
	if n < len(buf) {
		return ErrAddressNotMapped
	}
	return nil
}

// Close releases the handle. Later reads fail with ErrProcessNotOpen.
func (p *ProcReader) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

func classifyReadErr(err error) error {
	switch {
	case errors.Is(err, syscall.EIO), errors.Is(err, syscall.EFAULT), errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %v", ErrAddressNotMapped, err)
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	case errors.Is(err, syscall.ESRCH), errors.Is(err, os.ErrClosed):
		return fmt.Errorf("%w: %v", ErrProcessNotOpen, err)
	default:
		return err
	}
}
