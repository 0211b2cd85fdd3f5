// Package memory holds the read capability used to pull raw object bytes out
// of the game process, the errors it reports, and pooled scratch buffers.
package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/lviewgo/recorder/pkg/core"
)

var (
	// ErrAddressNotMapped is returned when an address is not inside any mapped region.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrAccessDenied is returned when the process refuses the read.
	ErrAccessDenied = errors.New("access denied")

	// ErrProcessNotOpen is returned when reading before open or after close.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrInvalidPointer is returned when a pointer decoded from memory is null.
	ErrInvalidPointer = errors.New("invalid pointer read")
)

// Reader reads process memory. ReadMemory fills buf completely or fails;
// a short read is a failure.
type Reader interface {
	ReadMemory(ctx context.Context, addr core.Address, buf []byte) error
}

// ReadError reports a failed read and the address that was attempted.
type ReadError struct {
	Address core.Address
	Length  int
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("memory read of %d bytes at %#x failed: %v", e.Length, uint64(e.Address), e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// BufferOverrunError reports a field that does not fit its scratch buffer,
// which means the decoder layout does not match the target process version.
type BufferOverrunError struct {
	Field  string
	Offset int
	Width  int
	Size   int
}

func (e *BufferOverrunError) Error() string {
	return fmt.Sprintf("field %s at %#x (+%d) overruns %#x byte buffer", e.Field, e.Offset, e.Width, e.Size)
}

// Read calls r.ReadMemory and wraps any failure in a *ReadError.
func Read(ctx context.Context, r Reader, addr core.Address, buf []byte) error {
	if err := r.ReadMemory(ctx, addr, buf); err != nil {
		var re *ReadError
		if errors.As(err, &re) {
			return err
		}
		return &ReadError{Address: addr, Length: len(buf), Err: err}
	}
	return nil
}
