package loader

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/lviewgo/recorder/internal/memory"
	"github.com/lviewgo/recorder/pkg/core"
)

// fieldReader decodes little-endian values from one scratch buffer. The
// first out-of-range access is kept in err and later reads return zero.
type fieldReader struct {
	buf []byte
	err error
}

// fits reports whether [off, off+width) lies inside a buffer of size bytes
// without computing off+width, which can overflow.
func fits(off, width, size int) bool {
	return off >= 0 && width >= 0 && width <= size && off <= size-width
}

func (r *fieldReader) span(name string, off, width int) []byte {
	if r.err != nil {
		return nil
	}
	if !fits(off, width, len(r.buf)) {
		r.err = &memory.BufferOverrunError{Field: name, Offset: off, Width: width, Size: len(r.buf)}
		return nil
	}
	return r.buf[off : off+width]
}

func (r *fieldReader) u8(name string, off int) uint8 {
	b := r.span(name, off, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *fieldReader) i16(name string, off int) int16 {
	b := r.span(name, off, 2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

func (r *fieldReader) u32(name string, off int) uint32 {
	b := r.span(name, off, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *fieldReader) i32(name string, off int) int32 {
	return int32(r.u32(name, off))
}

func (r *fieldReader) f32(name string, off int) float32 {
	return math.Float32frombits(r.u32(name, off))
}

func (r *fieldReader) vec3(name string, off int) core.Vector3 {
	b := r.span(name, off, 12)
	if b == nil {
		return core.Vector3{}
	}
	return core.Vector3{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func (r *fieldReader) pointer(name string, off, size int) core.Address {
	b := r.span(name, off, size)
	if b == nil {
		return 0
	}
	if size == 8 {
		return core.Address(binary.LittleEndian.Uint64(b))
	}
	return core.Address(binary.LittleEndian.Uint32(b))
}

// cstring reads a NUL-terminated string stored inline in at most n bytes.
func (r *fieldReader) cstring(name string, off, n int) string {
	b := r.span(name, off, n)
	if b == nil {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
