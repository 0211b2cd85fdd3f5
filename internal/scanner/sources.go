package scanner

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/lviewgo/recorder/internal/memory"
	"github.com/lviewgo/recorder/pkg/core"
)

// StaticLister reports a fixed set of object addresses every frame.
type StaticLister []core.Address

func (l StaticLister) ListObjects(context.Context) ([]core.Address, error) {
	out := make([]core.Address, len(l))
	copy(out, l)
	return out, nil
}

// MemoryClock reads the game clock, a little-endian float32 in seconds,
// from the target process.
type MemoryClock struct {
	Reader  memory.Reader
	Address core.Address
}

func (c MemoryClock) GameTime(ctx context.Context) (float32, error) {
	if c.Address == 0 {
		return 0, fmt.Errorf("game time: %w", memory.ErrInvalidPointer)
	}
	var buf [4]byte
	if err := memory.Read(ctx, c.Reader, c.Address, buf[:]); err != nil {
		return 0, fmt.Errorf("game time: %w", err)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

// FixedClock always reports the same game time. Replays of a single dump
// use it.
type FixedClock float32

func (c FixedClock) GameTime(context.Context) (float32, error) {
	return float32(c), nil
}

// WallClock reports seconds since Start, for processes whose clock address
// is not known.
type WallClock struct {
	Start time.Time
}

func (c WallClock) GameTime(context.Context) (float32, error) {
	return float32(time.Since(c.Start).Seconds()), nil
}
