package session

import (
	"sync"

	"github.com/lviewgo/recorder/pkg/core"
)

// Context holds the active recording session and the latest game clock.
type Context struct {
	mu       sync.RWMutex
	Session  *core.Session
	gameTime float32
	frame    uint
}

// NewContext creates a Context with no session started.
func NewContext() *Context {
	return &Context{
		Session: &core.Session{GameVersion: "No session started"},
	}
}

// GetSession returns the current session.
func (sc *Context) GetSession() *core.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Session
}

// SetSession replaces the current session and resets the clock.
func (sc *Context) SetSession(s *core.Session) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Session = s
	sc.gameTime = 0
	sc.frame = 0
}

// Advance stores the game time of a new frame and returns its number,
// starting at 1.
func (sc *Context) Advance(gameTime float32) uint {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gameTime = gameTime
	sc.frame++
	return sc.frame
}

// GameTime returns the game time of the latest frame.
func (sc *Context) GameTime() float32 {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.gameTime
}

// Frame returns the number of the latest frame.
func (sc *Context) Frame() uint {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.frame
}
