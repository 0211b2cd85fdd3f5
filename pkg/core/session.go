package core

import "time"

// Session represents one recording of a running game process.
type Session struct {
	ID               uint
	StartTime        time.Time
	ProcessID        int
	GameVersion      string
	LayoutName       string
	CaptureInterval  time.Duration
	RecorderVersion  string
	KindTableVersion string
}

// UploadMetadata describes a finished export file.
type UploadMetadata struct {
	GameVersion     string
	StartTime       time.Time
	SessionDuration float64
	EntityCount     int
}

// EntityState is one decoded entity as recorded on one frame.
type EntityState struct {
	SessionID uint
	Frame     uint
	GameTime  float32
	Time      time.Time
	Degraded  bool
	// Label is the kind table label of Entity.Type, empty when unknown.
	Label  string
	Entity Entity
}

// FrameStats summarizes one scan of the object list.
type FrameStats struct {
	SessionID uint
	Frame     uint
	GameTime  float32
	Time      time.Time
	Duration  time.Duration

	Listed   int
	Decoded  int
	Degraded int
	Failed   int
	Unknown  int
	Evicted  int

	// Categories counts decoded entities per category flag name.
	Categories map[string]int
}
