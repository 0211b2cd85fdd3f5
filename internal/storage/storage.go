package storage

import "github.com/lviewgo/recorder/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (assigns ID to the passed pointer)
	StartSession(s *core.Session) error
	EndSession() error

	// State recording
	RecordEntity(s *core.EntityState) error
	RecordFrame(f *core.FrameStats) error
}

// Uploadable is an optional interface for storage backends that produce
// a file per session.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
