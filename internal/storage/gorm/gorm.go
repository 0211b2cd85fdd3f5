// Package gormstorage implements the storage.Backend interface on any GORM
// database with internal queues and a background DB writer goroutine.
// Postgres is the default target; the sqlite backend wraps this one.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lviewgo/recorder/internal/database"
	"github.com/lviewgo/recorder/internal/logging"
	"github.com/lviewgo/recorder/internal/model"
	"github.com/lviewgo/recorder/internal/model/convert"
	"github.com/lviewgo/recorder/internal/queue"
	"github.com/lviewgo/recorder/pkg/core"

	"gorm.io/gorm"
)

const (
	// DefaultWriteInterval is how often queued rows are flushed to the DB.
	DefaultWriteInterval = 2 * time.Second
	// DefaultMaxQueued caps each write queue while the DB is unreachable.
	DefaultMaxQueued = 200_000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	InstanceName  string
	Version       string
	WriteInterval time.Duration
	MaxQueued     int
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	EntityStates *queue.Queue[model.EntityState]
	FrameStats   *queue.Queue[model.FrameStat]
}

func newQueues(limit int) *queues {
	return &queues{
		EntityStates: queue.NewBounded[model.EntityState](limit),
		FrameStats:   queue.NewBounded[model.FrameStat](limit),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	frames    atomic.Uint64
	writeMu   sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	dbReady   bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	if deps.MaxQueued <= 0 {
		deps.MaxQueued = DefaultMaxQueued
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	b.queues = newQueues(b.deps.MaxQueued)
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		db, err := database.GetPostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Setup(b.deps.DB, b.deps.InstanceName, b.deps.Version); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")
	b.dbReady = true

	b.startDBWriters()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// StartSession inserts the session row and makes its ID current.
func (b *Backend) StartSession(s *core.Session) error {
	if !b.dbReady {
		return fmt.Errorf("database not initialized")
	}

	row := convert.CoreToSession(*s)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	b.frames.Store(0)
	b.deps.LogManager.WriteLog("StartSession", fmt.Sprintf("Session %d started", row.ID), "INFO")
	return nil
}

// SessionID returns the ID of the current session, 0 if none.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// EndSession flushes pending rows and closes the session row.
func (b *Backend) EndSession() error {
	id := b.SessionID()
	if id == 0 {
		return nil
	}

	flushErr := b.Flush()
	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Updates(map[string]any{
		"end_time":    time.Now(),
		"frame_count": b.frames.Load(),
	}).Error
	if err != nil {
		err = fmt.Errorf("failed to close session %d: %w", id, err)
	}
	b.sessionID.Store(0)
	return errors.Join(flushErr, err)
}

// RecordEntity queues one entity state.
func (b *Backend) RecordEntity(s *core.EntityState) error {
	if n := b.queues.EntityStates.Push(convert.CoreToEntityState(*s)); n > 0 {
		b.deps.LogManager.Logger().Warn("Entity state queue full, dropped oldest rows", "dropped", n)
	}
	return nil
}

// RecordFrame queues one frame summary.
func (b *Backend) RecordFrame(f *core.FrameStats) error {
	if n := b.queues.FrameStats.Push(convert.CoreToFrameStat(*f)); n > 0 {
		b.deps.LogManager.Logger().Warn("Frame stat queue full, dropped oldest rows", "dropped", n)
	}
	b.frames.Add(1)
	return nil
}

// Flush writes every queued row now.
func (b *Backend) Flush() error {
	if !b.dbReady || b.queues == nil {
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	sessionID := b.SessionID()
	stampEntityStates := func(items []model.EntityState) {
		for i := range items {
			if items[i].SessionID == 0 {
				items[i].SessionID = sessionID
			}
		}
	}
	stampFrameStats := func(items []model.FrameStat) {
		for i := range items {
			if items[i].SessionID == 0 {
				items[i].SessionID = sessionID
			}
		}
	}

	log := b.deps.LogManager.WriteLog
	return errors.Join(
		writeQueue(b.deps.DB, b.queues.EntityStates, "entity states", log, stampEntityStates),
		writeQueue(b.deps.DB, b.queues.FrameStats, "frame stats", log, stampFrameStats),
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error starting %s batch: %v", name, tx.Error), "ERROR")
		return fmt.Errorf("failed to write %s: %w", name, tx.Error)
	}
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error committing %d %s: %v", len(items), name, err), "ERROR")
		if dropped := q.Requeue(items...); dropped > 0 {
			log(":DB:WRITER:", fmt.Sprintf("Dropped %d queued %s after failed commit", dropped, name), "WARN")
		}
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return nil
}

// startDBWriters starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriters() {
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.deps.WriteInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				// errors are logged by writeQueue and retried next cycle
				_ = b.Flush()
			}
		}
	}()
}
