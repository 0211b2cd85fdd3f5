// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are creating
// the in-memory DB and the periodic disk dump.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/internal/database"
	"github.com/lviewgo/recorder/internal/logging"
	gormstorage "github.com/lviewgo/recorder/internal/storage/gorm"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *logging.SlogManager
	stopChan chan struct{}
	done     chan struct{}
	started  bool
}

// New creates a new SQLite storage backend. dsn selects the in-memory
// database; empty means the shared default.
func New(cfg config.SQLiteConfig, dsn string, logManager *logging.SlogManager, version string) (*Backend, error) {
	db, err := database.GetSqliteDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// one connection serializes writers on the shared cache
	sqlDB.SetMaxOpenConns(1)

	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:           db,
		LogManager:   logManager,
		InstanceName: "local",
		Version:      version,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.started = true

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}

	return nil
}

// EndSession closes the session and writes a final dump.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes the current database to the dump path.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.WriteLog("sqlite:Dump", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	if b.started {
		<-b.done
	}
	return b.Backend.Close()
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			}
		}
	}
}
