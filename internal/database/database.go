package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lviewgo/recorder/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SharedMemoryDSN is the in-memory database used by the sqlite backend.
const SharedMemoryDSN = "file::memory:?cache=shared"

// MemoryDSN names a private in-memory database, shared by every connection
// opened with the same name.
func MemoryDSN(name string) string {
	return "file:" + strings.NewReplacer("/", "_", " ", "_").Replace(name) + "?mode=memory&cache=shared"
}

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		IsValid:         false,
		ShouldSaveLocal: false,
		Logger:          log,
	}
}

// Connect establishes a database connection, falling back to an in-memory
// SQLite database if Postgres is unreachable.
func (m *Manager) Connect() error {
	var err error

	m.DB, err = GetPostgresDB()
	if err == nil {
		m.SqlDB, err = m.DB.DB()
		if err == nil {
			err = m.SqlDB.Ping()
		}
	}

	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		m.ShouldSaveLocal = true
		m.DB, err = GetSqliteDB("")
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
		m.Logger.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
		if m.SqlDB, err = m.DB.DB(); err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
	} else {
		m.Logger.Info().Msg("Connected to database")
		m.SqlDB.SetMaxOpenConns(10)
	}

	m.IsValid = true
	return nil
}

// Setup migrates the schema on the managed connection.
func (m *Manager) Setup(instanceName, version string) error {
	m.Logger.Info().Msg("Migrating schema")
	if err := Setup(m.DB, instanceName, version); err != nil {
		m.IsValid = false
		return err
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// DumpMemoryToDisk vacuums the in-memory database to SqliteFilePath.
func (m *Manager) DumpMemoryToDisk() error {
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, m.SqliteFilePath); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Msg("Dumped memory DB to disk")
	return nil
}

// GetPostgresDB returns a connection to the Postgres database using viper config.
func GetPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetSqliteDB returns a connection to a SQLite database.
// If dsn is empty, the shared in-memory database is used.
func GetSqliteDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = SharedMemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Setup migrates every table and records the recorder instance the first
// time the database is used.
func Setup(db *gorm.DB, instanceName, version string) error {
	if !db.Migrator().HasTable(&model.RecorderInfo{}) {
		if err := db.AutoMigrate(&model.RecorderInfo{}); err != nil {
			return fmt.Errorf("failed to create recorder_infos table: %w", err)
		}
		if err := db.Create(&model.RecorderInfo{
			InstanceName:    instanceName,
			RecorderVersion: version,
		}).Error; err != nil {
			return fmt.Errorf("failed to create recorder_infos entry: %w", err)
		}
	}

	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	// remove existing file if it exists
	if exists, err := os.Stat(sqliteFilePath); err == nil && exists != nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	err := db.Exec("VACUUM INTO 'file:" + sqliteFilePath + "';").Error
	if err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}

	return nil
}

// GetBackupDBPaths returns paths to all .db files in the given directory.
func GetBackupDBPaths(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var dbPaths []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".db") {
			dbPaths = append(dbPaths, filepath.Join(dir, file.Name()))
		}
	}
	return dbPaths, nil
}
