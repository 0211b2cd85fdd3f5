package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/internal/storage"
	gormstorage "github.com/lviewgo/recorder/internal/storage/gorm"
	"github.com/lviewgo/recorder/internal/storage/memory"
	sqlitestorage "github.com/lviewgo/recorder/internal/storage/sqlite"
)

func createStorageBackend(storageCfg config.StorageConfig, logsDir string) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return gormstorage.New(gormstorage.Dependencies{
			LogManager:   SlogManager,
			InstanceName: instanceName(),
			Version:      Version,
		}), nil

	case "sqlite":
		sqliteCfg := storageCfg.SQLite
		if sqliteCfg.DumpPath == "" {
			sqliteCfg.DumpPath = filepath.Join(logsDir, fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqliteCfg, "", SlogManager, Version)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "dumpPath", sqliteCfg.DumpPath)
		return backend, nil

	default:
		Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil
	}
}

func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return AppName
	}
	return host
}
