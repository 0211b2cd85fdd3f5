package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lviewgo/recorder/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := GetSqliteDB(MemoryDSN(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestSetup_MigratesAndRecordsInstance(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, Setup(db, "desk-1", "v0.3.0"))
	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T not migrated", m)
	}

	// a second setup must not add another instance row
	require.NoError(t, Setup(db, "desk-1", "v0.3.0"))

	var infos []model.RecorderInfo
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "desk-1", infos[0].InstanceName)
	assert.Equal(t, "v0.3.0", infos[0].RecorderVersion)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Setup(db, "desk-1", "dev"))

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := GetSqliteDB(path)
	require.NoError(t, err)
	var n int64
	require.NoError(t, disk.Model(&model.RecorderInfo{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	err := DumpMemoryDBToDisk(newTestDB(t), "")
	assert.EqualError(t, err, "sqlite file path not set")
}

func TestManagerDumpMemoryToDisk(t *testing.T) {
	m := NewManager(zerolog.Nop())
	m.DB = newTestDB(t)
	require.NoError(t, m.Setup("desk-2", "dev"))

	m.SqliteFilePath = filepath.Join(t.TempDir(), "manager.db")
	require.NoError(t, m.DumpMemoryToDisk())
	_, err := os.Stat(m.SqliteFilePath)
	assert.NoError(t, err)
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.db", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.db"), 0755))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}, paths)
}
