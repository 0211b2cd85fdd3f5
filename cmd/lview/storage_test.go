package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/internal/logging"
	gormstorage "github.com/lviewgo/recorder/internal/storage/gorm"
	"github.com/lviewgo/recorder/internal/storage/memory"
	sqlitestorage "github.com/lviewgo/recorder/internal/storage/sqlite"
)

func setupTestLogger(t *testing.T) {
	t.Helper()
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "error", nil)
	Logger = SlogManager.Logger()
}

func TestCreateStorageBackend(t *testing.T) {
	setupTestLogger(t)

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		checkFn func(t *testing.T, b any)
	}{
		{
			name: "memory is the default",
			cfg:  config.StorageConfig{Type: "unknown"},
			checkFn: func(t *testing.T, b any) {
				assert.IsType(t, &memory.Backend{}, b)
			},
		},
		{
			name: "postgres",
			cfg:  config.StorageConfig{Type: "postgres"},
			checkFn: func(t *testing.T, b any) {
				assert.IsType(t, &gormstorage.Backend{}, b)
			},
		},
		{
			name: "sqlite",
			cfg:  config.StorageConfig{Type: "sqlite"},
			checkFn: func(t *testing.T, b any) {
				assert.IsType(t, &sqlitestorage.Backend{}, b)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := createStorageBackend(tt.cfg, t.TempDir())
			require.NoError(t, err)
			tt.checkFn(t, b)
		})
	}
}

func TestInstanceName(t *testing.T) {
	assert.NotEmpty(t, instanceName())
}
