package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/internal/storage"
	"github.com/lviewgo/recorder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Uploadable interface
var _ storage.Uploadable = (*Backend)(nil)

var sessionStart = time.Date(2026, 6, 14, 19, 30, 0, 0, time.UTC)

func newSession() *core.Session {
	return &core.Session{
		StartTime:        sessionStart,
		GameVersion:      "14.3 Live",
		LayoutName:       "default",
		CaptureInterval:  250 * time.Millisecond,
		RecorderVersion:  "dev",
		KindTableVersion: "builtin",
	}
}

func state(frame uint, gameTime float32, addr core.Address, health float32) *core.EntityState {
	return &core.EntityState{
		Frame:    frame,
		GameTime: gameTime,
		Label:    "Baron",
		Entity: core.Entity{
			Name:      "SRU_Baron",
			Address:   addr,
			Type:      core.MustTypeCode(core.Jungle|core.Objective, 6),
			Team:      core.TeamNeutral,
			Position:  core.Vector3{X: 4950, Y: -71, Z: 10400},
			Health:    health,
			IsAlive:   true,
			IsVisible: frame%2 == 0,
			Deep:      true,
		},
	}
}

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: "/tmp/test", CompressOutput: true})
	require.NotNil(t, b)
	assert.Equal(t, "/tmp/test", b.cfg.OutputDir)
	assert.True(t, b.cfg.CompressOutput)
	assert.NotNil(t, b.entities)
	assert.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestStartSession_AssignsIDAndResets(t *testing.T) {
	b := New(config.MemoryConfig{})

	first := newSession()
	require.NoError(t, b.StartSession(first))
	require.NoError(t, b.RecordEntity(state(1, 10, 0x10000, 9000)))
	require.NoError(t, b.RecordFrame(&core.FrameStats{Frame: 1}))

	second := newSession()
	require.NoError(t, b.StartSession(second))

	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)
	_, ok := b.GetEntity(0x10000)
	assert.False(t, ok)
	assert.Equal(t, 0, b.FrameCount())
}

func TestRecordEntity_GroupsByAddress(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartSession(newSession()))

	require.NoError(t, b.RecordEntity(state(3, 10, 0x10000, 9000)))
	require.NoError(t, b.RecordEntity(state(4, 10.25, 0x10000, 8800)))
	require.NoError(t, b.RecordEntity(state(4, 10.25, 0x20000, 500)))

	rec, ok := b.GetEntity(0x10000)
	require.True(t, ok)
	assert.Equal(t, uint(3), rec.FirstFrame)
	require.Len(t, rec.States, 2)
	assert.Equal(t, float32(8800), rec.States[1].Entity.Health)
}

func TestEndSession_WithoutSession(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	assert.NoError(t, b.EndSession())
	assert.Empty(t, b.GetExportedFilePath())
}

func TestExport(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		file     string
	}{
		{"plain", false, "lview_14.3_Live_20260614_193000.json"},
		{"gzip", true, "lview_14.3_Live_20260614_193000.json.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: tt.compress})
			require.NoError(t, b.StartSession(newSession()))

			require.NoError(t, b.RecordEntity(state(1, 100, 0x10000, 9000)))
			require.NoError(t, b.RecordEntity(state(2, 100.25, 0x10000, 8900)))
			require.NoError(t, b.RecordFrame(&core.FrameStats{Frame: 1, GameTime: 100, Time: sessionStart, Decoded: 1}))
			require.NoError(t, b.RecordFrame(&core.FrameStats{Frame: 2, GameTime: 100.25, Time: sessionStart, Decoded: 1, Duration: 2 * time.Millisecond}))
			require.NoError(t, b.EndSession())

			path := filepath.Join(dir, tt.file)
			assert.Equal(t, path, b.GetExportedFilePath())

			export := readExport(t, path, tt.compress)
			assert.Equal(t, "14.3 Live", export.GameVersion)
			assert.Equal(t, "builtin", export.KindTableVersion)
			assert.Equal(t, 0.25, export.CaptureDelay)
			assert.Equal(t, uint(2), export.EndFrame)
			require.Len(t, export.Entities, 1)

			e := export.Entities[0]
			assert.Equal(t, uint64(0x10000), e.Address)
			assert.Equal(t, "Baron", e.Label)
			assert.Equal(t, []string{"Jungle", "Objective"}, e.Categories)
			assert.Equal(t, "neutral", e.Team)
			require.Len(t, e.Positions, 2)
			// frame, gameTime, x, y, z, health, alive, visible, deep
			assert.Equal(t, []any{2.0, 100.25, 4950.0, -71.0, 10400.0, 8900.0, 1.0, 1.0, 1.0}, e.Positions[1])

			require.Len(t, export.Frames, 2)
			assert.Equal(t, 2.0, export.Frames[1].DurationMs)

			meta := b.GetExportMetadata()
			assert.Equal(t, 1, meta.EntityCount)
			assert.InDelta(t, 0.25, meta.SessionDuration, 1e-6)
		})
	}
}

func readExport(t *testing.T, path string, compressed bool) Export {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var export Export
	if compressed {
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer gz.Close()
		require.NoError(t, json.NewDecoder(gz).Decode(&export))
	} else {
		require.NoError(t, json.NewDecoder(f).Decode(&export))
	}
	return export
}
