package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lviewgo/recorder/internal/cache"
	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/internal/logging"
	"github.com/lviewgo/recorder/internal/memory"
	"github.com/lviewgo/recorder/internal/scanner"
	"github.com/lviewgo/recorder/internal/session"
	memstorage "github.com/lviewgo/recorder/internal/storage/memory"
	"github.com/lviewgo/recorder/pkg/core"
)

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	outDir := fs.String("o", "", "write the decoded frame as a JSON export into this directory")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("replay: expected exactly one dump file")
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if err := config.Load(*configDir); err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults!")
	}

	dump, err := memory.LoadDump(fs.Arg(0))
	if err != nil {
		return err
	}
	l, layoutName, err := newLoader()
	if err != nil {
		return err
	}
	log.Info().
		Str("file", fs.Arg(0)).
		Str("gameVersion", dump.GameVersion).
		Str("layout", layoutName).
		Int("objects", len(dump.Objects)).
		Msg("Replaying dump")

	backend := memstorage.New(config.MemoryConfig{OutputDir: *outDir})
	s := &core.Session{
		StartTime:       dump.CapturedAt,
		GameVersion:     dump.GameVersion,
		LayoutName:      layoutName,
		RecorderVersion: Version,
	}
	entities := cache.NewEntityCache()
	scanCfg := config.GetScanConfig()
	manager, err := scanner.NewManager(scanner.Dependencies{
		Loader:  l,
		Reader:  memory.NewSnapshotReader(dump.Regions...),
		Lister:  scanner.StaticLister(dump.Objects),
		Clock:   scanner.FixedClock(dump.GameTime),
		Cache:   entities,
		Session: session.NewContext(),
		Backend: backend,
		Logger:  logging.NewZerologLogger(log),
	}, scanner.Options{
		Workers:                    scanCfg.Workers,
		DeepLoad:                   true,
		AcceptShallowOnDeepFailure: scanCfg.AcceptShallowOnDeepFailure,
	})
	if err != nil {
		return err
	}
	if err := manager.StartSession(s); err != nil {
		return err
	}

	stats, err := manager.Scan(context.Background())
	if err != nil {
		return err
	}

	codec := l.Codec()
	for _, e := range entities.Snapshot() {
		log.Info().
			Str("address", fmt.Sprintf("%#x", e.Address)).
			Str("name", e.Name).
			Stringer("type", e.Type).
			Str("label", codec.Label(e.Type)).
			Stringer("team", e.Team).
			Float32("attackRange", e.AttackRange()).
			Bool("deep", e.Deep).
			Msg("Entity")
	}
	log.Info().
		Int("decoded", stats.Decoded).
		Int("degraded", stats.Degraded).
		Int("failed", stats.Failed).
		Int("unknown", stats.Unknown).
		Dur("duration", stats.Duration).
		Msg("Replay finished")

	if *outDir == "" {
		return nil
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := backend.EndSession(); err != nil {
		return err
	}
	log.Info().Str("path", backend.GetExportedFilePath()).Msg("Export written")
	return nil
}
