package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lviewgo/recorder/internal/cache"
	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/internal/influx"
	"github.com/lviewgo/recorder/internal/loader"
	"github.com/lviewgo/recorder/internal/memory"
	"github.com/lviewgo/recorder/internal/scanner"
	"github.com/lviewgo/recorder/internal/session"
	"github.com/lviewgo/recorder/internal/storage"
	"github.com/lviewgo/recorder/pkg/core"
)

func runRecord(args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	pid := fs.Int("pid", 0, "target process id, overrides process.pid")
	maxFrames := fs.Int("frames", 0, "stop after this many frames (0 runs until interrupted)")
	fs.Parse(args)

	sc := session.NewContext()
	shutdown, err := setupLogging(*configDir, *pid, sc)
	if err != nil {
		return err
	}
	defer shutdown()

	proc, err := config.GetProcessConfig()
	if err != nil {
		return err
	}
	if *pid != 0 {
		proc.PID = *pid
	}
	if proc.PID == 0 {
		return errors.New("no target process: set process.pid or pass -pid")
	}
	if len(proc.Objects) == 0 {
		return errors.New("process.objects is empty")
	}

	l, layoutName, err := newLoader()
	if err != nil {
		return err
	}

	reader, err := memory.OpenProcess(proc.PID)
	if err != nil {
		return fmt.Errorf("failed to open process %d: %w", proc.PID, err)
	}
	defer reader.Close()
	Logger.Info("Attached to process", "pid", proc.PID, "layout", layoutName, "objects", len(proc.Objects))

	var clock scanner.GameClock = scanner.WallClock{Start: time.Now()}
	if proc.GameTimeAddress != 0 {
		clock = scanner.MemoryClock{Reader: reader, Address: proc.GameTimeAddress}
	} else {
		Logger.Warn("process.gameTimeAddress not set, using wall clock")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := createStorageBackend(config.GetStorageConfig(), config.GetString("logsDir"))
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	var stats scanner.StatsWriter
	if config.GetBool("influx.enabled") {
		backupPath := filepath.Join(config.GetString("logsDir"),
			fmt.Sprintf("%s_influx_%s.lp.gz", AppName, SessionStartTime.Format("20060102_150405")))
		im := influx.NewManager(componentLogger(os.Stderr, "influx"), backupPath)
		if err := im.Connect(ctx); err != nil {
			Logger.Warn("Failed to set up InfluxDB", "error", err)
		} else {
			stats = im
			defer im.Close()
		}
	}

	scanCfg := config.GetScanConfig()
	s := &core.Session{
		StartTime:        time.Now(),
		ProcessID:        proc.PID,
		GameVersion:      proc.GameVersion,
		LayoutName:       layoutName,
		CaptureInterval:  scanCfg.Interval,
		RecorderVersion:  Version,
		KindTableVersion: l.Codec().Table().Version(),
	}
	manager, err := scanner.NewManager(scanner.Dependencies{
		Loader:  l,
		Reader:  reader,
		Lister:  scanner.StaticLister(proc.Objects),
		Clock:   clock,
		Cache:   cache.NewEntityCache(),
		Session: sc,
		Backend: backend,
		Stats:   stats,
		Logger:  Logger,
	}, scanner.Options{
		Interval:                   scanCfg.Interval,
		Workers:                    scanCfg.Workers,
		DeepLoad:                   scanCfg.DeepLoad,
		AcceptShallowOnDeepFailure: scanCfg.AcceptShallowOnDeepFailure,
		MaxFrames:                  *maxFrames,
	})
	if err != nil {
		return err
	}
	if err := manager.StartSession(s); err != nil {
		return err
	}
	Logger.Info("Session started", "id", s.ID, "storage", config.GetStorageConfig().Type)

	runErr := manager.Run(ctx)

	if scanCfg.DumpPath != "" {
		captureDump(l, reader, clock, proc, scanCfg.DumpPath)
	}

	if err := backend.EndSession(); err != nil {
		Logger.Error("Failed to end session", "error", err)
	}
	if u, ok := backend.(storage.Uploadable); ok && u.GetExportedFilePath() != "" {
		meta := u.GetExportMetadata()
		Logger.Info("Recording exported",
			"path", u.GetExportedFilePath(),
			"entities", meta.EntityCount,
			"duration", meta.SessionDuration)
	}
	Logger.Info("Session ended", "id", s.ID, "frames", sc.Frame())
	return runErr
}

// captureDump saves the current object regions for offline replay.
func captureDump(l *loader.Loader, r memory.Reader, clock scanner.GameClock, proc config.ProcessConfig, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dump, err := l.Capture(ctx, r, proc.Objects)
	if err != nil {
		Logger.Error("Failed to capture dump", "error", err)
		return
	}
	dump.GameVersion = proc.GameVersion
	if t, err := clock.GameTime(ctx); err == nil {
		dump.GameTime = t
	}
	if err := memory.SaveDump(path, dump); err != nil {
		Logger.Error("Failed to save dump", "path", path, "error", err)
		return
	}
	Logger.Info("Saved memory dump", "path", path, "objects", len(dump.Objects), "regions", len(dump.Regions))
}
