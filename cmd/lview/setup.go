package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/lviewgo/recorder/internal/classify"
	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/internal/loader"
	"github.com/lviewgo/recorder/internal/logging"
	intOtel "github.com/lviewgo/recorder/internal/otel"
	"github.com/lviewgo/recorder/internal/session"
)

// setupLogging loads the config from configDir and sends slog output to the
// session log file, plus Graylog and OTel when enabled. A non-zero pid
// overrides process.pid in the log file name. The returned func flushes and
// closes all of it.
func setupLogging(configDir string, pid int, sc *session.Context) (func(), error) {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}

	if pid == 0 {
		pid = config.GetInt("process.pid")
	}
	logPath := logging.SessionLogPath(config.GetString("logsDir"), pid, SessionStartTime)
	logFile, err := logging.OpenSessionLog(logPath)
	if err != nil {
		return nil, err
	}
	closers := []io.Closer{logFile}

	level := config.GetString("logLevel")
	var extra []logging.Sink
	if config.GetBool("graylog.enabled") {
		addr := config.GetString("graylog.address")
		h, c, err := logging.NewGELFHandler(addr, level)
		if err != nil {
			Logger.Warn("Failed to connect to Graylog", "address", addr, "error", err)
		} else {
			extra = append(extra, logging.Sink{Name: "graylog", Handler: h})
			closers = append(closers, c)
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			MetricWriter: logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.SetSessionSource(sessionSource(sc))
	SlogManager.Setup(logFile, level, otelLogProvider, extra...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", logPath, "version", Version, "buildDate", BuildDate)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if OTelProvider != nil {
			if err := OTelProvider.Shutdown(ctx); err != nil {
				Logger.Warn("Failed to shut down OTel provider", "error", err)
			}
		}
		_ = SlogManager.Flush(ctx)
		for sink, n := range SlogManager.SinkFailures() {
			Logger.Warn("Log sink dropped records", "sink", sink, "failures", n)
		}
		for _, c := range closers {
			c.Close()
		}
	}, nil
}

// sessionSource stamps every log record with the running session once one
// has been started.
func sessionSource(sc *session.Context) logging.SessionSource {
	return func() (logging.SessionInfo, bool) {
		s := sc.GetSession()
		if s.ID == 0 {
			return logging.SessionInfo{}, false
		}
		return logging.SessionInfo{
			ID:          s.ID,
			GameVersion: s.GameVersion,
			Frame:       sc.Frame(),
			GameTime:    sc.GameTime(),
		}, true
	}
}

// componentLogger is the zerolog logger handed to the InfluxDB and database
// managers.
func componentLogger(w io.Writer, name string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("component", name).Logger()
}

// newLoader builds the loader from the layout section and the optional kind
// table file. It returns the layout name for the session record.
func newLoader() (*loader.Loader, string, error) {
	name, layout, err := config.GetLayoutConfig()
	if err != nil {
		return nil, "", err
	}

	var codec *classify.Codec
	if path := config.GetString("kinds.tableFile"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open kind table: %w", err)
		}
		defer f.Close()
		table, err := classify.LoadTable(f)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		codec = classify.NewCodec(table)
	}

	l, err := loader.New(layout, codec)
	if err != nil {
		return nil, "", fmt.Errorf("layout %q: %w", name, err)
	}
	return l, name, nil
}
