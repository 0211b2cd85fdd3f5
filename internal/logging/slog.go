package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const instrumentationName = "lview-recorder"

// swapped in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger  *slog.Logger
	session SessionSource
	fanout  *Fanout

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case. Anything else is info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// SetSessionSource makes every record carry the running session. It takes
// effect on the next Setup.
func (m *SlogManager) SetSessionSource(src SessionSource) {
	m.session = src
}

// Setup initializes the logging system with file and optional OTel output.
// Without a file, records go to stdout. If provider is nil, OTel logging is
// disabled. Extra sinks (Graylog) receive every record as well.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...Sink) {
	lvl := parseLevel(level)
	m.logProvider = provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var sinks []Sink
	if file != nil {
		sinks = append(sinks, Sink{Name: "file", Handler: slog.NewTextHandler(file, handlerOpts)})
	} else {
		sinks = append(sinks, Sink{Name: "stdout", Handler: slog.NewTextHandler(osStdout, handlerOpts)})
	}
	if provider != nil {
		sinks = append(sinks, Sink{
			Name:    "otel",
			Handler: otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider)),
		})
	}
	sinks = append(sinks, extra...)

	m.fanout = NewFanout(sinks...)
	var handler slog.Handler = m.fanout
	if m.session != nil {
		handler = NewSessionHandler(handler, m.session)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// SinkFailures returns the failed writes per sink since the last Setup.
func (m *SlogManager) SinkFailures() map[string]int {
	if m.fanout == nil {
		return map[string]int{}
	}
	return m.fanout.Failures()
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog logs data at the named level, tagged with the calling function.
// The storage backends log through it.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "function", functionName)
}
