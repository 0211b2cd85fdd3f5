// Package scanner decodes every listed game object once per frame and hands
// the results to the cache, the storage backend and the metrics sinks.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/lviewgo/recorder/internal/cache"
	"github.com/lviewgo/recorder/internal/loader"
	"github.com/lviewgo/recorder/internal/memory"
	"github.com/lviewgo/recorder/internal/session"
	"github.com/lviewgo/recorder/internal/storage"
	"github.com/lviewgo/recorder/pkg/core"
)

// Logger is the key-value logger the scanner writes to. *slog.Logger and
// logging.ZerologLogger satisfy it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ObjectLister walks the game's object manager.
type ObjectLister interface {
	ListObjects(ctx context.Context) ([]core.Address, error)
}

// GameClock reports the current game time in seconds.
type GameClock interface {
	GameTime(ctx context.Context) (float32, error)
}

// StatsWriter receives the summary of every frame. influx.Manager
// satisfies it.
type StatsWriter interface {
	WriteFrame(ctx context.Context, stats core.FrameStats) error
}

// Dependencies holds all dependencies for the scan manager
type Dependencies struct {
	Loader  *loader.Loader
	Reader  memory.Reader
	Lister  ObjectLister
	Clock   GameClock
	Cache   *cache.EntityCache
	Session *session.Context
	Backend storage.Backend
	Stats   StatsWriter // optional
	Logger  Logger
}

// Options controls one scan loop.
type Options struct {
	Interval time.Duration
	Workers  int
	DeepLoad bool
	// AcceptShallowOnDeepFailure keeps an entity whose unit info could not
	// be read, marked degraded. When false such objects count as failed.
	AcceptShallowOnDeepFailure bool
	// MaxFrames stops Run after that many frames; 0 runs until ctx ends.
	MaxFrames int
}

// Manager runs frame scans.
type Manager struct {
	deps    Dependencies
	opts    Options
	metrics *instruments
}

// NewManager validates the dependencies and creates the metric instruments.
func NewManager(deps Dependencies, opts Options) (*Manager, error) {
	switch {
	case deps.Loader == nil:
		return nil, errors.New("scanner: loader is required")
	case deps.Reader == nil:
		return nil, errors.New("scanner: reader is required")
	case deps.Lister == nil:
		return nil, errors.New("scanner: object lister is required")
	case deps.Clock == nil:
		return nil, errors.New("scanner: game clock is required")
	case deps.Cache == nil:
		return nil, errors.New("scanner: entity cache is required")
	case deps.Session == nil:
		return nil, errors.New("scanner: session context is required")
	case deps.Backend == nil:
		return nil, errors.New("scanner: storage backend is required")
	case deps.Logger == nil:
		return nil, errors.New("scanner: logger is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	in, err := newInstruments()
	if err != nil {
		return nil, err
	}
	return &Manager{deps: deps, opts: opts, metrics: in}, nil
}

// StartSession registers s with the backend and starts counting frames from
// zero. Cached entities belong to the previous session and are dropped.
func (m *Manager) StartSession(s *core.Session) error {
	if err := m.deps.Backend.StartSession(s); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	m.deps.Session.SetSession(s)
	m.deps.Cache.Reset()
	return nil
}

type result struct {
	addr   core.Address
	entity core.Entity
	err    error
}

// Scan decodes every listed object once. Individual objects that cannot be
// decoded are counted, not returned; only a failure to list objects or read
// the clock fails the frame.
func (m *Manager) Scan(ctx context.Context) (core.FrameStats, error) {
	start := time.Now()

	addrs, err := m.deps.Lister.ListObjects(ctx)
	if err != nil {
		return core.FrameStats{}, fmt.Errorf("listing objects: %w", err)
	}
	gameTime, err := m.deps.Clock.GameTime(ctx)
	if err != nil {
		return core.FrameStats{}, fmt.Errorf("reading game clock: %w", err)
	}

	frame := m.deps.Session.Advance(gameTime)
	sessionID := m.deps.Session.GetSession().ID

	results := make([]result, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)
	for i, addr := range addrs {
		g.Go(func() error {
			e, err := m.load(gctx, addr, gameTime)
			results[i] = result{addr: addr, entity: e, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return core.FrameStats{}, err
	}

	stats := core.FrameStats{
		SessionID:  sessionID,
		Frame:      frame,
		GameTime:   gameTime,
		Time:       start,
		Listed:     len(addrs),
		Categories: map[string]int{},
	}
	codec := m.deps.Loader.Codec()

	var recordErrs []error
	for _, r := range results {
		degraded := false
		switch {
		case r.err == nil:
		case errors.Is(r.err, loader.ErrDeepLoad) && m.opts.AcceptShallowOnDeepFailure:
			degraded = true
			m.deps.Logger.Debug("Keeping entity without unit info", "address", fmt.Sprintf("%#x", r.addr), "error", r.err)
		default:
			stats.Failed++
			streak := m.deps.Cache.MarkUndecodable(r.addr)
			m.deps.Logger.Debug("Object not decodable", "address", fmt.Sprintf("%#x", r.addr), "streak", streak, "error", r.err)
			continue
		}

		stats.Decoded++
		if degraded {
			stats.Degraded++
		}
		if r.entity.Type == core.NoObject {
			stats.Unknown++
		}
		for _, name := range r.entity.Type.Flags().Names() {
			stats.Categories[name]++
		}

		m.deps.Cache.Put(r.entity)
		if err := m.deps.Backend.RecordEntity(&core.EntityState{
			SessionID: sessionID,
			Frame:     frame,
			GameTime:  gameTime,
			Time:      start,
			Degraded:  degraded,
			Label:     codec.Label(r.entity.Type),
			Entity:    r.entity,
		}); err != nil {
			recordErrs = append(recordErrs, err)
		}
	}

	stats.Evicted = m.deps.Cache.Retain(addrs)
	stats.Duration = time.Since(start)

	if err := m.deps.Backend.RecordFrame(&stats); err != nil {
		recordErrs = append(recordErrs, err)
	}
	if err := errors.Join(recordErrs...); err != nil {
		m.deps.Logger.Error("Failed to record frame", "frame", frame, "error", err)
	}
	if m.deps.Stats != nil {
		if err := m.deps.Stats.WriteFrame(ctx, stats); err != nil {
			m.deps.Logger.Warn("Failed to write frame stats", "frame", frame, "error", err)
		}
	}

	m.observe(ctx, stats)
	return stats, nil
}

func (m *Manager) load(ctx context.Context, addr core.Address, gameTime float32) (core.Entity, error) {
	opts := []loader.Option{loader.AtGameTime(gameTime)}
	if prev, ok := m.deps.Cache.Get(addr); ok {
		opts = append(opts, loader.WithPrevious(prev))
	}
	if !m.opts.DeepLoad {
		opts = append(opts, loader.ShallowOnly())
	}
	return m.deps.Loader.Load(ctx, addr, m.deps.Reader, opts...)
}

func (m *Manager) observe(ctx context.Context, stats core.FrameStats) {
	m.metrics.decoded.Add(ctx, int64(stats.Decoded))
	m.metrics.degraded.Add(ctx, int64(stats.Degraded))
	m.metrics.failed.Add(ctx, int64(stats.Failed))
	m.metrics.unknown.Add(ctx, int64(stats.Unknown))
	m.metrics.evicted.Add(ctx, int64(stats.Evicted))
	m.metrics.duration.Record(ctx, float64(stats.Duration.Microseconds())/1000,
		metric.WithAttributes(attribute.Bool("deep", m.opts.DeepLoad)))
}

// Run scans on every tick of Options.Interval until ctx is done or
// MaxFrames frames were scanned. A frame that fails is logged and the loop
// goes on.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := 0
	for {
		stats, err := m.Scan(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			m.deps.Logger.Warn("Frame scan failed", "error", err)
		default:
			frames++
			m.deps.Logger.Debug("Frame scanned",
				"frame", stats.Frame,
				"decoded", stats.Decoded,
				"failed", stats.Failed,
				"duration", stats.Duration)
		}
		if m.opts.MaxFrames > 0 && frames >= m.opts.MaxFrames {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
