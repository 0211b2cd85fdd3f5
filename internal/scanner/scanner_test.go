package scanner

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/lviewgo/recorder/internal/cache"
	"github.com/lviewgo/recorder/internal/config"
	"github.com/lviewgo/recorder/internal/loader"
	"github.com/lviewgo/recorder/internal/memory"
	"github.com/lviewgo/recorder/internal/session"
	memstorage "github.com/lviewgo/recorder/internal/storage/memory"
	"github.com/lviewgo/recorder/pkg/core"
)

const (
	baronAddr  core.Address = 0x10000
	minionAddr core.Address = 0x20000
	wardAddr   core.Address = 0x30000
	heroAddr   core.Address = 0x40000
)

type object struct {
	name     string
	team     int16
	visible  bool
	unitInfo core.Address
}

// world maps objects into a snapshot reader with the default layout.
type world struct {
	layout loader.Layout
	reader *memory.SnapshotReader
}

func newWorld() *world {
	return &world{layout: loader.DefaultLayout(), reader: memory.NewSnapshotReader()}
}

func (w *world) put(base core.Address, o object) {
	lay := w.layout
	primary := make([]byte, lay.PrimarySize)
	copy(primary[lay.Name:], o.name)
	binary.LittleEndian.PutUint16(primary[lay.Team:], uint16(o.team))
	if o.visible {
		primary[lay.Visibility] = 1
	}
	binary.LittleEndian.PutUint32(primary[lay.Health:], math.Float32bits(1000))
	binary.LittleEndian.PutUint32(primary[lay.BaseAttackRange:], math.Float32bits(250))
	binary.LittleEndian.PutUint32(primary[lay.UnitInfoPtr:], uint32(o.unitInfo))
	w.reader.Map(base, primary)

	if o.unitInfo != 0 {
		deep := make([]byte, lay.DeepSize)
		binary.LittleEndian.PutUint32(deep[lay.GameplayRadius:], math.Float32bits(180))
		w.reader.Map(o.unitInfo, deep)
	}
}

func (w *world) standard() {
	w.put(baronAddr, object{name: "SRU_Baron", team: 300, visible: true, unitInfo: 0x110000})
	w.put(minionAddr, object{name: "SRU_OrderMinionMelee", team: 100, visible: true, unitInfo: 0x120000})
	w.put(wardAddr, object{name: "JammerDevice", team: 200, unitInfo: 0x130000})
	w.put(heroAddr, object{name: "Ezreal", team: 200, visible: true, unitInfo: 0x140000})
}

// mutableLister lets a test change the object list between frames.
type mutableLister struct {
	mu    sync.Mutex
	addrs []core.Address
	err   error
}

func (l *mutableLister) set(addrs ...core.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addrs = addrs
}

func (l *mutableLister) ListObjects(context.Context) ([]core.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Address(nil), l.addrs...), l.err
}

type stepClock struct {
	mu    sync.Mutex
	times []float32
}

func (c *stepClock) GameTime(context.Context) (float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}
	return t, nil
}

type statsSink struct {
	frames []core.FrameStats
	err    error
}

func (s *statsSink) WriteFrame(_ context.Context, stats core.FrameStats) error {
	s.frames = append(s.frames, stats)
	return s.err
}

type fixture struct {
	world   *world
	lister  *mutableLister
	cache   *cache.EntityCache
	session *session.Context
	backend *memstorage.Backend
	stats   *statsSink
	logs    *bytes.Buffer
	deps    Dependencies
}

func newFixture(t *testing.T, clock GameClock) *fixture {
	t.Helper()
	w := newWorld()
	w.standard()

	l, err := loader.New(w.layout, nil)
	require.NoError(t, err)

	f := &fixture{
		world:   w,
		lister:  &mutableLister{addrs: []core.Address{baronAddr, minionAddr, wardAddr, heroAddr}},
		cache:   cache.NewEntityCache(),
		session: session.NewContext(),
		backend: memstorage.New(config.MemoryConfig{}),
		stats:   &statsSink{},
		logs:    &bytes.Buffer{},
	}
	s := &core.Session{StartTime: time.Now()}
	require.NoError(t, f.backend.StartSession(s))
	f.session.SetSession(s)

	f.deps = Dependencies{
		Loader:  l,
		Reader:  w.reader,
		Lister:  f.lister,
		Clock:   clock,
		Cache:   f.cache,
		Session: f.session,
		Backend: f.backend,
		Stats:   f.stats,
		Logger:  slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	return f
}

func (f *fixture) manager(t *testing.T, opts Options) *Manager {
	t.Helper()
	m, err := NewManager(f.deps, opts)
	require.NoError(t, err)
	return m
}

var deepOpts = Options{Workers: 4, DeepLoad: true, AcceptShallowOnDeepFailure: true}

func TestScan_DecodesEveryObject(t *testing.T) {
	f := newFixture(t, FixedClock(600))
	m := f.manager(t, deepOpts)

	stats, err := m.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint(1), stats.Frame)
	assert.Equal(t, float32(600), stats.GameTime)
	assert.Equal(t, 4, stats.Listed)
	assert.Equal(t, 4, stats.Decoded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 1, stats.Unknown)
	assert.Equal(t, map[string]int{
		"Invisible": 1,
		"Minion":    1,
		"Jungle":    1,
		"Objective": 1,
		"Smitable":  1,
	}, stats.Categories)

	baron, ok := f.cache.Get(baronAddr)
	require.True(t, ok)
	assert.True(t, baron.Deep)
	assert.Equal(t, float32(430), baron.AttackRange())
	assert.Equal(t, float32(600), baron.LastVisibleAt)

	rec, ok := f.backend.GetEntity(baronAddr)
	require.True(t, ok)
	require.Len(t, rec.States, 1)
	assert.Equal(t, "Baron", rec.States[0].Label)
	assert.Equal(t, f.session.GetSession().ID, rec.States[0].SessionID)

	hero, _ := f.backend.GetEntity(heroAddr)
	assert.Empty(t, hero.States[0].Label)

	assert.Equal(t, 1, f.backend.FrameCount())
	require.Len(t, f.stats.frames, 1)
	assert.Equal(t, stats, f.stats.frames[0])
}

func TestScan_DeepFailurePolicy(t *testing.T) {
	tests := []struct {
		name        string
		accept      bool
		wantDecoded int
		wantFailed  int
		wantCached  bool
	}{
		{"degrade to shallow", true, 4, 0, true},
		{"drop entity", false, 3, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, FixedClock(10))
			f.world.reader.Fail(0x110000, memory.ErrAccessDenied)
			m := f.manager(t, Options{Workers: 2, DeepLoad: true, AcceptShallowOnDeepFailure: tt.accept})

			stats, err := m.Scan(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantDecoded, stats.Decoded)
			assert.Equal(t, tt.wantFailed, stats.Failed)

			baron, ok := f.cache.Get(baronAddr)
			assert.Equal(t, tt.wantCached, ok)
			if tt.accept {
				assert.Equal(t, 1, stats.Degraded)
				assert.False(t, baron.Deep)
				assert.Equal(t, "SRU_Baron", baron.Name)
				rec, _ := f.backend.GetEntity(baronAddr)
				assert.True(t, rec.States[0].Degraded)
			} else {
				assert.Equal(t, 1, f.cache.Undecodable(baronAddr))
			}
		})
	}
}

func TestScan_FailedFrameKeepsPreviousValue(t *testing.T) {
	f := newFixture(t, &stepClock{times: []float32{1, 2, 3}})
	m := f.manager(t, deepOpts)
	ctx := context.Background()

	_, err := m.Scan(ctx)
	require.NoError(t, err)

	f.world.reader.Fail(minionAddr, memory.ErrAddressNotMapped)
	stats, err := m.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Evicted)

	// not decodable is not dead: the last value stays
	prev, ok := f.cache.Get(minionAddr)
	require.True(t, ok)
	assert.Equal(t, float32(1), prev.LastVisibleAt)
	assert.Equal(t, 1, f.cache.Undecodable(minionAddr))

	f.world.reader.Heal(minionAddr)
	stats, err = m.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, f.cache.Undecodable(minionAddr))

	cur, _ := f.cache.Get(minionAddr)
	assert.Equal(t, float32(3), cur.LastVisibleAt)
}

func TestScan_LastVisibleCarriedAcrossFrames(t *testing.T) {
	f := newFixture(t, &stepClock{times: []float32{100, 101}})
	m := f.manager(t, deepOpts)
	ctx := context.Background()

	_, err := m.Scan(ctx)
	require.NoError(t, err)

	f.world.put(baronAddr, object{name: "SRU_Baron", team: 300, visible: false, unitInfo: 0x110000})
	_, err = m.Scan(ctx)
	require.NoError(t, err)

	baron, _ := f.cache.Get(baronAddr)
	assert.False(t, baron.IsVisible)
	assert.Equal(t, float32(100), baron.LastVisibleAt)
}

func TestScan_EvictsObjectsThatLeftTheList(t *testing.T) {
	f := newFixture(t, FixedClock(5))
	m := f.manager(t, deepOpts)
	ctx := context.Background()

	_, err := m.Scan(ctx)
	require.NoError(t, err)

	f.lister.set(baronAddr, minionAddr)
	stats, err := m.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Evicted)
	assert.Equal(t, 2, f.cache.Len())
	_, ok := f.cache.Get(wardAddr)
	assert.False(t, ok)
}

func TestScan_ShallowReadsOncePerObject(t *testing.T) {
	f := newFixture(t, FixedClock(5))
	m := f.manager(t, Options{Workers: 4, DeepLoad: false})

	stats, err := m.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Decoded)
	assert.Equal(t, int64(4), f.world.reader.Reads())
	baron, _ := f.cache.Get(baronAddr)
	assert.False(t, baron.Deep)
}

func TestScan_SourceErrors(t *testing.T) {
	t.Run("lister", func(t *testing.T) {
		f := newFixture(t, FixedClock(5))
		f.lister.err = errors.New("object manager moved")
		m := f.manager(t, deepOpts)

		_, err := m.Scan(context.Background())
		assert.ErrorContains(t, err, "listing objects: object manager moved")
		assert.Equal(t, uint(0), f.session.Frame())
	})

	t.Run("clock", func(t *testing.T) {
		f := newFixture(t, MemoryClock{Reader: memory.NewSnapshotReader(), Address: 0x5000})
		m := f.manager(t, deepOpts)

		_, err := m.Scan(context.Background())
		assert.ErrorIs(t, err, memory.ErrAddressNotMapped)
	})

	t.Run("cancelled", func(t *testing.T) {
		f := newFixture(t, FixedClock(5))
		m := f.manager(t, deepOpts)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.Scan(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestScan_StatsWriterErrorIsLogged(t *testing.T) {
	f := newFixture(t, FixedClock(5))
	f.stats.err = errors.New("influx down")
	m := f.manager(t, deepOpts)

	_, err := m.Scan(context.Background())
	require.NoError(t, err)
	assert.Contains(t, f.logs.String(), "influx down")
}

func TestScan_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	f := newFixture(t, FixedClock(5))
	f.world.reader.Fail(wardAddr, memory.ErrAccessDenied)
	m := f.manager(t, deepOpts)

	_, err := m.Scan(context.Background())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	var histogramSeen bool
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				histogramSeen = md.Name == "lview.scan.frame.duration"
			}
		}
	}

	assert.Equal(t, int64(3), sums["lview.scan.entities.decoded"])
	assert.Equal(t, int64(1), sums["lview.scan.entities.failed"])
	assert.Equal(t, int64(1), sums["lview.scan.entities.unknown"])
	assert.True(t, histogramSeen)
}

func TestStartSession_DropsPreviousEntities(t *testing.T) {
	f := newFixture(t, FixedClock(5))
	m := f.manager(t, deepOpts)
	ctx := context.Background()

	_, err := m.Scan(ctx)
	require.NoError(t, err)
	f.cache.MarkUndecodable(0xdead0000)
	require.Equal(t, 4, f.cache.Len())

	next := &core.Session{StartTime: time.Now(), GameVersion: "14.4"}
	require.NoError(t, m.StartSession(next))

	assert.Equal(t, uint(2), next.ID)
	assert.Same(t, next, f.session.GetSession())
	assert.Equal(t, uint(0), f.session.Frame())
	assert.Zero(t, f.cache.Len())
	assert.Zero(t, f.cache.Undecodable(0xdead0000))

	stats, err := m.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), stats.Frame)
	assert.Equal(t, 1, f.backend.FrameCount(), "backend starts the new session empty")
}

func TestRun_StopsAfterMaxFrames(t *testing.T) {
	f := newFixture(t, &stepClock{times: []float32{1, 1.25, 1.5, 1.75}})
	m := f.manager(t, Options{Interval: time.Millisecond, Workers: 2, DeepLoad: true, MaxFrames: 3})

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, 3, f.backend.FrameCount())
	assert.Equal(t, uint(3), f.session.Frame())
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, FixedClock(1))
	m := f.manager(t, Options{Interval: time.Hour, Workers: 1, DeepLoad: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return f.session.Frame() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	f := newFixture(t, FixedClock(1))

	tests := []struct {
		name  string
		strip func(d *Dependencies)
		want  string
	}{
		{"loader", func(d *Dependencies) { d.Loader = nil }, "scanner: loader is required"},
		{"reader", func(d *Dependencies) { d.Reader = nil }, "scanner: reader is required"},
		{"lister", func(d *Dependencies) { d.Lister = nil }, "scanner: object lister is required"},
		{"backend", func(d *Dependencies) { d.Backend = nil }, "scanner: storage backend is required"},
		{"logger", func(d *Dependencies) { d.Logger = nil }, "scanner: logger is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := f.deps
			tt.strip(&deps)
			_, err := NewManager(deps, deepOpts)
			assert.EqualError(t, err, tt.want)
		})
	}
}
