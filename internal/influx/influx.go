package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/lviewgo/recorder/pkg/core"
)

const (
	// BucketScan receives one point per scanned frame.
	BucketScan = "scan_frames"
	// BucketCategories receives per-category entity counts.
	BucketCategories = "scan_categories"
)

// DefaultBucketNames are the buckets the recorder writes to.
var DefaultBucketNames = []string{
	BucketScan,
	BucketCategories,
}

// Manager handles InfluxDB connections and writes. When the server cannot be
// reached, points go to a gzipped line protocol file instead.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		if err := m.openBackup(); err != nil {
			return err
		}
		m.Logger.Warn().Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing frame stats to backup file")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := viper.GetString("influx.org")

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	retention := viper.GetInt64("influx.retentionDays")
	if retention <= 0 {
		retention = 30
	}

	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retention * 24 * 60 * 60,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, m.Writers[bucket].Errors())
	}

	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteFrame writes the frame summary and its category counts.
func (m *Manager) WriteFrame(ctx context.Context, stats core.FrameStats) error {
	if err := m.WritePoint(ctx, BucketScan, FramePoint(stats)); err != nil {
		return err
	}
	for _, p := range CategoryPoints(stats) {
		if err := m.WritePoint(ctx, BucketCategories, p); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending writes and closes the client and backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// FramePoint builds the scan_frames point for one frame.
func FramePoint(stats core.FrameStats) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"frame",
		map[string]string{
			"session": strconv.FormatUint(uint64(stats.SessionID), 10),
		},
		map[string]any{
			"frame":       int64(stats.Frame),
			"game_time":   float64(stats.GameTime),
			"duration_ms": float64(stats.Duration.Microseconds()) / 1000,
			"listed":      stats.Listed,
			"decoded":     stats.Decoded,
			"degraded":    stats.Degraded,
			"failed":      stats.Failed,
			"unknown":     stats.Unknown,
			"evicted":     stats.Evicted,
		},
		stats.Time,
	)
}

// CategoryPoints builds one point per category, ordered by name.
func CategoryPoints(stats core.FrameStats) []*influxdb2_write.Point {
	names := make([]string, 0, len(stats.Categories))
	for name := range stats.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	points := make([]*influxdb2_write.Point, 0, len(names))
	for _, name := range names {
		points = append(points, influxdb2_write.NewPoint(
			"category",
			map[string]string{
				"session":  strconv.FormatUint(uint64(stats.SessionID), 10),
				"category": name,
			},
			map[string]any{"count": stats.Categories[name]},
			stats.Time,
		))
	}
	return points
}
