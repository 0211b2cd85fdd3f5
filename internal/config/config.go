package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lviewgo/recorder/internal/loader"
	"github.com/lviewgo/recorder/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "lview_recorder.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry log export settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// ScanConfig controls the per-frame object scan
type ScanConfig struct {
	Interval                   time.Duration `json:"interval" mapstructure:"interval"`
	Workers                    int           `json:"workers" mapstructure:"workers"`
	DeepLoad                   bool          `json:"deepLoad" mapstructure:"deepLoad"`
	AcceptShallowOnDeepFailure bool          `json:"acceptShallowOnDeepFailure" mapstructure:"acceptShallowOnDeepFailure"`
	DumpPath                   string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// ProcessConfig locates the game process and the values the recorder reads
// outside the object structures.
type ProcessConfig struct {
	PID             int
	GameVersion     string
	GameTimeAddress core.Address
	Objects         []core.Address
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers the default value of every known key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./lviewlogs")

	viper.SetDefault("process.pid", 0)
	viper.SetDefault("process.gameVersion", "")
	viper.SetDefault("process.gameTimeAddress", "0x0")
	viper.SetDefault("process.objects", []string{})

	viper.SetDefault("scan.interval", "250ms")
	viper.SetDefault("scan.workers", 8)
	viper.SetDefault("scan.deepLoad", true)
	viper.SetDefault("scan.acceptShallowOnDeepFailure", true)
	viper.SetDefault("scan.dumpPath", "")

	viper.SetDefault("layout.name", "default")
	viper.SetDefault("kinds.tableFile", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "lview")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "lview-metrics")
	viper.SetDefault("influx.retentionDays", 30)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "lview-recorder")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetScanConfig returns the scan loop settings.
func GetScanConfig() ScanConfig {
	return ScanConfig{
		Interval:                   viper.GetDuration("scan.interval"),
		Workers:                    viper.GetInt("scan.workers"),
		DeepLoad:                   viper.GetBool("scan.deepLoad"),
		AcceptShallowOnDeepFailure: viper.GetBool("scan.acceptShallowOnDeepFailure"),
		DumpPath:                   viper.GetString("scan.dumpPath"),
	}
}

// GetProcessConfig returns the process settings. Addresses may be written in
// decimal or with a 0x prefix.
func GetProcessConfig() (ProcessConfig, error) {
	clock, err := parseAddress(viper.GetString("process.gameTimeAddress"))
	if err != nil {
		return ProcessConfig{}, fmt.Errorf("process.gameTimeAddress: %w", err)
	}

	raw := viper.GetStringSlice("process.objects")
	objects := make([]core.Address, 0, len(raw))
	for i, s := range raw {
		a, err := parseAddress(s)
		if err != nil {
			return ProcessConfig{}, fmt.Errorf("process.objects[%d]: %w", i, err)
		}
		objects = append(objects, a)
	}

	return ProcessConfig{
		PID:             viper.GetInt("process.pid"),
		GameVersion:     viper.GetString("process.gameVersion"),
		GameTimeAddress: clock,
		Objects:         objects,
	}, nil
}

// GetLayoutConfig returns the object layout: the built-in offsets with any
// keys under "layout" applied on top. The name is reported separately since
// it is not part of the offsets.
func GetLayoutConfig() (string, loader.Layout, error) {
	layout := loader.DefaultLayout()
	if err := viper.UnmarshalKey("layout", &layout); err != nil {
		return "", loader.Layout{}, fmt.Errorf("error decoding layout: %w", err)
	}
	return viper.GetString("layout.name"), layout, nil
}

func parseAddress(s string) (core.Address, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return core.Address(v), nil
}
