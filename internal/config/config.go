package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory
const FileName = "atlas.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig selects and configures the snapshot backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Key    string       `json:"key" mapstructure:"key"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// GlobeConfig holds globe geometry and frame loop settings
type GlobeConfig struct {
	Radius             float64 `json:"radius" mapstructure:"radius"`
	OcclusionThreshold float64 `json:"occlusionThreshold" mapstructure:"occlusionThreshold"`
	Raycast            bool    `json:"raycast" mapstructure:"raycast"`
	FlyToStep          float64 `json:"flyToStep" mapstructure:"flyToStep"`
	FocusDistance      float64 `json:"focusDistance" mapstructure:"focusDistance"`
	ArcSegments        int     `json:"arcSegments" mapstructure:"arcSegments"`
	ArcLift            float64 `json:"arcLift" mapstructure:"arcLift"`
	AutoRotateSpeed    float64 `json:"autoRotateSpeed" mapstructure:"autoRotateSpeed"`
	MinDistance        float64 `json:"minDistance" mapstructure:"minDistance"`
	MaxDistance        float64 `json:"maxDistance" mapstructure:"maxDistance"`
	FrameRate          int     `json:"frameRate" mapstructure:"frameRate"`
	Width              float64 `json:"width" mapstructure:"width"`
	Height             float64 `json:"height" mapstructure:"height"`
}

// EnrichConfig holds the chat-completions endpoint used to structure stories
type EnrichConfig struct {
	BaseURL  string        `json:"baseUrl" mapstructure:"baseUrl"`
	APIKey   string        `json:"apiKey" mapstructure:"apiKey"`
	Model    string        `json:"model" mapstructure:"model"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	Language string        `json:"language" mapstructure:"language"`

	CacheFile string        `json:"cacheFile" mapstructure:"cacheFile"` // relative paths resolve against the config directory
	CacheTTL  time.Duration `json:"cacheTTL" mapstructure:"cacheTTL"`
}

// AttachConfig limits photo attachments
type AttachConfig struct {
	MaxBytes int64 `json:"maxBytes" mapstructure:"maxBytes"`
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`

	Retention time.Duration `json:"retention" mapstructure:"retention"` // applied when the bucket is created
}

// MonitorConfig holds render telemetry sampling settings
type MonitorConfig struct {
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./atlaslogs")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.key", "explorer_memories")
	viper.SetDefault("storage.memory.outputDir", "./journal")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./atlas.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "atlas")

	viper.SetDefault("globe.radius", 50.0)
	viper.SetDefault("globe.occlusionThreshold", 0.15)
	viper.SetDefault("globe.raycast", false)
	viper.SetDefault("globe.flyToStep", 0.02)
	viper.SetDefault("globe.focusDistance", 120.0)
	viper.SetDefault("globe.arcSegments", 50)
	viper.SetDefault("globe.arcLift", 0.5)
	viper.SetDefault("globe.autoRotateSpeed", 0.5)
	viper.SetDefault("globe.minDistance", 70.0)
	viper.SetDefault("globe.maxDistance", 300.0)
	viper.SetDefault("globe.frameRate", 60)
	viper.SetDefault("globe.width", 1280.0)
	viper.SetDefault("globe.height", 720.0)

	viper.SetDefault("enrich.baseUrl", "https://generativelanguage.googleapis.com/v1beta/openai")
	viper.SetDefault("enrich.apiKey", "")
	viper.SetDefault("enrich.model", "gemini-2.5-flash")
	viper.SetDefault("enrich.timeout", "30s")
	viper.SetDefault("enrich.language", "Simplified Chinese")
	viper.SetDefault("enrich.cacheFile", "atlas_enrich_cache.json")
	viper.SetDefault("enrich.cacheTTL", "168h")

	viper.SetDefault("attach.maxBytes", 5*1024*1024)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "atlas-metrics")
	viper.SetDefault("influx.bucket", "render_performance")
	viper.SetDefault("influx.retention", "720h")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "atlas")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "10s")
	viper.SetDefault("monitor.statusFile", "")
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

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Key:  viper.GetString("storage.key"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetGlobeConfig returns the globe settings.
func GetGlobeConfig() GlobeConfig {
	return GlobeConfig{
		Radius:             viper.GetFloat64("globe.radius"),
		OcclusionThreshold: viper.GetFloat64("globe.occlusionThreshold"),
		Raycast:            viper.GetBool("globe.raycast"),
		FlyToStep:          viper.GetFloat64("globe.flyToStep"),
		FocusDistance:      viper.GetFloat64("globe.focusDistance"),
		ArcSegments:        viper.GetInt("globe.arcSegments"),
		ArcLift:            viper.GetFloat64("globe.arcLift"),
		AutoRotateSpeed:    viper.GetFloat64("globe.autoRotateSpeed"),
		MinDistance:        viper.GetFloat64("globe.minDistance"),
		MaxDistance:        viper.GetFloat64("globe.maxDistance"),
		FrameRate:          viper.GetInt("globe.frameRate"),
		Width:              viper.GetFloat64("globe.width"),
		Height:             viper.GetFloat64("globe.height"),
	}
}

// GetEnrichConfig returns the enrichment endpoint settings.
func GetEnrichConfig() EnrichConfig {
	return EnrichConfig{
		BaseURL:  viper.GetString("enrich.baseUrl"),
		APIKey:   viper.GetString("enrich.apiKey"),
		Model:    viper.GetString("enrich.model"),
		Timeout:  viper.GetDuration("enrich.timeout"),
		Language: viper.GetString("enrich.language"),

		CacheFile: viper.GetString("enrich.cacheFile"),
		CacheTTL:  viper.GetDuration("enrich.cacheTTL"),
	}
}

// GetAttachConfig returns the attachment limits.
func GetAttachConfig() AttachConfig {
	return AttachConfig{
		MaxBytes: viper.GetInt64("attach.maxBytes"),
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

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),

		Retention: viper.GetDuration("influx.retention"),
	}
}

// GetMonitorConfig returns the render telemetry settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}
