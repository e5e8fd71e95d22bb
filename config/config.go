package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sensor-endpoint/internal/threshold"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Device   DeviceConfig   `yaml:"device"`
	Database DatabaseConfig `yaml:"database"`
	LogStore LogStoreConfig `yaml:"log_store"`
	Sampler  SamplerConfig  `yaml:"sampler"`
	Alarm    AlarmConfig    `yaml:"alarm"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the TCP endpoint and management API configuration.
type ServerConfig struct {
	TCPPort                int           `yaml:"tcp_port"`
	APIPort                int           `yaml:"api_port"`
	ReadTimeoutSeconds     int           `yaml:"read_timeout_seconds"`
	ReadTimeout            time.Duration `yaml:"-"`
	DrainTimeoutMillis     int           `yaml:"drain_timeout_millis"`
	DrainTimeout           time.Duration `yaml:"-"`
	MaxRequestBytes        int           `yaml:"max_request_bytes"`
	RateLimitPerSec        float64       `yaml:"rate_limit_per_sec"`
	RateBurst              int           `yaml:"rate_burst"`
	CacheTTLSeconds        int           `yaml:"cache_ttl_seconds"`
	RestartExitCode        int           `yaml:"restart_exit_code"`
	ShutdownTimeoutSeconds int           `yaml:"shutdown_timeout_seconds"`
}

// DeviceConfig seeds the vital product data and thresholds on first start.
type DeviceConfig struct {
	Model           string           `yaml:"model"`
	Manufacturer    string           `yaml:"manufacturer"`
	SerialNumber    string           `yaml:"serial_number"`
	ManufactureDate string           `yaml:"manufacture_date"`
	MACAddress      string           `yaml:"mac_address"`
	CountryCode     string           `yaml:"country_code"`
	Thresholds      threshold.Config `yaml:"thresholds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// LogStoreConfig bounds the event log and sets its write-back cadence.
type LogStoreConfig struct {
	MaxEntries           int           `yaml:"max_entries"`
	FlushIntervalSeconds int           `yaml:"flush_interval_seconds"`
	FlushInterval        time.Duration `yaml:"-"`
}

// SamplerConfig controls where the current temperature comes from.
type SamplerConfig struct {
	Enabled         bool              `yaml:"enabled"`
	URL             string            `yaml:"url"`
	Headers         map[string]string `yaml:"headers"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Interval        time.Duration     `yaml:"-"`

	// InitialTemperatureRaw is nil when the key is absent, so 0 stays a valid reading.
	InitialTemperatureRaw *int `yaml:"initial_temperature"`
	InitialTemperature    int  `yaml:"-"`
}

// AlarmConfig holds the alarm fan-out configuration.
type AlarmConfig struct {
	Workers int        `yaml:"workers"`
	MQTT    MQTTConfig `yaml:"mqtt"`
	Push    PushConfig `yaml:"push"`
}

// MQTTConfig holds the master controller broker settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// PushConfig holds the VAPID keys for web push alarms.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether web push alarms can be sent.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// LogConfig holds the application logger configuration.
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ServiceName string `yaml:"service_name"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
}

// Load reads the configuration from the given path. A .env file next to the
// working directory, if present, is loaded first so its values can override the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("SENSOR_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SENSOR_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SENSOR_MQTT_BROKER"); v != "" {
		cfg.Alarm.MQTT.Broker = v
	}
	if v := os.Getenv("SENSOR_MQTT_PASSWORD"); v != "" {
		cfg.Alarm.MQTT.Password = v
	}
	if v := os.Getenv("SENSOR_VAPID_PRIVATE_KEY"); v != "" {
		cfg.Alarm.Push.PrivateKey = v
	}
	if v := os.Getenv("SENSOR_SAMPLER_URL"); v != "" {
		cfg.Sampler.URL = v
	}
	if v, err := strconv.Atoi(os.Getenv("SENSOR_TCP_PORT")); err == nil {
		cfg.Server.TCPPort = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.TCPPort <= 0 {
		cfg.Server.TCPPort = 8080
	}
	if cfg.Server.APIPort <= 0 {
		cfg.Server.APIPort = 8081
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 5
	}
	cfg.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	if cfg.Server.DrainTimeoutMillis <= 0 {
		cfg.Server.DrainTimeoutMillis = 200
	}
	cfg.Server.DrainTimeout = time.Duration(cfg.Server.DrainTimeoutMillis) * time.Millisecond
	if cfg.Server.MaxRequestBytes <= 0 {
		cfg.Server.MaxRequestBytes = 2048
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 2
	}
	if cfg.Server.RestartExitCode == 0 {
		cfg.Server.RestartExitCode = 3
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = 5
	}

	if cfg.Device.Thresholds == (threshold.Config{}) {
		cfg.Device.Thresholds = threshold.Config{HighAlarm: 100, HighWarn: 90, LowAlarm: 50, LowWarn: 60}
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "file:sensor.db?cache=shared"
	}

	if cfg.LogStore.MaxEntries <= 0 {
		cfg.LogStore.MaxEntries = 16
	}
	if cfg.LogStore.FlushIntervalSeconds <= 0 {
		cfg.LogStore.FlushIntervalSeconds = 10
	}
	cfg.LogStore.FlushInterval = time.Duration(cfg.LogStore.FlushIntervalSeconds) * time.Second

	if cfg.Sampler.IntervalSeconds <= 0 {
		cfg.Sampler.IntervalSeconds = 1
	}
	cfg.Sampler.Interval = time.Duration(cfg.Sampler.IntervalSeconds) * time.Second
	cfg.Sampler.InitialTemperature = 75
	if cfg.Sampler.InitialTemperatureRaw != nil {
		cfg.Sampler.InitialTemperature = *cfg.Sampler.InitialTemperatureRaw
	}

	if cfg.Alarm.Workers <= 0 {
		cfg.Alarm.Workers = 1
	}
	if cfg.Alarm.MQTT.ClientID == "" {
		cfg.Alarm.MQTT.ClientID = "sensor-endpoint"
	}
	if cfg.Alarm.MQTT.Topic == "" {
		cfg.Alarm.MQTT.Topic = "sensor/{serial}/alarm"
	}
	if cfg.Alarm.Push.TTL <= 0 {
		cfg.Alarm.Push.TTL = 3600
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.ServiceName == "" {
		cfg.Log.ServiceName = "sensor-endpoint"
	}
}

// Validate checks values that cannot be defaulted.
func (cfg *Config) Validate() error {
	if !cfg.Device.Thresholds.Valid() {
		t := cfg.Device.Thresholds
		return fmt.Errorf("device.thresholds must satisfy tcrit_lo < twarn_lo < twarn_hi < tcrit_hi < %d, got %d/%d/%d/%d",
			threshold.Ceiling, t.LowAlarm, t.LowWarn, t.HighWarn, t.HighAlarm)
	}
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %q", cfg.Database.Driver)
	}
	if cfg.Alarm.MQTT.Enabled && cfg.Alarm.MQTT.Broker == "" {
		return fmt.Errorf("alarm.mqtt.broker is required when mqtt alarms are enabled")
	}
	if cfg.Sampler.Enabled && cfg.Sampler.URL == "" {
		return fmt.Errorf("sampler.url is required when the sampler is enabled")
	}
	return nil
}
