package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensor-endpoint/internal/threshold"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  model: "SER486"
  serial_number: "1"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.TCPPort)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Server.DrainTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.Equal(t, 16, cfg.LogStore.MaxEntries)
	assert.Equal(t, 75, cfg.Sampler.InitialTemperature)
	assert.Equal(t, time.Second, cfg.Sampler.Interval)
	assert.Equal(t, 1, cfg.Alarm.Workers)
	assert.True(t, cfg.Device.Thresholds.Valid())
}

func TestLoad_ZeroInitialTemperature(t *testing.T) {
	path := writeConfig(t, `
sampler:
  initial_temperature: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Sampler.InitialTemperature)
}

func TestLoad_ReadsThresholds(t *testing.T) {
	path := writeConfig(t, `
device:
  thresholds:
    tcrit_hi: 100
    twarn_hi: 80
    tcrit_lo: -10
    twarn_lo: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, threshold.Config{HighAlarm: 100, HighWarn: 80, LowAlarm: -10, LowWarn: 0}, cfg.Device.Thresholds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SENSOR_DB_DSN", "file::memory:")
	t.Setenv("SENSOR_TCP_PORT", "9090")
	path := writeConfig(t, "server:\n  tcp_port: 8080\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, 9090, cfg.Server.TCPPort)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "thresholds out of order",
			body: "device:\n  thresholds:\n    tcrit_hi: 50\n    twarn_hi: 80\n    tcrit_lo: -10\n    twarn_lo: 0\n",
		},
		{
			name: "thresholds above ceiling",
			body: "device:\n  thresholds:\n    tcrit_hi: 2000\n    twarn_hi: 80\n    tcrit_lo: -10\n    twarn_lo: 0\n",
		},
		{
			name: "unknown driver",
			body: "database:\n  driver: mysql\n  dsn: x\n",
		},
		{
			name: "postgres without dsn",
			body: "database:\n  driver: postgres\n",
		},
		{
			name: "mqtt without broker",
			body: "alarm:\n  mqtt:\n    enabled: true\n",
		},
		{
			name: "sampler without url",
			body: "sampler:\n  enabled: true\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_SampleFile(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "SER486", cfg.Device.Model)
	assert.False(t, cfg.Alarm.Push.Enabled())
}
