package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/memprobe/pkg/agent"
	"github.com/mscrnt/memprobe/pkg/smbus"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, smbus.DefaultPortDevice, cfg.Bus.PortDevice)
	assert.Equal(t, `\\.\HardwareMonitor`, cfg.DevicePath)
	assert.Equal(t, 10*time.Microsecond, cfg.Bus.PollInterval.Duration)
	assert.Equal(t, 1000, cfg.Bus.RetryBudget)
	assert.Equal(t, "@every 1h", cfg.Watch.Cron)
}

func TestPathHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "memprobe", "config.toml"), Path())
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvDryRun, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvDryRun, "")

	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
output_dir = "/var/lib/memprobe"
dry_run = true

[bus]
base_address = 0xF000
poll_interval = "25us"
retry_budget = 200

[watch]
cron = "*/15 * * * *"

[optimize]
tighten = 0.08
max_tighten = 0.12

[remote]
host = "bench-01"
cert_file = "/etc/memprobe/client.pem"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/memprobe", cfg.OutputDir)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, uint16(0xF000), cfg.Bus.BaseAddress)
	assert.Equal(t, 25*time.Microsecond, cfg.Bus.PollInterval.Duration)
	assert.Equal(t, 200, cfg.Bus.RetryBudget)
	assert.Equal(t, smbus.DefaultPortDevice, cfg.Bus.PortDevice, "unset keys keep defaults")
	assert.Equal(t, "*/15 * * * *", cfg.Watch.Cron)

	sm := cfg.SMBus()
	assert.Equal(t, 25*time.Microsecond, sm.PollInterval)
	assert.Equal(t, 200, sm.RetryBudget)

	p := cfg.Policy()
	assert.InDelta(t, 0.08, p.Tighten, 1e-9)
	assert.InDelta(t, 0.12, p.MaxTighten, 1e-9)

	assert.Equal(t, "bench-01:2223", cfg.Remote.Addr())
	assert.Equal(t, "/etc/memprobe/client.pem", cfg.Remote.Credentials().CertFile)
	assert.Equal(t, agent.DefaultPort, cfg.Agent.Port)
	assert.Equal(t, ":2223", cfg.Agent.Addr())
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("retry_budget = ["), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvDBPath, "/tmp/override.db")
	t.Setenv(EnvDryRun, "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.True(t, cfg.DryRun)

	t.Setenv(EnvDryRun, "maybe")
	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, EnvDryRun)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero retry budget", func(c *Config) { c.Bus.RetryBudget = 0 }},
		{"negative poll interval", func(c *Config) { c.Bus.PollInterval.Duration = -time.Microsecond }},
		{"tighten out of range", func(c *Config) { c.Optimize.Tighten = 1 }},
		{"max below tighten", func(c *Config) { c.Optimize.MaxTighten = 0.01 }},
		{"empty cron", func(c *Config) { c.Watch.Cron = "" }},
		{"agent port out of range", func(c *Config) { c.Agent.Port = 70000 }},
		{"remote without port", func(c *Config) { c.Remote.Host = "bench-01"; c.Remote.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvDryRun, "")

	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.OutputDir = "/srv/spd"
	cfg.Bus.PollInterval = Duration{50 * time.Microsecond}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
