// Package config loads the memprobe TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mscrnt/memprobe/pkg/agent"
	"github.com/mscrnt/memprobe/pkg/control"
	"github.com/mscrnt/memprobe/pkg/smbus"
	"github.com/mscrnt/memprobe/pkg/timings"
)

// Environment overrides
const (
	EnvDBPath = "MEMPROBE_DB_PATH"
	EnvDryRun = "MEMPROBE_DRY_RUN"
)

// Config holds user-configurable defaults.
type Config struct {
	OutputDir  string         `toml:"output_dir"`
	DBPath     string         `toml:"db_path"`
	LogFile    string         `toml:"log_file"`
	DryRun     bool           `toml:"dry_run"`
	DevicePath string         `toml:"device_path"`
	Bus        BusConfig      `toml:"bus"`
	Watch      WatchConfig    `toml:"watch"`
	Optimize   OptimizeConfig `toml:"optimize"`
	Agent      AgentConfig    `toml:"agent"`
	Remote     RemoteConfig   `toml:"remote"`
}

// BusConfig configures SMBus access.
type BusConfig struct {
	PortDevice string `toml:"port_device"`
	// BaseAddress skips controller discovery when non-zero.
	BaseAddress  uint16   `toml:"base_address"`
	PollInterval Duration `toml:"poll_interval"`
	RetryBudget  int      `toml:"retry_budget"`
}

// WatchConfig configures periodic capture.
type WatchConfig struct {
	Cron   string `toml:"cron"`
	Record bool   `toml:"record"`
}

// OptimizeConfig mirrors timings.Policy.
type OptimizeConfig struct {
	Tighten    float64 `toml:"tighten"`
	MaxTighten float64 `toml:"max_tighten"`
	Floor      uint16  `toml:"floor"`
}

// AgentConfig configures the mTLS agent.
type AgentConfig struct {
	Port     int    `toml:"port"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	CAFile   string `toml:"ca_file"`
	LogFile  string `toml:"log_file"`
}

// RemoteConfig points commands at an agent instead of local hardware. An
// empty Host means local.
type RemoteConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	CAFile   string `toml:"ca_file"`
}

// Duration is a time.Duration written as a string ("10us") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		OutputDir:  ".",
		DBPath:     defaultDBPath(),
		DevicePath: control.DefaultDevicePath,
		Bus: BusConfig{
			PortDevice:   smbus.DefaultPortDevice,
			PollInterval: Duration{smbus.DefaultPollInterval},
			RetryBudget:  smbus.DefaultRetryBudget,
		},
		Watch: WatchConfig{
			Cron:   "@every 1h",
			Record: true,
		},
		Optimize: OptimizeConfig{
			Tighten:    timings.DefaultPolicy.Tighten,
			MaxTighten: timings.DefaultPolicy.MaxTighten,
			Floor:      timings.DefaultPolicy.Floor,
		},
		Agent:  AgentConfig{Port: agent.DefaultPort},
		Remote: RemoteConfig{Port: agent.DefaultPort},
	}
}

// Path returns ~/.config/memprobe/config.toml (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "memprobe", "config.toml")
}

// Load reads path, or Path() when path is empty. A missing file yields the
// defaults; a malformed one is an error. Environment overrides apply last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if dbPath := os.Getenv(EnvDBPath); dbPath != "" {
		c.DBPath = dbPath
	}
	if v := os.Getenv(EnvDryRun); v != "" {
		dry, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvDryRun, v)
		}
		c.DryRun = dry
	}
	return nil
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.Bus.RetryBudget < 1 {
		return fmt.Errorf("invalid retry_budget: %d", c.Bus.RetryBudget)
	}
	if c.Bus.PollInterval.Duration <= 0 {
		return fmt.Errorf("invalid poll_interval: %s", c.Bus.PollInterval)
	}
	if c.Optimize.Tighten < 0 || c.Optimize.Tighten >= 1 {
		return fmt.Errorf("invalid optimize.tighten: %v", c.Optimize.Tighten)
	}
	if c.Optimize.MaxTighten < c.Optimize.Tighten {
		return fmt.Errorf("optimize.max_tighten (%v) is below optimize.tighten (%v)", c.Optimize.MaxTighten, c.Optimize.Tighten)
	}
	if c.Watch.Cron == "" {
		return fmt.Errorf("watch.cron is required")
	}
	if c.Agent.Port <= 0 || c.Agent.Port > 65535 {
		return fmt.Errorf("invalid agent.port: %d", c.Agent.Port)
	}
	if c.Remote.Host != "" && (c.Remote.Port <= 0 || c.Remote.Port > 65535) {
		return fmt.Errorf("invalid remote.port: %d", c.Remote.Port)
	}
	return nil
}

// Addr returns the address the agent listens on.
func (a AgentConfig) Addr() string {
	return fmt.Sprintf(":%d", a.Port)
}

// Credentials returns the agent's certificate, key and client CA.
func (a AgentConfig) Credentials() agent.Credentials {
	return agent.Credentials{CertFile: a.CertFile, KeyFile: a.KeyFile, CAFile: a.CAFile}
}

// Addr returns host:port of the remote agent.
func (r RemoteConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Credentials returns the client certificate, key and the CA trusted for
// the agent.
func (r RemoteConfig) Credentials() agent.Credentials {
	return agent.Credentials{CertFile: r.CertFile, KeyFile: r.KeyFile, CAFile: r.CAFile}
}

// CertDir returns the directory "memprobe cert" writes to by default.
func CertDir() string {
	if p := Path(); p != "" {
		return filepath.Join(filepath.Dir(p), "certs")
	}
	return "certs"
}

// SMBus returns the transport configuration.
func (c Config) SMBus() smbus.Config {
	cfg := smbus.DefaultConfig()
	cfg.PollInterval = c.Bus.PollInterval.Duration
	cfg.RetryBudget = c.Bus.RetryBudget
	return cfg
}

// Policy returns the optimization policy.
func (c Config) Policy() timings.Policy {
	return timings.Policy{
		Tighten:    c.Optimize.Tighten,
		MaxTighten: c.Optimize.MaxTighten,
		Floor:      c.Optimize.Floor,
	}
}

// Save writes the config as TOML.
func Save(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return f.Close()
}

// defaultDBPath returns ~/.memprobe/memprobe.db, or a file in the current
// directory when there is no home.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "memprobe.db"
	}
	return filepath.Join(homeDir, ".memprobe", "memprobe.db")
}
