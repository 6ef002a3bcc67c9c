package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	goSession "github.com/MrEthical07/goSession"
)

// secretEnv keeps the storage secret out of flags and shell history.
const secretEnv = "GOSESSION_STORAGE_SECRET"

// cliConfig is the merged result of flag defaults, the optional YAML file and explicit flags.
type cliConfig struct {
	StateDir         string        `koanf:"state-dir"`
	RedisAddr        string        `koanf:"redis-addr"`
	Secret           string        `koanf:"secret"`
	Gateway          string        `koanf:"gateway"`
	BaseURL          string        `koanf:"base-url"`
	MockLatency      time.Duration `koanf:"mock-latency"`
	RehydrateTimeout time.Duration `koanf:"rehydrate-timeout"`
	LogFormat        string        `koanf:"log-format"`
	LogLevel         string        `koanf:"log-level"`
	Audit            bool          `koanf:"audit"`
}

// registerConfigFlags adds the flags shared by every subcommand.
func registerConfigFlags(fs *pflag.FlagSet) {
	fs.String("state-dir", defaultStateDir(), "directory holding the persisted session")
	fs.String("redis-addr", "", "store the session in Redis at this address instead of state-dir")
	fs.String("secret", "", "storage encryption secret (prefer $"+secretEnv+")")
	fs.String("gateway", goSession.GatewayMock, "credential gateway: mock or http")
	fs.String("base-url", "", "gateway base URL in http mode")
	fs.Duration("mock-latency", time.Second, "simulated login latency of the mock gateway")
	fs.Duration("rehydrate-timeout", 10*time.Second, "upper bound on restoring the saved session")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("log-level", "warn", "log level")
	fs.Bool("audit", false, "log audit events")
}

// loadConfig merges path (optional YAML) under the flags in fs. Flags left at their default
// do not override values from the file.
func loadConfig(path string, fs *pflag.FlagSet) (cliConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cliConfig{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return cliConfig{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg cliConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Secret == "" {
		cfg.Secret = os.Getenv(secretEnv)
	}
	return cfg, nil
}

// clientConfig maps the CLI settings onto a client configuration.
func (c cliConfig) clientConfig() (goSession.Config, error) {
	cfg := goSession.DefaultConfig()

	cfg.Gateway.Mode = c.Gateway
	cfg.Gateway.MockLatency = c.MockLatency
	cfg.Gateway.MockLogoutLatency = c.MockLatency / 2
	cfg.Gateway.BaseURL = c.BaseURL
	cfg.Rehydrate.Timeout = c.RehydrateTimeout
	cfg.Persist.EncryptionSecret = []byte(c.Secret)
	cfg.Audit.Enabled = c.Audit
	cfg.Logging = goSession.LoggingConfig{Enabled: true, Format: c.LogFormat, Level: c.LogLevel}

	if c.RedisAddr == "" && c.StateDir == "" {
		return goSession.Config{}, errors.New("state-dir or redis-addr is required")
	}
	if err := cfg.Validate(); err != nil {
		return goSession.Config{}, err
	}
	return cfg, nil
}

// defaultStateDir follows the XDG base directory layout.
func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "gosession")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "gosession")
}
