package goSession

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/persist"
	"github.com/MrEthical07/goSession/rehydrate"
)

// Config is the complete client configuration. Start from [DefaultConfig] and override.
type Config struct {
	Gateway   GatewayConfig
	Persist   PersistConfig
	Rehydrate RehydrateConfig
	Throttle  ThrottleConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
}

/*
====================================
GATEWAY CONFIG
====================================
*/

// Gateway modes.
const (
	GatewayMock = "mock"
	GatewayHTTP = "http"
)

// GatewayConfig selects and tunes the credential gateway. It is ignored when a gateway is
// supplied through Builder.WithGateway.
type GatewayConfig struct {
	Mode string // "mock" (default) or "http"

	MockLatency       time.Duration
	MockLogoutLatency time.Duration
	// TokenSigningKey signs mock tokens (HS256). A random key is generated when empty.
	TokenSigningKey []byte
	TokenTTL        time.Duration
	TokenIssuer     string

	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     uint64
	BackoffBase    time.Duration
}

/*
====================================
PERSIST CONFIG
====================================
*/

// PersistConfig controls where and how the session slice is stored.
type PersistConfig struct {
	// Key is the namespaced storage key of the session slice.
	Key string
	// EncryptionSecret derives the storage encryption key. Empty disables encryption.
	EncryptionSecret []byte
	// RequireEncryption makes Build fail when EncryptionSecret is empty.
	RequireEncryption bool

	RedisPrefix string
	RedisTTL    time.Duration
}

// RehydrateConfig bounds startup restore.
type RehydrateConfig struct {
	Timeout time.Duration
}

// ThrottleConfig limits repeated rejected logins per email. Counters live in Redis when
// the client uses Redis, otherwise in memory.
type ThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Cooldown    time.Duration
}

// AuditConfig controls audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LoggingConfig configures the default logger when none is supplied through
// Builder.WithLogger. Logging is off unless Enabled is set.
type LoggingConfig struct {
	Enabled bool
	Format  string // "json" or "text"
	Level   string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration a fresh Builder starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Mode:              GatewayMock,
			MockLatency:       gateway.DefaultLatency,
			MockLogoutLatency: gateway.DefaultLatency / 2,
			TokenTTL:          24 * time.Hour,
			TokenIssuer:       "gosession",
			RequestTimeout:    10 * time.Second,
			MaxRetries:        3,
			BackoffBase:       200 * time.Millisecond,
		},
		Persist: PersistConfig{
			Key:         "gosession:session",
			RedisPrefix: "gs",
		},
		Rehydrate: RehydrateConfig{
			Timeout: rehydrate.DefaultTimeout,
		},
		Throttle: ThrottleConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Cooldown:    5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Gateway.TokenSigningKey = cloneBytes(cfg.Gateway.TokenSigningKey)
	out.Persist.EncryptionSecret = cloneBytes(cfg.Persist.EncryptionSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	// Gateway
	switch c.Gateway.Mode {
	case GatewayMock:
		if c.Gateway.MockLatency < 0 || c.Gateway.MockLogoutLatency < 0 {
			return errors.New("Gateway mock latencies must be >= 0")
		}
		if c.Gateway.TokenTTL <= 0 {
			return errors.New("Gateway TokenTTL must be > 0")
		}
		if n := len(c.Gateway.TokenSigningKey); n > 0 && n < 32 {
			return errors.New("Gateway TokenSigningKey must be at least 32 bytes")
		}
	case GatewayHTTP:
		if c.Gateway.BaseURL == "" {
			return errors.New("Gateway BaseURL required in http mode")
		}
		if !strings.HasPrefix(c.Gateway.BaseURL, "http://") && !strings.HasPrefix(c.Gateway.BaseURL, "https://") {
			return errors.New("Gateway BaseURL must be an http or https URL")
		}
		if c.Gateway.RequestTimeout <= 0 {
			return errors.New("Gateway RequestTimeout must be > 0")
		}
		if c.Gateway.MaxRetries > 10 {
			return errors.New("Gateway MaxRetries must be <= 10")
		}
		if c.Gateway.BackoffBase < 0 {
			return errors.New("Gateway BackoffBase must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported Gateway Mode %q", c.Gateway.Mode)
	}

	// Persist
	if strings.TrimSpace(c.Persist.Key) == "" {
		return errors.New("Persist Key must not be empty")
	}
	if strings.ContainsAny(c.Persist.Key, " \t\r\n") {
		return errors.New("Persist Key must not contain whitespace")
	}
	if n := len(c.Persist.EncryptionSecret); n > 0 && n < persist.MinSecretLength {
		return fmt.Errorf("Persist EncryptionSecret must be at least %d bytes", persist.MinSecretLength)
	}
	if c.Persist.RequireEncryption && len(c.Persist.EncryptionSecret) == 0 {
		return errors.New("Persist EncryptionSecret required when RequireEncryption is true")
	}
	if c.Persist.RedisTTL < 0 {
		return errors.New("Persist RedisTTL must be >= 0")
	}

	// Rehydrate
	if c.Rehydrate.Timeout <= 0 {
		return errors.New("Rehydrate Timeout must be > 0")
	}
	if c.Rehydrate.Timeout > 5*time.Minute {
		return errors.New("Rehydrate Timeout must be <= 5m")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("Throttle MaxAttempts must be > 0 when enabled")
		}
		if c.Throttle.Cooldown <= 0 {
			return errors.New("Throttle Cooldown must be > 0 when enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Logging
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		return errors.New("Logging Format must be 'json' or 'text'")
	}

	return nil
}
