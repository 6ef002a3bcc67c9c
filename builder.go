package goSession

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/persist"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. A Builder is single use.
type Builder struct {
	config Config

	gateway gateway.Gateway
	backend persist.Backend
	redis   redis.UniversalClient

	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithGateway overrides the gateway selected by Config.Gateway.
func (b *Builder) WithGateway(gw gateway.Gateway) *Builder {
	b.gateway = gw
	return b
}

// WithBackend sets the storage medium. Without a backend or Redis client, an in-memory
// backend is used and nothing survives a restart.
func (b *Builder) WithBackend(backend persist.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis stores the session slice in Redis under Config.Persist.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Client. Call [Client.Start] before any
// session operation.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.backend != nil && b.redis != nil {
		return nil, errors.New("WithBackend and WithRedis are mutually exclusive")
	}

	logger := b.logger
	if logger == nil && cfg.Logging.Enabled {
		logger = logging.Setup("goSession", Version, cfg.Logging.Format, cfg.Logging.Level, nil)
	}
	logger = logging.OrDiscard(logger)

	// -------- STORAGE --------
	backend := b.backend
	switch {
	case backend != nil:
	case b.redis != nil:
		backend = persist.NewRedis(b.redis, cfg.Persist.RedisPrefix, cfg.Persist.RedisTTL)
	default:
		backend = persist.NewMemory()
	}

	if len(cfg.Persist.EncryptionSecret) > 0 {
		enc, err := persist.NewEncrypted(backend, cfg.Persist.EncryptionSecret)
		if err != nil {
			return nil, err
		}
		backend = enc
	} else {
		logger.Warn("goSession: session persistence is not encrypted")
	}

	// -------- THROTTLE --------
	var limiter *rate.Limiter
	if cfg.Throttle.Enabled {
		var counter rate.Counter = rate.NewMemoryCounter()
		if b.redis != nil {
			counter = rate.NewRedisCounter(b.redis, cfg.Persist.RedisPrefix)
		}
		limiter = rate.New(counter, rate.Config{
			MaxAttempts: cfg.Throttle.MaxAttempts,
			Cooldown:    cfg.Throttle.Cooldown,
		})
	}

	// -------- GATEWAY --------
	gw := b.gateway
	if gw == nil {
		var err error
		gw, err = newGateway(cfg.Gateway)
		if err != nil {
			return nil, err
		}
	}

	client := newClient(clientDeps{
		config:  cfg,
		gateway: gw,
		adapter: persist.NewAdapter(backend, logger),
		limiter: limiter,
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
	})

	b.built = true

	return client, nil
}

func newGateway(cfg GatewayConfig) (gateway.Gateway, error) {
	switch cfg.Mode {
	case GatewayHTTP:
		return gateway.NewHTTP(gateway.HTTPConfig{
			BaseURL:        cfg.BaseURL,
			RequestTimeout: cfg.RequestTimeout,
			MaxRetries:     cfg.MaxRetries,
			BackoffBase:    cfg.BackoffBase,
		}, nil)
	default:
		key := cloneBytes(cfg.TokenSigningKey)
		if len(key) == 0 {
			key = make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return nil, fmt.Errorf("generate token signing key: %w", err)
			}
		}
		tokens, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.TokenTTL,
			SigningMethod: jwt.MethodHS256,
			PrivateKey:    key,
			Issuer:        cfg.TokenIssuer,
		})
		if err != nil {
			return nil, err
		}
		mock := gateway.NewMock(tokens)
		mock.Latency = cfg.MockLatency
		mock.LogoutLatency = cfg.MockLogoutLatency
		return mock, nil
	}
}
