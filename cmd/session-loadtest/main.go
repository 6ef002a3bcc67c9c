package main

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
)

const devicePassword = "password-1"

type device struct {
	key    string
	email  string
	client *goSession.Client
}

type loadConfig struct {
	devices     int
	concurrency int
	ops         int
	prefix      string
	secret      string
	latency     time.Duration
	// gateway overrides the mock gateway when set.
	gateway gateway.Gateway
}

func main() {
	var (
		cfg         loadConfig
		redisAddr   string
		gatewayMode string
		argonMemory uint32
		argonTime   uint32
	)
	flag.IntVar(&cfg.devices, "devices", 2000, "number of simulated installations")
	flag.IntVar(&cfg.concurrency, "concurrency", 64, "number of concurrent workers")
	flag.IntVar(&cfg.ops, "ops", 20000, "cold starts in the rehydrate phase")
	flag.StringVar(&redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flag.StringVar(&cfg.prefix, "prefix", "gsload", "redis key prefix")
	flag.StringVar(&cfg.secret, "secret", "loadtest-storage-secret", "storage encryption secret; empty disables encryption")
	flag.DurationVar(&cfg.latency, "gateway-latency", 0, "simulated gateway latency")
	flag.StringVar(&gatewayMode, "gateway", "mock", "credential gateway: mock or directory")
	flag.Uint32Var(&argonMemory, "argon-memory", 19*1024, "directory gateway Argon2id memory (KiB)")
	flag.Uint32Var(&argonTime, "argon-time", 2, "directory gateway Argon2id passes")
	flag.Parse()

	if cfg.devices <= 0 || cfg.concurrency <= 0 || cfg.ops <= 0 {
		fmt.Fprintln(os.Stderr, "devices, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	devices := make([]device, cfg.devices)
	for i := range devices {
		devices[i] = device{
			key:   fmt.Sprintf("gosession:device-%d", i),
			email: fmt.Sprintf("customer.%d@example.com", i),
		}
	}

	switch gatewayMode {
	case "mock":
	case "directory":
		dir, err := newDirectory(argonMemory, argonTime)
		if err != nil {
			fmt.Fprintf(os.Stderr, "directory gateway: %v\n", err)
			os.Exit(1)
		}
		cfg.gateway = dir
		printStats("register", runRegisterPhase(dir, devices, cfg))
	default:
		fmt.Fprintf(os.Stderr, "unknown gateway %q\n", gatewayMode)
		os.Exit(2)
	}

	loginStats := runLoginPhase(ctx, rdb, devices, cfg)
	rehydrateStats := runRehydratePhase(ctx, rdb, devices, cfg)
	logoutStats := runLogoutPhase(ctx, devices, cfg)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("rehydrate", rehydrateStats)
	printStats("logout", logoutStats)
}

func newClient(ctx context.Context, rdb redis.UniversalClient, key string, cfg loadConfig) (*goSession.Client, error) {
	c := goSession.DefaultConfig()
	c.Gateway.MockLatency = cfg.latency
	c.Gateway.MockLogoutLatency = 0
	c.Persist.Key = key
	c.Persist.RedisPrefix = cfg.prefix
	c.Persist.EncryptionSecret = []byte(cfg.secret)

	b := goSession.New().WithConfig(c).WithRedis(rdb)
	if cfg.gateway != nil {
		b = b.WithGateway(cfg.gateway)
	}
	client, err := b.Build()
	if err != nil {
		return nil, err
	}
	client.Start(ctx)
	return client, nil
}

func newDirectory(memory, passes uint32) (*gateway.Directory, error) {
	hcfg := password.DefaultConfig()
	hcfg.Memory = memory
	hcfg.Time = passes
	hasher, err := password.NewHasher(hcfg)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 32)
	if _, err := crand.Read(key); err != nil {
		return nil, err
	}
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    key,
		Issuer:        "session-loadtest",
	})
	if err != nil {
		return nil, err
	}
	return gateway.NewDirectory(hasher, tokens), nil
}

// runRegisterPhase creates one directory account per device.
func runRegisterPhase(dir *gateway.Directory, devices []device, cfg loadConfig) phaseStats {
	return runPhase(len(devices), cfg.concurrency, func(i int, _ *rand.Rand) error {
		_, err := dir.Register(session.User{Email: devices[i].email}, devicePassword)
		return err
	})
}

// runLoginPhase signs every device in once and keeps its client for the logout phase.
func runLoginPhase(ctx context.Context, rdb redis.UniversalClient, devices []device, cfg loadConfig) phaseStats {
	return runPhase(len(devices), cfg.concurrency, func(i int, _ *rand.Rand) error {
		d := &devices[i]
		client, err := newClient(ctx, rdb, d.key, cfg)
		if err != nil {
			return err
		}
		d.client = client
		_, err = client.Login(ctx, d.email, devicePassword)
		return err
	})
}

// runRehydratePhase measures cold starts: a fresh client restoring a random device.
func runRehydratePhase(ctx context.Context, rdb redis.UniversalClient, devices []device, cfg loadConfig) phaseStats {
	return runPhase(cfg.ops, cfg.concurrency, func(_ int, r *rand.Rand) error {
		d := devices[r.Intn(len(devices))]
		client, err := newClient(ctx, rdb, d.key, cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		if !client.IsAuthenticated() {
			return fmt.Errorf("device %s not restored", d.key)
		}
		return nil
	})
}

func runLogoutPhase(ctx context.Context, devices []device, cfg loadConfig) phaseStats {
	return runPhase(len(devices), cfg.concurrency, func(i int, _ *rand.Rand) error {
		client := devices[i].client
		if client == nil {
			return fmt.Errorf("device %d has no client", i)
		}
		defer client.Close()
		return client.Logout(ctx)
	})
}

func runPhase(ops, concurrency int, op func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
