package main

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestRunPhaseCountsFailures(t *testing.T) {
	stats := runPhase(100, 4, func(i int, _ *rand.Rand) error {
		if i%10 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	assert.Equal(t, 100, stats.ops)
	assert.Equal(t, int64(10), stats.failures)
}

func testDevices(n int) []device {
	devices := make([]device, n)
	for i := range devices {
		devices[i] = device{key: "gosession:device-" + string(rune('a'+i)), email: "customer" + string(rune('a'+i)) + "@example.com"}
	}
	return devices
}

func TestPhasesAgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	cfg := loadConfig{devices: 8, concurrency: 4, ops: 16, prefix: "gsload", secret: "loadtest-storage-secret"}
	devices := testDevices(cfg.devices)

	login := runLoginPhase(ctx, rdb, devices, cfg)
	require.Zero(t, login.failures)
	assert.Len(t, mr.Keys(), cfg.devices)

	rehydrate := runRehydratePhase(ctx, rdb, devices, cfg)
	assert.Zero(t, rehydrate.failures)
	assert.Equal(t, cfg.ops, rehydrate.ops)

	logout := runLogoutPhase(ctx, devices, cfg)
	assert.Zero(t, logout.failures)
	assert.Empty(t, mr.Keys())
}

func TestDirectoryGatewayPhases(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	dir, err := newDirectory(8*1024, 1)
	require.NoError(t, err)

	ctx := context.Background()
	cfg := loadConfig{devices: 4, concurrency: 2, ops: 4, prefix: "gsload", secret: "loadtest-storage-secret", gateway: dir}
	devices := testDevices(cfg.devices)

	register := runRegisterPhase(dir, devices, cfg)
	require.Zero(t, register.failures)

	login := runLoginPhase(ctx, rdb, devices, cfg)
	require.Zero(t, login.failures)

	logout := runLogoutPhase(ctx, devices, cfg)
	assert.Zero(t, logout.failures)
}
