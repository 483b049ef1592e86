package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"futures-trader-core/internal/config"
)

func TestNewConfigCache_Disabled(t *testing.T) {
	cc := NewConfigCache(config.RedisConfig{Enabled: false}, nil)
	require.False(t, cc.available(), "a disabled cache must never report available")
}

func TestConfigCache_TripsOpenAfterMaxFailures(t *testing.T) {
	cc := NewConfigCache(config.RedisConfig{Enabled: true, Address: "localhost:0"}, nil)
	require.True(t, cc.available())

	for i := 0; i < cc.maxFailures; i++ {
		cc.recordResult(errRedisDown)
	}

	require.False(t, cc.available(), "circuit must open once failureCount reaches maxFailures")
}

func TestConfigCache_RecoversAfterBackoff(t *testing.T) {
	cc := NewConfigCache(config.RedisConfig{Enabled: true, Address: "localhost:0"}, nil)
	for i := 0; i < cc.maxFailures; i++ {
		cc.recordResult(errRedisDown)
	}
	require.False(t, cc.available())

	cc.lastFailure = time.Now().Add(-2 * cc.recoveryBackoff)
	require.True(t, cc.available(), "circuit must allow a probing attempt once recoveryBackoff has elapsed")

	cc.recordResult(nil)
	require.True(t, cc.available())
	require.Equal(t, 0, cc.failureCount)
}

func TestTraderConfigKey(t *testing.T) {
	require.Equal(t, "trader:42:config", traderConfigKey(42))
}

var errRedisDown = &testRedisError{}

type testRedisError struct{}

func (e *testRedisError) Error() string { return "redis down" }
