package config_test

import (
	"io"
	"os"
	"testing"
	"time"

	"courier-driver-agent/internal/config"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Helper()
	old := pflag.CommandLine
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	t.Cleanup(func() {
		pflag.CommandLine = old
	})
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "API_BASE_URL", "API_TIMEOUT",
		"DRIVER_USERNAME", "DRIVER_PASSWORD",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID",
		"REALTIME_BASE_DELAY", "REALTIME_MAX_DELAY", "REALTIME_MAX_ATTEMPTS", "REALTIME_JITTER",
		"ORDERS_SETTLE_DELAY", "ORDERS_LIST_TTL", "ORDERS_HISTORY_TTL", "ORDERS_GRACE_DELAY",
		"GATEWAY_MAX_ATTEMPTS", "GATEWAY_BASE_DELAY", "GATEWAY_MAX_DELAY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Equal(t, 8091, cfg.Port)
	require.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	require.Equal(t, 10*time.Second, cfg.API.Timeout)

	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "driver-orders", cfg.Kafka.Topic)
	require.Equal(t, "courier-driver-agent", cfg.Kafka.GroupID)

	require.Equal(t, 500*time.Millisecond, cfg.Realtime.BaseDelay)
	require.Equal(t, 30*time.Second, cfg.Realtime.MaxDelay)
	require.Equal(t, 8, cfg.Realtime.MaxAttempts)
	require.InDelta(t, 0.2, cfg.Realtime.Jitter, 1e-9)

	require.Equal(t, 1500*time.Millisecond, cfg.Orders.SettleDelay)
	require.Equal(t, 30*time.Second, cfg.Orders.ListTTL)
	require.Equal(t, 5*time.Minute, cfg.Orders.HistoryTTL)
	require.Equal(t, 500*time.Millisecond, cfg.Orders.GraceDelay)

	require.Equal(t, 4, cfg.Gateway.MaxAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	t.Setenv("PORT", "9090")
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_TOPIC", "orders-push")
	t.Setenv("REALTIME_MAX_ATTEMPTS", "3")
	t.Setenv("ORDERS_SETTLE_DELAY", "2s")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	require.Equal(t, 5*time.Second, cfg.API.Timeout)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "orders-push", cfg.Kafka.Topic)
	require.Equal(t, 3, cfg.Realtime.MaxAttempts)
	require.Equal(t, 2*time.Second, cfg.Orders.SettleDelay)
}

func TestLoad_InvalidPort(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	t.Setenv("PORT", "70000")

	cfg, err := config.Load()
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestLoad_InvalidDuration(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	t.Setenv("ORDERS_LIST_TTL", "soon")

	cfg, err := config.Load()
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestLoad_InvalidJitter(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	t.Setenv("REALTIME_JITTER", "1.5")

	cfg, err := config.Load()
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestLoad_FlagsParseError(t *testing.T) {
	oldArgs := os.Args
	oldCommandLine := pflag.CommandLine

	defer func() {
		os.Args = oldArgs
		pflag.CommandLine = oldCommandLine
	}()

	clearEnv(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	pflag.CommandLine = fs
	os.Args = []string{"cmd", "--port=not-a-number"}

	cfg, err := config.Load()

	require.Error(t, err)
	require.Nil(t, cfg)
	require.Contains(t, err.Error(), "parse flags")
}
