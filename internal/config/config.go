package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// API stores backend REST settings.
type API struct {
	BaseURL string
	Timeout time.Duration
}

// Auth stores the driver credentials. Both empty means the agent starts
// logged out and waits for an interactive login.
type Auth struct {
	Username string
	Password string
}

// Kafka stores the orders push-topic settings.
type Kafka struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Realtime stores the push-channel retry settings.
type Realtime struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Jitter      float64
}

// Orders stores the order sync timings.
type Orders struct {
	SettleDelay time.Duration
	ListTTL     time.Duration
	HistoryTTL  time.Duration
	GraceDelay  time.Duration
}

// OrdersGateway stores the REST gateway retry settings.
type OrdersGateway struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Config stores the agent settings.
type Config struct {
	Port     int
	API      API
	Auth     Auth
	Kafka    Kafka
	Realtime Realtime
	Orders   Orders
	Gateway  OrdersGateway
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:     DefaultPort(),
		API:      DefaultAPI(),
		Kafka:    DefaultKafka(),
		Realtime: DefaultRealtime(),
		Orders:   DefaultOrders(),
		Gateway:  DefaultOrdersGateway(),
	}

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	cfg.API.BaseURL = envString("API_BASE_URL", cfg.API.BaseURL)
	if cfg.API.Timeout, err = envDuration("API_TIMEOUT", cfg.API.Timeout); err != nil {
		return nil, err
	}

	cfg.Auth.Username = envString("DRIVER_USERNAME", cfg.Auth.Username)
	cfg.Auth.Password = envString("DRIVER_PASSWORD", cfg.Auth.Password)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	cfg.Kafka.Topic = envString("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.GroupID = envString("KAFKA_GROUP_ID", cfg.Kafka.GroupID)

	if cfg.Realtime.BaseDelay, err = envDuration("REALTIME_BASE_DELAY", cfg.Realtime.BaseDelay); err != nil {
		return nil, err
	}
	if cfg.Realtime.MaxDelay, err = envDuration("REALTIME_MAX_DELAY", cfg.Realtime.MaxDelay); err != nil {
		return nil, err
	}
	if cfg.Realtime.MaxAttempts, err = envInt("REALTIME_MAX_ATTEMPTS", cfg.Realtime.MaxAttempts); err != nil {
		return nil, err
	}
	if cfg.Realtime.Jitter, err = envFloat("REALTIME_JITTER", cfg.Realtime.Jitter); err != nil {
		return nil, err
	}

	if cfg.Orders.SettleDelay, err = envDuration("ORDERS_SETTLE_DELAY", cfg.Orders.SettleDelay); err != nil {
		return nil, err
	}
	if cfg.Orders.ListTTL, err = envDuration("ORDERS_LIST_TTL", cfg.Orders.ListTTL); err != nil {
		return nil, err
	}
	if cfg.Orders.HistoryTTL, err = envDuration("ORDERS_HISTORY_TTL", cfg.Orders.HistoryTTL); err != nil {
		return nil, err
	}
	if cfg.Orders.GraceDelay, err = envDuration("ORDERS_GRACE_DELAY", cfg.Orders.GraceDelay); err != nil {
		return nil, err
	}

	if cfg.Gateway.MaxAttempts, err = envInt("GATEWAY_MAX_ATTEMPTS", cfg.Gateway.MaxAttempts); err != nil {
		return nil, err
	}
	if cfg.Gateway.BaseDelay, err = envDuration("GATEWAY_BASE_DELAY", cfg.Gateway.BaseDelay); err != nil {
		return nil, err
	}
	if cfg.Gateway.MaxDelay, err = envDuration("GATEWAY_MAX_DELAY", cfg.Gateway.MaxDelay); err != nil {
		return nil, err
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "diagnostics port to listen on")
	pflag.StringVar(&cfg.API.BaseURL, "api-base-url", cfg.API.BaseURL, "backend base url")
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if cfg.Realtime.Jitter < 0 || cfg.Realtime.Jitter >= 1 {
		return nil, fmt.Errorf("invalid realtime jitter: %v", cfg.Realtime.Jitter)
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
