package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"courier-driver-agent/internal/auth"
	"courier-driver-agent/internal/cache"
	"courier-driver-agent/internal/config"
	"courier-driver-agent/internal/dedup"
	"courier-driver-agent/internal/domain"
	ordersgw "courier-driver-agent/internal/gateway/orders"
	"courier-driver-agent/internal/http/diag"
	"courier-driver-agent/internal/lifecycle"
	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/metrics"
	"courier-driver-agent/internal/notify"
	"courier-driver-agent/internal/realtime"
	"courier-driver-agent/internal/realtime/kafka"
	"courier-driver-agent/internal/service/driver"
	"courier-driver-agent/internal/service/orders"
	"courier-driver-agent/internal/store"
)

// Metrics bundles the agent counters registered on the local registry.
type Metrics struct {
	Notified       prometheus.Counter
	Suppressed     prometheus.Counter
	GatewayRetries prometheus.Counter
	Reconnects     prometheus.Counter
	Rollbacks      prometheus.Counter
}

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	loadConfig func() (*config.Config, error)
	logFatalf  func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		loadConfig: config.Load,
		logFatalf:  log.Fatalf,
	}
}

// WithConfig sets the configuration loading function
func (b *ContainerBuilder) WithConfig(fn func() (*config.Config, error)) *ContainerBuilder {
	if fn != nil {
		b.loadConfig = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// build builds and returns a new dig container
func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerState(container); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if err := registerMetrics(container); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := registerGateway(container); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerRealtime(container); err != nil {
		return nil, fmt.Errorf("realtime: %w", err)
	}
	if err := registerLifecycle(container); err != nil {
		return nil, fmt.Errorf("lifecycle: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context, loadConfig func() (*config.Config, error)) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		loadConfig,
	)
}

func registerState(container *dig.Container) error {
	return provideAll(container,
		store.New,
		dedup.NewTracker,
		notify.NewSlot,
		cache.New[[]domain.Order],
		driver.NewStatus,
	)
}

func registerMetrics(container *dig.Container) error {
	return provideAll(container,
		prometheus.NewRegistry,
		func(reg *prometheus.Registry) (*Metrics, error) {
			m := &Metrics{
				Notified:       metrics.NewNotificationsTotal(),
				Suppressed:     metrics.NewNotificationsSuppressedTotal(),
				GatewayRetries: metrics.NewGatewayRetriesTotal(),
				Reconnects:     metrics.NewRealtimeReconnectsTotal(),
				Rollbacks:      metrics.NewOrderRollbacksTotal(),
			}
			for _, c := range []prometheus.Collector{
				m.Notified, m.Suppressed, m.GatewayRetries, m.Reconnects, m.Rollbacks,
			} {
				if err := reg.Register(c); err != nil {
					return nil, fmt.Errorf("register collector: %w", err)
				}
			}
			return m, nil
		},
	)
}

func registerGateway(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config) *auth.TokenProvider {
			return auth.NewTokenProvider(cfg.API.BaseURL, cfg.API.Timeout)
		},
		func(cfg *config.Config, tokens *auth.TokenProvider) *ordersgw.Client {
			return ordersgw.NewClient(cfg.API.BaseURL, tokens, cfg.API.Timeout)
		},
		func(cfg *config.Config, client *ordersgw.Client, m *Metrics, logger logx.Logger) *ordersgw.RetryingGateway {
			return ordersgw.NewRetryingGateway(client, logger, m.GatewayRetries, ordersgw.RetryConfig{
				MaxAttempts: cfg.Gateway.MaxAttempts,
				BaseDelay:   cfg.Gateway.BaseDelay,
				MaxDelay:    cfg.Gateway.MaxDelay,
			})
		},
	)
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		func(
			cfg *config.Config,
			gw *ordersgw.RetryingGateway,
			st *store.Store,
			tracker *dedup.Tracker,
			lists *cache.Cache[[]domain.Order],
			slot *notify.Slot,
			m *Metrics,
			logger logx.Logger,
		) *orders.Provider {
			return orders.NewProvider(gw, st, tracker, lists, slot, orders.Options{
				SettleDelay: cfg.Orders.SettleDelay,
				ListTTL:     cfg.Orders.ListTTL,
				HistoryTTL:  cfg.Orders.HistoryTTL,
			}, logger).WithMetrics(m.Rollbacks)
		},
	)
}

func registerRealtime(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config, logger logx.Logger) *kafka.Transport {
			return kafka.NewTransport(kafka.Config{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.Topic,
				GroupID: cfg.Kafka.GroupID,
			}, logger)
		},
		func(
			cfg *config.Config,
			transport *kafka.Transport,
			tracker *dedup.Tracker,
			st *store.Store,
			slot *notify.Slot,
			status *driver.Status,
			m *Metrics,
			logger logx.Logger,
		) *realtime.Coordinator {
			policy := realtime.RetryPolicy{
				BaseDelay:   cfg.Realtime.BaseDelay,
				MaxDelay:    cfg.Realtime.MaxDelay,
				MaxAttempts: cfg.Realtime.MaxAttempts,
				Jitter:      cfg.Realtime.Jitter,
			}
			return realtime.NewCoordinator(transport, tracker, st, slot, status, policy, logger).
				WithMetrics(m.Notified, m.Suppressed, m.Reconnects)
		},
	)
}

func registerLifecycle(container *dig.Container) error {
	return provideAll(container,
		func(
			cfg *config.Config,
			coord *realtime.Coordinator,
			provider *orders.Provider,
			tokens *auth.TokenProvider,
			logger logx.Logger,
		) *lifecycle.Coordinator {
			return lifecycle.NewCoordinator(coord, provider, tokens, cfg.Orders.GraceDelay, logger)
		},
	)
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			// diagnostics only, never exposed beyond the host
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return provideAll(container,
		func(logger logx.Logger, st *store.Store, coord *realtime.Coordinator) *diag.Handlers {
			return diag.NewHandlers(logger, st, coord)
		},
		func(h *diag.Handlers, reg *prometheus.Registry) http.Handler {
			return diag.New(h, reg)
		},
		serverProvider,
	)
}
