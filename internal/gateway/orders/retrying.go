package order

import (
	"context"
	"time"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/logx"
)

type gateway interface {
	AvailableOrders(ctx context.Context) ([]domain.Order, error)
	DriverOrders(ctx context.Context) ([]domain.Order, error)
	OrderHistory(ctx context.Context) ([]domain.Order, error)
	Accept(ctx context.Context, o domain.Order) error
	Decline(ctx context.Context, id, reason string) error
	Skip(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, deliveryID string, status domain.OrderStatus, photoID string) error
}

type counter interface {
	Inc()
}

// RetryConfig describes the retry behaviour of RetryingGateway.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingGateway retries the read endpoints on network-class failures.
// Mutating calls (accept, decline, skip, status) pass through untouched
// so an optimistic action can never fire twice.
type RetryingGateway struct {
	next    gateway
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
}

// NewRetryingGateway wraps next; returns nil when next is nil.
func NewRetryingGateway(next gateway, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingGateway {
	if next == nil {
		return nil
	}
	return &RetryingGateway{next: next, logger: logger, retries: retries, cfg: cfg}
}

// AvailableOrders fetches available orders with retries.
func (g *RetryingGateway) AvailableOrders(ctx context.Context) ([]domain.Order, error) {
	return g.list(ctx, "AvailableOrders", g.next.AvailableOrders)
}

// DriverOrders fetches the driver's orders with retries.
func (g *RetryingGateway) DriverOrders(ctx context.Context) ([]domain.Order, error) {
	return g.list(ctx, "DriverOrders", g.next.DriverOrders)
}

// OrderHistory fetches order history with retries.
func (g *RetryingGateway) OrderHistory(ctx context.Context) ([]domain.Order, error) {
	return g.list(ctx, "OrderHistory", g.next.OrderHistory)
}

// Accept delegates without retrying.
func (g *RetryingGateway) Accept(ctx context.Context, o domain.Order) error {
	return g.next.Accept(ctx, o)
}

// Decline delegates without retrying.
func (g *RetryingGateway) Decline(ctx context.Context, id, reason string) error {
	return g.next.Decline(ctx, id, reason)
}

// Skip delegates without retrying.
func (g *RetryingGateway) Skip(ctx context.Context, id string) error {
	return g.next.Skip(ctx, id)
}

// UpdateStatus delegates without retrying.
func (g *RetryingGateway) UpdateStatus(ctx context.Context, deliveryID string, status domain.OrderStatus, photoID string) error {
	return g.next.UpdateStatus(ctx, deliveryID, status, photoID)
}

func (g *RetryingGateway) list(
	ctx context.Context,
	method string,
	fn func(context.Context) ([]domain.Order, error),
) ([]domain.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		orders, err := fn(ctx)
		if err == nil {
			return orders, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == g.cfg.MaxAttempts || !apperr.Retryable(err) {
			break
		}

		delay := backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("orders gateway retry",
			logx.String("method", method),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return nil, lastErr
}

// backoff computes the capped exponential retry delay.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
