package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/cache"
	"courier-driver-agent/internal/dedup"
	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/notify"
	"courier-driver-agent/internal/store"
)

// Cache keys for the three order lists
const (
	keyAvailable = "orders:available"
	keyMine      = "orders:mine"
	keyHistory   = "orders:history"
)

type counter interface {
	Inc()
}

// Options tune the provider timings.
type Options struct {
	// SettleDelay is the pause after a successful accept before the
	// forced refresh, tolerating backend eventual consistency.
	SettleDelay time.Duration
	ListTTL     time.Duration
	HistoryTTL  time.Duration
}

func (o Options) withDefaults() Options {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 1500 * time.Millisecond
	}
	if o.ListTTL <= 0 {
		o.ListTTL = 30 * time.Second
	}
	if o.HistoryTTL <= 0 {
		o.HistoryTTL = 5 * time.Minute
	}
	return o
}

// Provider is the driver-facing order facade: cached reads of the three
// lists and the accept/decline/skip/status flows with optimistic store
// mutation and reconciliation.
type Provider struct {
	gw      Gateway
	orders  *store.Store
	tracker *dedup.Tracker
	lists   *cache.Cache[[]domain.Order]
	slot    *notify.Slot
	logger  logx.Logger
	opts    Options

	sleep     func(context.Context, time.Duration)
	rollbacks counter
}

// NewProvider wires the provider and subscribes the list caches to their
// invalidation events.
func NewProvider(
	gw Gateway,
	orders *store.Store,
	tracker *dedup.Tracker,
	lists *cache.Cache[[]domain.Order],
	slot *notify.Slot,
	opts Options,
	logger logx.Logger,
) *Provider {
	lists.Subscribe(keyAvailable, cache.EventOrderAccepted, cache.EventOrderStatusChanged)
	lists.Subscribe(keyMine, cache.EventOrderAccepted, cache.EventOrderStatusChanged, cache.EventOrderCompleted)
	lists.Subscribe(keyHistory, cache.EventOrderCompleted)

	return &Provider{
		gw:      gw,
		orders:  orders,
		tracker: tracker,
		lists:   lists,
		slot:    slot,
		logger:  logger,
		opts:    opts.withDefaults(),
		sleep:   sleepWithContext,
	}
}

// WithSleep overrides the settle sleep, for tests.
func (p *Provider) WithSleep(fn func(context.Context, time.Duration)) *Provider {
	if fn != nil {
		p.sleep = fn
	}
	return p
}

// WithMetrics attaches the optimistic-rollback counter.
func (p *Provider) WithMetrics(rollbacks counter) *Provider {
	p.rollbacks = rollbacks
	return p
}

// RefreshOrders syncs the available list. A refresh that actually
// changed the list runs the whole pass through the dedup tracker and
// raises at most one alert per batch.
func (p *Provider) RefreshOrders(ctx context.Context, force bool) ([]domain.Order, error) {
	changed := false
	list, err := p.lists.GetOrCompute(ctx, keyAvailable, p.opts.ListTTL, force,
		func(ctx context.Context) ([]domain.Order, error) {
			fetched, err := p.gw.AvailableOrders(ctx)
			if err != nil {
				return nil, err
			}
			// compare before the cache swallows the new value
			changed = p.lists.HasChanged(keyAvailable, fetched)
			return fetched, nil
		})
	if err != nil {
		return nil, err
	}

	if changed {
		for _, o := range p.tracker.ObserveAll(list) {
			p.slot.Emit(o)
		}
	}
	p.orders.ReplaceAvailable(list)
	return list, nil
}

// DriverOrders syncs the driver's accepted orders.
func (p *Provider) DriverOrders(ctx context.Context, force bool) ([]domain.Order, error) {
	list, err := p.lists.GetOrCompute(ctx, keyMine, p.opts.ListTTL, force, p.gw.DriverOrders)
	if err != nil {
		return nil, err
	}
	p.orders.ReplaceMine(list)
	return list, nil
}

// OrderHistory syncs the driver's completed orders.
func (p *Provider) OrderHistory(ctx context.Context) ([]domain.Order, error) {
	list, err := p.lists.GetOrCompute(ctx, keyHistory, p.opts.HistoryTTL, false, p.gw.OrderHistory)
	if err != nil {
		return nil, err
	}
	p.orders.ReplaceHistory(list)
	return list, nil
}

// Accept accepts the order currently offered in available. On success
// the order is removed optimistically, the accept caches are dropped and
// after the settle delay both lists are force-refreshed.
func (p *Provider) Accept(ctx context.Context, id string) error {
	o, col, ok := p.orders.Get(id)
	if !ok || col != store.Available {
		return fmt.Errorf("%w: order %s is not available, refresh the list", apperr.ErrInvalid, id)
	}

	if err := p.gw.Accept(ctx, o); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			p.pruneStale(id)
			p.logger.Info("order gone on accept",
				logx.String("order_id", id),
				logx.String("order_number", o.Number),
			)
		}
		return err
	}

	p.orders.MarkPending(id)
	defer p.orders.ResolvePending(id)

	p.orders.Remove(store.Available, id)
	p.lists.InvalidateByEvent(cache.EventOrderAccepted)

	p.sleep(ctx, p.opts.SettleDelay)

	if _, err := p.DriverOrders(ctx, true); err != nil {
		p.logger.Warn("post-accept mine refresh failed", logx.String("order_id", id), logx.Err(err))
	}
	if _, err := p.RefreshOrders(ctx, true); err != nil {
		p.logger.Warn("post-accept available refresh failed", logx.String("order_id", id), logx.Err(err))
	}

	p.logger.Info("order accepted",
		logx.String("order_id", id),
		logx.String("order_number", o.Number),
		logx.Bool("batched", o.Batched()),
	)
	return nil
}

// Decline declines a tracked order. Declining an order that is merely
// available (not yet assigned) is allowed; the backend only rejects
// orders already assigned to another driver.
func (p *Provider) Decline(ctx context.Context, id, reason string) error {
	_, col, ok := p.orders.Get(id)
	if !ok || col == store.History {
		return fmt.Errorf("%w: order %s is not tracked", apperr.ErrInvalid, id)
	}

	if err := p.gw.Decline(ctx, id, reason); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			p.pruneStale(id)
		}
		return err
	}

	p.orders.Remove(col, id)
	p.lists.InvalidateByEvent(cache.EventOrderStatusChanged)
	p.logger.Info("order declined", logx.String("order_id", id), logx.String("reason", reason))
	return nil
}

// Skip drops the order from the driver's feed without declining it for
// other drivers.
func (p *Provider) Skip(ctx context.Context, id string) error {
	_, col, ok := p.orders.Get(id)
	if !ok || col != store.Available {
		return fmt.Errorf("%w: order %s is not available", apperr.ErrInvalid, id)
	}

	if err := p.gw.Skip(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			p.pruneStale(id)
		}
		return err
	}

	p.orders.Remove(store.Available, id)
	p.lists.Invalidate(keyAvailable)
	p.logger.Info("order skipped", logx.String("order_id", id))
	return nil
}

// UpdateStatus reports a delivery status transition. On success the
// tracked entry is replaced in place; a terminal status archives it.
func (p *Provider) UpdateStatus(ctx context.Context, deliveryID string, status domain.OrderStatus, photoID string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", apperr.ErrInvalid, status)
	}

	if err := p.gw.UpdateStatus(ctx, deliveryID, status, photoID); err != nil {
		return err
	}

	if o, col, ok := p.orders.Get(deliveryID); ok {
		o.Status = status
		p.orders.Replace(o)
		if status.Terminal() && col != store.History {
			p.orders.MoveTo(deliveryID, col, store.History)
		}
	}

	p.lists.InvalidateByEvent(cache.EventOrderStatusChanged)
	if status.Terminal() {
		p.lists.InvalidateByEvent(cache.EventOrderCompleted)
	}

	p.logger.Info("order status updated",
		logx.String("delivery_id", deliveryID),
		logx.String("status", string(status)),
	)
	return nil
}

// CanAccept reports whether the order may be accepted by the driver.
func (p *Provider) CanAccept(o domain.Order) bool {
	return o.CanAccept()
}

// Snapshot exposes the current store contents.
func (p *Provider) Snapshot() store.Snapshot {
	return p.orders.Snapshot()
}

// SetNotificationCallback registers the UI alert callback; nil clears it.
func (p *Provider) SetNotificationCallback(cb notify.Callback) {
	p.slot.Set(cb)
}

// ClearOrders wipes the store, the dedup sets and the list caches.
// Called on logout; previously seen orders and batches alert again
// afterwards.
func (p *Provider) ClearOrders() {
	p.orders.Clear()
	p.tracker.Clear()
	p.lists.Clear()
	p.logger.Info("orders cleared")
}

// pruneStale removes an order the backend no longer knows about.
func (p *Provider) pruneStale(id string) {
	p.orders.Remove(store.Available, id)
	p.orders.Remove(store.Mine, id)
	p.orders.ResolvePending(id)
	p.lists.Invalidate(keyAvailable)
	if p.rollbacks != nil {
		p.rollbacks.Inc()
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
