package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"courier-driver-agent/internal/dedup"
	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/notify"
	"courier-driver-agent/internal/store"
)

type counter interface {
	Inc()
}

// Coordinator owns the push-channel lifecycle and feeds incoming orders
// through the dedup tracker into the order store. It must only run while
// the driver is online; the lifecycle coordinator enforces that.
type Coordinator struct {
	transport Transport
	tracker   *dedup.Tracker
	orders    *store.Store
	slot      *notify.Slot
	driver    DriverStatus
	logger    logx.Logger
	policy    RetryPolicy

	onConnection ConnectionCallback
	notified     counter
	suppressed   counter
	reconnects   counter

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator creates a stopped coordinator.
func NewCoordinator(
	transport Transport,
	tracker *dedup.Tracker,
	orders *store.Store,
	slot *notify.Slot,
	driver DriverStatus,
	policy RetryPolicy,
	logger logx.Logger,
) *Coordinator {
	return &Coordinator{
		transport: transport,
		tracker:   tracker,
		orders:    orders,
		slot:      slot,
		driver:    driver,
		policy:    policy,
		logger:    logger,
		state:     StateDisconnected,
	}
}

// WithConnectionCallback sets the connection-change callback.
func (c *Coordinator) WithConnectionCallback(cb ConnectionCallback) *Coordinator {
	c.onConnection = cb
	return c
}

// WithMetrics attaches the notification and reconnect counters.
func (c *Coordinator) WithMetrics(notified, suppressed, reconnects counter) *Coordinator {
	c.notified = notified
	c.suppressed = suppressed
	c.reconnects = reconnects
	return c
}

// State returns the current connection state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start launches the connect/consume loop. Starting a running
// coordinator is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(runCtx, false)
}

// Stop forces the coordinator back to Disconnected and cancels any
// pending retry timers. In-flight REST calls elsewhere are unaffected.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
	c.setState(StateDisconnected, "stopped")
}

// Reinitialize stops the coordinator, performs a single synchronous
// handshake and resumes the consume loop on success. The error is
// returned so the caller can refresh credentials and try again.
func (c *Coordinator) Reinitialize(ctx context.Context) error {
	c.Stop()

	c.setState(StateInitializing, "reinitializing")
	if err := c.transport.Initialize(ctx); err != nil {
		c.setState(StateDisconnected, "handshake failed")
		return err
	}

	c.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(runCtx, true)
	return nil
}

func (c *Coordinator) run(ctx context.Context, initialized bool) {
	defer c.wg.Done()

	attempt := 0
	for {
		if !initialized {
			c.setState(StateInitializing, "")
			if err := c.transport.Initialize(ctx); err != nil {
				if ctx.Err() != nil {
					c.finish(ctx)
					return
				}
				attempt++
				if !c.backoff(ctx, attempt, err.Error()) {
					return
				}
				continue
			}
		}
		initialized = false
		attempt = 0
		c.setState(StateConnected, "")

		err := c.transport.Run(ctx, c)
		if ctx.Err() != nil {
			c.finish(ctx)
			return
		}
		attempt++
		detail := "channel closed"
		if err != nil {
			detail = err.Error()
		}
		if !c.backoff(ctx, attempt, detail) {
			return
		}
	}
}

// backoff waits out the retry delay; false means the loop must exit.
func (c *Coordinator) backoff(ctx context.Context, attempt int, detail string) bool {
	if c.policy.Exhausted(attempt) {
		c.logger.Error("realtime retries exhausted",
			logx.Int("attempts", attempt-1),
			logx.String("detail", detail),
		)
		c.finish(ctx)
		return false
	}

	c.setState(StateRetrying, detail)
	if c.reconnects != nil {
		c.reconnects.Inc()
	}
	delay := c.policy.Delay(attempt)
	c.logger.Warn("realtime retrying",
		logx.Int("attempt", attempt),
		logx.Duration("delay", delay),
		logx.String("detail", detail),
	)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		c.finish(ctx)
		return false
	case <-t.C:
		return true
	}
}

func (c *Coordinator) finish(ctx context.Context) {
	if err := c.transport.Close(); err != nil {
		c.logger.Error("realtime transport close", logx.Err(err))
	}
	c.mu.Lock()
	if c.cancel != nil && ctx.Err() == nil {
		// loop gave up on its own, release the cancel slot
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.setState(StateDisconnected, "")
}

func (c *Coordinator) setState(s State, detail string) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	cb := c.onConnection
	c.mu.Unlock()

	if changed && cb != nil {
		cb(s, detail)
	}
}

// HandleNewOrder gates the event on the driver flags, deduplicates it
// and stores it. Events arriving while the driver cannot receive are
// dropped entirely, not even marked seen.
func (c *Coordinator) HandleNewOrder(ctx context.Context, o domain.Order) {
	if o.ID == "" {
		return
	}
	st := c.driver.State()
	if !st.CanReceive() {
		c.logger.Debug("new order dropped, driver unavailable",
			logx.String("order_id", o.ID),
			logx.Bool("online", st.Online),
			logx.Bool("available", st.Available),
			logx.Bool("on_duty", st.OnDuty),
		)
		return
	}

	d := c.tracker.Observe(o)
	if d.Notify {
		if c.notified != nil {
			c.notified.Inc()
		}
		c.slot.Emit(d.Representative)
	} else if c.suppressed != nil {
		c.suppressed.Inc()
	}

	if _, _, ok := c.orders.Get(o.ID); !ok {
		if err := c.orders.Upsert(store.Available, o); err != nil {
			c.logger.Error("new order upsert", logx.String("order_id", o.ID), logx.Err(err))
		}
	}
}

// HandleOrderUpdate replaces the matching entry wherever it currently
// lives; updates are not subject to batch suppression. A terminal status
// moves the order to history.
func (c *Coordinator) HandleOrderUpdate(ctx context.Context, o domain.Order) {
	if o.ID == "" {
		return
	}
	_, col, ok := c.orders.Get(o.ID)
	if !ok {
		return
	}
	c.orders.Replace(o)
	if o.Status.Terminal() && col != store.History {
		c.orders.MoveTo(o.ID, col, store.History)
	}
}

// HandleError logs and reports channel errors. Authentication-shaped
// errors are connection-layer noise and are suppressed from the
// callback; REST calls remain independently functional.
func (c *Coordinator) HandleError(ctx context.Context, msg string) {
	if authShaped(msg) {
		c.logger.Debug("realtime auth noise suppressed", logx.String("detail", msg))
		return
	}
	c.logger.Warn("realtime channel error", logx.String("detail", msg))

	c.mu.Lock()
	cb := c.onConnection
	state := c.state
	c.mu.Unlock()
	if cb != nil {
		cb(state, msg)
	}
}

func authShaped(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range []string{"auth", "token", "unauthorized", "jwt", "credential"} {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}
