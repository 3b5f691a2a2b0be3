package lifecycle

import (
	"context"
	"sync"
	"time"

	"courier-driver-agent/internal/logx"
)

// Coordinator translates session and app-state transitions into realtime
// channel and order-sync actions. The push channel runs only while the
// driver is logged in, online and the app is foregrounded.
type Coordinator struct {
	realtime Realtime
	orders   OrderSyncer
	session  Session
	logger   logx.Logger

	// graceDelay gives the network stack a moment to settle after the
	// app returns to the foreground before the channel handshake.
	graceDelay time.Duration
	sleep      func(context.Context, time.Duration)

	mu         sync.Mutex
	online     bool
	foreground bool
}

// NewCoordinator returns a coordinator assuming an online, foregrounded
// app that is not yet authenticated.
func NewCoordinator(
	realtime Realtime,
	orders OrderSyncer,
	session Session,
	graceDelay time.Duration,
	logger logx.Logger,
) *Coordinator {
	if graceDelay <= 0 {
		graceDelay = 500 * time.Millisecond
	}
	return &Coordinator{
		realtime:   realtime,
		orders:     orders,
		session:    session,
		logger:     logger,
		graceDelay: graceDelay,
		sleep:      sleepWithContext,
		online:     true,
		foreground: true,
	}
}

// WithSleep overrides the grace sleep, for tests.
func (c *Coordinator) WithSleep(fn func(context.Context, time.Duration)) *Coordinator {
	if fn != nil {
		c.sleep = fn
	}
	return c
}

// OnAuthReady starts the push channel and primes the available list.
// Called once credentials are obtained.
func (c *Coordinator) OnAuthReady(ctx context.Context) {
	if !c.canRun() {
		c.logger.Debug("auth ready while offline or backgrounded, channel stays down")
		return
	}
	c.realtime.Start(ctx)
	if _, err := c.orders.RefreshOrders(ctx, true); err != nil {
		c.logger.Warn("initial available refresh failed", logx.Err(err))
	}
}

// OnLoggedOut tears the channel down and wipes all local order state.
func (c *Coordinator) OnLoggedOut() {
	c.realtime.Stop()
	c.orders.ClearOrders()
	c.logger.Info("session ended, local state cleared")
}

// OnOnlineChanged reacts to the driver toggling duty status. Going
// online starts the channel and refreshes the accepted list; going
// offline stops the channel but keeps local state.
func (c *Coordinator) OnOnlineChanged(ctx context.Context, online bool) {
	c.mu.Lock()
	c.online = online
	c.mu.Unlock()

	if !online {
		c.realtime.Stop()
		c.logger.Info("driver went offline, channel stopped")
		return
	}
	if !c.session.IsLoggedIn() || !c.isForeground() {
		return
	}

	c.realtime.Start(ctx)
	if _, err := c.orders.DriverOrders(ctx, true); err != nil {
		c.logger.Warn("mine refresh on online failed", logx.Err(err))
	}
}

// OnAppStateChanged handles background/foreground transitions. The
// channel is torn down in the background and rebuilt with fresh
// credentials when the app returns, then both lists are force-refreshed
// to cover events missed while suspended.
func (c *Coordinator) OnAppStateChanged(ctx context.Context, foreground bool) {
	c.mu.Lock()
	c.foreground = foreground
	c.mu.Unlock()

	if !foreground {
		c.realtime.Stop()
		c.logger.Info("app backgrounded, channel stopped")
		return
	}
	if !c.session.IsLoggedIn() || !c.isOnline() {
		return
	}

	c.realtime.Stop()
	c.sleep(ctx, c.graceDelay)
	if ctx.Err() != nil {
		return
	}

	if err := c.realtime.Reinitialize(ctx); err != nil {
		c.logger.Warn("foreground handshake failed, refreshing credentials", logx.Err(err))
		if rerr := c.session.Refresh(ctx); rerr != nil {
			c.logger.Warn("credential refresh failed, channel stays down", logx.Err(rerr))
			return
		}
		if err := c.realtime.Reinitialize(ctx); err != nil {
			// REST calls still work, the next foreground cycle retries
			c.logger.Warn("foreground handshake failed after refresh", logx.Err(err))
			return
		}
	}

	if _, err := c.orders.RefreshOrders(ctx, true); err != nil {
		c.logger.Warn("available refresh on foreground failed", logx.Err(err))
	}
	if _, err := c.orders.DriverOrders(ctx, true); err != nil {
		c.logger.Warn("mine refresh on foreground failed", logx.Err(err))
	}
}

func (c *Coordinator) canRun() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online && c.foreground
}

func (c *Coordinator) isOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *Coordinator) isForeground() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.foreground
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
