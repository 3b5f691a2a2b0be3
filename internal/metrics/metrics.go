package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewNotificationsTotal returns a Prometheus counter for the number of new-order alerts raised
func NewNotificationsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_notifications_total",
		Help: "Total number of new-order alerts raised",
	})
}

// NewNotificationsSuppressedTotal returns a Prometheus counter for the number of duplicate alerts suppressed by the dedup tracker
func NewNotificationsSuppressedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_notifications_suppressed_total",
		Help: "Total number of duplicate alerts suppressed by the dedup tracker",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewRealtimeReconnectsTotal returns a Prometheus counter for the number of push-channel reconnect attempts
func NewRealtimeReconnectsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_reconnects_total",
		Help: "Total number of push-channel reconnect attempts",
	})
}

// NewOrderRollbacksTotal returns a Prometheus counter for the number of optimistic mutations rolled back after a stale-order response
func NewOrderRollbacksTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_rollbacks_total",
		Help: "Total number of optimistic mutations rolled back after a stale-order response",
	})
}
