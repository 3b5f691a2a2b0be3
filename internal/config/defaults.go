package config

import "time"

const defaultPort = 8091

var defaultAPI = API{
	BaseURL: "http://localhost:8000",
	Timeout: 10 * time.Second,
}

var defaultKafka = Kafka{
	Brokers: []string{"localhost:9092"},
	Topic:   "driver-orders",
	GroupID: "courier-driver-agent",
}

var defaultRealtime = Realtime{
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    30 * time.Second,
	MaxAttempts: 8,
	Jitter:      0.2,
}

var defaultOrders = Orders{
	SettleDelay: 1500 * time.Millisecond,
	ListTTL:     30 * time.Second,
	HistoryTTL:  5 * time.Minute,
	GraceDelay:  500 * time.Millisecond,
}

var defaultOrdersGateway = OrdersGateway{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

// DefaultPort returns the default diagnostics port.
func DefaultPort() int {
	return defaultPort
}

// DefaultAPI returns the default backend REST settings.
func DefaultAPI() API {
	return defaultAPI
}

// DefaultKafka returns the default push-topic settings.
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultRealtime returns the default push-channel retry settings.
func DefaultRealtime() Realtime {
	return defaultRealtime
}

// DefaultOrders returns the default order sync timings.
func DefaultOrders() Orders {
	return defaultOrders
}

// DefaultOrdersGateway returns the default REST gateway retry settings.
func DefaultOrdersGateway() OrdersGateway {
	return defaultOrdersGateway
}
