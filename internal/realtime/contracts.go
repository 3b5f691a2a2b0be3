package realtime

import (
	"context"

	"courier-driver-agent/internal/domain"
)

// State names the coordinator's connection state.
type State string

// List of connection states
const (
	StateDisconnected State = "disconnected"
	StateInitializing State = "initializing"
	StateConnected    State = "connected"
	StateRetrying     State = "retrying"
)

// Handler receives events from the push channel.
type Handler interface {
	HandleNewOrder(ctx context.Context, o domain.Order)
	HandleOrderUpdate(ctx context.Context, o domain.Order)
	HandleError(ctx context.Context, msg string)
}

// Transport is the push channel owned by the coordinator. Initialize
// performs the handshake and may be called again after a failure; Run
// blocks delivering events to the handler until the context is done or
// the channel breaks; Close releases the channel resources.
type Transport interface {
	Initialize(ctx context.Context) error
	Run(ctx context.Context, h Handler) error
	Close() error
}

// DriverStatus exposes the read-only driver flags gating order intake.
type DriverStatus interface {
	State() domain.DriverState
}

// ConnectionCallback is informed of state transitions and non-fatal
// channel errors; it is never invoked for suppressed auth noise.
type ConnectionCallback func(state State, detail string)
