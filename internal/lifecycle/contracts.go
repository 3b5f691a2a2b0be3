package lifecycle

import (
	"context"

	"courier-driver-agent/internal/domain"
)

// Realtime is the push-channel surface the lifecycle drives.
type Realtime interface {
	Start(ctx context.Context)
	Stop()
	Reinitialize(ctx context.Context) error
}

// OrderSyncer triggers list refreshes after lifecycle transitions.
type OrderSyncer interface {
	RefreshOrders(ctx context.Context, force bool) ([]domain.Order, error)
	DriverOrders(ctx context.Context, force bool) ([]domain.Order, error)
	ClearOrders()
}

// Session exposes the credential state the lifecycle reacts to.
type Session interface {
	IsLoggedIn() bool
	Refresh(ctx context.Context) error
}
