//go:generate mockgen -source=contracts.go -destination=orders_mocks_test.go -package=orders_test

package orders

import (
	"context"

	"courier-driver-agent/internal/domain"
)

// Gateway abstracts the backend order endpoints consumed by the provider.
type Gateway interface {
	AvailableOrders(ctx context.Context) ([]domain.Order, error)
	DriverOrders(ctx context.Context) ([]domain.Order, error)
	OrderHistory(ctx context.Context) ([]domain.Order, error)
	Accept(ctx context.Context, o domain.Order) error
	Decline(ctx context.Context, id, reason string) error
	Skip(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, deliveryID string, status domain.OrderStatus, photoID string) error
}
