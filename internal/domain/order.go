package domain

import "time"

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

// List of possible order statuses
const (
	StatusPending   OrderStatus = "pending"
	StatusAssigned  OrderStatus = "assigned"
	StatusAccepted  OrderStatus = "accepted"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusInTransit OrderStatus = "in_transit"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
	StatusFailed    OrderStatus = "failed"
)

// List of allowed statuses
var allowedStatuses = [...]OrderStatus{
	StatusPending, StatusAssigned, StatusAccepted, StatusPickedUp,
	StatusInTransit, StatusDelivered, StatusCancelled, StatusFailed,
}

// Valid checks if the OrderStatus is valid
func (s OrderStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the order lifecycle.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// DeliveryType represents the backend delivery category of an order.
type DeliveryType string

// List of possible delivery types
const (
	DeliveryFood    DeliveryType = "food"
	DeliveryFast    DeliveryType = "fast"
	DeliveryRegular DeliveryType = "regular"
)

// BatchRef links an order to a multi-order batch.
type BatchRef struct {
	ID           string
	Number       string
	Consolidated bool
}

// Money is a monetary amount in minor units.
type Money struct {
	Amount   int64
	Currency string
}

// Address is a pickup or dropoff point.
type Address struct {
	Name   string
	Street string
	City   string
	Phone  string
	Lat    float64
	Lng    float64
}

// Order is an immutable snapshot of a single delivery task.
// ID is the delivery identifier used for all backend action calls;
// Number is the human-readable order number. They are distinct.
type Order struct {
	ID           string
	Number       string
	Status       OrderStatus
	Batch        *BatchRef
	Total        Money
	CODAmount    Money
	DeliveryType DeliveryType
	Priority     int
	Pickup       Address
	Dropoff      Address
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Batched reports whether the order belongs to a multi-order batch.
func (o Order) Batched() bool {
	return o.Batch != nil && o.Batch.ID != ""
}

// CanAccept reports whether the driver may accept the order.
func (o Order) CanAccept() bool {
	return o.Status == StatusPending || o.Status == StatusAssigned
}
