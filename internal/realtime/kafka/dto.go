package kafka

import (
	"time"

	"courier-driver-agent/internal/domain"
)

// Event types pushed on the orders topic
const (
	eventNewOrder    = "new_order"
	eventOrderUpdate = "order_update"
)

type batchDTO struct {
	BatchID        string `json:"batch_id"`
	BatchNumber    string `json:"batch_number"`
	IsConsolidated bool   `json:"is_consolidated"`
}

type orderDTO struct {
	ID           string    `json:"id"`
	OrderNumber  string    `json:"order_number"`
	Status       string    `json:"status"`
	Batch        *batchDTO `json:"batch,omitempty"`
	TotalAmount  int64     `json:"total_amount"`
	Currency     string    `json:"currency"`
	DeliveryType string    `json:"delivery_type"`
	Priority     int       `json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type eventDTO struct {
	Type  string   `json:"type"`
	Order orderDTO `json:"order"`
}

func mapOrder(d orderDTO) domain.Order {
	o := domain.Order{
		ID:           d.ID,
		Number:       d.OrderNumber,
		Status:       domain.OrderStatus(d.Status),
		Total:        domain.Money{Amount: d.TotalAmount, Currency: d.Currency},
		DeliveryType: domain.DeliveryType(d.DeliveryType),
		Priority:     d.Priority,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Batch != nil && d.Batch.BatchID != "" {
		o.Batch = &domain.BatchRef{
			ID:           d.Batch.BatchID,
			Number:       d.Batch.BatchNumber,
			Consolidated: d.Batch.IsConsolidated,
		}
	}
	return o
}
