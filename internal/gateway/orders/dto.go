package order

import (
	"time"

	"courier-driver-agent/internal/domain"
)

type addressDTO struct {
	Name   string  `json:"name"`
	Street string  `json:"street"`
	City   string  `json:"city"`
	Phone  string  `json:"phone"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

type batchDTO struct {
	BatchID        string `json:"batch_id"`
	BatchNumber    string `json:"batch_number"`
	IsConsolidated bool   `json:"is_consolidated"`
}

type orderDTO struct {
	ID           string      `json:"id"`
	OrderNumber  string      `json:"order_number"`
	Status       string      `json:"status"`
	Batch        *batchDTO   `json:"batch,omitempty"`
	TotalAmount  int64       `json:"total_amount"`
	Currency     string      `json:"currency"`
	CODAmount    int64       `json:"cod_amount"`
	DeliveryType string      `json:"delivery_type"`
	Priority     int         `json:"priority"`
	Pickup       addressDTO  `json:"pickup"`
	Dropoff      addressDTO  `json:"dropoff"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// listDTO matches the backend's paginated list envelope.
type listDTO struct {
	Results []orderDTO `json:"results"`
}

type errorDTO struct {
	Detail string `json:"detail"`
}

type declineDTO struct {
	Reason string `json:"reason,omitempty"`
}

type statusDTO struct {
	Status  string `json:"status"`
	PhotoID string `json:"photo_id,omitempty"`
}

func mapAddress(a addressDTO) domain.Address {
	return domain.Address{
		Name:   a.Name,
		Street: a.Street,
		City:   a.City,
		Phone:  a.Phone,
		Lat:    a.Lat,
		Lng:    a.Lng,
	}
}

func mapOrder(d orderDTO) domain.Order {
	o := domain.Order{
		ID:           d.ID,
		Number:       d.OrderNumber,
		Status:       domain.OrderStatus(d.Status),
		Total:        domain.Money{Amount: d.TotalAmount, Currency: d.Currency},
		CODAmount:    domain.Money{Amount: d.CODAmount, Currency: d.Currency},
		DeliveryType: domain.DeliveryType(d.DeliveryType),
		Priority:     d.Priority,
		Pickup:       mapAddress(d.Pickup),
		Dropoff:      mapAddress(d.Dropoff),
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

func mapOrders(list listDTO) []domain.Order {
	orders := make([]domain.Order, 0, len(list.Results))
	for _, d := range list.Results {
		if d.ID == "" {
			continue
		}
		orders = append(orders, mapOrder(d))
	}
	return orders
}
