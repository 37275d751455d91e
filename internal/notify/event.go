// Package notify доставляет события заказов во внешние системы.
// Доставка асинхронная: ошибки логируются и никогда не влияют на заказ.
package notify

import (
	"time"

	"github.com/linemk/mc-store/internal/domain/models"
)

type EventType string

const (
	EventOrderCreated  EventType = "order_created"
	EventStatusChanged EventType = "order_status_changed"
)

// Event: сообщение о заказе в формате JSON
type Event struct {
	Type           EventType          `json:"type"`
	OrderID        string             `json:"orderId"`
	Email          string             `json:"email"`
	PlayerName     *string            `json:"playerName,omitempty"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previousStatus,omitempty"`
	TotalAmount    string             `json:"totalAmount"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

func newEvent(t EventType, order *models.Order, previous models.OrderStatus, at time.Time) Event {
	return Event{
		Type:           t,
		OrderID:        order.ID,
		Email:          order.Email,
		PlayerName:     order.PlayerName,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalAmount:    models.FormatMoney(order.TotalAmount),
		OccurredAt:     at.UTC(),
	}
}
