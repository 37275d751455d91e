package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus: состояние заказа
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusPaymentPending OrderStatus = "payment_pending"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
	StatusFailed         OrderStatus = "failed"
)

// transitions описывает допустимые переходы конечного автомата заказа
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusPaymentPending, StatusCancelled, StatusFailed},
	StatusPaymentPending: {StatusCompleted, StatusCancelled, StatusFailed},
}

// ParseOrderStatus возвращает статус, если строка входит в допустимый набор
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case StatusPending, StatusPaymentPending, StatusCompleted, StatusCancelled, StatusFailed:
		return st, true
	}
	return "", false
}

// Terminal сообщает, что из статуса нет переходов
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo проверяет переход по конечному автомату
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderLineItem: снимок строки заказа на момент оформления.
// Последующие изменения цен каталога на него не влияют.
type OrderLineItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Order представляет оформленный заказ. После создания меняется только статус.
type Order struct {
	ID             string          `json:"id"`
	SessionID      *string         `json:"session_id,omitempty"`
	UserID         *string         `json:"user_id,omitempty"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CouponCode     *string         `json:"coupon_code,omitempty"`
	Status         OrderStatus     `json:"status"`
	PlayerName     *string         `json:"player_name,omitempty"`
	Email          string          `json:"email"`
	PaymentMethod  string          `json:"payment_method"`
	IdempotencyKey *string         `json:"-"`
	Items          []OrderLineItem `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderFilter: параметры выборки заказов для админки
type OrderFilter struct {
	Status *OrderStatus
	Limit  int
	Offset int
}
