package models

import "time"

// CartLineItem: строка корзины, принадлежит сессии покупателя
type CartLineItem struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"` // всегда >= 1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
