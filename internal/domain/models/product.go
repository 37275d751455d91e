package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар магазина: привилегию (ранг) или пакет монет
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"` // цена за единицу, всегда > 0
	Category    string          `json:"category"`
	Featured    bool            `json:"featured"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ProductFilter задаёт условия выборки каталога
type ProductFilter struct {
	Category     string
	FeaturedOnly bool
}
