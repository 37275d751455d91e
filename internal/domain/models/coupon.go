package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType: способ расчёта скидки купона
type DiscountType string

const (
	// DiscountPercentage: скидка в процентах от суммы заказа
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed: фиксированная скидка, не больше суммы заказа
	DiscountFixed DiscountType = "fixed"
)

// Valid сообщает, известен ли тип скидки
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Coupon представляет промокод. Код хранится в верхнем регистре и уникален.
type Coupon struct {
	ID                 int64            `json:"id"`
	Code               string           `json:"code"`
	DiscountType       DiscountType     `json:"discount_type"`
	DiscountValue      decimal.Decimal  `json:"discount_value"`
	MinimumOrderAmount *decimal.Decimal `json:"minimum_order_amount,omitempty"`
	MaxUsages          *int             `json:"max_usages,omitempty"`
	CurrentUsages      int              `json:"current_usages"`
	ValidFrom          time.Time        `json:"valid_from"`
	ValidUntil         time.Time        `json:"valid_until"`
	IsActive           bool             `json:"is_active"`
	Description        *string          `json:"description,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NormalizeCouponCode приводит код к каноническому виду: без пробелов по краям, в верхнем регистре
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Exhausted сообщает, исчерпан ли лимит использований
func (c *Coupon) Exhausted() bool {
	return c.MaxUsages != nil && c.CurrentUsages >= *c.MaxUsages
}

// Validate проверяет инварианты купона перед сохранением
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return errors.New("code is required")
	}
	if c.Code != NormalizeCouponCode(c.Code) {
		return errors.New("code must be trimmed and upper-case")
	}
	if !c.DiscountType.Valid() {
		return errors.New("discount type must be percentage or fixed")
	}
	if !c.DiscountValue.IsPositive() {
		return errors.New("discount value must be positive")
	}
	if c.DiscountType == DiscountPercentage && c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("percentage discount cannot exceed 100")
	}
	if c.MinimumOrderAmount != nil && c.MinimumOrderAmount.IsNegative() {
		return errors.New("minimum order amount cannot be negative")
	}
	if c.MaxUsages != nil && *c.MaxUsages < 1 {
		return errors.New("max usages must be at least 1")
	}
	if c.CurrentUsages < 0 {
		return errors.New("current usages cannot be negative")
	}
	if c.MaxUsages != nil && c.CurrentUsages > *c.MaxUsages {
		return errors.New("current usages exceed max usages")
	}
	if c.ValidFrom.After(c.ValidUntil) {
		return errors.New("valid_from must not be after valid_until")
	}
	return nil
}
