package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon is inactive")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponMinimumNotMet = errors.New("order amount is below the coupon minimum")
	ErrCouponUsageExceeded = errors.New("coupon usage limit reached")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrInvalidAmount       = errors.New("amount must not be negative")
	ErrInvalidTransition   = errors.New("order status transition is not allowed")
	ErrInvalidStatus       = errors.New("unknown order status")
	ErrAccessDenied        = errors.New("access denied")
	ErrNotFound            = errors.New("not found")
	ErrStorage             = errors.New("storage failure")
	ErrCouponExists        = errors.New("coupon with this code already exists")
	ErrInvalidCoupon       = errors.New("invalid coupon")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

// ErrCouponNotYetValid: купон, окно действия которого ещё не началось.
// Для errors.Is он неотличим от ErrCouponExpired.
var ErrCouponNotYetValid error = windowError("coupon is not yet valid")

type windowError string

func (e windowError) Error() string { return string(e) }

func (e windowError) Is(target error) bool { return target == ErrCouponExpired }

// Машиночитаемые причины отказа купона
const (
	ReasonCouponNotFound      = "coupon_not_found"
	ReasonCouponInactive      = "coupon_inactive"
	ReasonCouponExpired       = "coupon_expired"
	ReasonCouponNotYetValid   = "coupon_not_yet_valid"
	ReasonCouponMinimumNotMet = "coupon_minimum_not_met"
	ReasonCouponUsageExceeded = "coupon_usage_exceeded"
)

// CouponRejection: типизированный результат неуспешной проверки купона.
// Err всегда один из sentinel-ошибок купона.
type CouponRejection struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (r *CouponRejection) Error() string {
	return fmt.Sprintf("coupon %q rejected: %v", r.Code, r.Err)
}

func (r *CouponRejection) Unwrap() error {
	return r.Err
}

// Message возвращает текст причины без кода купона
func (r *CouponRejection) Message() string {
	return r.Err.Error()
}

func reject(code, reason string, err error) *CouponRejection {
	return &CouponRejection{Code: code, Reason: reason, Err: err}
}

// storageFault помечает неожиданную ошибку хранилища, сохраняя исходную причину
func storageFault(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
