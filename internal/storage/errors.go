package storage

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCartLineNotFound = errors.New("cart line not found")
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
	ErrCouponCodeTaken  = errors.New("coupon code already exists")
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrder   = errors.New("order with this idempotency key already exists")
	ErrStatusConflict   = errors.New("order status was changed concurrently")
	ErrUserNotFound     = errors.New("user not found")
)

// pgUniqueViolation: код ошибки Postgres при нарушении уникального индекса
const pgUniqueViolation = "23505"

// isUniqueViolation проверяет, что ошибка вызвана нарушением уникальности
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// rowScanner: общий интерфейс для *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
