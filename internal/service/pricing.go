package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
	"github.com/shopspring/decimal"
)

// ValidationMode задаёт реакцию на недействительный купон
type ValidationMode int

const (
	// Strict: недействительный купон отклоняет весь запрос
	Strict ValidationMode = iota
	// Lenient: купон отбрасывается, заказ считается по полной цене
	Lenient
)

func (m ValidationMode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// PricedOrder: расчёт заказа до сохранения
type PricedOrder struct {
	Items             []models.OrderLineItem
	OriginalAmount    decimal.Decimal
	DiscountAmount    decimal.Decimal
	FinalAmount       decimal.Decimal
	AppliedCouponCode *string
	// CouponError заполняется в режиме Lenient, если купон был отброшен
	CouponError *CouponRejection
}

// CouponQuote: результат проверки купона против суммы
type CouponQuote struct {
	Code           string
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

// PricingEngine считает суммы заказа и проверяет купоны.
// В хранилище пишет только RedeemCoupon.
type PricingEngine struct {
	log      *slog.Logger
	products storage.ProductStorage
	coupons  storage.CouponStorage
	now      func() time.Time
}

func NewPricingEngine(log *slog.Logger, products storage.ProductStorage, coupons storage.CouponStorage) *PricingEngine {
	return &PricingEngine{
		log:      log,
		products: products,
		coupons:  coupons,
		now:      time.Now,
	}
}

// WithClock подменяет источник текущего времени
func (e *PricingEngine) WithClock(now func() time.Time) *PricingEngine {
	e.now = now
	return e
}

// PriceCart рассчитывает заказ по строкам корзины и необязательному коду купона.
// Строки с отсутствующим товаром пропускаются.
func (e *PricingEngine) PriceCart(ctx context.Context, lines []*models.CartLineItem, couponCode string, mode ValidationMode) (*PricedOrder, error) {
	const op = "service.PricingEngine.PriceCart"
	logger := e.log.With(slog.String("op", op), slog.String("mode", mode.String()))

	items := make([]models.OrderLineItem, 0, len(lines))
	original := decimal.Zero
	for _, line := range lines {
		if line.Quantity < 1 {
			logger.Warn("skipping cart line with invalid quantity", slog.Int64("line_id", line.ID))
			continue
		}
		product, err := e.products.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				logger.Warn("skipping cart line with missing product",
					slog.Int64("line_id", line.ID), slog.Int64("product_id", line.ProductID))
				continue
			}
			logger.Error("failed to resolve product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to resolve product %d: %w", op, line.ProductID, storageFault(err))
		}

		total := models.RoundMoney(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, models.OrderLineItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			TotalPrice:  total,
		})
		original = original.Add(total)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	original = models.RoundMoney(original)
	priced := &PricedOrder{
		Items:          items,
		OriginalAmount: original,
		DiscountAmount: decimal.Zero,
		FinalAmount:    original,
	}

	code := models.NormalizeCouponCode(couponCode)
	if code == "" {
		return priced, nil
	}

	quote, err := e.quote(ctx, code, original)
	if err != nil {
		var rejection *CouponRejection
		if mode == Lenient && errors.As(err, &rejection) {
			logger.Info("coupon dropped", slog.String("code", code), slog.String("reason", rejection.Reason))
			priced.CouponError = rejection
			return priced, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	priced.DiscountAmount = quote.DiscountAmount
	priced.FinalAmount = quote.FinalAmount
	priced.AppliedCouponCode = &quote.Code
	return priced, nil
}

// ValidateCoupon строго проверяет купон против суммы, переданной клиентом
func (e *PricingEngine) ValidateCoupon(ctx context.Context, code string, orderAmount decimal.Decimal) (*CouponQuote, error) {
	const op = "service.PricingEngine.ValidateCoupon"

	if orderAmount.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}
	normalized := models.NormalizeCouponCode(code)
	if normalized == "" {
		return nil, fmt.Errorf("%s: %w", op, reject(normalized, ReasonCouponNotFound, ErrCouponNotFound))
	}

	quote, err := e.quote(ctx, normalized, models.RoundMoney(orderAmount))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return quote, nil
}

// RedeemCoupon атомарно увеличивает счётчик использований купона.
// Вызывается только после сохранения заказа.
func (e *PricingEngine) RedeemCoupon(ctx context.Context, code string) error {
	const op = "service.PricingEngine.RedeemCoupon"
	code = models.NormalizeCouponCode(code)
	logger := e.log.With(slog.String("op", op), slog.String("code", code))

	coupon, err := e.coupons.IncrementUsage(ctx, code)
	switch {
	case err == nil:
		logger.Info("coupon redeemed", slog.Int("current_usages", coupon.CurrentUsages))
		return nil
	case errors.Is(err, storage.ErrCouponNotFound):
		logger.Warn("coupon disappeared before redemption")
		return nil
	case errors.Is(err, storage.ErrCouponExhausted):
		return fmt.Errorf("%s: %w", op, reject(code, ReasonCouponUsageExceeded, ErrCouponUsageExceeded))
	default:
		logger.Error("failed to increment coupon usage", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, storageFault(err))
	}
}

func (e *PricingEngine) quote(ctx context.Context, code string, amount decimal.Decimal) (*CouponQuote, error) {
	coupon, err := e.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCouponNotFound) {
			return nil, reject(code, ReasonCouponNotFound, ErrCouponNotFound)
		}
		return nil, fmt.Errorf("failed to load coupon: %w", storageFault(err))
	}

	if rejection := checkCoupon(coupon, amount, e.now()); rejection != nil {
		return nil, rejection
	}

	discount := discountFor(coupon, amount)
	return &CouponQuote{
		Code:           coupon.Code,
		DiscountAmount: discount,
		FinalAmount:    models.RoundMoney(decimal.Max(decimal.Zero, amount.Sub(discount))),
	}, nil
}

// checkCoupon проверяет купон в фиксированном порядке; первая ошибка побеждает
func checkCoupon(c *models.Coupon, amount decimal.Decimal, now time.Time) *CouponRejection {
	switch {
	case !c.IsActive:
		return reject(c.Code, ReasonCouponInactive, ErrCouponInactive)
	case now.Before(c.ValidFrom):
		return reject(c.Code, ReasonCouponNotYetValid, ErrCouponNotYetValid)
	case now.After(c.ValidUntil):
		return reject(c.Code, ReasonCouponExpired, ErrCouponExpired)
	case c.MinimumOrderAmount != nil && amount.LessThan(*c.MinimumOrderAmount):
		return reject(c.Code, ReasonCouponMinimumNotMet, ErrCouponMinimumNotMet)
	case c.Exhausted():
		return reject(c.Code, ReasonCouponUsageExceeded, ErrCouponUsageExceeded)
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// discountFor считает скидку; она никогда не превышает сумму заказа
func discountFor(c *models.Coupon, amount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = amount.Mul(c.DiscountValue).Div(hundred)
	case models.DiscountFixed:
		discount = decimal.Min(c.DiscountValue, amount)
	}
	discount = models.RoundMoney(discount)
	if discount.GreaterThan(amount) {
		return amount
	}
	return discount
}
