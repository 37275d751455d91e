package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
)

// PlaceOrderInput: данные оформления заказа. Пустые строки означают «не указано».
type PlaceOrderInput struct {
	SessionID      string
	UserID         string
	CouponCode     string
	PlayerName     string
	Email          string
	PaymentMethod  string
	IdempotencyKey string
}

// PlacedOrder: результат оформления
type PlacedOrder struct {
	Order *models.Order
	// CouponError: причина, по которой купон не был применён
	CouponError *CouponRejection
	// Replayed: заказ с тем же ключом идемпотентности уже существовал
	Replayed bool
}

type CheckoutService struct {
	log      *slog.Logger
	carts    storage.CartStorage
	orders   storage.OrderStorage
	engine   *PricingEngine
	notifier OrderNotifier
}

func NewCheckoutService(log *slog.Logger, carts storage.CartStorage, orders storage.OrderStorage, engine *PricingEngine, notifier OrderNotifier) *CheckoutService {
	return &CheckoutService{
		log:      log,
		carts:    carts,
		orders:   orders,
		engine:   engine,
		notifier: notifierOrNop(notifier),
	}
}

// PlaceOrder оформляет заказ из корзины сессии.
// Порядок: расчёт → сохранение заказа → погашение купона → очистка корзины → уведомление.
// Ошибки после сохранения заказа только логируются, заказ остаётся в силе.
func (s *CheckoutService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlacedOrder, error) {
	const op = "service.CheckoutService.PlaceOrder"
	logger := s.log.With(slog.String("op", op), slog.String("session_id", in.SessionID))

	if in.SessionID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	if in.IdempotencyKey != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, in.SessionID, in.IdempotencyKey)
		switch {
		case err == nil:
			logger.Info("order replayed by idempotency key", slog.String("order_id", existing.ID))
			return &PlacedOrder{Order: existing, Replayed: true}, nil
		case !errors.Is(err, storage.ErrOrderNotFound):
			logger.Error("failed to look up idempotency key", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to look up idempotency key: %w", op, storageFault(err))
		}
	}

	lines, err := s.carts.GetLines(ctx, in.SessionID)
	if err != nil {
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, storageFault(err))
	}

	priced, err := s.engine.PriceCart(ctx, lines, in.CouponCode, Lenient)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order := &models.Order{
		ID:             uuid.NewString(),
		SessionID:      &in.SessionID,
		UserID:         optional(in.UserID),
		OriginalAmount: priced.OriginalAmount,
		DiscountAmount: priced.DiscountAmount,
		TotalAmount:    priced.FinalAmount,
		CouponCode:     priced.AppliedCouponCode,
		Status:         models.StatusPending,
		PlayerName:     optional(in.PlayerName),
		Email:          strings.TrimSpace(in.Email),
		PaymentMethod:  in.PaymentMethod,
		IdempotencyKey: optional(in.IdempotencyKey),
		Items:          priced.Items,
	}

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateOrder) && in.IdempotencyKey != "" {
			// Параллельный запрос той же сессии с тем же ключом успел раньше
			existing, getErr := s.orders.GetByIdempotencyKey(ctx, in.SessionID, in.IdempotencyKey)
			if getErr != nil {
				logger.Error("failed to load concurrent order", slog.Any("error", getErr))
				return nil, fmt.Errorf("%s: failed to load concurrent order: %w", op, storageFault(getErr))
			}
			return &PlacedOrder{Order: existing, Replayed: true}, nil
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, storageFault(err))
	}
	logger = logger.With(slog.String("order_id", created.ID))

	if created.CouponCode != nil {
		if err := s.engine.RedeemCoupon(ctx, *created.CouponCode); err != nil {
			logger.Warn("coupon redemption failed, order stands", slog.Any("error", err))
		}
	}

	if err := s.carts.Clear(ctx, in.SessionID); err != nil {
		logger.Error("failed to clear cart", slog.Any("error", err))
	}

	s.notifier.OrderCreated(created)

	logger.Info("order placed",
		slog.String("total", models.FormatMoney(created.TotalAmount)),
		slog.Bool("coupon_applied", created.CouponCode != nil))
	return &PlacedOrder{Order: created, CouponError: priced.CouponError}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
