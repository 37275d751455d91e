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

// CreateCouponInput: параметры нового купона
type CreateCouponInput struct {
	Code               string
	DiscountType       string
	DiscountValue      decimal.Decimal
	MinimumOrderAmount *decimal.Decimal
	MaxUsages          *int
	ValidFrom          time.Time
	ValidUntil         time.Time
	IsActive           bool
	Description        *string
}

// CouponService: проверка купонов покупателями и управление ими из админки
type CouponService struct {
	log     *slog.Logger
	coupons storage.CouponStorage
	engine  *PricingEngine
	access  AccessPolicy
}

func NewCouponService(log *slog.Logger, coupons storage.CouponStorage, engine *PricingEngine, access AccessPolicy) *CouponService {
	return &CouponService{log: log, coupons: coupons, engine: engine, access: access}
}

// Validate: строгая проверка купона против суммы заказа
func (s *CouponService) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*CouponQuote, error) {
	return s.engine.ValidateCoupon(ctx, code, orderAmount)
}

func (s *CouponService) Create(ctx context.Context, in CreateCouponInput, who Requester) (*models.Coupon, error) {
	const op = "service.CouponService.Create"
	logger := s.log.With(slog.String("op", op))

	if !isAdmin(s.access, who) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}

	validFrom := in.ValidFrom
	if validFrom.IsZero() {
		validFrom = time.Now()
	}
	coupon := &models.Coupon{
		Code:               models.NormalizeCouponCode(in.Code),
		DiscountType:       models.DiscountType(in.DiscountType),
		DiscountValue:      in.DiscountValue,
		MinimumOrderAmount: in.MinimumOrderAmount,
		MaxUsages:          in.MaxUsages,
		ValidFrom:          validFrom,
		ValidUntil:         in.ValidUntil,
		IsActive:           in.IsActive,
		Description:        in.Description,
	}
	if in.ValidUntil.IsZero() {
		return nil, fmt.Errorf("%s: %w: valid_until is required", op, ErrInvalidCoupon)
	}
	if err := coupon.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidCoupon, err)
	}

	created, err := s.coupons.Create(ctx, coupon)
	if err != nil {
		if errors.Is(err, storage.ErrCouponCodeTaken) {
			return nil, fmt.Errorf("%s: %s: %w", op, coupon.Code, ErrCouponExists)
		}
		logger.Error("failed to create coupon", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}

	logger.Info("coupon created", slog.String("code", created.Code), slog.Int64("id", created.ID))
	return created, nil
}

func (s *CouponService) List(ctx context.Context, who Requester) ([]*models.Coupon, error) {
	const op = "service.CouponService.List"

	if !isAdmin(s.access, who) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		s.log.Error("failed to list coupons", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}
	if coupons == nil {
		coupons = []*models.Coupon{}
	}
	return coupons, nil
}

// SetActive включает или выключает купон без удаления
func (s *CouponService) SetActive(ctx context.Context, id int64, active bool, who Requester) (*models.Coupon, error) {
	const op = "service.CouponService.SetActive"
	logger := s.log.With(slog.String("op", op), slog.Int64("id", id))

	if !isAdmin(s.access, who) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}
	coupon, err := s.coupons.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, storage.ErrCouponNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		logger.Error("failed to toggle coupon", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}
	logger.Info("coupon toggled", slog.Bool("active", active))
	return coupon, nil
}

func (s *CouponService) Delete(ctx context.Context, id int64, who Requester) error {
	const op = "service.CouponService.Delete"
	logger := s.log.With(slog.String("op", op), slog.Int64("id", id))

	if !isAdmin(s.access, who) {
		return fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}
	if err := s.coupons.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrCouponNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		logger.Error("failed to delete coupon", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, storageFault(err))
	}
	logger.Info("coupon deleted")
	return nil
}
