package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/service"
	"github.com/shopspring/decimal"
)

type ValidateCouponRequest struct {
	Code        string          `json:"code" validate:"required,max=64"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

type CreateCouponRequest struct {
	Code               string           `json:"code" validate:"required,max=64"`
	DiscountType       string           `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue      decimal.Decimal  `json:"discountValue"`
	MinimumOrderAmount *decimal.Decimal `json:"minimumOrderAmount"`
	MaxUsages          *int             `json:"maxUsages" validate:"omitempty,gte=1"`
	ValidFrom          *time.Time       `json:"validFrom"`
	ValidUntil         time.Time        `json:"validUntil" validate:"required"`
	IsActive           *bool            `json:"isActive"`
	Description        *string          `json:"description" validate:"omitempty,max=500"`
}

type SetCouponActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ValidateCouponHandler обрабатывает POST /api/coupons/validate.
// Проверка строгая: любой отказ возвращается как 400 с причиной.
func ValidateCouponHandler(log *slog.Logger, coupons *service.CouponService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ValidateCouponHandler"
		logger := log.With(slog.String("op", op))

		var req ValidateCouponRequest
		if !decodeRequest(w, r, logger, &req, false) {
			return
		}

		quote, err := coupons.Validate(r.Context(), req.Code, req.OrderAmount)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, CouponValidResponse{
			Valid:          true,
			Code:           quote.Code,
			DiscountAmount: models.FormatMoney(quote.DiscountAmount),
			FinalAmount:    models.FormatMoney(quote.FinalAmount),
		})
	}
}

// ListCouponsHandler обрабатывает GET /api/admin/coupons
func ListCouponsHandler(log *slog.Logger, coupons *service.CouponService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListCouponsHandler"
		logger := log.With(slog.String("op", op))

		list, err := coupons.List(r.Context(), requester(r, ""))
		if err != nil {
			writeError(w, logger, err)
			return
		}

		resp := make([]CouponResponse, 0, len(list))
		for _, c := range list {
			resp = append(resp, toCouponResponse(c))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// CreateCouponHandler обрабатывает POST /api/admin/coupons
func CreateCouponHandler(log *slog.Logger, coupons *service.CouponService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateCouponHandler"
		logger := log.With(slog.String("op", op))

		var req CreateCouponRequest
		if !decodeRequest(w, r, logger, &req, false) {
			return
		}

		in := service.CreateCouponInput{
			Code:               req.Code,
			DiscountType:       req.DiscountType,
			DiscountValue:      req.DiscountValue,
			MinimumOrderAmount: req.MinimumOrderAmount,
			MaxUsages:          req.MaxUsages,
			ValidUntil:         req.ValidUntil,
			IsActive:           true,
			Description:        req.Description,
		}
		if req.ValidFrom != nil {
			in.ValidFrom = *req.ValidFrom
		}
		if req.IsActive != nil {
			in.IsActive = *req.IsActive
		}

		coupon, err := coupons.Create(r.Context(), in, requester(r, ""))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, toCouponResponse(coupon))
	}
}

// SetCouponActiveHandler обрабатывает PUT /api/admin/coupons/{id}/active
func SetCouponActiveHandler(log *slog.Logger, coupons *service.CouponService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetCouponActiveHandler"
		logger := log.With(slog.String("op", op))

		id, ok := int64Param(w, r, logger, "id")
		if !ok {
			return
		}
		var req SetCouponActiveRequest
		if !decodeRequest(w, r, logger, &req, false) {
			return
		}

		coupon, err := coupons.SetActive(r.Context(), id, *req.Active, requester(r, ""))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toCouponResponse(coupon))
	}
}

// DeleteCouponHandler обрабатывает DELETE /api/admin/coupons/{id}
func DeleteCouponHandler(log *slog.Logger, coupons *service.CouponService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteCouponHandler"
		logger := log.With(slog.String("op", op))

		id, ok := int64Param(w, r, logger, "id")
		if !ok {
			return
		}
		if err := coupons.Delete(r.Context(), id, requester(r, "")); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
