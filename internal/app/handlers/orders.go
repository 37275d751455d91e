package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/service"
)

const (
	// IdempotencyKeyHeader: повтор запроса с тем же ключом возвращает уже созданный заказ
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader выставляется, когда заказ вернулся по ключу идемпотентности
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
	defaultPageLimit     = 50
	maxPageLimit         = 200
)

type CreateOrderRequest struct {
	CouponCode    string `json:"couponCode" validate:"omitempty,max=64"`
	PlayerName    string `json:"playerName" validate:"omitempty,mcname"`
	Email         string `json:"email" validate:"required,email"`
	PaymentMethod string `json:"paymentMethod" validate:"required,max=32"`
}

type CancelOrderRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

type SetOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateOrderHandler обрабатывает POST /api/orders: оформление заказа из корзины сессии.
// Неприменимый купон не мешает оформлению, причина возвращается в couponError.
func CreateOrderHandler(log *slog.Logger, checkout *service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		sid, ok := sessionID(w, r, logger)
		if !ok {
			return
		}
		key := r.Header.Get(IdempotencyKeyHeader)
		if len(key) > maxIdempotencyKeyLen {
			http.Error(w, "idempotency key is too long", http.StatusBadRequest)
			return
		}
		var req CreateOrderRequest
		if !decodeRequest(w, r, logger, &req, false) {
			return
		}

		who := requester(r, "")
		placed, err := checkout.PlaceOrder(r.Context(), service.PlaceOrderInput{
			SessionID:      sid,
			UserID:         who.UserID,
			CouponCode:     req.CouponCode,
			PlayerName:     req.PlayerName,
			Email:          req.Email,
			PaymentMethod:  req.PaymentMethod,
			IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}

		resp := toOrderResponse(placed.Order)
		if placed.CouponError != nil {
			resp.CouponError = &CouponErrorResponse{
				Code:    placed.CouponError.Code,
				Reason:  placed.CouponError.Reason,
				Message: placed.CouponError.Message(),
			}
		}
		status := http.StatusCreated
		if placed.Replayed {
			w.Header().Set(ReplayedHeader, "true")
			status = http.StatusOK
		}
		writeJSON(w, logger, status, resp)
	}
}

// ListOrdersHandler обрабатывает GET /api/orders: заказы текущей сессии и пользователя
func ListOrdersHandler(log *slog.Logger, lifecycle *service.OrderLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		orders, err := lifecycle.ListForRequester(r.Context(), requester(r, ""))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toOrderList(orders))
	}
}

// GetOrderHandler обрабатывает GET /api/orders/{id}?email= (отслеживание заказа)
func GetOrderHandler(log *slog.Logger, lifecycle *service.OrderLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		order, err := lifecycle.Get(r.Context(), chi.URLParam(r, "id"), requester(r, r.URL.Query().Get("email")))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toOrderResponse(order))
	}
}

// CancelOrderHandler обрабатывает PUT /api/orders/{id}/cancel
func CancelOrderHandler(log *slog.Logger, lifecycle *service.OrderLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CancelOrderHandler"
		logger := log.With(slog.String("op", op))

		var req CancelOrderRequest
		if !decodeRequest(w, r, logger, &req, true) {
			return
		}

		order, err := lifecycle.Cancel(r.Context(), chi.URLParam(r, "id"), requester(r, req.Email))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toOrderResponse(order))
	}
}

// ListAllOrdersHandler обрабатывает GET /api/admin/orders?status=&limit=&offset=
func ListAllOrdersHandler(log *slog.Logger, lifecycle *service.OrderLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListAllOrdersHandler"
		logger := log.With(slog.String("op", op))

		q := r.URL.Query()
		filter := models.OrderFilter{Limit: defaultPageLimit}
		if raw := q.Get("status"); raw != "" {
			status, ok := models.ParseOrderStatus(raw)
			if !ok {
				http.Error(w, service.ErrInvalidStatus.Error(), http.StatusBadRequest)
				return
			}
			filter.Status = &status
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 || limit > maxPageLimit {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			filter.Limit = limit
		}
		if raw := q.Get("offset"); raw != "" {
			offset, err := strconv.Atoi(raw)
			if err != nil || offset < 0 {
				http.Error(w, "invalid offset", http.StatusBadRequest)
				return
			}
			filter.Offset = offset
		}

		orders, err := lifecycle.ListAll(r.Context(), filter, requester(r, ""))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toOrderList(orders))
	}
}

// SetOrderStatusHandler обрабатывает PUT /api/admin/orders/{id}/status
func SetOrderStatusHandler(log *slog.Logger, lifecycle *service.OrderLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		var req SetOrderStatusRequest
		if !decodeRequest(w, r, logger, &req, false) {
			return
		}

		order, err := lifecycle.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status, requester(r, ""))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toOrderResponse(order))
	}
}
