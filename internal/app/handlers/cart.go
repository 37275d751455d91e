package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/mc-store/internal/service"
)

type AddCartItemRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity"`
}

type SetCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// respondCart отдаёт актуальное состояние корзины после изменения
func respondCart(w http.ResponseWriter, r *http.Request, logger *slog.Logger, cart *service.CartService, sid string, status int) {
	view, err := cart.View(r.Context(), sid)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, logger, status, toCartResponse(view))
}

// GetCartHandler обрабатывает GET /api/cart
func GetCartHandler(log *slog.Logger, cart *service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		sid, ok := sessionID(w, r, logger)
		if !ok {
			return
		}
		respondCart(w, r, logger, cart, sid, http.StatusOK)
	}
}

// AddCartItemHandler обрабатывает POST /api/cart/items
func AddCartItemHandler(log *slog.Logger, cart *service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		sid, ok := sessionID(w, r, logger)
		if !ok {
			return
		}
		var req AddCartItemRequest
		if !decodeRequest(w, r, logger, &req, false) {
			return
		}

		if _, err := cart.AddLine(r.Context(), sid, req.ProductID, req.Quantity); err != nil {
			writeError(w, logger, err)
			return
		}
		respondCart(w, r, logger, cart, sid, http.StatusCreated)
	}
}

// SetCartItemHandler обрабатывает PUT /api/cart/items/{id}
func SetCartItemHandler(log *slog.Logger, cart *service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetCartItemHandler"
		logger := log.With(slog.String("op", op))

		sid, ok := sessionID(w, r, logger)
		if !ok {
			return
		}
		lineID, ok := int64Param(w, r, logger, "id")
		if !ok {
			return
		}
		var req SetCartItemRequest
		if !decodeRequest(w, r, logger, &req, false) {
			return
		}

		if _, err := cart.SetQuantity(r.Context(), sid, lineID, req.Quantity); err != nil {
			writeError(w, logger, err)
			return
		}
		respondCart(w, r, logger, cart, sid, http.StatusOK)
	}
}

// RemoveCartItemHandler обрабатывает DELETE /api/cart/items/{id}
func RemoveCartItemHandler(log *slog.Logger, cart *service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		sid, ok := sessionID(w, r, logger)
		if !ok {
			return
		}
		lineID, ok := int64Param(w, r, logger, "id")
		if !ok {
			return
		}

		if err := cart.RemoveLine(r.Context(), sid, lineID); err != nil {
			writeError(w, logger, err)
			return
		}
		respondCart(w, r, logger, cart, sid, http.StatusOK)
	}
}

// ClearCartHandler обрабатывает DELETE /api/cart
func ClearCartHandler(log *slog.Logger, cart *service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		sid, ok := sessionID(w, r, logger)
		if !ok {
			return
		}
		if err := cart.Clear(r.Context(), sid); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
