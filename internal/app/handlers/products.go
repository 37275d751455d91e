package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/service"
)

// ListProductsHandler обрабатывает GET /api/products?category=&featured=
func ListProductsHandler(log *slog.Logger, catalog *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		filter := models.ProductFilter{Category: r.URL.Query().Get("category")}
		if raw := r.URL.Query().Get("featured"); raw != "" {
			featured, err := strconv.ParseBool(raw)
			if err != nil {
				http.Error(w, "invalid featured flag", http.StatusBadRequest)
				return
			}
			filter.FeaturedOnly = featured
		}

		products, err := catalog.List(r.Context(), filter)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		resp := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, toProductResponse(p))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// GetProductHandler обрабатывает GET /api/products/{id}
func GetProductHandler(log *slog.Logger, catalog *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := int64Param(w, r, logger, "id")
		if !ok {
			return
		}

		product, err := catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toProductResponse(product))
	}
}
