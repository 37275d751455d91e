package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/mc-store/internal/app/handlers"
	"github.com/linemk/mc-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/mc-store/internal/lib/logger/handlers/urllog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Router собирает HTTP API магазина
func (a *App) Router() http.Handler {
	log := a.Logger

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	if a.Config.HTTPServer.RequestTimeout > 0 {
		router.Use(middleware.Timeout(a.Config.HTTPServer.RequestTimeout))
	}
	router.Use(jwtmiddleware.Session)
	router.Use(jwtmiddleware.NewJWTMiddleware(a.Config.JWT.Secret, a.Access))

	// эндпоинт для аутентификации
	router.Post("/api/auth", handlers.AuthHandler(log, a.Auth))

	router.Get("/api/products", handlers.ListProductsHandler(log, a.Catalog))
	router.Get("/api/products/{id}", handlers.GetProductHandler(log, a.Catalog))

	router.Route("/api/cart", func(r chi.Router) {
		r.Get("/", handlers.GetCartHandler(log, a.Cart))
		r.Delete("/", handlers.ClearCartHandler(log, a.Cart))
		r.Post("/items", handlers.AddCartItemHandler(log, a.Cart))
		r.Put("/items/{id}", handlers.SetCartItemHandler(log, a.Cart))
		r.Delete("/items/{id}", handlers.RemoveCartItemHandler(log, a.Cart))
	})

	router.Post("/api/coupons/validate", handlers.ValidateCouponHandler(log, a.Coupons))

	router.Route("/api/orders", func(r chi.Router) {
		r.Post("/", handlers.CreateOrderHandler(log, a.Checkout))
		r.Get("/", handlers.ListOrdersHandler(log, a.Lifecycle))
		r.Get("/{id}", handlers.GetOrderHandler(log, a.Lifecycle))
		r.Put("/{id}/cancel", handlers.CancelOrderHandler(log, a.Lifecycle))
	})

	// админка: только почты из белого списка
	router.Route("/api/admin", func(r chi.Router) {
		r.Use(jwtmiddleware.RequireAdmin)
		r.Get("/orders", handlers.ListAllOrdersHandler(log, a.Lifecycle))
		r.Put("/orders/{id}/status", handlers.SetOrderStatusHandler(log, a.Lifecycle))
		r.Get("/coupons", handlers.ListCouponsHandler(log, a.Coupons))
		r.Post("/coupons", handlers.CreateCouponHandler(log, a.Coupons))
		r.Put("/coupons/{id}/active", handlers.SetCouponActiveHandler(log, a.Coupons))
		r.Delete("/coupons/{id}", handlers.DeleteCouponHandler(log, a.Coupons))
	})

	return otelhttp.NewHandler(router, "mc-store")
}
