package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"web-shop/shared/pkg/metrics"
)

func NewRouter(h *Handlers, res Resolver, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware("shop-api"))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(res, h.Log))

		r.With(limiter.Limit).Post("/checkout/sessions", h.StartCheckout)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Patch("/orders/{id}/send", h.MarkSent)

		r.Post("/cart", h.AddToCart)
		r.Get("/cart", h.ListCart)
		r.Delete("/cart/{itemId}", h.RemoveFromCart)
	})
	return r
}
