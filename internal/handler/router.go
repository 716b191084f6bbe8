package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/storefront-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Patch("/cart/items/{variantID}", h.UpdateCartQuantity)
			r.Delete("/cart/items/{variantID}", h.RemoveCartItem)

			r.Get("/coupons", h.GetCoupons)
			r.Post("/coupons", h.AddCoupon)
			r.Delete("/coupons", h.ClearCoupons)
			r.Delete("/coupons/{couponID}", h.RemoveCoupon)

			r.Get("/points", h.GetPoints)
			r.Post("/points/select", h.SelectPoints)
			r.Delete("/points/select", h.ClearSelectedPoints)
			r.Post("/points/sync", h.SyncPoints)
			r.Post("/points/redeem", h.RedeemCode)

			r.Get("/catalog/products", h.GetProducts)
			r.Get("/catalog/events", h.GetEvents)
			r.Get("/rewards", h.GetRewards)

			r.Get("/summary", h.GetSummary)
			r.Get("/orders", h.GetOrders)
			r.Post("/orders", h.Checkout)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
