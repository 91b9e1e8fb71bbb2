package checkout

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/app/checkout"
)

func RegisterRoutes(r chi.Router, s checkout.CheckoutService, l *zap.Logger) {
	handler := NewCheckoutHandler(s, l.With(zap.String("component", "CheckoutHTTPHandler")))

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", handler.StartCheckout)
		r.Get("/return", handler.ConfirmReturn)
		r.Get("/cancel", handler.CancelReturn)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Get("/{orderID}", handler.GetOrder)
		r.Get("/buyer/{buyerID}", handler.GetOrdersByBuyerID)
	})
}
