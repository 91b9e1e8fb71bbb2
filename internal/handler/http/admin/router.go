package admin

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/app/admin"
)

// Routes are mounted behind the deployment's admin authentication layer;
// this service does not verify the caller itself.
func RegisterRoutes(r chi.Router, s admin.AdminService, l *zap.Logger) {
	handler := NewAdminHandler(s, l.With(zap.String("component", "AdminHTTPHandler")))

	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders/pending", handler.ListPendingVerification)
		r.Post("/orders/{orderID}/approve", handler.ApproveOrder)
		r.Post("/orders/{orderID}/reject", handler.RejectOrder)
		r.Post("/orders/{orderID}/payout", handler.RecordPayout)
		r.Get("/payouts", handler.ListPayouts)
	})
}
