package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/app/checkout"
)

type CheckoutHandler struct {
	service checkout.CheckoutService
	logger  *zap.Logger
}

func NewCheckoutHandler(s checkout.CheckoutService, l *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: s, logger: l}
}

func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkout.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for StartCheckout", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.StartCheckout(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart),
			errors.Is(err, checkout.ErrGatewayNotFound),
			errors.Is(err, checkout.ErrGatewayInactive),
			errors.Is(err, checkout.ErrProductNotFound),
			errors.Is(err, checkout.ErrInvalidFeeConfig):
			h.logger.Warn("Checkout rejected", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, checkout.ErrPaymentStartFailed):
			h.logger.Error("Provider handoff failed", zap.Error(err))
			http.Error(w, "Payment could not be started, please try again", http.StatusBadGateway)
		default:
			h.logger.Error("Error starting checkout", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

// externalRef digs the provider correlation id out of the query string. The
// session provider fills the ref parameter itself; the redirect provider
// appends its own token parameter on return.
func externalRef(r *http.Request) string {
	for _, key := range []string{"ref", "token", "session_id"} {
		if v := r.URL.Query().Get(key); v != "" {
			return v
		}
	}
	return ""
}

func (h *CheckoutHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	ref := externalRef(r)
	if ref == "" {
		http.Error(w, "Missing payment reference", http.StatusBadRequest)
		return
	}

	res, err := h.service.ConfirmReturn(r.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, checkout.ErrPaymentFailed):
			h.logger.Warn("Payment confirmation failed", zap.String("external_ref", ref), zap.Error(err))
			http.Error(w, "Payment was not completed", http.StatusPaymentRequired)
		default:
			h.logger.Error("Error confirming payment", zap.String("external_ref", ref), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *CheckoutHandler) CancelReturn(w http.ResponseWriter, r *http.Request) {
	ref := externalRef(r)
	if ref == "" {
		http.Error(w, "Missing payment reference", http.StatusBadRequest)
		return
	}

	res, err := h.service.CancelReturn(r.Context(), ref)
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error cancelling checkout", zap.String("external_ref", ref), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting order", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *CheckoutHandler) GetOrdersByBuyerID(w http.ResponseWriter, r *http.Request) {
	buyerID := chi.URLParam(r, "buyerID")
	if buyerID == "" {
		http.Error(w, "Buyer ID is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.GetOrdersByBuyerID(r.Context(), buyerID)
	if err != nil {
		h.logger.Error("Error getting orders for buyer", zap.String("buyer_id", buyerID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
