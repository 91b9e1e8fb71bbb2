package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/app/admin"
)

type AdminHandler struct {
	service admin.AdminService
	logger  *zap.Logger
}

func NewAdminHandler(s admin.AdminService, l *zap.Logger) *AdminHandler {
	return &AdminHandler{service: s, logger: l}
}

func (h *AdminHandler) ListPendingVerification(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListPendingVerification(r.Context())
	if err != nil {
		h.logger.Error("Error listing pending verifications", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *AdminHandler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if err := h.service.ApproveOrder(r.Context(), orderID); err != nil {
		h.writeVerificationError(w, orderID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if err := h.service.RejectOrder(r.Context(), orderID); err != nil {
		h.writeVerificationError(w, orderID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) writeVerificationError(w http.ResponseWriter, orderID string, err error) {
	switch {
	case errors.Is(err, admin.ErrOrderNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, admin.ErrOrderNotVerifiable):
		h.logger.Warn("Order not verifiable", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("Error processing verification", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *AdminHandler) RecordPayout(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req admin.PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.OrderID = orderID

	res, err := h.service.RecordPayout(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, admin.ErrInvalidPayoutRequest), errors.Is(err, admin.ErrOrderNotCompleted):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, admin.ErrPayoutAlreadyExists):
			http.Error(w, "Payout already recorded for this order", http.StatusConflict)
		default:
			h.logger.Error("Error recording payout", zap.String("order_id", orderID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (h *AdminHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListPayouts(r.Context())
	if err != nil {
		h.logger.Error("Error listing payouts", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
