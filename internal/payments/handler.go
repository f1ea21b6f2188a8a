package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tasknova/leadgen/internal/dashboard"
	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/razorpay"
	"github.com/tasknova/leadgen/internal/repository"
)

type CreateOrderRequest struct {
	PackageID string `json:"package_id"`
}

type VerifyRequest struct {
	OrderID   uuid.UUID `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	Signature string    `json:"signature"`
}

type FailRequest struct {
	Reason string `json:"reason"`
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// GET /api/v1/payments/packages
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Packages)
}

// POST /api/v1/payments/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	checkout, err := h.svc.CreateOrder(r.Context(), sess.AccountID, req.PackageID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, checkout)
	case errors.Is(err, ErrUnknownPackage):
		writeError(w, http.StatusBadRequest, "unknown package")
	case errors.Is(err, razorpay.ErrAPI):
		h.log.Error("gateway order failed", "account_id", sess.AccountID, "error", err)
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
	default:
		h.log.Error("create payment order failed", "account_id", sess.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create payment order")
	}
}

// GET /api/v1/payments/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orders, err := h.svc.ListOrders(r.Context(), sess.AccountID)
	if err != nil {
		h.log.Error("list orders failed", "account_id", sess.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	writeJSON(w, http.StatusOK, dashboard.OrderViews(orders))
}

// POST /api/v1/payments/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := h.svc.Verify(r.Context(), sess.AccountID, req.OrderID, req.PaymentID, req.Signature)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, ErrInvalidSignature):
		writeJSON(w, http.StatusBadRequest, res)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrOrderNotPayable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("verify payment failed", "order_id", req.OrderID, "error", err)
		writeError(w, http.StatusInternalServerError, "payment verification failed")
	}
}

// POST /api/v1/payments/orders/{id}/dismiss
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := h.orderID(w, r)
	if !ok || sess == nil {
		return
	}
	o, err := h.svc.Dismiss(r.Context(), sess.AccountID, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		h.log.Error("dismiss order failed", "order_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": o.Status})
}

// POST /api/v1/payments/orders/{id}/fail
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := h.orderID(w, r)
	if !ok || sess == nil {
		return
	}
	var req FailRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	err := h.svc.Fail(r.Context(), sess.AccountID, id, req.Reason)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "failed"})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrOrderNotPayable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("fail order failed", "order_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update order")
	}
}

// GET /api/v1/payments/details/{payment_id}
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	paymentID := r.PathValue("payment_id")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, "Payment ID is required")
		return
	}
	d, err := h.svc.Details(r.Context(), sess.AccountID, paymentID)
	var apiErr *razorpay.APIError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "payment_details": d})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "payment not found")
	case errors.As(err, &apiErr):
		writeError(w, apiErr.StatusCode, "Razorpay API error")
	default:
		h.log.Error("payment details failed", "payment_id", paymentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if middleware.SessionFromCtx(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
