package leads

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/repository"
	"github.com/tasknova/leadgen/internal/targeting"
)

const (
	SignatureHeader = "X-Automation-Signature"
	maxCallbackBody = 5 << 20
)

type SubmitRequest struct {
	Description    targeting.Description `json:"description"`
	PaymentOrderID *uuid.UUID            `json:"payment_order_id,omitempty"`
}

type ResultRequest struct {
	Status          string          `json:"status"`
	JSONData        json.RawMessage `json:"json_data,omitempty"`
	JSONURL         *string         `json:"json_url,omitempty"`
	DownloadableURL *string         `json:"downloadable_url,omitempty"`
}

type Handler struct {
	svc            *Service
	callbackSecret []byte
	log            *slog.Logger
}

func NewHandler(svc *Service, callbackSecret string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, callbackSecret: []byte(callbackSecret), log: log}
}

// POST /api/v1/lead-requests
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := h.svc.Submit(r.Context(), SubmitInput{
		AccountID:      sess.AccountID,
		Description:    req.Description,
		PaymentOrderID: req.PaymentOrderID,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, res)
	case errors.Is(err, targeting.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrRequirePayment):
		writeError(w, http.StatusPaymentRequired, "payment required")
	default:
		h.log.Error("submit lead request failed", "account_id", sess.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save lead request")
	}
}

// POST /api/v1/automation/lead-requests/{id}/result
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	if len(h.callbackSecret) == 0 {
		http.NotFound(w, r)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if !ValidSignature(h.callbackSecret, body, r.Header.Get(SignatureHeader)) {
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}
	var req ResultRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	lr, err := h.svc.ApplyResult(r.Context(), id, repository.ResultUpdate{
		Status:          req.Status,
		JSONData:        req.JSONData,
		JSONURL:         req.JSONURL,
		DownloadableURL: req.DownloadableURL,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, lr)
	case errors.Is(err, ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "lead request not found")
	default:
		h.log.Error("apply automation result failed", "lead_request_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update lead request")
	}
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func ValidSignature(secret, body []byte, got string) bool {
	want := Sign(secret, body)
	return hmac.Equal([]byte(want), []byte(got))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
