package onboarding

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tasknova/leadgen/internal/auth"
	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/repository"
)

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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GET /api/v1/onboarding
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	bp, err := h.svc.Get(r.Context(), s.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "business profile not found")
		return
	}
	if err != nil {
		h.log.Error("get business profile failed", "account_id", s.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, bp)
}

// PUT /api/v1/onboarding
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	bp, err := h.svc.Save(r.Context(), s.AccountID, in)
	if errors.Is(err, ErrValidation) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.log.Error("save business profile failed", "account_id", s.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"business_profile": bp,
		"redirect":         auth.PathLeadGeneration,
	})
}
