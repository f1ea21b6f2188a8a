// Package profile serves the signed-in account's display profile.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/repository"
)

type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
}

type Handler struct {
	store Store
	log   *slog.Logger
}

func NewHandler(store Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Patch holds the editable fields. Absent fields are left alone; a blank
// value clears the field.
type Patch struct {
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

func (p Patch) apply(prof *models.Profile) {
	set := func(dst **string, v *string) {
		if v == nil {
			return
		}
		s := strings.TrimSpace(*v)
		if s == "" {
			*dst = nil
			return
		}
		*dst = &s
	}
	set(&prof.FullName, p.FullName)
	set(&prof.Phone, p.Phone)
	set(&prof.AvatarURL, p.AvatarURL)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	s := middleware.SessionFromCtx(r.Context())
	p, err := h.store.GetByID(r.Context(), s.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return nil, false
	}
	if err != nil {
		h.log.Error("get profile failed", "account_id", s.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return p, true
}

// GET /api/v1/profile
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PATCH /api/v1/profile
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	patch.apply(p)
	if err := h.store.Update(r.Context(), p); err != nil {
		h.log.Error("update profile failed", "account_id", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
