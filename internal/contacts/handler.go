package contacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/repository"
)

const maxUploadSize = 5 << 20

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

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "contact list not found")
	default:
		h.log.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func listID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list id")
		return uuid.Nil, false
	}
	return id, true
}

// GET /api/v1/contact-lists
func (h *Handler) ListLists(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	lists, err := h.svc.Lists(r.Context(), s.AccountID)
	if err != nil {
		h.fail(w, "list contact lists", err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// POST /api/v1/contact-lists
func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	var in NewList
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	l, err := h.svc.CreateList(r.Context(), s.AccountID, in)
	if err != nil {
		h.fail(w, "create contact list", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// DELETE /api/v1/contact-lists/{id}
func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	id, ok := listID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteList(r.Context(), s.AccountID, id); err != nil {
		h.fail(w, "delete contact list", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/contact-lists/{id}/contacts
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	id, ok := listID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Contacts(r.Context(), s.AccountID, id, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "list contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/contact-lists/{id}/contacts
func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	id, ok := listID(w, r)
	if !ok {
		return
	}
	var in NewContact
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.svc.AddContact(r.Context(), s.AccountID, id, in)
	if err != nil {
		h.fail(w, "add contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// DELETE /api/v1/contacts
func (h *Handler) DeleteContacts(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	var in struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	n, err := h.svc.DeleteContacts(r.Context(), s.AccountID, in.IDs)
	if err != nil {
		h.fail(w, "delete contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return nil, false
	}
	return data, true
}

// POST /api/v1/contact-lists/{id}/import/preview
func (h *Handler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	id, ok := listID(w, r)
	if !ok {
		return
	}
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Preview(r.Context(), s.AccountID, id, data)
	if err != nil {
		h.fail(w, "preview import", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// POST /api/v1/contact-lists/{id}/import
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	id, ok := listID(w, r)
	if !ok {
		return
	}
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Import(r.Context(), s.AccountID, id, data)
	if err != nil {
		h.fail(w, "import contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/contact-lists/{id}/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromCtx(r.Context())
	id, ok := listID(w, r)
	if !ok {
		return
	}
	name, data, err := h.svc.Export(r.Context(), s.AccountID, id)
	if err != nil {
		h.fail(w, "export contacts", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
