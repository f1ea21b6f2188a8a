package proxy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tasknova/leadgen/internal/metrics"
)

type Handler struct {
	fetcher *Fetcher
	log     *slog.Logger
}

func NewHandler(fetcher *Fetcher, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{fetcher: fetcher, log: log}
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fetch runs the shared proxy rules and writes the error response itself
// when it returns false.
func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		metrics.RecordProxy("bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL parameter is required"})
		return nil, false
	}
	body, err := h.fetcher.Fetch(r.Context(), raw)
	if err == nil {
		return body, true
	}

	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrInvalidURL):
		metrics.RecordProxy("bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid URL"})
	case errors.Is(err, ErrForbiddenDomain):
		metrics.RecordProxy("forbidden")
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":          "Domain not allowed for security reasons",
			"allowedDomains": h.fetcher.AllowedDomains(),
		})
	case errors.As(err, &upstream):
		metrics.RecordProxy("upstream_error")
		writeJSON(w, upstream.StatusCode, map[string]string{"error": upstream.Error()})
	case errors.Is(err, ErrTooLarge):
		metrics.RecordProxy("too_large")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Upstream response too large"})
	default:
		metrics.RecordProxy("error")
		h.log.Error("proxy fetch failed", "url", raw, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
	return nil, false
}

// GET /api/json-proxy
func (h *Handler) JSONProxy(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	body, ok := h.fetch(w, r)
	if !ok {
		return
	}
	metrics.RecordProxy("ok")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// GET /api/csv-preview
func (h *Handler) CSVPreview(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	body, ok := h.fetch(w, r)
	if !ok {
		return
	}
	headers, rows, err := ParseCSV(body)
	if err != nil {
		metrics.RecordProxy("bad_csv")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	metrics.RecordProxy("ok")
	writeJSON(w, http.StatusOK, Paginate(headers, rows, page, pageSize))
}
