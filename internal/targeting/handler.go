package targeting

import (
	"encoding/json"
	"net/http"
)

type Handler struct {
	options *Options
}

func NewHandler(options *Options) *Handler {
	return &Handler{options: options}
}

// GET /api/v1/targeting/options
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.options)
}
