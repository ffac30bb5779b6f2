package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/service"
)

type HealthHandler struct {
	index service.VectorIndex
}

func NewHealthHandler(index service.VectorIndex) *HealthHandler {
	return &HealthHandler{index: index}
}

type HealthResponse struct {
	Status string `json:"status"`
	Index  string `json:"index"`
}

// Health reports liveness plus whether anything has been indexed. Index
// lookup faults are logged and reported as not_indexed.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	state, err := service.LookupIndex(r.Context(), h.index)
	if err != nil {
		slog.Warn("health: index lookup failed", "error", err)
	}

	api.JSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Index:  state.String(),
	})
}
