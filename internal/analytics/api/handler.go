package analytics_api

import (
	"fmt"
	"net/http"

	"ms-gatepass/internal/analytics"
	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler handles the dashboard metrics endpoint
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

// RegisterRoutes registers the analytics routes; the caller mounts them under /api
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard-metrics", h.GetDashboardMetrics)
}

// GetDashboardMetrics recomputes the bundle on every call
func (h *Handler) GetDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.Service.GetDashboardMetrics(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Dashboard metrics error: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to fetch dashboard metrics")
		return
	}
	utils.WriteJSON(w, http.StatusOK, bundle)
}
