package handlers

import (
	"net/http"

	"workshop-backend/internal/services"
	"workshop-backend/pkg/utils"
)

type MetricsHandler struct {
	Service *services.WorkshopMetricsService
}

func NewMetricsHandler(s *services.WorkshopMetricsService) *MetricsHandler {
	return &MetricsHandler{Service: s}
}

// WorkshopSummary handles GET /api/metrics/workshop - the numbers behind
// the admin dashboard panels, recomputed from the ledger on each query.
func (h *MetricsHandler) WorkshopSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Error computing workshop metrics")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": summary,
	})
}
