package handlers

import (
	"fmt"
	"net/http"

	"workshop-backend/internal/services"
	"workshop-backend/internal/timeutil"
	"workshop-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// DailyReport handles GET /api/reports/daily - the printable PDF report
func (h *ReportHandler) DailyReport(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.Service.GenerateDailyPDF(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Error generating report")
		return
	}

	filename := fmt.Sprintf("workshop-daily-%s.pdf", timeutil.FormatIST(timeutil.Now(), timeutil.DateLayout))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
