package handlers

import (
	"net/http"

	"workshop-backend/internal/services"
	"workshop-backend/pkg/utils"
)

type BackupHandler struct {
	Service *services.BackupService
}

func NewBackupHandler(s *services.BackupService) *BackupHandler {
	return &BackupHandler{Service: s}
}

// ExportSnapshot handles POST /api/admin/backup (admin only)
func (h *BackupHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	if !h.Service.Enabled() {
		utils.Error(w, http.StatusServiceUnavailable, "Backup storage is not configured")
		return
	}

	key, err := h.Service.ExportSnapshot(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Backup failed")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"key":     key,
	})
}
