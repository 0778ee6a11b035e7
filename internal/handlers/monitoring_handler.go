package handlers

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"workshop-backend/pkg/utils"
)

// MonitoringHandler exposes host-level stats for the admin
// infrastructure panel.
type MonitoringHandler struct {
	startedAt time.Time
}

func NewMonitoringHandler() *MonitoringHandler {
	return &MonitoringHandler{startedAt: time.Now()}
}

type systemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	Uptime        string  `json:"uptime"`
}

// SystemStats handles GET /api/monitoring/system (admin only)
func (h *MonitoringHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	stats := systemStats{
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsedMB = vm.Used / 1024 / 1024
		stats.MemoryTotalMB = vm.Total / 1024 / 1024
	}
	if du, err := disk.Usage("/"); err == nil {
		stats.DiskPercent = du.UsedPercent
	}

	utils.JSON(w, http.StatusOK, stats)
}
