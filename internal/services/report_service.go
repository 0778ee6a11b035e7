package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf/v2"

	"workshop-backend/internal/timeutil"
)

// ReportService renders the daily workshop report as a PDF for printing
// at the reception desk.
type ReportService struct {
	Metrics *WorkshopMetricsService
	Query   *VehicleQueryService
}

func NewReportService(metrics *WorkshopMetricsService, query *VehicleQueryService) *ReportService {
	return &ReportService{Metrics: metrics, Query: query}
}

// GenerateDailyPDF builds the daily report: the summary panel numbers
// plus a per-stage table of populations and average transit times.
func (s *ReportService) GenerateDailyPDF(ctx context.Context) ([]byte, error) {
	summary, err := s.Metrics.Summary(ctx)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Workshop Daily Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.FormatIST(summary.GeneratedAt, timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Summary box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Vehicles inside: %d", summary.UniqueActiveVehicles), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Finished today: %d", summary.DailyThroughput), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Avg cycle today: %.2f min", summary.AvgCycleTimeToday), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Avg cycle overall: %.2f min", summary.AvgCycleTimeOverall), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Per-stage table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Stages", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(110, 7, "Stage", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Events", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Avg Time (min)", "1", 1, "C", true, 0, "")

	stages := make([]string, 0, len(summary.StageCounts))
	for stage := range summary.StageCounts {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	pdf.SetFont("Arial", "", 10)
	for _, stage := range stages {
		name := stage
		if len(name) > 55 {
			name = name[:52] + "..."
		}
		pdf.CellFormat(110, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", summary.StageCounts[stage]), "1", 0, "C", false, 0, "")
		if avg, ok := summary.AvgStageTimes[stage]; ok {
			pdf.CellFormat(50, 6, fmt.Sprintf("%.2f", avg), "1", 1, "C", false, 0, "")
		} else {
			pdf.CellFormat(50, 6, "-", "1", 1, "C", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
