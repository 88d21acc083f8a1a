package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

// ReportHandler handles report generation
type ReportHandler struct {
	Generator ports.ReportGenerator
	Exporter  ports.ReportExporter
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(generator ports.ReportGenerator, exporter ports.ReportExporter) *ReportHandler {
	return &ReportHandler{
		Generator: generator,
		Exporter:  exporter,
	}
}

// HandleDownloadReport renders the BSS report as a PDF attachment
func (h *ReportHandler) HandleDownloadReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Generator.Generate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("generate report: %w", err))
		return
	}

	pdf, err := h.Exporter.Export(report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	filename := fmt.Sprintf("apmac_report_%s.pdf", report.GeneratedAt.Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("Report write failed", "error", err)
	}
}
