package reporting

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

// maxStationRows bounds the station table; larger BSSs are summarized.
const maxStationRows = 40

// PDFExporter exports BSS reports to PDF format
type PDFExporter struct {
	Title string
}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Title: "Access Point Status Report"}
}

var _ ports.ReportExporter = (*PDFExporter)(nil)

// Export renders report as a PDF document
func (e *PDFExporter) Export(report *domain.ReportData) ([]byte, error) {
	if report == nil {
		return nil, errors.New("failed to generate PDF: nil report")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFooterFunc(func() { e.addFooter(pdf, report) })
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addConfiguration(pdf, report)
	e.addStatistics(pdf, report)
	e.addFindings(pdf, report)
	e.addStations(pdf, report)
	e.addEvents(pdf, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) sectionTitle(pdf *gofpdf.Fpdf, title string) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

// addHeader adds the report header
func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 15, e.Title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 14)
	pdf.SetTextColor(100, 100, 100) // Gray
	pdf.CellFormat(0, 8, fmt.Sprintf("%s (%s)", report.Status.SSID, report.Status.BSSID), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, "Generated: "+report.GeneratedAt.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

// addConfiguration lists the operating parameters in two columns
func (e *PDFExporter) addConfiguration(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	e.sectionTitle(pdf, "Configuration")
	s := report.Status
	e.addGrid(pdf, []gridItem{
		{"Standard", "802.11" + s.Standard},
		{"Channel", strconv.Itoa(int(s.Channel))},
		{"Beacons", onOff(s.BeaconGeneration)},
		{"Beacon interval", fmt.Sprintf("%d us", s.BeaconIntervalUs)},
		{"QoS", onOff(s.QoS)},
		{"Queue mode", s.QueueMode},
		{"Non-ERP protection", onOff(s.NonErpProtection)},
		{"Short slot time", onOff(s.ShortSlotTime)},
		{"BSS color", strconv.Itoa(int(s.BSSColor))},
		{"Persistence", onOff(s.PersistenceEnabled)},
	})
}

// addStatistics adds the station statistics
func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	e.sectionTitle(pdf, "Stations Overview")
	st := report.Stats
	items := []gridItem{
		{"Associated", strconv.Itoa(st.Associated)},
		{"Pending", strconv.Itoa(st.Pending)},
		{"Short preamble", strconv.Itoa(st.ShortPreamble)},
		{"Short slot time", strconv.Itoa(st.ShortSlotTime)},
		{"Block-Ack agreements", strconv.Itoa(report.Status.Agreements)},
		{"Queued frames", strconv.Itoa(report.Status.Backlog)},
	}

	gens := make([]string, 0, len(st.Generations))
	for g := range st.Generations {
		gens = append(gens, g)
	}
	sort.Strings(gens)
	for _, g := range gens {
		items = append(items, gridItem{g + " stations", strconv.Itoa(st.Generations[g])})
	}
	e.addGrid(pdf, items)
}

type gridItem struct {
	label string
	value string
}

func (e *PDFExporter) addGrid(pdf *gofpdf.Fpdf, items []gridItem) {
	colWidth := 85.0
	for i, item := range items {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, item.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 102, 204)
		pdf.CellFormat(colWidth-50, 7, item.value, "", 0, "R", false, 0, "")

		if i%2 == 1 || i == len(items)-1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(6)
}

// addFindings adds the findings section
func (e *PDFExporter) addFindings(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	e.sectionTitle(pdf, "Findings")

	if len(report.Findings) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No findings", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, f := range report.Findings {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		r, g, b := e.getLevelColor(f.Level)
		pdf.SetFillColor(r, g, b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(22, 6, strings.ToUpper(string(f.Level)), "", 0, "C", true, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 51, 102)
		pdf.CellFormat(0, 6, "  "+f.Title, "", 1, "L", false, 0, "")

		if f.Detail != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, f.Detail, "", "L", false)
		}
		pdf.Ln(3)
	}
	pdf.Ln(4)
}

// getLevelColor returns RGB color based on finding level
func (e *PDFExporter) getLevelColor(level domain.FindingLevel) (r, g, b int) {
	if level == domain.FindingWarning {
		return 255, 149, 0 // Orange
	}
	return 0, 102, 204 // Blue
}

// addStations adds the station table
func (e *PDFExporter) addStations(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	e.sectionTitle(pdf, "Stations")

	if len(report.Stations) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No associated stations", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	header := func() {
		pdf.SetFillColor(240, 240, 240)
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(15, 8, "AID", "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 8, "MAC", "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 8, "State", "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 8, "PHY", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 8, "Since", "1", 1, "L", true, 0, "")
	}
	header()

	pdf.SetFont("Arial", "", 9)
	for i, st := range report.Stations {
		if i == maxStationRows {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 7, fmt.Sprintf("... and %d more", len(report.Stations)-maxStationRows), "", 1, "L", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
			pdf.SetFont("Arial", "", 9)
		}
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(15, 7, strconv.Itoa(int(st.AID)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 7, st.MAC.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, string(st.State), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, st.Capabilities.Generation(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, st.LastChange.Format("2006-01-02 15:04"), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

// addEvents adds the recent station history
func (e *PDFExporter) addEvents(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	if len(report.RecentEvents) == 0 {
		return
	}
	e.sectionTitle(pdf, "Recent Events")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(60, 60, 60)
	for _, ev := range report.RecentEvents {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		line := fmt.Sprintf("%s  %-18s  %s", ev.Time.Format("15:04:05"), ev.Type, ev.Station.MAC)
		if ev.Type == domain.EventBlockAckCreated || ev.Type == domain.EventBlockAckDeleted {
			line += fmt.Sprintf("  tid %d", ev.TID)
		}
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}
}

// addFooter adds the page footer
func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	pdf.SetY(-20)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	id := report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("apmac | Report ID: %s | Page %d", id, pdf.PageNo()), "", 1, "C", false, 0, "")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
