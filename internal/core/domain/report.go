package domain

import "time"

// ReportData aggregates everything rendered into a BSS report.
type ReportData struct {
	ID           string
	GeneratedAt  time.Time
	Status       BSSStatus
	Stats        ReportStats
	Stations     []Station
	Findings     []Finding
	RecentEvents []StationEvent
}

// ReportStats holds summary statistics over the station list.
type ReportStats struct {
	TotalStations int
	Associated    int
	Pending       int
	ShortPreamble int
	ShortSlotTime int

	// PHY generation of each station, keyed by "HE", "VHT", "HT", "ERP",
	// "OFDM" or "DSSS". A station counts under its newest capability.
	Generations map[string]int
}

// FindingLevel ranks a report finding.
type FindingLevel string

const (
	FindingInfo    FindingLevel = "info"
	FindingWarning FindingLevel = "warning"
)

// Finding is an observation about the BSS with a suggested action.
type Finding struct {
	Level  FindingLevel
	Title  string
	Detail string
}
