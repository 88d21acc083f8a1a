package network

import (
	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// StatsService aggregates station lists into summary statistics.
type StatsService struct{}

// NewStatsService creates a new statistics service.
func NewStatsService() *StatsService {
	return &StatsService{}
}

// Summarize counts stations by state, preamble, slot time and PHY
// generation.
func (s *StatsService) Summarize(stations []domain.Station) domain.ReportStats {
	stats := domain.ReportStats{
		TotalStations: len(stations),
		Generations:   make(map[string]int),
	}
	for _, st := range stations {
		switch st.State {
		case domain.StateAssociated:
			stats.Associated++
		case domain.StatePendingConfirmation:
			stats.Pending++
		}
		if st.Capabilities.ShortPreamble {
			stats.ShortPreamble++
		}
		if st.Capabilities.ShortSlotTime {
			stats.ShortSlotTime++
		}
		stats.Generations[st.Capabilities.Generation()]++
	}
	return stats
}
