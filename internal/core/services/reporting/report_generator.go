package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/core/services/network"
)

// recentEventLimit caps the history included in a report.
const recentEventLimit = 25

// ReportGenerator builds BSS reports from the live AP state.
type ReportGenerator struct {
	service  ports.NetworkService
	stats    *network.StatsService
	findings *FindingsEngine
	now      func() time.Time
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(service ports.NetworkService) *ReportGenerator {
	return &ReportGenerator{
		service:  service,
		stats:    network.NewStatsService(),
		findings: NewFindingsEngine(),
		now:      time.Now,
	}
}

var _ ports.ReportGenerator = (*ReportGenerator)(nil)

// Generate snapshots the BSS and its stations.
func (g *ReportGenerator) Generate(ctx context.Context) (*domain.ReportData, error) {
	status, err := g.service.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	stations, err := g.service.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	events, err := g.service.StationEvents(ctx, domain.MAC{}, recentEventLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	stats := g.stats.Summarize(stations)
	return &domain.ReportData{
		ID:           uuid.New().String(),
		GeneratedAt:  g.now(),
		Status:       status,
		Stats:        stats,
		Stations:     stations,
		Findings:     g.findings.Evaluate(status, stats),
		RecentEvents: events,
	}, nil
}
