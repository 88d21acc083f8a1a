package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService implements ports.NetworkService for testing
type fakeService struct {
	status    domain.BSSStatus
	stations  []domain.Station
	events    []domain.StationEvent
	statusErr error
	lastLimit int
}

func (f *fakeService) Status(context.Context) (domain.BSSStatus, error) {
	return f.status, f.statusErr
}

func (f *fakeService) Stations(context.Context) ([]domain.Station, error) {
	return f.stations, nil
}

func (f *fakeService) Station(_ context.Context, mac domain.MAC) (domain.Station, error) {
	return domain.Station{}, domain.ErrStationNotFound
}

func (f *fakeService) StationEvents(_ context.Context, _ domain.MAC, limit int) ([]domain.StationEvent, error) {
	f.lastLimit = limit
	return f.events, nil
}

func (f *fakeService) UpdateSettings(context.Context, domain.BSSSettings) (domain.BSSStatus, error) {
	return f.status, nil
}

func (f *fakeService) SetPersistenceEnabled(bool) {}
func (f *fakeService) IsPersistenceEnabled() bool { return f.status.PersistenceEnabled }

func healthyStatus() domain.BSSStatus {
	return domain.BSSStatus{
		SSID:               "lab",
		BeaconGeneration:   true,
		BeaconIntervalUs:   102400,
		PersistenceEnabled: true,
	}
}

func TestReportGenerator_Generate(t *testing.T) {
	svc := &fakeService{
		status: healthyStatus(),
		stations: []domain.Station{
			{MAC: domain.MustParseMAC("02:00:00:00:00:11"), AID: 1, State: domain.StateAssociated, Capabilities: domain.StationCapabilities{HT: true}},
			{MAC: domain.MustParseMAC("02:00:00:00:00:12"), AID: 2, State: domain.StateAssociated, Capabilities: domain.StationCapabilities{ERP: true}},
		},
		events: []domain.StationEvent{{Type: domain.EventAssociated}},
	}
	gen := NewReportGenerator(svc)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	gen.now = func() time.Time { return fixed }

	report, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, fixed, report.GeneratedAt)
	assert.Equal(t, 2, report.Stats.TotalStations)
	assert.Equal(t, 2, report.Stats.Associated)
	assert.Equal(t, map[string]int{"HT": 1, "ERP": 1}, report.Stats.Generations)
	assert.Len(t, report.RecentEvents, 1)
	assert.Equal(t, recentEventLimit, svc.lastLimit)
	assert.Empty(t, report.Findings, "a healthy BSS has nothing to report")
}

func TestReportGenerator_StatusError(t *testing.T) {
	svc := &fakeService{statusErr: errors.New("boom")}

	_, err := NewReportGenerator(svc).Generate(context.Background())

	assert.ErrorContains(t, err, "boom")
}

func TestFindingsEngine_Evaluate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.BSSStatus, *domain.ReportStats)
		titles  []string
		warning bool
	}{
		{
			name:    "Beacons Off",
			mutate:  func(s *domain.BSSStatus, _ *domain.ReportStats) { s.BeaconGeneration = false },
			titles:  []string{"Beacon generation disabled"},
			warning: true,
		},
		{
			name:    "Odd Interval",
			mutate:  func(s *domain.BSSStatus, _ *domain.ReportStats) { s.BeaconIntervalUs = 100000 },
			titles:  []string{"Beacon interval not a whole number of time units"},
			warning: true,
		},
		{
			name: "Protected Non-ERP",
			mutate: func(s *domain.BSSStatus, st *domain.ReportStats) {
				s.NonErpPresent = true
				s.NonErpProtection = true
				st.Generations["DSSS"] = 1
			},
			titles: []string{"ERP protection active", "DSSS-only stations"},
		},
		{
			name:    "Unprotected Non-ERP",
			mutate:  func(s *domain.BSSStatus, _ *domain.ReportStats) { s.NonErpPresent = true },
			titles:  []string{"Non-ERP stations without protection"},
			warning: true,
		},
		{
			name:    "Non-HT",
			mutate:  func(s *domain.BSSStatus, _ *domain.ReportStats) { s.NonHTPresent = true },
			titles:  []string{"Legacy stations in an HT BSS"},
			warning: true,
		},
		{
			name:   "Idle",
			mutate: func(_ *domain.BSSStatus, st *domain.ReportStats) { st.Associated = 0; st.Pending = 1 },
			titles: []string{"Associations pending", "No associated stations"},
		},
		{
			name:    "Backlog",
			mutate:  func(s *domain.BSSStatus, _ *domain.ReportStats) { s.Backlog = backlogWarning + 1 },
			titles:  []string{"Transmit backlog"},
			warning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := healthyStatus()
			stats := domain.ReportStats{Associated: 1, Generations: map[string]int{}}
			tt.mutate(&status, &stats)

			findings := NewFindingsEngine().Evaluate(status, stats)

			titles := make([]string, len(findings))
			for i, f := range findings {
				titles[i] = f.Title
			}
			assert.Equal(t, tt.titles, titles)
			if tt.warning {
				assert.Equal(t, domain.FindingWarning, findings[0].Level)
			}
		})
	}
}

func TestFindingsEngine_WarningsFirst(t *testing.T) {
	status := healthyStatus()
	status.PersistenceEnabled = false
	status.BeaconGeneration = false

	findings := NewFindingsEngine().Evaluate(status, domain.ReportStats{Associated: 1})

	require.Len(t, findings, 2)
	assert.Equal(t, domain.FindingWarning, findings[0].Level)
	assert.Equal(t, domain.FindingInfo, findings[1].Level)
}
