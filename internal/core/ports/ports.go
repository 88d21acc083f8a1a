package ports

import (
	"context"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// NetworkService is the control surface of a running AP used by the web
// and gRPC adapters. Reads may be served from any goroutine; updates are
// applied on the scheduler goroutine.
type NetworkService interface {
	Status(ctx context.Context) (domain.BSSStatus, error)
	Stations(ctx context.Context) ([]domain.Station, error)
	// Station returns the live registry entry, falling back to storage
	// for stations the registry no longer lists.
	Station(ctx context.Context, mac domain.MAC) (domain.Station, error)
	StationEvents(ctx context.Context, mac domain.MAC, limit int) ([]domain.StationEvent, error)
	UpdateSettings(ctx context.Context, settings domain.BSSSettings) (domain.BSSStatus, error)

	SetPersistenceEnabled(enabled bool)
	IsPersistenceEnabled() bool
}

// ReportGenerator assembles the data of a BSS report.
type ReportGenerator interface {
	Generate(ctx context.Context) (*domain.ReportData, error)
}

// ReportExporter renders a report into a document.
type ReportExporter interface {
	Export(report *domain.ReportData) ([]byte, error)
}
