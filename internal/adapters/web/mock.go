package web

import (
	"context"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockNetworkService is a mock of ports.NetworkService
type MockNetworkService struct {
	mock.Mock
}

func (m *MockNetworkService) Status(ctx context.Context) (domain.BSSStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.BSSStatus), args.Error(1)
}

func (m *MockNetworkService) Stations(ctx context.Context) ([]domain.Station, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Station), args.Error(1)
}

func (m *MockNetworkService) Station(ctx context.Context, mac domain.MAC) (domain.Station, error) {
	args := m.Called(ctx, mac)
	return args.Get(0).(domain.Station), args.Error(1)
}

func (m *MockNetworkService) StationEvents(ctx context.Context, mac domain.MAC, limit int) ([]domain.StationEvent, error) {
	args := m.Called(ctx, mac, limit)
	return args.Get(0).([]domain.StationEvent), args.Error(1)
}

func (m *MockNetworkService) UpdateSettings(ctx context.Context, settings domain.BSSSettings) (domain.BSSStatus, error) {
	args := m.Called(ctx, settings)
	return args.Get(0).(domain.BSSStatus), args.Error(1)
}

func (m *MockNetworkService) SetPersistenceEnabled(enabled bool) {
	m.Called(enabled)
}

func (m *MockNetworkService) IsPersistenceEnabled() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockReportGenerator is a mock of ports.ReportGenerator
type MockReportGenerator struct {
	mock.Mock
}

func (m *MockReportGenerator) Generate(ctx context.Context) (*domain.ReportData, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*domain.ReportData)
	return report, args.Error(1)
}

// MockReportExporter is a mock of ports.ReportExporter
type MockReportExporter struct {
	mock.Mock
}

func (m *MockReportExporter) Export(report *domain.ReportData) ([]byte, error) {
	args := m.Called(report)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}
