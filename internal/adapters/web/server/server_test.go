package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/lcalzada-xor/apmac/internal/adapters/web"
	"github.com/lcalzada-xor/apmac/internal/adapters/web/server"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var sta1 = domain.MustParseMAC("02:00:00:00:00:11")

type testServer struct {
	srv      *server.Server
	handler  http.Handler
	service  *web.MockNetworkService
	reports  *web.MockReportGenerator
	exporter *web.MockReportExporter
}

// setupServer helper creates a server instance with mocks
func setupServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		service:  new(web.MockNetworkService),
		reports:  new(web.MockReportGenerator),
		exporter: new(web.MockReportExporter),
	}
	ts.srv = server.NewServer("127.0.0.1:0", ts.service, ts.reports, ts.exporter)
	ts.handler = server.SetupRoutes(ts.srv)
	return ts
}

func (ts *testServer) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_HandleStatus(t *testing.T) {
	ts := setupServer(t)
	status := domain.BSSStatus{BSSID: domain.MustParseMAC("02:00:00:00:00:01"), SSID: "lab", Standard: "n", Associated: 2}
	ts.service.On("Status", mock.Anything).Return(status, nil)

	rec := ts.do(http.MethodGet, "/api/status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got domain.BSSStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, status.BSSID, got.BSSID)
	assert.Equal(t, 2, got.Associated)
}

func TestServer_HandleStations(t *testing.T) {
	ts := setupServer(t)
	ts.service.On("Stations", mock.Anything).Return([]domain.Station{{MAC: sta1, AID: 1, State: domain.StateAssociated}}, nil)

	rec := ts.do(http.MethodGet, "/api/stations", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Station
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, sta1, got[0].MAC)
}

func TestServer_HandleStation(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		mockSetup func(*web.MockNetworkService)
		expected  int
	}{
		{
			name: "Known Station",
			path: "/api/stations/02:00:00:00:00:11",
			mockSetup: func(m *web.MockNetworkService) {
				m.On("Station", mock.Anything, sta1).Return(domain.Station{MAC: sta1, AID: 1}, nil)
			},
			expected: http.StatusOK,
		},
		{
			name: "Unknown Station",
			path: "/api/stations/02:00:00:00:00:11",
			mockSetup: func(m *web.MockNetworkService) {
				m.On("Station", mock.Anything, sta1).Return(domain.Station{}, domain.ErrStationNotFound)
			},
			expected: http.StatusNotFound,
		},
		{
			name:      "Invalid MAC",
			path:      "/api/stations/not-a-mac",
			mockSetup: func(*web.MockNetworkService) {},
			expected:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupServer(t)
			tt.mockSetup(ts.service)

			rec := ts.do(http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.expected, rec.Code)
			ts.service.AssertExpectations(t)
		})
	}
}

func TestServer_HandleStationEvents(t *testing.T) {
	ts := setupServer(t)
	events := []domain.StationEvent{{Type: domain.EventAssociated, Station: domain.Station{MAC: sta1}}}
	ts.service.On("StationEvents", mock.Anything, sta1, 500).Return(events, nil)
	ts.service.On("StationEvents", mock.Anything, domain.MAC{}, 50).Return([]domain.StationEvent{}, nil)

	rec := ts.do(http.MethodGet, "/api/stations/02:00:00:00:00:11/events?limit=900", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.StationEvent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 1)

	rec = ts.do(http.MethodGet, "/api/events", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/events?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.service.AssertExpectations(t)
}

func TestServer_HandleGetConfig(t *testing.T) {
	ts := setupServer(t)
	ts.service.On("Status", mock.Anything).Return(domain.BSSStatus{BeaconGeneration: true, BeaconIntervalUs: 102400, BSSColor: 3}, nil)

	rec := ts.do(http.MethodGet, "/api/config", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.BSSSettings
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.NotNil(t, got.BeaconIntervalUs)
	assert.Equal(t, int64(102400), *got.BeaconIntervalUs)
	assert.Equal(t, uint8(3), *got.BSSColor)
	assert.True(t, *got.BeaconGeneration)
}

func TestServer_HandleUpdateConfig(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		mockSetup func(*web.MockNetworkService)
		expected  int
	}{
		{
			name: "Valid Update",
			body: `{"beacon_generation":false,"bss_color":7}`,
			mockSetup: func(m *web.MockNetworkService) {
				m.On("UpdateSettings", mock.Anything, mock.MatchedBy(func(s domain.BSSSettings) bool {
					return s.BeaconGeneration != nil && !*s.BeaconGeneration && s.BSSColor != nil && *s.BSSColor == 7
				})).Return(domain.BSSStatus{BSSColor: 7}, nil)
			},
			expected: http.StatusOK,
		},
		{
			name: "Rejected Value",
			body: `{"beacon_interval_us":0}`,
			mockSetup: func(m *web.MockNetworkService) {
				m.On("UpdateSettings", mock.Anything, mock.Anything).Return(domain.BSSStatus{}, domain.ErrInvalidSettings)
			},
			expected: http.StatusBadRequest,
		},
		{
			name: "Scheduler Unavailable",
			body: `{"non_erp_protection":true}`,
			mockSetup: func(m *web.MockNetworkService) {
				m.On("UpdateSettings", mock.Anything, mock.Anything).Return(domain.BSSStatus{}, context.DeadlineExceeded)
			},
			expected: http.StatusServiceUnavailable,
		},
		{
			name:      "Unknown Field",
			body:      `{"channel":11}`,
			mockSetup: func(*web.MockNetworkService) {},
			expected:  http.StatusBadRequest,
		},
		{
			name:      "Empty Update",
			body:      `{}`,
			mockSetup: func(*web.MockNetworkService) {},
			expected:  http.StatusBadRequest,
		},
		{
			name:      "Malformed JSON",
			body:      `{"bss_color":`,
			mockSetup: func(*web.MockNetworkService) {},
			expected:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupServer(t)
			tt.mockSetup(ts.service)

			rec := ts.do(http.MethodPut, "/api/config", []byte(tt.body))

			assert.Equal(t, tt.expected, rec.Code)
			ts.service.AssertExpectations(t)
		})
	}
}

func TestServer_HandleTogglePersistence(t *testing.T) {
	ts := setupServer(t)
	ts.service.On("SetPersistenceEnabled", true).Return()

	rec := ts.do(http.MethodPost, "/api/config/persistence?enabled=true", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":true`)
	ts.service.AssertExpectations(t)
}

func TestServer_HandleDownloadReport(t *testing.T) {
	ts := setupServer(t)
	report := &domain.ReportData{GeneratedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)}
	ts.reports.On("Generate", mock.Anything).Return(report, nil)
	ts.exporter.On("Export", report).Return([]byte("%PDF-1.3 test"), nil)

	rec := ts.do(http.MethodGet, "/api/report.pdf", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="apmac_report_20260304_050607.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(http.MethodDelete, "/api/status", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_StationEventStream(t *testing.T) {
	ts := setupServer(t)
	ts.srv.WSManager.Interval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.srv.WSManager.Start(ctx)

	httpSrv := httptest.NewServer(ts.handler)
	defer httpSrv.Close()

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(httpSrv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ts.srv.WSManager.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	ts.srv.WSManager.OnStationEvent(ctx, domain.StationEvent{
		Type:    domain.EventAssociated,
		Station: domain.Station{MAC: sta1, AID: 1},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type    string              `json:"type"`
		Payload domain.StationEvent `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "station", msg.Type)
	assert.Equal(t, domain.EventAssociated, msg.Payload.Type)
	assert.Equal(t, sta1, msg.Payload.Station.MAC)
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	ts := setupServer(t)
	httpSrv := httptest.NewServer(ts.handler)
	defer httpSrv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(httpSrv.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_Serve_Shutdown(t *testing.T) {
	ts := setupServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ts.srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
