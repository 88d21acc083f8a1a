package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/apmac/internal/adapters/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes builds the HTTP handler of s.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Logging)

	// Rate limiters
	apiLimiter := middleware.NewRateLimiter(20, 40)
	writeLimiter := middleware.NewRateLimiter(2, 5)
	reportLimiter := middleware.NewRateLimiter(0.2, 2)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RateLimitMiddleware(apiLimiter))

	api.HandleFunc("/status", s.StatusHandler.HandleStatus).Methods(http.MethodGet)
	api.HandleFunc("/stations", s.StatusHandler.HandleStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{mac}", s.StatusHandler.HandleStation).Methods(http.MethodGet)
	api.HandleFunc("/stations/{mac}/events", s.StatusHandler.HandleStationEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.StatusHandler.HandleStationEvents).Methods(http.MethodGet)

	api.HandleFunc("/config", s.ConfigHandler.HandleGetConfig).Methods(http.MethodGet)
	writes := middleware.RateLimitMiddleware(writeLimiter)
	api.Handle("/config", writes(http.HandlerFunc(s.ConfigHandler.HandleUpdateConfig))).Methods(http.MethodPut, http.MethodPatch)
	api.Handle("/config/persistence", writes(http.HandlerFunc(s.ConfigHandler.HandleTogglePersistence))).Methods(http.MethodPost)

	reports := middleware.RateLimitMiddleware(reportLimiter)
	api.Handle("/report.pdf", reports(http.HandlerFunc(s.ReportHandler.HandleDownloadReport))).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
