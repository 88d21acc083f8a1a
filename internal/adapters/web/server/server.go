package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lcalzada-xor/apmac/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/apmac/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server serves the status API, the station event stream and metrics.
type Server struct {
	Addr          string
	Service       ports.NetworkService
	WSManager     *websocket.WSManager
	StatusHandler *handlers.StatusHandler
	ConfigHandler *handlers.ConfigHandler
	ReportHandler *handlers.ReportHandler
	srv           *http.Server
}

// NewServer creates a new web server.
func NewServer(addr string, service ports.NetworkService, generator ports.ReportGenerator, exporter ports.ReportExporter, allowedOrigins ...string) *Server {
	return &Server{
		Addr:          addr,
		Service:       service,
		WSManager:     websocket.NewWSManager(service, allowedOrigins...),
		StatusHandler: handlers.NewStatusHandler(service),
		ConfigHandler: handlers.NewConfigHandler(service),
		ReportHandler: handlers.NewReportHandler(generator, exporter),
	}
}

// Run starts the broadcaster and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.WSManager.Start(ctx)

	s.srv = &http.Server{
		Handler:           otelhttp.NewHandler(SetupRoutes(s), "apmac-server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Web server shutdown error", "error", err)
		}
	}()

	slog.Info("Web server listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
