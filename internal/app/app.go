package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	grpcserver "github.com/lcalzada-xor/apmac/internal/adapters/grpc"
	"github.com/lcalzada-xor/apmac/internal/adapters/medium"
	"github.com/lcalzada-xor/apmac/internal/adapters/phy"
	pdfexport "github.com/lcalzada-xor/apmac/internal/adapters/reporting"
	"github.com/lcalzada-xor/apmac/internal/adapters/storage"
	webserver "github.com/lcalzada-xor/apmac/internal/adapters/web/server"
	"github.com/lcalzada-xor/apmac/internal/config"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/core/services/apmac"
	"github.com/lcalzada-xor/apmac/internal/core/services/network"
	"github.com/lcalzada-xor/apmac/internal/core/services/persistence"
	"github.com/lcalzada-xor/apmac/internal/core/services/queue"
	"github.com/lcalzada-xor/apmac/internal/core/services/registry"
	"github.com/lcalzada-xor/apmac/internal/core/services/reporting"
	"github.com/lcalzada-xor/apmac/internal/core/services/scheduler"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/mock"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

// persistenceBuffer bounds the station events waiting to be written.
const persistenceBuffer = 10000

// Application holds the core components of the application.
// It acts as the Facade for the entire system, orchestrating the MAC, its
// radio and the control surfaces around it.
type Application struct {
	Config             *config.Config
	Scheduler          *scheduler.Simulator
	AP                 *apmac.ApMac
	Registry           *registry.StationRegistry
	Router             *queue.Router
	Medium             *medium.Medium
	NetworkService     *network.NetworkService
	PersistenceManager *persistence.PersistenceManager
	WebServer          *webserver.Server
	HealthServer       *grpcserver.HealthServer
	MockIntegration    *mock.MockIntegration

	rates       *phy.RateTable
	stations    *medium.RemoteStationManager
	reorder     *medium.ReorderTable
	transmitter *medium.Transmitter
	store       *storage.SQLiteAdapter
	injector    medium.PacketInjector
	mockInject  *medium.MockInjector
	source      *medium.LiveSource
	capture     *medium.CaptureWriter

	// fatal carries errors that must stop the application.
	fatal chan error

	// Internal State
	monitorInterface string
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &Application{
		Config: cfg,
		fatal:  make(chan error, 1),
	}

	if err := app.bootstrap(); err != nil {
		app.Close()
		app.RestoreNetwork()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}

	// 2. Radio
	if err := app.initRadio(); err != nil {
		return err
	}

	// 3. MAC
	if err := app.initMAC(); err != nil {
		return err
	}

	// 4. Control surfaces
	app.initServices()
	app.initServers()

	// 5. Scripted stations
	if app.Config.MockMode {
		return app.initMock()
	}
	return nil
}

func (app *Application) initStorage() error {
	if app.Config.DBPath == "" {
		slog.Info("Persistence disabled: no database path")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init station storage: %w", err)
	}
	app.store = store
	return nil
}

func (app *Application) initRadio() error {
	rates, err := phy.ForStandard(app.Config.Standard, uint8(app.Config.Channel))
	if err != nil {
		return err
	}
	if !app.Config.ShortPreamble {
		rates.DisableShortPreamble()
	}
	app.rates = rates
	app.stations = medium.NewRemoteStationManager()

	iface := app.Config.Interface
	if app.Config.MockMode {
		slog.Info("Mock Mode Active: stations are simulated")
		app.mockInject = medium.NewMockInjector()
		app.injector = app.mockInject
		iface = "mock0"
	} else {
		if err := app.initMonitor(); err != nil {
			return err
		}
		inj, err := medium.NewPcapInjector(iface)
		if err != nil {
			return fmt.Errorf("injector on %s: %w", iface, err)
		}
		app.injector = inj
		src, err := medium.OpenLiveSource(iface, "")
		if err != nil {
			return fmt.Errorf("capture on %s: %w", iface, err)
		}
		app.source = src
	}

	app.transmitter = medium.NewTransmitter(iface, app.injector, app.stations, rates.BasicMode(), rates.Channel())
	if app.Config.PcapPath != "" {
		w, err := medium.CreateCaptureFile(app.Config.PcapPath)
		if err != nil {
			return err
		}
		app.capture = w
		app.transmitter.SetCapture(w)
		slog.Info("Recording transmitted frames", "path", app.Config.PcapPath)
	}
	return nil
}

func (app *Application) initMonitor() error {
	slog.Info("Stopping conflicting network services...")
	if err := medium.KillConflictingProcesses(); err != nil {
		slog.Warn("Failed to stop conflicting processes", "error", err)
	}
	iface := app.Config.Interface
	if err := medium.EnableMonitorMode(iface, app.rates.Channel()); err != nil {
		return fmt.Errorf("failed to enable monitor mode on %s: %w", iface, err)
	}
	app.monitorInterface = iface
	time.Sleep(2 * time.Second) // Settle time
	return nil
}

func (app *Application) initMAC() error {
	cfg := app.Config
	app.Scheduler = scheduler.NewSimulator()
	app.Medium = medium.NewMedium(app.Scheduler, app.transmitter, cfg.Address())

	mode := queue.ModeShared
	if cfg.PerStationQueues {
		mode = queue.ModePerStation
	}
	app.Router = queue.NewRouter(mode, nil, func(name string, aifsn uint8) ports.TxQueue {
		return app.Medium.NewQueue(name, aifsn)
	})
	app.reorder = medium.NewReorderTable()
	app.Registry = registry.NewStationRegistry()

	ap, err := apmac.New(apmac.Config{
		Address:          cfg.Address(),
		SSID:             cfg.SSID,
		BeaconInterval:   cfg.BeaconInterval(),
		BeaconGeneration: cfg.BeaconGeneration,
		BeaconJitter:     cfg.BeaconJitter,
		BSSColor:         uint8(cfg.BSSColor),
		NonErpProtection: cfg.NonErpProtection,
		ShortSlotTime:    cfg.ShortSlotTime,
		QoS:              cfg.QoS,
	}, apmac.Deps{
		Scheduler: app.Scheduler,
		Rates:     app.rates,
		Radio:     app.transmitter,
		Stations:  app.stations,
		Reorder:   app.reorder,
		Router:    app.Router,
		Registry:  app.Registry,
		Upper:     distributionSystem{},
	})
	if err != nil {
		return err
	}
	app.AP = ap
	app.Medium.OnTxOutcome(ap.OnTxOutcome)
	slog.Info("AP configured",
		"bssid", cfg.Address(),
		"ssid", cfg.SSID,
		"standard", app.rates.Standard(),
		"channel", app.rates.Channel(),
		"queues", mode)
	return nil
}

func (app *Application) initServices() {
	var store ports.StationStore
	if app.store != nil {
		store = app.store
	}
	app.PersistenceManager = persistence.NewPersistenceManager(store, persistenceBuffer)
	if store == nil {
		app.PersistenceManager.SetEnabled(false)
	}
	app.Registry.Subscribe(app.PersistenceManager)

	app.NetworkService = network.NewNetworkService(network.Deps{
		AP:          app.AP,
		Scheduler:   app.Scheduler,
		Registry:    app.Registry,
		Router:      app.Router,
		Agreements:  app.reorder,
		Phy:         app.rates,
		Persistence: app.PersistenceManager,
		Store:       store,
	})
}

func (app *Application) initServers() {
	generator := reporting.NewReportGenerator(app.NetworkService)
	exporter := pdfexport.NewPDFExporter()
	app.WebServer = webserver.NewServer(app.Config.Addr, app.NetworkService, generator, exporter, app.Config.AllowedOrigins...)
	app.Registry.Subscribe(app.WebServer.WSManager)

	if app.Config.GRPCPort > 0 {
		app.HealthServer = grpcserver.NewHealthServer(app.NetworkService)
	}
}

func (app *Application) initMock() error {
	m, err := mock.NewMockIntegration(mock.IntegrationConfig{
		Scenario:  app.Config.MockScenario,
		BSSID:     app.Config.Address(),
		SSID:      app.Config.SSID,
		Scheduler: app.Scheduler,
		Injector:  app.mockInject,
		AP:        app.AP,
		OnError:   app.fail,
	})
	if err != nil {
		return err
	}
	app.MockIntegration = m
	return nil
}

// fail reports a fatal error without blocking. Only the first one is kept.
func (app *Application) fail(err error) {
	select {
	case app.fatal <- err:
	default:
	}
}

// receive hands a captured frame to the MAC on the scheduler goroutine.
func (app *Application) receive(ctx context.Context) medium.FrameHandler {
	self := app.Config.Address()
	return func(frame []byte) {
		// Our own injected frames come back through the capture.
		if h, _, err := dot11.Decode(frame); err == nil && h.Addr2 == self {
			return
		}
		app.Scheduler.ScheduleNow(func() {
			if err := app.AP.Receive(ctx, frame); err != nil {
				app.fail(err)
			}
		})
	}
}

// Run starts the application components and manages their execution lifecycle.
// It returns when ctx is done or a component fails; a protocol violation
// reported by the MAC is returned as an error.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting APMAC components...")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 1. Auxiliary Loops
	persistDone := app.PersistenceManager.Start(ctx)

	// 2. Servers
	errChan := make(chan error, 4)
	go func() {
		slog.Info("Web Server listening", "addr", app.Config.Addr)
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()
	if app.HealthServer != nil {
		go func() {
			addr := fmt.Sprintf(":%d", app.Config.GRPCPort)
			slog.Info("gRPC health server listening", "addr", addr)
			if err := app.HealthServer.Run(ctx, addr); err != nil {
				errChan <- fmt.Errorf("grpc server error: %w", err)
			}
		}()
	}

	// 3. MAC and medium. Nothing else runs on the scheduler yet.
	app.AP.Start()
	if app.MockIntegration != nil {
		app.MockIntegration.Start(ctx)
	}
	clockDone := make(chan struct{})
	go func() {
		defer close(clockDone)
		if err := scheduler.NewRealTime(app.Scheduler).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- fmt.Errorf("scheduler error: %w", err)
		}
	}()
	if app.source != nil {
		go func() {
			if err := app.source.Run(ctx, app.receive(ctx)); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("capture error: %w", err)
			}
		}()
	}

	slog.Info("APMAC Ready. Press Ctrl+C to terminate.")

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
	case err := <-errChan:
		runErr = err
	case err := <-app.fatal:
		if errors.Is(err, dot11.ErrProtocolViolation) {
			slog.Error("Protocol violation, stopping the AP", "error", err)
		}
		runErr = err
	}

	cancel()
	<-clockDone
	if app.MockIntegration != nil {
		app.MockIntegration.Stop()
	}
	app.AP.Dispose()
	<-persistDone
	app.Close()
	slog.Info("APMAC stopped")
	return runErr
}

// Close releases the radio, capture file and database. Safe to call on a
// partially bootstrapped application.
func (app *Application) Close() {
	if app.source != nil {
		app.source.Close()
		app.source = nil
	}
	if app.injector != nil {
		app.injector.Close()
		app.injector = nil
	}
	if app.capture != nil {
		if err := app.capture.Close(); err != nil {
			slog.Warn("Failed to close capture file", "error", err)
		}
		slog.Info("Capture closed", "frames", app.capture.Count())
		app.capture = nil
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
		app.store = nil
	}
}

// RestoreNetwork puts the interface back into managed mode and restarts
// the services stopped at startup.
func (app *Application) RestoreNetwork() {
	if app.monitorInterface == "" {
		return
	}
	medium.DisableMonitorMode(app.monitorInterface)
	if err := medium.RestoreNetworkServices(); err != nil {
		slog.Warn("Failed to restore network services", "error", err)
	}
	app.monitorInterface = ""
}

// distributionSystem is the upper layer of a standalone AP: MSDUs leaving
// the BSS are counted and dropped.
type distributionSystem struct{}

func (distributionSystem) Deliver(packet []byte, from, to domain.MAC) {
	dest := "unicast"
	if to.IsGroup() {
		dest = "group"
	}
	telemetry.MsdusDelivered.WithLabelValues(dest).Inc()
	slog.Debug("MSDU delivered", "from", from, "to", to, "len", len(packet))
}
