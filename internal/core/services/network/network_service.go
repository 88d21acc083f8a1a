package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/core/services/apmac"
	"github.com/lcalzada-xor/apmac/internal/core/services/persistence"
	"github.com/lcalzada-xor/apmac/internal/core/services/queue"
	"github.com/lcalzada-xor/apmac/internal/core/services/registry"
)

// PhyInfo describes the radio the AP runs on.
type PhyInfo interface {
	Standard() string
	Channel() uint8
}

// AgreementCounter reports the number of live receive-side Block-Ack
// agreements.
type AgreementCounter interface {
	Len() int
}

// NetworkService is the control facade of a running AP. It reads state
// directly from the thread-safe registry and router, and posts every
// mutation of the AP onto the scheduler so that it runs on the MAC's
// goroutine.
type NetworkService struct {
	ap          *apmac.ApMac
	scheduler   ports.Scheduler
	registry    *registry.StationRegistry
	router      *queue.Router
	agreements  AgreementCounter
	phy         PhyInfo
	persistence *persistence.PersistenceManager
	store       ports.StationStore

	stats *StatsService
}

// Deps groups the collaborators of a NetworkService. Persistence, Store and
// Agreements are optional.
type Deps struct {
	AP          *apmac.ApMac
	Scheduler   ports.Scheduler
	Registry    *registry.StationRegistry
	Router      *queue.Router
	Agreements  AgreementCounter
	Phy         PhyInfo
	Persistence *persistence.PersistenceManager
	Store       ports.StationStore
}

// NewNetworkService creates the control facade.
func NewNetworkService(deps Deps) *NetworkService {
	return &NetworkService{
		ap:          deps.AP,
		scheduler:   deps.Scheduler,
		registry:    deps.Registry,
		router:      deps.Router,
		agreements:  deps.Agreements,
		phy:         deps.Phy,
		persistence: deps.Persistence,
		store:       deps.Store,
		stats:       NewStatsService(),
	}
}

var _ ports.NetworkService = (*NetworkService)(nil)

// Status returns a snapshot of the BSS.
func (s *NetworkService) Status(ctx context.Context) (domain.BSSStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.BSSStatus{}, err
	}
	cfg := s.ap.Config()
	summary := s.stats.Summarize(s.registry.Stations())

	st := domain.BSSStatus{
		BSSID:              s.ap.BSSID(),
		SSID:               cfg.SSID,
		BeaconGeneration:   s.ap.BeaconGeneration(),
		BeaconIntervalUs:   cfg.BeaconInterval.Microseconds(),
		BSSColor:           cfg.BSSColor,
		NonErpProtection:   cfg.NonErpProtection,
		ShortSlotTime:      cfg.ShortSlotTime,
		QoS:                cfg.QoS,
		QueueMode:          s.router.Mode().String(),
		Associated:         summary.Associated,
		Pending:            summary.Pending,
		NonErpPresent:      s.registry.HasNonErp(),
		NonHTPresent:       s.registry.HasNonHT(),
		Backlog:            s.router.Backlog(),
		PersistenceEnabled: s.IsPersistenceEnabled(),
		LastUpdated:        time.Now(),
	}
	if s.phy != nil {
		st.Standard = s.phy.Standard()
		st.Channel = s.phy.Channel()
	}
	if s.agreements != nil {
		st.Agreements = s.agreements.Len()
	}
	return st, nil
}

// Stations lists the associated stations, ordered by AID.
func (s *NetworkService) Stations(ctx context.Context) ([]domain.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.registry.Stations(), nil
}

// Station looks a station up in the registry, then in storage.
func (s *NetworkService) Station(ctx context.Context, mac domain.MAC) (domain.Station, error) {
	if st, ok := s.registry.Station(mac); ok {
		return st, nil
	}
	if s.store == nil {
		return domain.Station{}, fmt.Errorf("%s: %w", mac, domain.ErrStationNotFound)
	}
	st, err := s.store.GetStation(ctx, mac)
	if err != nil {
		return domain.Station{}, err
	}
	return *st, nil
}

// StationEvents returns the stored history of a station, newest first. A
// zero MAC returns the history of every station.
func (s *NetworkService) StationEvents(ctx context.Context, mac domain.MAC, limit int) ([]domain.StationEvent, error) {
	if s.store == nil {
		return []domain.StationEvent{}, nil
	}
	return s.store.ListEvents(ctx, mac, limit)
}

// UpdateSettings validates and applies a settings update on the scheduler
// goroutine, then returns the resulting status.
func (s *NetworkService) UpdateSettings(ctx context.Context, settings domain.BSSSettings) (domain.BSSStatus, error) {
	if err := settings.Validate(); err != nil {
		return domain.BSSStatus{}, err
	}
	if settings.PersistenceEnabled != nil {
		s.SetPersistenceEnabled(*settings.PersistenceEnabled)
	}

	err := s.apply(ctx, func() {
		if settings.BeaconIntervalUs != nil {
			s.ap.SetBeaconInterval(time.Duration(*settings.BeaconIntervalUs) * time.Microsecond)
		}
		if settings.BSSColor != nil {
			s.ap.SetBSSColor(*settings.BSSColor)
		}
		if settings.NonErpProtection != nil {
			s.ap.SetNonErpProtection(*settings.NonErpProtection)
		}
		if settings.BeaconGeneration != nil {
			s.ap.SetBeaconGeneration(*settings.BeaconGeneration)
		}
	})
	if err != nil {
		return domain.BSSStatus{}, err
	}
	slog.Info("AP settings updated", "bssid", s.ap.BSSID())
	return s.Status(ctx)
}

// apply runs fn on the scheduler goroutine and waits for it.
func (s *NetworkService) apply(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.scheduler.ScheduleNow(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("settings not applied: %w", ctx.Err())
	}
}

// SetPersistenceEnabled toggles the database persistence.
func (s *NetworkService) SetPersistenceEnabled(enabled bool) {
	if s.persistence != nil {
		s.persistence.SetEnabled(enabled)
	}
}

// IsPersistenceEnabled returns the current persistence status.
func (s *NetworkService) IsPersistenceEnabled() bool {
	if s.persistence != nil {
		return s.persistence.IsEnabled()
	}
	return false
}
