package mock

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/lcalzada-xor/apmac/internal/adapters/medium"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/dot11"
)

// Scenario describes the population of a mock run.
type Scenario struct {
	Name     string
	Profiles map[string]int
	Behavior Behavior
}

var scenarios = map[string]Scenario{
	"basic": {
		Name:     "basic",
		Profiles: map[string]int{ProfileG: 2, ProfileN: 2, ProfileAC: 1},
		Behavior: Behavior{JoinDelay: 2 * time.Second, DataInterval: 500 * time.Millisecond, BlockAck: true},
	},
	"mixed": {
		Name:     "mixed",
		Profiles: map[string]int{ProfileB: 2, ProfileG: 3, ProfileN: 3, ProfileAC: 2, ProfileAX: 2},
		Behavior: Behavior{
			JoinDelay:    5 * time.Second,
			DataInterval: 300 * time.Millisecond,
			Lifetime:     30 * time.Second,
			Rejoin:       5 * time.Second,
			BlockAck:     true,
		},
	},
	"busy": {
		Name:     "busy",
		Profiles: map[string]int{ProfileN: 10, ProfileAC: 10, ProfileAX: 10},
		Behavior: Behavior{
			JoinDelay:    3 * time.Second,
			DataInterval: 50 * time.Millisecond,
			Lifetime:     20 * time.Second,
			Rejoin:       2 * time.Second,
			BlockAck:     true,
		},
	},
}

// profileOrder fixes the order stations are generated in.
var profileOrder = []string{ProfileB, ProfileG, ProfileN, ProfileAC, ProfileAX}

// LookupScenario returns a named scenario.
func LookupScenario(name string) (Scenario, error) {
	s, ok := scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown mock scenario %q", name)
	}
	return s, nil
}

// Receiver is the AP side of the mock medium.
type Receiver interface {
	Receive(ctx context.Context, data []byte) error
}

// IntegrationConfig wires a mock population to an AP.
type IntegrationConfig struct {
	Scenario  string
	BSSID     domain.MAC
	SSID      string
	Scheduler ports.Scheduler
	Injector  *medium.MockInjector
	AP        Receiver
	// Rand seeds station generation and behavior. Optional.
	Rand *rand.Rand
	// OnError receives errors the AP returns for station frames. Optional.
	OnError func(error)
}

// MockIntegration runs scripted stations against an AP through a
// MockInjector: frames the AP transmits reach the stations, and station
// frames are handed to the AP on the scheduler goroutine.
type MockIntegration struct {
	cfg      IntegrationConfig
	scenario Scenario
	stations map[domain.MAC]*Station
	order    []*Station
}

// NewMockIntegration creates a new mock integration
func NewMockIntegration(cfg IntegrationConfig) (*MockIntegration, error) {
	if cfg.Scheduler == nil || cfg.Injector == nil || cfg.AP == nil {
		return nil, fmt.Errorf("mock integration: missing collaborator")
	}
	if cfg.Scenario == "" {
		cfg.Scenario = "basic"
	}
	sc, err := LookupScenario(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error) {}
	}

	m := &MockIntegration{
		cfg:      cfg,
		scenario: sc,
		stations: make(map[domain.MAC]*Station),
	}
	gen := NewDataGenerator(cfg.Rand)
	for _, profile := range profileOrder {
		for i := 0; i < sc.Profiles[profile]; i++ {
			ms, err := gen.GenerateStation(profile)
			if err != nil {
				return nil, err
			}
			st := newStation(ms, cfg.BSSID, cfg.SSID, cfg.Scheduler, cfg.Rand, sc.Behavior, nil, m.associatedPeers)
			m.stations[ms.MAC] = st
			m.order = append(m.order, st)
		}
	}
	slog.Info("Initializing Mock Integration", "scenario", sc.Name, "stations", len(m.order))
	return m, nil
}

// Start attaches the stations to the medium and schedules their first
// probes. ctx is passed to the AP with every station frame.
func (m *MockIntegration) Start(ctx context.Context) {
	deliver := func(raw []byte) {
		if err := m.cfg.AP.Receive(ctx, raw); err != nil {
			slog.Error("AP rejected mock frame", "error", err)
			m.cfg.OnError(err)
		}
	}
	for _, st := range m.order {
		st.send = deliver
	}
	m.cfg.Injector.SetListener(m.onAir)
	for _, st := range m.order {
		st.start()
	}
	slog.Info("Mock stations started", "scenario", m.scenario.Name)
}

// Stop detaches the stations. Must run on the scheduler goroutine or after
// the scheduler has stopped.
func (m *MockIntegration) Stop() {
	m.cfg.Injector.SetListener(nil)
	for _, st := range m.order {
		st.stop()
	}
	slog.Info("Mock stations stopped")
}

// Scenario returns the active scenario
func (m *MockIntegration) Scenario() Scenario {
	return m.scenario
}

// Stations returns the scripted stations in creation order.
func (m *MockIntegration) Stations() []*Station {
	return slices.Clone(m.order)
}

func (m *MockIntegration) associatedPeers() []domain.MAC {
	var out []domain.MAC
	for _, st := range m.order {
		if st.state == stateAssociated {
			out = append(out, st.MAC)
		}
	}
	return out
}

// onAir dispatches a frame the AP transmitted.
func (m *MockIntegration) onAir(packet []byte) {
	raw, ok := medium.DecodeInjected(packet)
	if !ok {
		return
	}
	f, err := dot11.ParseFrame(raw)
	if err != nil {
		slog.Debug("Mock medium could not parse AP frame", "error", err)
		return
	}
	if f.Header.Addr1.IsGroup() {
		for _, st := range m.order {
			st.handle(f)
		}
		return
	}
	if st, ok := m.stations[f.Header.Addr1]; ok {
		st.handle(f)
	}
}
