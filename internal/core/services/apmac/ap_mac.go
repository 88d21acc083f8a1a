package apmac

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/core/services/queue"
	"github.com/lcalzada-xor/apmac/internal/core/services/registry"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

// TimeUnit is the 802.11 time unit.
const TimeUnit = 1024 * time.Microsecond

// DefaultBeaconInterval is 100 time units.
const DefaultBeaconInterval = 102400 * time.Microsecond

var (
	// ErrNotAssociated is returned when traffic is addressed to a station
	// that is not associated.
	ErrNotAssociated = errors.New("station not associated")

	// ErrInvalidConfig is returned by New for unusable settings.
	ErrInvalidConfig = errors.New("invalid AP configuration")
)

// Config is the configuration surface of an AP.
type Config struct {
	Address          domain.MAC
	SSID             string
	BeaconInterval   time.Duration
	BeaconGeneration bool
	BeaconJitter     bool
	BSSColor         uint8
	NonErpProtection bool
	// ShortSlotTime is the AP's own short slot time capability.
	ShortSlotTime bool
	// QoS enables QoS data and the EDCA parameter set. It is forced on when
	// the PHY supports HT or later.
	QoS  bool
	Edca map[domain.AccessCategory]domain.EdcaParams
}

// Deps are the collaborators an AP drives.
type Deps struct {
	Scheduler ports.Scheduler
	Rates     ports.RateService
	Radio     ports.Radio
	Stations  ports.StationManager
	Reorder   ports.ReorderManager
	Router    *queue.Router
	Registry  *registry.StationRegistry
	Upper     ports.UpperLayer
	// Rand draws the initial beacon jitter. Optional.
	Rand *rand.Rand
}

// ApMac is the MAC of one access point. All entry points are expected to be
// called from the scheduler's goroutine.
type ApMac struct {
	cfg  Config
	deps Deps

	dsss, erp, ofdm, ht, vht, he bool

	basicModes []domain.WifiMode
	basicMcs   []domain.WifiMode

	mu            sync.Mutex
	beaconEvent   ports.EventID
	beaconEnabled bool
	disposed      bool

	seq         uint16
	dialogToken uint8
}

// New builds an AP. Beaconing starts with Start.
func New(cfg Config, deps Deps) (*ApMac, error) {
	if deps.Scheduler == nil || deps.Rates == nil || deps.Radio == nil || deps.Router == nil || deps.Registry == nil || deps.Reorder == nil {
		return nil, fmt.Errorf("%w: missing collaborator", ErrInvalidConfig)
	}
	if cfg.Address.IsZero() || cfg.Address.IsGroup() {
		return nil, fmt.Errorf("%w: address %s", ErrInvalidConfig, cfg.Address)
	}
	if cfg.BeaconInterval == 0 {
		cfg.BeaconInterval = DefaultBeaconInterval
	}
	if cfg.BeaconInterval < 0 {
		return nil, fmt.Errorf("%w: beacon interval %s", ErrInvalidConfig, cfg.BeaconInterval)
	}
	if cfg.Edca == nil {
		cfg.Edca = domain.DefaultEdcaParams()
	}
	if deps.Stations == nil {
		deps.Stations = nopStationManager{}
	}
	if deps.Upper == nil {
		deps.Upper = nopUpper{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	r := deps.Rates
	a := &ApMac{
		cfg:  cfg,
		deps: deps,
		dsss: r.Supports(domain.ModClassDSSS),
		erp:  r.Supports(domain.ModClassERPOFDM),
		ofdm: r.Supports(domain.ModClassOFDM),
		ht:   r.Supports(domain.ModClassHT),
		vht:  r.Supports(domain.ModClassVHT),
		he:   r.Supports(domain.ModClassHE),
	}
	if a.ht || a.vht || a.he {
		a.cfg.QoS = true
	}
	for _, m := range r.Modes() {
		if m.Mandatory && m.Class != domain.ModClassHRDSSS {
			a.basicModes = append(a.basicModes, m)
		}
	}
	for _, m := range r.McsList(domain.ModClassHT) {
		if m.Mandatory {
			a.basicMcs = append(a.basicMcs, m)
		}
	}
	a.warnInterval(cfg.BeaconInterval)
	return a, nil
}

// Address returns the AP's own address, which is also the BSSID.
func (a *ApMac) Address() domain.MAC { return a.cfg.Address }

// BSSID returns the BSSID. It is always the AP's own address.
func (a *ApMac) BSSID() domain.MAC { return a.cfg.Address }

// Config returns a copy of the current configuration.
func (a *ApMac) Config() Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Start schedules the first beacon when beacon generation is enabled. With
// jitter enabled the first beacon is delayed by a uniform draw over
// [0, interval).
func (a *ApMac) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelBeaconLocked()
	a.beaconEnabled = a.cfg.BeaconGeneration
	if !a.beaconEnabled {
		return
	}
	if a.cfg.BeaconJitter {
		us := a.cfg.BeaconInterval.Microseconds()
		jitter := time.Duration(a.deps.Rand.Int64N(us)) * time.Microsecond
		slog.Debug("Scheduling initial beacon", "bssid", a.cfg.Address, "delay", jitter)
		a.beaconEvent = a.deps.Scheduler.Schedule(jitter, a.sendOneBeacon)
		return
	}
	slog.Debug("Scheduling initial beacon", "bssid", a.cfg.Address, "delay", time.Duration(0))
	a.beaconEvent = a.deps.Scheduler.ScheduleNow(a.sendOneBeacon)
}

// Dispose cancels every event the AP owns. The AP must not be used
// afterwards.
func (a *ApMac) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelBeaconLocked()
	a.beaconEnabled = false
	a.disposed = true
}

func (a *ApMac) cancelBeaconLocked() {
	if a.beaconEvent != 0 {
		a.deps.Scheduler.Cancel(a.beaconEvent)
		a.beaconEvent = 0
	}
}

// SetBeaconGeneration enables or disables beaconing. Disabling cancels the
// pending beacon; enabling schedules one immediately.
func (a *ApMac) SetBeaconGeneration(enable bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	if !enable {
		a.cancelBeaconLocked()
	} else if !a.beaconEnabled {
		a.beaconEvent = a.deps.Scheduler.ScheduleNow(a.sendOneBeacon)
	}
	a.beaconEnabled = enable
	a.cfg.BeaconGeneration = enable
}

// BeaconGeneration reports whether beacons are being generated.
func (a *ApMac) BeaconGeneration() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.beaconEnabled
}

// SetBeaconInterval changes the beacon period, effective after the next
// beacon.
func (a *ApMac) SetBeaconInterval(interval time.Duration) {
	a.warnInterval(interval)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.BeaconInterval = interval
}

func (a *ApMac) warnInterval(interval time.Duration) {
	if interval.Microseconds()%1024 != 0 {
		slog.Warn("Beacon interval should be a multiple of 1024us (802.11 time unit)", "interval_us", interval.Microseconds())
	}
}

// SetBSSColor changes the BSS colour advertised to HE stations.
func (a *ApMac) SetBSSColor(color uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.BSSColor = color
}

// SetNonErpProtection enables protection when non-ERP stations are present.
func (a *ApMac) SetNonErpProtection(enable bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.NonErpProtection = enable
}

func (a *ApMac) nextSeq() dot11.SeqControl {
	s := dot11.SeqControl{Number: a.seq}
	a.seq = (a.seq + 1) & 0x0fff
	return s
}

func (a *ApMac) mgmtHeader(kind layers.Dot11Type, to domain.MAC) dot11.MacHeader {
	return dot11.MacHeader{
		Kind:  kind,
		Addr1: to,
		Addr2: a.cfg.Address,
		Addr3: a.cfg.Address,
		Seq:   a.nextSeq(),
	}
}

// OnTxOutcome is called by the queueing layer once per transmitted frame.
// Association responses confirm or roll back the pending association of
// their receiver.
func (a *ApMac) OnTxOutcome(hdr dot11.MacHeader, ok bool) {
	if !ok {
		slog.Debug("Frame transmission failed", "kind", dot11.KindName(hdr.Kind), "ra", hdr.Addr1)
	}
	if hdr.Kind != dot11.KindAssocResponse && hdr.Kind != dot11.KindReassocResponse {
		return
	}
	sta := hdr.Addr1
	reg := a.deps.Registry
	if !reg.IsWaitAssocTxOk(sta) {
		return
	}
	if ok {
		slog.Info("Station associated", "station", sta, "aid", reg.GetAid(sta))
		reg.RecordGotAssocTxOk(sta)
		telemetry.Associations.WithLabelValues("accepted").Inc()
	} else {
		slog.Warn("Association response lost", "station", sta, "aid", reg.GetAid(sta))
		reg.RecordGotAssocTxFailed(sta)
		a.deps.Stations.Reset(sta)
		telemetry.Associations.WithLabelValues("tx_failed").Inc()
	}
	telemetry.StationsAssociated.Set(float64(reg.Count()))
}

type nopStationManager struct{}

func (nopStationManager) AddSupportedMode(domain.MAC, domain.WifiMode) {}
func (nopStationManager) SetShortPreamble(domain.MAC, bool)            {}
func (nopStationManager) SetShortSlotTime(domain.MAC, bool)            {}
func (nopStationManager) Reset(domain.MAC)                             {}
func (nopStationManager) DataMode(domain.MAC) (domain.WifiMode, bool) {
	return domain.WifiMode{}, false
}

type nopUpper struct{}

func (nopUpper) Deliver([]byte, domain.MAC, domain.MAC) {}
