package medium

import (
	"sync"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

type remoteStation struct {
	modes         []domain.WifiMode
	shortPreamble bool
	shortSlot     bool
}

// RemoteStationManager keeps the modes each associated station supports and
// picks the fastest one for data frames. It implements ports.StationManager.
type RemoteStationManager struct {
	mu       sync.RWMutex
	stations map[domain.MAC]*remoteStation
}

func NewRemoteStationManager() *RemoteStationManager {
	return &RemoteStationManager{stations: make(map[domain.MAC]*remoteStation)}
}

func (m *RemoteStationManager) lookup(mac domain.MAC) *remoteStation {
	st, ok := m.stations[mac]
	if !ok {
		st = &remoteStation{}
		m.stations[mac] = st
	}
	return st
}

// AddSupportedMode records mode for station. Duplicates are ignored.
func (m *RemoteStationManager) AddSupportedMode(station domain.MAC, mode domain.WifiMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.lookup(station)
	for _, existing := range st.modes {
		if existing.Name == mode.Name {
			return
		}
	}
	st.modes = append(st.modes, mode)
}

func (m *RemoteStationManager) SetShortPreamble(station domain.MAC, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookup(station).shortPreamble = enabled
}

func (m *RemoteStationManager) SetShortSlotTime(station domain.MAC, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookup(station).shortSlot = enabled
}

// Reset forgets everything known about station.
func (m *RemoteStationManager) Reset(station domain.MAC) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stations, station)
}

// DataMode returns the highest-rate mode recorded for station.
func (m *RemoteStationManager) DataMode(station domain.MAC) (domain.WifiMode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[station]
	if !ok || len(st.modes) == 0 {
		return domain.WifiMode{}, false
	}
	best := st.modes[0]
	for _, mode := range st.modes[1:] {
		if mode.DataRate > best.DataRate {
			best = mode
		}
	}
	return best, true
}

// Modes returns a copy of the modes recorded for station.
func (m *RemoteStationManager) Modes(station domain.MAC) []domain.WifiMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[station]
	if !ok {
		return nil
	}
	return append([]domain.WifiMode(nil), st.modes...)
}

// ShortPreamble reports whether station was marked short-preamble capable.
func (m *RemoteStationManager) ShortPreamble(station domain.MAC) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[station]
	return ok && st.shortPreamble
}

// ShortSlotTime reports whether station was marked short-slot capable.
func (m *RemoteStationManager) ShortSlotTime(station domain.MAC) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[station]
	return ok && st.shortSlot
}
