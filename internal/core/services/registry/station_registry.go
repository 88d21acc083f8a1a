package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

// MaxAID is the highest association identifier the AP hands out.
const MaxAID = 2007

type stationEntry struct {
	station domain.Station
	// listed is set from the moment a success response is built until the
	// station leaves or the response is lost.
	listed bool
}

// StationRegistry owns the stations of one AP: association IDs, association
// state, capability flags and the non-ERP / non-HT sets. Each AP owns its
// own registry; nothing is shared between instances.
type StationRegistry struct {
	mu       sync.RWMutex
	stations map[domain.MAC]*stationEntry
	byAID    map[uint16]domain.MAC
	lastAID  uint16
	nonERP   map[domain.MAC]struct{}
	nonHT    map[domain.MAC]struct{}
	subject  *RegistrySubject
	now      func() time.Time
}

// NewStationRegistry returns an empty registry.
func NewStationRegistry() *StationRegistry {
	return &StationRegistry{
		stations: make(map[domain.MAC]*stationEntry),
		byAID:    make(map[uint16]domain.MAC),
		nonERP:   make(map[domain.MAC]struct{}),
		nonHT:    make(map[domain.MAC]struct{}),
		subject:  NewRegistrySubject(),
		now:      time.Now,
	}
}

// Subscribe registers an observer for the given transitions, or for every
// transition when types is empty.
func (r *StationRegistry) Subscribe(obs ports.StationObserver, types ...domain.StationEventType) {
	r.subject.AddObserver(obs, types...)
}

func (r *StationRegistry) entry(mac domain.MAC) *stationEntry {
	e, ok := r.stations[mac]
	if !ok {
		now := r.now()
		e = &stationEntry{station: domain.Station{
			MAC:        mac,
			State:      domain.StateUnassociated,
			FirstSeen:  now,
			LastChange: now,
		}}
		r.stations[mac] = e
	}
	return e
}

func (r *StationRegistry) snapshot(e *stationEntry) domain.Station {
	s := e.station
	s.SupportedModes = append([]string(nil), e.station.SupportedModes...)
	_, s.NonERP = r.nonERP[s.MAC]
	_, s.NonHT = r.nonHT[s.MAC]
	return s
}

func (r *StationRegistry) notify(typ domain.StationEventType, st domain.Station, tid uint8) {
	r.subject.Notify(context.Background(), domain.StationEvent{
		Type:    typ,
		Station: st,
		TID:     tid,
		Time:    r.now(),
	})
}

// AllocateAid returns the AID of mac, assigning the next free one on first
// use. A MAC keeps its AID for the lifetime of the registry. Zero means the
// AID space is exhausted.
func (r *StationRegistry) AllocateAid(mac domain.MAC) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(mac)
	if e.station.AID != 0 {
		return e.station.AID
	}
	if r.lastAID >= MaxAID {
		slog.Warn("AID space exhausted", "station", mac)
		return 0
	}
	r.lastAID++
	e.station.AID = r.lastAID
	r.byAID[r.lastAID] = mac
	return r.lastAID
}

// GetAid returns the AID of mac, or 0 when none was allocated.
func (r *StationRegistry) GetAid(mac domain.MAC) uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.stations[mac]; ok {
		return e.station.AID
	}
	return 0
}

// StationByAID returns the MAC holding an AID.
func (r *StationRegistry) StationByAID(aid uint16) (domain.MAC, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mac, ok := r.byAID[aid]
	return mac, ok
}

// SetCapabilities records what a station advertised on association.
func (r *StationRegistry) SetCapabilities(mac domain.MAC, caps domain.StationCapabilities, modes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(mac)
	e.station.Capabilities = caps
	e.station.SupportedModes = append([]string(nil), modes...)
}

// MarkNonErp adds mac to the non-ERP set.
func (r *StationRegistry) MarkNonErp(mac domain.MAC) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonERP[mac] = struct{}{}
}

// MarkNonHT adds mac to the non-HT set.
func (r *StationRegistry) MarkNonHT(mac domain.MAC) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonHT[mac] = struct{}{}
}

// SetClassification replaces the non-ERP and non-HT membership of mac. It is
// called on every accepted (re)association so membership always reflects the
// latest request.
func (r *StationRegistry) SetClassification(mac domain.MAC, nonERP, nonHT bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nonERP {
		r.nonERP[mac] = struct{}{}
	} else {
		delete(r.nonERP, mac)
	}
	if nonHT {
		r.nonHT[mac] = struct{}{}
	} else {
		delete(r.nonHT, mac)
	}
}

// HasNonErp reports whether any non-ERP station is associated.
func (r *StationRegistry) HasNonErp() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nonERP) > 0
}

// HasNonHT reports whether any non-HT station is associated.
func (r *StationRegistry) HasNonHT() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nonHT) > 0
}

// RecordAssociated adds mac to the associated-station list.
func (r *StationRegistry) RecordAssociated(mac domain.MAC) {
	r.mu.Lock()
	e := r.entry(mac)
	e.listed = true
	e.station.LastChange = r.now()
	r.mu.Unlock()
}

// RecordWaitAssocTxOk marks mac as waiting for its association response to
// be acknowledged.
func (r *StationRegistry) RecordWaitAssocTxOk(mac domain.MAC) {
	r.transition(mac, domain.StatePendingConfirmation, domain.EventAssocPending)
}

// RecordGotAssocTxOk confirms a pending association.
func (r *StationRegistry) RecordGotAssocTxOk(mac domain.MAC) {
	r.transition(mac, domain.StateAssociated, domain.EventAssociated)
}

// RecordGotAssocTxFailed rolls a pending association back. The station
// leaves the associated list but keeps its AID.
func (r *StationRegistry) RecordGotAssocTxFailed(mac domain.MAC) {
	r.leave(mac, domain.EventAssocTxFailed)
}

// RecordDisassociated removes mac from the associated list and from the
// non-ERP and non-HT sets. The AID is kept for re-association.
func (r *StationRegistry) RecordDisassociated(mac domain.MAC) {
	r.leave(mac, domain.EventDisassociated)
}

// RecordRejected publishes a rejected association attempt. No state changes.
func (r *StationRegistry) RecordRejected(mac domain.MAC) {
	r.mu.Lock()
	var st domain.Station
	if e, ok := r.stations[mac]; ok {
		st = r.snapshot(e)
	} else {
		st = domain.Station{MAC: mac, State: domain.StateUnassociated}
	}
	r.mu.Unlock()
	r.notify(domain.EventAssocRejected, st, 0)
}

// NotifyBlockAck publishes a Block-Ack agreement change for a station.
func (r *StationRegistry) NotifyBlockAck(mac domain.MAC, tid uint8, created bool) {
	r.mu.RLock()
	st := domain.Station{MAC: mac}
	if e, ok := r.stations[mac]; ok {
		st = r.snapshot(e)
	}
	r.mu.RUnlock()
	typ := domain.EventBlockAckDeleted
	if created {
		typ = domain.EventBlockAckCreated
	}
	r.notify(typ, st, tid)
}

func (r *StationRegistry) transition(mac domain.MAC, state domain.AssocState, typ domain.StationEventType) {
	r.mu.Lock()
	e := r.entry(mac)
	e.station.State = state
	e.station.LastChange = r.now()
	st := r.snapshot(e)
	r.mu.Unlock()
	r.notify(typ, st, 0)
}

func (r *StationRegistry) leave(mac domain.MAC, typ domain.StationEventType) {
	r.mu.Lock()
	e := r.entry(mac)
	e.station.State = domain.StateUnassociated
	e.station.LastChange = r.now()
	e.listed = false
	delete(r.nonERP, mac)
	delete(r.nonHT, mac)
	st := r.snapshot(e)
	r.mu.Unlock()
	r.notify(typ, st, 0)
}

// IsAssociated reports whether mac completed association.
func (r *StationRegistry) IsAssociated(mac domain.MAC) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stations[mac]
	return ok && e.station.State == domain.StateAssociated
}

// IsWaitAssocTxOk reports whether mac's association response is in flight.
func (r *StationRegistry) IsWaitAssocTxOk(mac domain.MAC) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stations[mac]
	return ok && e.station.State == domain.StatePendingConfirmation
}

// IsListed reports whether mac is on the associated-station list.
func (r *StationRegistry) IsListed(mac domain.MAC) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stations[mac]
	return ok && e.listed
}

// ShortSlotTimeEnabled reports whether the BSS may use the short slot time.
// Any non-ERP station forces false. Otherwise ERP and the AP's short slot
// capability are required, and every listed station must support it.
func (r *StationRegistry) ShortSlotTimeEnabled(erpSupported, shortSlotSupported bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.nonERP) > 0 {
		return false
	}
	if !erpSupported || !shortSlotSupported {
		return false
	}
	for _, e := range r.stations {
		if e.listed && !e.station.Capabilities.ShortSlotTime {
			return false
		}
	}
	return true
}

// ShortPreambleEnabled reports whether the BSS may use short preambles:
// ERP or PHY short preamble support is required and every non-ERP station
// must support short preambles.
func (r *StationRegistry) ShortPreambleEnabled(erpSupported, phyShortPreamble bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !erpSupported && !phyShortPreamble {
		return false
	}
	for mac := range r.nonERP {
		e, ok := r.stations[mac]
		if !ok || !e.station.Capabilities.ShortPreamble {
			return false
		}
	}
	return true
}

// Station returns a snapshot of one station.
func (r *StationRegistry) Station(mac domain.MAC) (domain.Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stations[mac]
	if !ok {
		return domain.Station{}, false
	}
	return r.snapshot(e), true
}

// Stations returns the listed stations sorted by AID.
func (r *StationRegistry) Stations() []domain.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Station, 0, len(r.stations))
	for _, e := range r.stations {
		if e.listed {
			out = append(out, r.snapshot(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AID < out[j].AID })
	return out
}

// Count returns the number of listed stations.
func (r *StationRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.stations {
		if e.listed {
			n++
		}
	}
	return n
}
