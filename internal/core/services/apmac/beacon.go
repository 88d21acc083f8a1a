package apmac

import (
	"log/slog"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

// Slot times selected on every beacon.
const (
	ShortSlot = 9 * time.Microsecond
	LongSlot  = 20 * time.Microsecond
)

func (a *ApMac) beaconBody() dot11.BeaconBody {
	b := dot11.BeaconBody{
		Timestamp:    uint64(a.deps.Scheduler.Now().Microseconds()),
		Interval:     uint16(a.cfg.BeaconInterval / TimeUnit),
		Capabilities: a.capabilities(),
	}
	b.Elements.AddSSID(a.cfg.SSID)
	rates := a.supportedRates()
	rates.AppendTo(&b.Elements)
	a.operationalElements(&b.Elements, true)
	return b
}

// sendOneBeacon queues a beacon, schedules the next one and applies the
// slot time the current station set allows. A station that cannot use the
// short slot therefore takes effect from the first beacon after it joined.
func (a *ApMac) sendOneBeacon() {
	a.mu.Lock()
	a.beaconEvent = 0
	if !a.beaconEnabled || a.disposed {
		a.mu.Unlock()
		return
	}
	interval := a.cfg.BeaconInterval
	a.mu.Unlock()

	body, err := a.beaconBody().Encode()
	if err != nil {
		slog.Error("Failed to encode beacon", "error", err)
	} else {
		a.deps.Router.Beacon().Enqueue(dot11.Frame{
			Header: a.mgmtHeader(dot11.KindBeacon, domain.BroadcastMAC),
			Body:   body,
		})
		telemetry.BeaconsSent.Inc()
	}

	a.mu.Lock()
	if a.beaconEnabled && !a.disposed {
		a.beaconEvent = a.deps.Scheduler.Schedule(interval, a.sendOneBeacon)
	}
	a.mu.Unlock()

	if a.erp {
		if a.shortSlotTimeEnabled() {
			a.deps.Radio.SetSlot(ShortSlot)
		} else {
			a.deps.Radio.SetSlot(LongSlot)
		}
	}
}

// wildcardOrOwnSSID reports whether a probe request asks for this BSS.
func (a *ApMac) wildcardOrOwnSSID(l dot11.ElementList) bool {
	ssid, ok := dot11.SSIDOf(l)
	return !ok || ssid == "" || ssid == a.cfg.SSID
}

func (a *ApMac) handleProbeRequest(hdr dot11.MacHeader, body []byte) {
	if !hdr.Addr1.IsBroadcast() && hdr.Addr1 != a.cfg.Address {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropNotForUs).Inc()
		return
	}
	req, err := dot11.ParseProbeRequest(body)
	if err != nil {
		slog.Debug("Malformed probe request", "station", hdr.Addr2, "error", err)
		telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		return
	}
	if !a.wildcardOrOwnSSID(req.Elements) {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropNotForUs).Inc()
		return
	}
	a.sendProbeResponse(hdr.Addr2)
}

func (a *ApMac) sendProbeResponse(to domain.MAC) {
	body, err := a.beaconBody().Encode()
	if err != nil {
		slog.Error("Failed to encode probe response", "station", to, "error", err)
		return
	}
	a.deps.Router.Management().Enqueue(dot11.Frame{
		Header: a.mgmtHeader(dot11.KindProbeResponse, to),
		Body:   body,
	})
}
