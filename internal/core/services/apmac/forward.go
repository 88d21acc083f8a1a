package apmac

import (
	"log/slog"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

// Enqueue sends an MSDU from the upper layer on behalf of from. Only
// broadcast or associated destinations are accepted.
func (a *ApMac) Enqueue(packet []byte, to, from domain.MAC) error {
	return a.EnqueueTID(packet, to, from, 0)
}

// EnqueueTID is Enqueue with an explicit user priority. TIDs above 7 are
// treated as 0.
func (a *ApMac) EnqueueTID(packet []byte, to, from domain.MAC, tid uint8) error {
	if !to.IsBroadcast() && !a.deps.Registry.IsAssociated(to) {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropNotAssociated).Inc()
		return ErrNotAssociated
	}
	if tid > 7 {
		tid = 0
	}
	return a.forwardDown(packet, from, to, tid)
}

// forwardDown queues a data frame from the DS. QoS APs route it by TID,
// others use the management queue.
func (a *ApMac) forwardDown(packet []byte, from, to domain.MAC, tid uint8) error {
	hdr := dot11.MacHeader{
		Kind:  dot11.KindData,
		Flags: layers.Dot11FlagsFromDS,
		Addr1: to,
		Addr2: a.cfg.Address,
		Addr3: from,
		Seq:   a.nextSeq(),
	}
	f := dot11.Frame{Header: hdr, Body: append([]byte(nil), packet...)}
	if !a.cfg.QoS {
		a.deps.Router.Management().Enqueue(f)
		return nil
	}
	f.Header.Kind = dot11.KindQoSData
	f.Header.QoS = &dot11.QoSControl{TID: tid, AckPolicy: dot11.AckNormal}

	aid := a.deps.Registry.GetAid(to)
	q, err := a.deps.Router.Route(aid, tid)
	if err != nil {
		slog.Error("No queue exists for the station", "station", to, "aid", aid, "error", err)
		telemetry.FramesDropped.WithLabelValues(telemetry.DropRoutingMiss).Inc()
		return err
	}
	q.Enqueue(f)
	return nil
}

func (a *ApMac) deliver(packet []byte, from, to domain.MAC) {
	a.deps.Upper.Deliver(append([]byte(nil), packet...), from, to)
}

// handleData relays frames a station sends to the DS. Frames for the AP
// go up, frames for another station or a group go back out and up.
func (a *ApMac) handleData(hdr dot11.MacHeader, body []byte) {
	from := hdr.Addr2
	fromDS, toDS := hdr.Flags.FromDS(), hdr.Flags.ToDS()
	switch {
	case toDS && fromDS:
		telemetry.FramesDropped.WithLabelValues(telemetry.DropAPToAP).Inc()
		return
	case !toDS || hdr.Addr1 != a.cfg.Address:
		telemetry.FramesDropped.WithLabelValues(telemetry.DropNotForUs).Inc()
		return
	case !a.deps.Registry.IsAssociated(from):
		telemetry.FramesDropped.WithLabelValues(telemetry.DropNotAssociated).Inc()
		return
	}
	if hdr.Kind == dot11.KindNull || hdr.Kind == dot11.KindQoSNull {
		return
	}

	bssid := hdr.Addr1
	dest := hdr.Addr3
	switch {
	case dest == a.cfg.Address:
		if hdr.QoS != nil && hdr.QoS.AMSDUPresent {
			a.deaggregateAndForward(hdr, body)
			return
		}
		a.deliver(body, from, bssid)
	case dest.IsGroup() || a.deps.Registry.IsAssociated(dest):
		slog.Debug("Forwarding frame", "from", from, "to", dest)
		// Errors are counted inside forwardDown; the local copy is delivered
		// regardless.
		_ = a.forwardDown(body, from, dest, hdr.TID())
		a.deliver(body, from, dest)
	default:
		a.deliver(body, from, dest)
	}
}

// deaggregateAndForward routes each A-MSDU subframe on its own. Subframes
// for other stations are sent out with the outer frame's TID.
func (a *ApMac) deaggregateAndForward(hdr dot11.MacHeader, body []byte) {
	subs, err := dot11.DeaggregateMsdus(body)
	if err != nil {
		slog.Debug("Malformed A-MSDU", "station", hdr.Addr2, "error", err)
		telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		return
	}
	tid := hdr.TID()
	for _, s := range subs {
		if s.DA == a.cfg.Address {
			a.deliver(s.Payload, s.SA, s.DA)
			continue
		}
		slog.Debug("Forwarding A-MSDU subframe", "from", s.SA, "to", s.DA, "tid", tid)
		_ = a.forwardDown(s.Payload, s.SA, s.DA, tid)
	}
}
