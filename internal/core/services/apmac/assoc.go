package apmac

import (
	"context"
	"log/slog"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// compatibility is the outcome of matching a request against the basic
// rate and MCS sets.
type compatibility struct {
	problem             bool
	dsss, erp, ofdm, ht bool
	vht                 bool
}

// checkCompatibility walks the basic rate set. A missing basic rate only
// fails the request once no modulation family has been matched, so a
// station matching any one family is accepted.
func (a *ApMac) checkCompatibility(rates dot11.RateSet, elems dot11.ElementList) compatibility {
	var c compatibility
	for _, mode := range a.basicModes {
		supported := rates.IsSupportedRate(mode.DataRate)
		switch mode.Class {
		case domain.ModClassDSSS, domain.ModClassHRDSSS:
			c.dsss = supported
		case domain.ModClassERPOFDM:
			c.erp = supported
		case domain.ModClassOFDM:
			c.ofdm = supported
		}
		if !supported && !c.dsss && !c.erp && !c.ofdm {
			c.problem = true
			break
		}
	}
	if a.ht {
		if caps, ok := htCapabilitiesOf(elems); ok && caps.Info != 0 {
			c.ht = true
			for _, mcs := range a.basicMcs {
				if !caps.IsSupportedMCS(mcs.MCS) {
					c.problem = true
					break
				}
			}
		}
	}
	if a.vht {
		if caps, ok := vhtCapabilitiesOf(elems); ok && caps.Info != 0 {
			c.vht = true
			for _, mcs := range a.basicMcs {
				if !caps.IsSupportedTxMCS(mcs.MCS) {
					c.problem = true
					break
				}
			}
		}
	}
	return c
}

func htCapabilitiesOf(l dot11.ElementList) (dot11.HTCapabilities, bool) {
	info, ok := l.Find(dot11.ElemHTCapabilities)
	if !ok {
		return dot11.HTCapabilities{}, false
	}
	c, err := dot11.ParseHTCapabilities(info)
	return c, err == nil
}

func vhtCapabilitiesOf(l dot11.ElementList) (dot11.VHTCapabilities, bool) {
	info, ok := l.Find(dot11.ElemVHTCapabilities)
	if !ok {
		return dot11.VHTCapabilities{}, false
	}
	c, err := dot11.ParseVHTCapabilities(info)
	return c, err == nil
}

func (a *ApMac) handleAssocRequest(ctx context.Context, hdr dot11.MacHeader, body []byte, reassoc bool) {
	from := hdr.Addr2
	ctx, span := telemetry.Tracer().Start(ctx, "apmac.Association")
	defer span.End()
	span.SetAttributes(
		attribute.String("station", from.String()),
		attribute.Bool("reassociation", reassoc),
	)

	reg := a.deps.Registry
	if reg.IsWaitAssocTxOk(from) {
		slog.Debug("Association response already in flight", "station", from)
		telemetry.FramesDropped.WithLabelValues(telemetry.DropAssocPending).Inc()
		span.SetAttributes(attribute.String("result", "ignored"))
		return
	}

	req, err := dot11.ParseAssocRequest(body, reassoc)
	if err != nil {
		slog.Debug("Malformed association request", "station", from, "error", err)
		telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed request")
		return
	}
	rates, err := dot11.ParseRateSet(req.Elements)
	if err != nil {
		slog.Debug("Malformed supported rates", "station", from, "error", err)
		telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed rates")
		return
	}

	shortPreamble := req.Capabilities.Has(dot11.CapShortPreamble)
	a.deps.Stations.SetShortPreamble(from, shortPreamble)
	c := a.checkCompatibility(rates, req.Elements)
	shortSlot := req.Capabilities.Has(dot11.CapShortSlotTime) && c.erp
	a.deps.Stations.SetShortSlotTime(from, shortSlot)

	if c.problem {
		slog.Info("Association rejected", "station", from, "rates", rates.String())
		a.sendAssocResponse(from, layers.Dot11StatusFailure, 0, reassoc)
		reg.RecordRejected(from)
		telemetry.Associations.WithLabelValues("rejected").Inc()
		span.SetAttributes(attribute.String("result", "rejected"))
		return
	}

	aid := reg.AllocateAid(from)
	if aid == 0 {
		a.sendAssocResponse(from, layers.Dot11StatusAPUnableToHandle, 0, reassoc)
		reg.RecordRejected(from)
		telemetry.Associations.WithLabelValues("rejected").Inc()
		span.SetAttributes(attribute.String("result", "ap_full"))
		return
	}

	names := a.recordSupportedModes(from, rates, req.Elements)
	reg.SetCapabilities(from, domain.StationCapabilities{
		ShortPreamble: shortPreamble,
		ShortSlotTime: shortSlot,
		ERP:           c.erp,
		DSSS:          c.dsss,
		OFDM:          c.ofdm,
		HT:            c.ht,
		VHT:           c.vht,
	}, names)
	reg.RecordWaitAssocTxOk(from)
	reg.SetClassification(from, !c.erp && c.dsss, !c.ht)

	if a.deps.Router.Provision(aid) {
		slog.Debug("Station queues created", "station", from, "aid", aid)
	}
	reg.RecordAssociated(from)
	a.sendAssocResponse(from, layers.Dot11StatusSuccess, aid, reassoc)
	span.SetAttributes(
		attribute.String("result", "pending"),
		attribute.Int("aid", int(aid)),
	)
}

// recordSupportedModes hands every PHY mode and MCS the station supports to
// the station manager and returns their names.
func (a *ApMac) recordSupportedModes(sta domain.MAC, rates dot11.RateSet, elems dot11.ElementList) []string {
	var names []string
	add := func(m domain.WifiMode) {
		a.deps.Stations.AddSupportedMode(sta, m)
		names = append(names, m.Name)
	}
	for _, m := range a.deps.Rates.Modes() {
		if rates.IsSupportedRate(m.DataRate) {
			add(m)
		}
	}
	if a.ht {
		if caps, ok := htCapabilitiesOf(elems); ok {
			for _, m := range a.deps.Rates.McsList(domain.ModClassHT) {
				if caps.IsSupportedMCS(m.MCS) {
					add(m)
				}
			}
		}
	}
	if a.vht {
		if caps, ok := vhtCapabilitiesOf(elems); ok {
			for _, m := range a.deps.Rates.McsList(domain.ModClassVHT) {
				if caps.IsSupportedTxMCS(m.MCS) {
					add(m)
				}
			}
		}
	}
	return names
}

func (a *ApMac) sendAssocResponse(dest domain.MAC, status layers.Dot11Status, aid uint16, reassoc bool) {
	kind := dot11.KindAssocResponse
	if reassoc {
		kind = dot11.KindReassocResponse
	}
	resp := dot11.AssocResponse{
		Capabilities: a.capabilities(),
		Status:       status,
		AID:          aid,
	}
	rates := a.supportedRates()
	rates.AppendTo(&resp.Elements)
	a.operationalElements(&resp.Elements, false)

	body, err := resp.Encode()
	if err != nil {
		slog.Error("Failed to encode association response", "station", dest, "error", err)
		return
	}
	a.deps.Router.Management().Enqueue(dot11.Frame{
		Header: a.mgmtHeader(kind, dest),
		Body:   body,
	})
}

// handleDisassociation returns the station to Unassociated. Its AID and
// per-AID queues are kept for re-association; its Block-Ack agreements are
// torn down.
func (a *ApMac) handleDisassociation(hdr dot11.MacHeader, body []byte) {
	from := hdr.Addr2
	if _, err := dot11.ParseDisassociation(body); err != nil {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		return
	}
	reg := a.deps.Registry
	wasListed := reg.IsListed(from)
	reg.RecordDisassociated(from)
	a.deps.Stations.Reset(from)
	a.teardownAgreements(from)
	if wasListed {
		slog.Info("Station disassociated", "station", from, "aid", reg.GetAid(from))
	}
	telemetry.StationsAssociated.Set(float64(reg.Count()))
}

// handleAuthentication answers open system authentication. Nothing else is
// supported.
func (a *ApMac) handleAuthentication(hdr dot11.MacHeader, body []byte) {
	req, err := dot11.ParseAuthentication(body)
	if err != nil {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		return
	}
	if req.Sequence != 1 {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropUnhandled).Inc()
		return
	}
	resp := dot11.Authentication{
		Algorithm: req.Algorithm,
		Sequence:  2,
		Status:    layers.Dot11StatusSuccess,
	}
	if req.Algorithm != layers.Dot11AlgorithmOpen {
		resp.Status = layers.Dot11StatusAlgorithmUnsupported
	}
	out, err := resp.Encode()
	if err != nil {
		slog.Error("Failed to encode authentication", "station", hdr.Addr2, "error", err)
		return
	}
	a.deps.Router.Management().Enqueue(dot11.Frame{
		Header: a.mgmtHeader(dot11.KindAuthentication, hdr.Addr2),
		Body:   out,
	})
}
