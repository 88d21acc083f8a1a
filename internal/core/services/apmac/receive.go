package apmac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

// Receive handles one inbound frame, FCS removed. Malformed frames are
// dropped and counted. A frame that breaks the addressing contract yields
// an error wrapping dot11.ErrProtocolViolation; callers must stop.
func (a *ApMac) Receive(ctx context.Context, data []byte) error {
	f, err := dot11.ParseFrame(data)
	if err != nil {
		if errors.Is(err, dot11.ErrProtocolViolation) {
			return fmt.Errorf("receive: %w", err)
		}
		slog.Debug("Dropping malformed frame", "error", err, "len", len(data))
		telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		return nil
	}
	telemetry.FramesReceived.WithLabelValues(dot11.KindName(f.Header.Kind)).Inc()

	switch f.Header.Kind.MainType() {
	case layers.Dot11TypeData:
		a.handleData(f.Header, f.Body)
	case layers.Dot11TypeMgmt:
		a.handleMgmt(ctx, f.Header, f.Body)
	default:
		// Control responses are consumed below the MAC.
		telemetry.FramesDropped.WithLabelValues(telemetry.DropUnhandled).Inc()
	}
	return nil
}

func (a *ApMac) handleMgmt(ctx context.Context, hdr dot11.MacHeader, body []byte) {
	if hdr.Kind == dot11.KindProbeRequest {
		a.handleProbeRequest(hdr, body)
		return
	}
	if hdr.Addr1 != a.cfg.Address {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropNotForUs).Inc()
		return
	}
	switch hdr.Kind {
	case dot11.KindAssocRequest:
		a.handleAssocRequest(ctx, hdr, body, false)
	case dot11.KindReassocRequest:
		a.handleAssocRequest(ctx, hdr, body, true)
	case dot11.KindDisassociation, dot11.KindDeauthentication:
		a.handleDisassociation(hdr, body)
	case dot11.KindAuthentication:
		a.handleAuthentication(hdr, body)
	case dot11.KindAction:
		if !a.cfg.QoS {
			telemetry.FramesDropped.WithLabelValues(telemetry.DropUnhandled).Inc()
			return
		}
		a.handleAction(hdr, body)
	default:
		telemetry.FramesDropped.WithLabelValues(telemetry.DropUnhandled).Inc()
	}
}
