package apmac

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

// RecipientBufferSize is the reorder buffer size offered in every ADDBA
// response. (RecipientBufferSize+1)%16 == 0 so whole fragmented MSDUs fit.
const RecipientBufferSize = 1023

// controlQueue picks the queue for Block-Ack signalling with peer.
func (a *ApMac) controlQueue(peer domain.MAC, tid uint8) ports.TxQueue {
	return a.deps.Router.Select(a.deps.Registry.GetAid(peer), tid)
}

func (a *ApMac) actionFrame(to domain.MAC, body []byte) dot11.Frame {
	return dot11.Frame{Header: a.mgmtHeader(dot11.KindAction, to), Body: body}
}

func (a *ApMac) handleAction(hdr dot11.MacHeader, body []byte) {
	from := hdr.Addr2
	category, action, err := dot11.ActionHeader(body)
	if err != nil {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
		return
	}
	if category != dot11.CategoryBlockAck {
		telemetry.FramesDropped.WithLabelValues(telemetry.DropUnhandled).Inc()
		return
	}

	switch dot11.BlockAckAction(action) {
	case dot11.ActionAddBARequest:
		req, err := dot11.ParseAddBARequest(body)
		if err != nil {
			telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
			return
		}
		a.sendAddBaResponse(req, from)
	case dot11.ActionAddBAResponse:
		resp, err := dot11.ParseAddBAResponse(body)
		if err != nil {
			telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
			return
		}
		a.controlQueue(from, resp.Params.TID).GotAddBaResponse(from, resp)
		if resp.Status == layers.Dot11StatusSuccess {
			slog.Debug("Outgoing Block-Ack agreement established", "station", from, "tid", resp.Params.TID)
		}
	case dot11.ActionDelBA:
		d, err := dot11.ParseDelBA(body)
		if err != nil {
			telemetry.FramesDropped.WithLabelValues(telemetry.DropMalformed).Inc()
			return
		}
		if d.Initiator {
			a.destroyIngoing(from, d.TID)
			return
		}
		a.controlQueue(from, d.TID).GotDelBa(from, d.TID)
	default:
		telemetry.FramesDropped.WithLabelValues(telemetry.DropUnhandled).Inc()
	}
}

// sendAddBaResponse accepts every request. The reorder buffer is set up
// before the response leaves, and the response jumps the queue.
func (a *ApMac) sendAddBaResponse(req dot11.AddBARequest, originator domain.MAC) {
	resp := dot11.AddBAResponse{
		DialogToken: req.DialogToken,
		Status:      layers.Dot11StatusSuccess,
		Params: dot11.BlockAckParams{
			AmsduSupported: req.Params.AmsduSupported,
			Immediate:      req.Params.Immediate,
			TID:            req.Params.TID,
			BufferSize:     RecipientBufferSize,
		},
		Timeout: req.Timeout,
	}

	tid := req.Params.TID
	_, existed := a.deps.Reorder.Agreement(originator, tid)
	a.deps.Reorder.CreateAgreement(domain.BlockAckAgreement{
		Originator:       originator,
		Recipient:        a.cfg.Address,
		TID:              tid,
		BufferSize:       RecipientBufferSize,
		StartingSequence: req.StartingSequence,
		Immediate:        req.Params.Immediate,
		AmsduSupported:   req.Params.AmsduSupported,
		Timeout:          time.Duration(req.Timeout) * TimeUnit,
	})
	if !existed {
		telemetry.BlockAckAgreements.Inc()
	}
	a.deps.Registry.NotifyBlockAck(originator, tid, true)
	slog.Debug("Block-Ack agreement created", "station", originator, "tid", tid, "ssn", req.StartingSequence)

	a.controlQueue(originator, tid).PushFront(a.actionFrame(originator, resp.Encode()))
}

func (a *ApMac) destroyIngoing(originator domain.MAC, tid uint8) {
	if _, ok := a.deps.Reorder.Agreement(originator, tid); !ok {
		return
	}
	a.deps.Reorder.DestroyAgreement(originator, tid)
	telemetry.BlockAckAgreements.Dec()
	a.deps.Registry.NotifyBlockAck(originator, tid, false)
	slog.Debug("Block-Ack agreement destroyed", "station", originator, "tid", tid)
}

// teardownAgreements drops every agreement with peer in both directions.
func (a *ApMac) teardownAgreements(peer domain.MAC) {
	for tid := uint8(0); tid < 8; tid++ {
		a.destroyIngoing(peer, tid)
		a.controlQueue(peer, tid).GotDelBa(peer, tid)
	}
}

// RequestBlockAck asks an associated station for an agreement on tid with
// the AP as originator. The agreement is recorded by the queue once the
// station's ADDBA response arrives.
func (a *ApMac) RequestBlockAck(peer domain.MAC, tid uint8, bufferSize uint16, timeout time.Duration) error {
	if !a.cfg.QoS {
		return fmt.Errorf("block ack needs QoS: %w", ErrInvalidConfig)
	}
	if !a.deps.Registry.IsAssociated(peer) {
		return ErrNotAssociated
	}
	a.dialogToken++
	req := dot11.AddBARequest{
		DialogToken: a.dialogToken,
		Params: dot11.BlockAckParams{
			Immediate:  true,
			TID:        tid & 0x0f,
			BufferSize: bufferSize,
		},
		Timeout:          uint16(timeout / TimeUnit),
		StartingSequence: a.seq,
	}
	a.controlQueue(peer, tid).PushFront(a.actionFrame(peer, req.Encode()))
	return nil
}

// SendDelBa tears down an agreement the AP originated and tells the peer.
func (a *ApMac) SendDelBa(peer domain.MAC, tid uint8) {
	q := a.controlQueue(peer, tid)
	q.GotDelBa(peer, tid)
	d := dot11.DelBA{Initiator: true, TID: tid, Reason: layers.Dot11ReasonUnspecified}
	q.Enqueue(a.actionFrame(peer, d.Encode()))
}
