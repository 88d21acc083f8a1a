package dot11

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// CapabilityInfo is the capability information field of management frames.
type CapabilityInfo uint16

const (
	CapESS           CapabilityInfo = 1 << 0
	CapIBSS          CapabilityInfo = 1 << 1
	CapPrivacy       CapabilityInfo = 1 << 4
	CapShortPreamble CapabilityInfo = 1 << 5
	CapShortSlotTime CapabilityInfo = 1 << 10
)

// Has reports whether all bits of f are set.
func (c CapabilityInfo) Has(f CapabilityInfo) bool { return c&f == f }

// Set sets or clears f.
func (c *CapabilityInfo) Set(f CapabilityInfo, on bool) {
	if on {
		*c |= f
	} else {
		*c &^= f
	}
}

// AIDMask clears the two high bits the association response sets on the AID.
const AIDMask = 0x3fff

const (
	beaconFixedLen        = 12
	assocReqFixedLen      = 4
	reassocReqFixedLen    = 10
	assocRespFixedLen     = 6
	disassocFixedLen      = 2
	authenticationFixedLn = 6
)

func serialize(ls ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, ls...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SSIDOf returns the SSID carried in an element list.
func SSIDOf(l ElementList) (string, bool) {
	v, ok := l.Find(ElemSSID)
	return string(v), ok
}

// BeaconBody is the body of beacon and probe response frames.
type BeaconBody struct {
	Timestamp    uint64
	Interval     uint16 // time units
	Capabilities CapabilityInfo
	Elements     ElementList
}

// Encode serializes the body.
func (b BeaconBody) Encode() ([]byte, error) {
	fixed := &layers.Dot11MgmtBeacon{
		Timestamp: b.Timestamp,
		Interval:  b.Interval,
		Flags:     uint16(b.Capabilities),
	}
	return serialize(fixed, b.Elements)
}

// ParseBeaconBody decodes a beacon or probe response body.
func ParseBeaconBody(data []byte) (BeaconBody, error) {
	if len(data) < beaconFixedLen {
		return BeaconBody{}, fmt.Errorf("%w: beacon body of %d bytes", ErrMalformedFrame, len(data))
	}
	var fixed layers.Dot11MgmtBeacon
	if err := fixed.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return BeaconBody{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	elems, err := ParseElements(data[beaconFixedLen:])
	if err != nil {
		return BeaconBody{}, err
	}
	return BeaconBody{
		Timestamp:    fixed.Timestamp,
		Interval:     fixed.Interval,
		Capabilities: CapabilityInfo(fixed.Flags),
		Elements:     elems,
	}, nil
}

// ProbeRequest is the body of a probe request.
type ProbeRequest struct {
	Elements ElementList
}

// Encode serializes the body.
func (p ProbeRequest) Encode() ([]byte, error) {
	return serialize(p.Elements)
}

// ParseProbeRequest decodes a probe request body.
func ParseProbeRequest(data []byte) (ProbeRequest, error) {
	elems, err := ParseElements(data)
	return ProbeRequest{Elements: elems}, err
}

// AssocRequest is the body of an association or reassociation request.
// CurrentAP is only on the air for reassociation.
type AssocRequest struct {
	Reassoc        bool
	Capabilities   CapabilityInfo
	ListenInterval uint16
	CurrentAP      domain.MAC
	Elements       ElementList
}

// Encode serializes the body.
func (r AssocRequest) Encode() ([]byte, error) {
	n := assocReqFixedLen
	if r.Reassoc {
		n = reassocReqFixedLen
	}
	fixed := make([]byte, n)
	binary.LittleEndian.PutUint16(fixed[0:], uint16(r.Capabilities))
	binary.LittleEndian.PutUint16(fixed[2:], r.ListenInterval)
	if r.Reassoc {
		copy(fixed[4:], r.CurrentAP[:])
	}
	return serialize(gopacket.Payload(fixed), r.Elements)
}

// ParseAssocRequest decodes an association (reassoc false) or reassociation
// request body.
func ParseAssocRequest(data []byte, reassoc bool) (AssocRequest, error) {
	n := assocReqFixedLen
	if reassoc {
		n = reassocReqFixedLen
	}
	if len(data) < n {
		return AssocRequest{}, fmt.Errorf("%w: association request body of %d bytes", ErrMalformedFrame, len(data))
	}
	var fixed layers.Dot11MgmtAssociationReq
	if err := fixed.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return AssocRequest{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	r := AssocRequest{
		Reassoc:        reassoc,
		Capabilities:   CapabilityInfo(fixed.CapabilityInfo),
		ListenInterval: fixed.ListenInterval,
	}
	if reassoc {
		copy(r.CurrentAP[:], data[4:10])
	}
	elems, err := ParseElements(data[n:])
	if err != nil {
		return AssocRequest{}, err
	}
	r.Elements = elems
	return r, nil
}

// AssocResponse is the body of an association or reassociation response.
// AID holds the plain association identifier; the two high bits are set on
// encode and stripped on decode.
type AssocResponse struct {
	Capabilities CapabilityInfo
	Status       layers.Dot11Status
	AID          uint16
	Elements     ElementList
}

// Encode serializes the body.
func (r AssocResponse) Encode() ([]byte, error) {
	fixed := make([]byte, assocRespFixedLen)
	binary.LittleEndian.PutUint16(fixed[0:], uint16(r.Capabilities))
	binary.LittleEndian.PutUint16(fixed[2:], uint16(r.Status))
	aid := uint16(0)
	if r.AID != 0 {
		aid = r.AID&AIDMask | 0xc000
	}
	binary.LittleEndian.PutUint16(fixed[4:], aid)
	return serialize(gopacket.Payload(fixed), r.Elements)
}

// ParseAssocResponse decodes an association response body.
func ParseAssocResponse(data []byte) (AssocResponse, error) {
	if len(data) < assocRespFixedLen {
		return AssocResponse{}, fmt.Errorf("%w: association response body of %d bytes", ErrMalformedFrame, len(data))
	}
	var fixed layers.Dot11MgmtAssociationResp
	if err := fixed.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return AssocResponse{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	elems, err := ParseElements(data[assocRespFixedLen:])
	if err != nil {
		return AssocResponse{}, err
	}
	return AssocResponse{
		Capabilities: CapabilityInfo(fixed.CapabilityInfo),
		Status:       fixed.Status,
		AID:          fixed.AID & AIDMask,
		Elements:     elems,
	}, nil
}

// Disassociation is the body of a disassociation or deauthentication frame.
type Disassociation struct {
	Reason layers.Dot11Reason
}

// Encode serializes the body.
func (d Disassociation) Encode() ([]byte, error) {
	return serialize(&layers.Dot11MgmtDisassociation{Reason: d.Reason})
}

// ParseDisassociation decodes a disassociation body.
func ParseDisassociation(data []byte) (Disassociation, error) {
	if len(data) < disassocFixedLen {
		return Disassociation{}, fmt.Errorf("%w: disassociation body of %d bytes", ErrMalformedFrame, len(data))
	}
	return Disassociation{Reason: layers.Dot11Reason(binary.LittleEndian.Uint16(data))}, nil
}

// Authentication is the body of an authentication frame.
type Authentication struct {
	Algorithm layers.Dot11Algorithm
	Sequence  uint16
	Status    layers.Dot11Status
}

// Encode serializes the body.
func (a Authentication) Encode() ([]byte, error) {
	return serialize(&layers.Dot11MgmtAuthentication{
		Algorithm: a.Algorithm,
		Sequence:  a.Sequence,
		Status:    a.Status,
	})
}

// ParseAuthentication decodes an authentication body.
func ParseAuthentication(data []byte) (Authentication, error) {
	if len(data) < authenticationFixedLn {
		return Authentication{}, fmt.Errorf("%w: authentication body of %d bytes", ErrMalformedFrame, len(data))
	}
	return Authentication{
		Algorithm: layers.Dot11Algorithm(binary.LittleEndian.Uint16(data[0:])),
		Sequence:  binary.LittleEndian.Uint16(data[2:]),
		Status:    layers.Dot11Status(binary.LittleEndian.Uint16(data[4:])),
	}, nil
}
