package dot11

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// LayerTypeMacHeader lets MacHeader take part in gopacket serialization and
// decoding chains.
var LayerTypeMacHeader = gopacket.RegisterLayerType(1802, gopacket.LayerTypeMetadata{
	Name:    "Dot11MacHeader",
	Decoder: gopacket.DecodeFunc(decodeHeaderLayer),
})

// SeqControl is the sequence control field.
type SeqControl struct {
	Number   uint16 // 12 bits
	Fragment uint8  // 4 bits
}

// Pack returns (seq << 4) | frag.
func (s SeqControl) Pack() uint16 {
	return (s.Number&0x0fff)<<4 | uint16(s.Fragment&0x0f)
}

// UnpackSeqControl parses a sequence control field.
func UnpackSeqControl(v uint16) SeqControl {
	return SeqControl{Number: v >> 4, Fragment: uint8(v & 0x0f)}
}

// MacHeader is an 802.11 MAC header. Which fields go on the air is decided by
// (Kind, ToDS, FromDS, Order):
//
//   - management: Addr1, Addr2, Addr3, Seq
//   - RTS, Trigger, BlockAckReq, BlockAck: Addr1, Addr2
//   - CTS, ACK: Addr1
//   - control wrapper: Addr1, CarriedFrameControl, HTControl
//   - data: Addr1, Addr2, Addr3, Seq, Addr4 (ToDS and FromDS),
//     QoS (QoS subtypes), HTControl (QoS subtypes with Order)
//
// QoS and HTControl are nil exactly when they are absent on the air.
type MacHeader struct {
	Kind       layers.Dot11Type
	Flags      layers.Dot11Flags
	DurationID uint16
	Addr1      domain.MAC
	Addr2      domain.MAC
	Addr3      domain.MAC
	Addr4      domain.MAC
	Seq        SeqControl
	QoS        *QoSControl
	HTControl  *HTControl

	CarriedFrameControl uint16
}

// LayerType implements gopacket.SerializableLayer.
func (h MacHeader) LayerType() gopacket.LayerType { return LayerTypeMacHeader }

// IsFourAddress reports whether the header is a four-address data header.
func (h MacHeader) IsFourAddress() bool {
	return h.Kind.MainType() == layers.Dot11TypeData && h.Flags.ToDS() && h.Flags.FromDS()
}

// Size returns the serialized size of the header in bytes, or 0 for an
// unknown kind.
func (h MacHeader) Size() int {
	switch h.Kind.MainType() {
	case layers.Dot11TypeMgmt:
		return 24
	case layers.Dot11TypeCtrl:
		switch h.Kind {
		case KindRTS, KindTrigger, KindBlockAckRequest, KindBlockAck:
			return 16
		case KindCTS, KindAck:
			return 10
		case KindCtrlWrapper:
			return 2 + 2 + 6 + 2 + 4
		}
	case layers.Dot11TypeData:
		n := 24
		if h.IsFourAddress() {
			n += 6
		}
		if IsQoSKind(h.Kind) {
			n += 2
			if h.Flags.Order() {
				n += 4
			}
		}
		return n
	}
	return 0
}

// Validate checks that the optional trailers agree with the header kind and
// flags.
func (h MacHeader) Validate() error {
	if !KnownKind(h.Kind) {
		return fmt.Errorf("%w: unknown kind %s", ErrMalformedFrame, KindName(h.Kind))
	}
	switch {
	case h.Kind.MainType() == layers.Dot11TypeData:
		qos := IsQoSKind(h.Kind)
		if qos != (h.QoS != nil) {
			return fmt.Errorf("%w: %s with QoS control present=%t", ErrProtocolViolation, KindName(h.Kind), h.QoS != nil)
		}
		wantHT := qos && h.Flags.Order()
		if wantHT != (h.HTControl != nil) {
			return fmt.Errorf("%w: %s with HT control present=%t", ErrProtocolViolation, KindName(h.Kind), h.HTControl != nil)
		}
	case h.Kind == KindCtrlWrapper:
		if h.HTControl == nil || h.QoS != nil {
			return fmt.Errorf("%w: control wrapper needs HT control only", ErrProtocolViolation)
		}
	default:
		if h.QoS != nil || h.HTControl != nil {
			return fmt.Errorf("%w: %s cannot carry QoS or HT control", ErrProtocolViolation, KindName(h.Kind))
		}
	}
	return nil
}

func (h MacHeader) frameControl() uint16 {
	return uint16(uint8(h.Kind)<<2) | uint16(h.Flags)<<8
}

// SerializeTo implements gopacket.SerializableLayer.
func (h MacHeader) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if err := h.Validate(); err != nil {
		return err
	}
	buf, err := b.PrependBytes(h.Size())
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint16(buf[0:2], h.frameControl())
	binary.LittleEndian.PutUint16(buf[2:4], h.DurationID)
	copy(buf[4:10], h.Addr1[:])

	switch h.Kind.MainType() {
	case layers.Dot11TypeMgmt:
		copy(buf[10:16], h.Addr2[:])
		copy(buf[16:22], h.Addr3[:])
		binary.LittleEndian.PutUint16(buf[22:24], h.Seq.Pack())
	case layers.Dot11TypeCtrl:
		switch h.Kind {
		case KindCTS, KindAck:
		case KindCtrlWrapper:
			binary.LittleEndian.PutUint16(buf[10:12], h.CarriedFrameControl)
			binary.LittleEndian.PutUint32(buf[12:16], h.HTControl.Pack())
		default:
			copy(buf[10:16], h.Addr2[:])
		}
	case layers.Dot11TypeData:
		copy(buf[10:16], h.Addr2[:])
		copy(buf[16:22], h.Addr3[:])
		binary.LittleEndian.PutUint16(buf[22:24], h.Seq.Pack())
		off := 24
		if h.IsFourAddress() {
			copy(buf[24:30], h.Addr4[:])
			off = 30
		}
		if h.QoS != nil {
			binary.LittleEndian.PutUint16(buf[off:off+2], h.QoS.Pack())
			off += 2
			if h.HTControl != nil {
				binary.LittleEndian.PutUint32(buf[off:off+4], h.HTControl.Pack())
			}
		}
	}
	return nil
}

// DecodeFromBytes parses a header from the start of data. Trailing bytes are
// ignored.
func (h *MacHeader) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < 10 {
		df.SetTruncated()
		return fmt.Errorf("%w: %d bytes, frame control needs 10", ErrMalformedFrame, len(data))
	}
	fc := binary.LittleEndian.Uint16(data[0:2])
	if fc&0x03 != 0 {
		return fmt.Errorf("%w: protocol version %d", ErrMalformedFrame, fc&0x03)
	}
	*h = MacHeader{
		Kind:       layers.Dot11Type(uint8(fc) >> 2),
		Flags:      layers.Dot11Flags(fc >> 8),
		DurationID: binary.LittleEndian.Uint16(data[2:4]),
	}
	if !KnownKind(h.Kind) {
		return fmt.Errorf("%w: unknown subtype %d for type %d", ErrMalformedFrame, Subtype(h.Kind), h.Kind.MainType())
	}

	size := h.Size()
	if len(data) < size {
		df.SetTruncated()
		if h.IsFourAddress() && len(data) >= 24 && len(data) < 30 {
			return fmt.Errorf("%w: ToDS and FromDS set but no fourth address", ErrProtocolViolation)
		}
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrMalformedFrame, KindName(h.Kind), size, len(data))
	}
	copy(h.Addr1[:], data[4:10])

	switch h.Kind.MainType() {
	case layers.Dot11TypeMgmt:
		copy(h.Addr2[:], data[10:16])
		copy(h.Addr3[:], data[16:22])
		h.Seq = UnpackSeqControl(binary.LittleEndian.Uint16(data[22:24]))
	case layers.Dot11TypeCtrl:
		switch h.Kind {
		case KindCTS, KindAck:
		case KindCtrlWrapper:
			h.CarriedFrameControl = binary.LittleEndian.Uint16(data[10:12])
			ht := UnpackHTControl(binary.LittleEndian.Uint32(data[12:16]))
			h.HTControl = &ht
		default:
			copy(h.Addr2[:], data[10:16])
		}
	case layers.Dot11TypeData:
		copy(h.Addr2[:], data[10:16])
		copy(h.Addr3[:], data[16:22])
		h.Seq = UnpackSeqControl(binary.LittleEndian.Uint16(data[22:24]))
		off := 24
		if h.IsFourAddress() {
			copy(h.Addr4[:], data[24:30])
			off = 30
		}
		if IsQoSKind(h.Kind) {
			qos := UnpackQoSControl(binary.LittleEndian.Uint16(data[off : off+2]))
			h.QoS = &qos
			off += 2
			if h.Flags.Order() {
				ht := UnpackHTControl(binary.LittleEndian.Uint32(data[off : off+4]))
				h.HTControl = &ht
			}
		}
	}
	return nil
}

// Encode serializes a header on its own.
func Encode(h MacHeader) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := h.SerializeTo(buf, gopacket.SerializeOptions{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a header and returns it with the number of bytes consumed.
func Decode(data []byte) (MacHeader, int, error) {
	var h MacHeader
	if err := h.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return MacHeader{}, 0, err
	}
	return h, h.Size(), nil
}

// DA returns the final destination of the frame.
func (h MacHeader) DA() domain.MAC {
	if h.Flags.ToDS() {
		return h.Addr3
	}
	return h.Addr1
}

// SA returns the original source of the frame.
func (h MacHeader) SA() domain.MAC {
	switch {
	case h.Flags.ToDS() && h.Flags.FromDS():
		return h.Addr4
	case h.Flags.FromDS():
		return h.Addr3
	default:
		return h.Addr2
	}
}

// BSSID returns the BSS identifier. Four-address frames have none and
// return the zero address.
func (h MacHeader) BSSID() domain.MAC {
	switch {
	case h.Flags.ToDS() && h.Flags.FromDS():
		return domain.MAC{}
	case h.Flags.ToDS():
		return h.Addr1
	case h.Flags.FromDS():
		return h.Addr2
	default:
		return h.Addr3
	}
}

// RA returns the immediate receiver.
func (h MacHeader) RA() domain.MAC { return h.Addr1 }

// TA returns the immediate transmitter.
func (h MacHeader) TA() domain.MAC { return h.Addr2 }

// IsQoSData reports whether the header is a QoS data header.
func (h MacHeader) IsQoSData() bool { return IsQoSKind(h.Kind) }

// TID returns the QoS TID, or 0 for non-QoS headers.
func (h MacHeader) TID() uint8 {
	if h.QoS == nil {
		return 0
	}
	return h.QoS.TID
}

func (h MacHeader) String() string {
	return fmt.Sprintf("%s ToDS=%t FromDS=%t A1=%s A2=%s A3=%s seq=%d",
		KindName(h.Kind), h.Flags.ToDS(), h.Flags.FromDS(), h.Addr1, h.Addr2, h.Addr3, h.Seq.Number)
}

// HeaderLayer is the gopacket layer produced when decoding with
// LayerTypeMacHeader.
type HeaderLayer struct {
	layers.BaseLayer
	Header MacHeader
}

// LayerType implements gopacket.Layer.
func (l *HeaderLayer) LayerType() gopacket.LayerType { return LayerTypeMacHeader }

func decodeHeaderLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &HeaderLayer{}
	if err := l.Header.DecodeFromBytes(data, p); err != nil {
		return err
	}
	n := l.Header.Size()
	l.BaseLayer = layers.BaseLayer{Contents: data[:n], Payload: data[n:]}
	p.AddLayer(l)
	return p.NextDecoder(gopacket.LayerTypePayload)
}
