package dot11

// AckPolicy is the ack policy subfield of the QoS control field.
type AckPolicy uint8

const (
	AckNormal     AckPolicy = 0
	AckNone       AckPolicy = 1
	AckNoExplicit AckPolicy = 2
	AckBlock      AckPolicy = 3
)

// QoSControl is the 16-bit QoS control field of QoS data frames.
type QoSControl struct {
	TID          uint8
	EOSP         bool
	AckPolicy    AckPolicy
	AMSDUPresent bool
	// TXOP carries the TXOP limit, TXOP duration request or queue size,
	// depending on the sender.
	TXOP uint8
}

// Pack returns the on-air representation.
func (q QoSControl) Pack() uint16 {
	v := uint16(q.TID & 0x0f)
	if q.EOSP {
		v |= 1 << 4
	}
	v |= uint16(q.AckPolicy&0x03) << 5
	if q.AMSDUPresent {
		v |= 1 << 7
	}
	v |= uint16(q.TXOP) << 8
	return v
}

// UnpackQoSControl parses the on-air representation.
func UnpackQoSControl(v uint16) QoSControl {
	return QoSControl{
		TID:          uint8(v & 0x0f),
		EOSP:         v&(1<<4) != 0,
		AckPolicy:    AckPolicy((v >> 5) & 0x03),
		AMSDUPresent: v&(1<<7) != 0,
		TXOP:         uint8(v >> 8),
	}
}

// HT/HE control identifiers with a structured payload.
const (
	HTControlBSR         uint8 = 3
	HTControlMultiTIDBSR uint8 = 7
)

// BufferStatusReport is the payload of a BSR control subfield.
type BufferStatusReport struct {
	ACIBitmap     uint8 // 4 bits
	DeltaTID      uint8 // 2 bits
	ACIHigh       uint8 // 2 bits
	ScalingFactor uint8 // 2 bits
	QueueSizeHigh uint8
	QueueSizeAll  uint8
}

// MultiTIDReport carries one 6-bit queue size per access category.
type MultiTIDReport struct {
	BE uint8
	BK uint8
	VI uint8
	VO uint8
}

// HTControl is the 32-bit HT/HE control field. Only the payload matching ID
// is encoded; Info holds bits 6-31 for identifiers without a structured form.
type HTControl struct {
	Variant  uint8 // bits 0-1
	ID       uint8 // bits 2-5
	BSR      BufferStatusReport
	MultiTID MultiTIDReport
	Info     uint32
}

// Pack returns the on-air representation.
func (c HTControl) Pack() uint32 {
	v := uint32(c.Variant&0x03) | uint32(c.ID&0x0f)<<2
	switch c.ID {
	case HTControlBSR:
		v |= uint32(c.BSR.ACIBitmap&0x0f) << 6
		v |= uint32(c.BSR.DeltaTID&0x03) << 10
		v |= uint32(c.BSR.ACIHigh&0x03) << 12
		v |= uint32(c.BSR.ScalingFactor&0x03) << 14
		v |= uint32(c.BSR.QueueSizeHigh) << 16
		v |= uint32(c.BSR.QueueSizeAll) << 24
	case HTControlMultiTIDBSR:
		v |= uint32(c.MultiTID.BE&0x3f) << 6
		v |= uint32(c.MultiTID.BK&0x3f) << 12
		v |= uint32(c.MultiTID.VI&0x3f) << 18
		v |= uint32(c.MultiTID.VO&0x3f) << 24
	default:
		v |= (c.Info & 0x03ffffff) << 6
	}
	return v
}

// UnpackHTControl parses the on-air representation.
func UnpackHTControl(v uint32) HTControl {
	c := HTControl{
		Variant: uint8(v & 0x03),
		ID:      uint8(v>>2) & 0x0f,
	}
	switch c.ID {
	case HTControlBSR:
		c.BSR = BufferStatusReport{
			ACIBitmap:     uint8(v>>6) & 0x0f,
			DeltaTID:      uint8(v>>10) & 0x03,
			ACIHigh:       uint8(v>>12) & 0x03,
			ScalingFactor: uint8(v>>14) & 0x03,
			QueueSizeHigh: uint8(v >> 16),
			QueueSizeAll:  uint8(v >> 24),
		}
	case HTControlMultiTIDBSR:
		c.MultiTID = MultiTIDReport{
			BE: uint8(v>>6) & 0x3f,
			BK: uint8(v>>12) & 0x3f,
			VI: uint8(v>>18) & 0x3f,
			VO: uint8(v>>24) & 0x3f,
		}
	default:
		c.Info = v >> 6
	}
	return c
}
