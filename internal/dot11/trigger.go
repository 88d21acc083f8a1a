package dot11

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/gopacket"
)

// TriggerType is the trigger type subfield of the common info field.
type TriggerType uint8

const (
	TriggerBasic                 TriggerType = 0
	TriggerBeamformingReportPoll TriggerType = 1
	TriggerMUBAR                 TriggerType = 2
	TriggerMURTS                 TriggerType = 3
	TriggerBSRP                  TriggerType = 4
	TriggerGCRMUBAR              TriggerType = 5
	TriggerBQRP                  TriggerType = 6
)

func (t TriggerType) String() string {
	switch t {
	case TriggerBasic:
		return "Basic"
	case TriggerBeamformingReportPoll:
		return "BFRP"
	case TriggerMUBAR:
		return "MU-BAR"
	case TriggerMURTS:
		return "MU-RTS"
	case TriggerBSRP:
		return "BSRP"
	case TriggerGCRMUBAR:
		return "GCR-MU-BAR"
	case TriggerBQRP:
		return "BQRP"
	default:
		return fmt.Sprintf("TriggerType(%d)", uint8(t))
	}
}

// Known reports whether t is a defined trigger type. 7 to 15 are reserved.
func (t TriggerType) Known() bool {
	return t <= TriggerBQRP
}

// UserInfoSize returns the size of one user info record for this trigger type.
func (t TriggerType) UserInfoSize() int {
	switch t {
	case TriggerBasic:
		return 6
	case TriggerMUBAR:
		return 7
	default:
		return 5
	}
}

const (
	triggerCommonInfoSize = 8
	maxAID                = 0x0fff
)

// UserInfo is one per-station record of a trigger frame. The trigger
// dependent fields are only encoded for the trigger type that carries them:
// SpacingFactor, TIDAggLimit, ACPreferenceLevel and PreferredAC for Basic,
// the BAR* fields for MU-BAR.
type UserInfo struct {
	AID          uint16 // 12 bits
	RUIndex      uint8
	Coding       uint8 // 1 bit, 0 BCC, 1 LDPC
	MCS          uint8 // 4 bits
	DCM          bool
	SSAllocation uint8 // 6 bits

	SpacingFactor     uint8 // 2 bits
	TIDAggLimit       uint8 // 3 bits
	ACPreferenceLevel bool
	PreferredAC       uint8 // 2 bits

	BARAckPolicy  bool
	BARMultiTID   bool
	BARCompressed bool
	BARTIDInfo    uint8 // 4 bits
}

func (u UserInfo) pack() uint32 {
	v := uint32(u.AID & maxAID)
	v |= uint32(u.RUIndex) << 12
	v |= uint32(u.Coding&0x01) << 20
	v |= uint32(u.MCS&0x0f) << 21
	if u.DCM {
		v |= 1 << 25
	}
	v |= uint32(u.SSAllocation&0x3f) << 26
	return v
}

func unpackUserInfo(v uint32) UserInfo {
	return UserInfo{
		AID:          uint16(v & maxAID),
		RUIndex:      uint8(v >> 12),
		Coding:       uint8(v>>20) & 0x01,
		MCS:          uint8(v>>21) & 0x0f,
		DCM:          v&(1<<25) != 0,
		SSAllocation: uint8(v>>26) & 0x3f,
	}
}

func (u UserInfo) basicDependent() byte {
	b := u.SpacingFactor & 0x03
	b |= (u.TIDAggLimit & 0x07) << 2
	if u.ACPreferenceLevel {
		b |= 1 << 5
	}
	b |= (u.PreferredAC & 0x03) << 6
	return b
}

func (u UserInfo) barControl() uint16 {
	var v uint16
	if u.BARAckPolicy {
		v |= 1 << 0
	}
	if u.BARMultiTID {
		v |= 1 << 1
	}
	if u.BARCompressed {
		v |= 1 << 2
	}
	v |= uint16(u.BARTIDInfo&0x0f) << 12
	return v
}

// TriggerFrame is an HE trigger frame: a control header followed by the
// common info field and one user info record per solicited station.
type TriggerFrame struct {
	Header    MacHeader
	Type      TriggerType
	Length    uint16 // 12 bits
	Bandwidth uint8  // 2 bits
	// Users is keyed by AID; records go on the air in ascending AID order.
	Users map[uint16]UserInfo
}

// NewTriggerFrame returns a trigger frame addressed from ta to ra.
func NewTriggerFrame(t TriggerType, h MacHeader) *TriggerFrame {
	h.Kind = KindTrigger
	return &TriggerFrame{Header: h, Type: t, Users: make(map[uint16]UserInfo)}
}

// AddUser adds or replaces the record for u.AID.
func (f *TriggerFrame) AddUser(u UserInfo) {
	if f.Users == nil {
		f.Users = make(map[uint16]UserInfo)
	}
	f.Users[u.AID] = u
}

// SortedAIDs returns the AIDs in serialization order.
func (f *TriggerFrame) SortedAIDs() []uint16 {
	aids := make([]uint16, 0, len(f.Users))
	for aid := range f.Users {
		aids = append(aids, aid)
	}
	sort.Slice(aids, func(i, j int) bool { return aids[i] < aids[j] })
	return aids
}

// Size returns the serialized length of the whole frame.
func (f *TriggerFrame) Size() int {
	return f.Header.Size() + triggerCommonInfoSize + 1 + len(f.Users)*f.Type.UserInfoSize()
}

func (f *TriggerFrame) commonInfo() uint32 {
	v := uint32(f.Type) & 0x0f
	v |= uint32(f.Length&0x0fff) << 4
	v |= uint32(f.Bandwidth&0x03) << 18
	return v
}

// LayerType implements gopacket.SerializableLayer.
func (f *TriggerFrame) LayerType() gopacket.LayerType { return LayerTypeMacHeader }

// SerializeTo writes the trigger body and then the control header.
func (f *TriggerFrame) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if f.Header.Kind != KindTrigger {
		return fmt.Errorf("%w: trigger frame with header kind %s", ErrProtocolViolation, KindName(f.Header.Kind))
	}
	if !f.Type.Known() {
		return fmt.Errorf("%w: reserved trigger type %d", ErrMalformedFrame, uint8(f.Type))
	}
	if len(f.Users) > 0xff {
		return fmt.Errorf("%w: %d users do not fit the user count field", ErrMalformedFrame, len(f.Users))
	}
	recSize := f.Type.UserInfoSize()
	buf, err := b.PrependBytes(triggerCommonInfoSize + 1 + len(f.Users)*recSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf[0:4], f.commonInfo())
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	buf[8] = uint8(len(f.Users))

	off := 9
	for _, aid := range f.SortedAIDs() {
		u := f.Users[aid]
		if u.AID != aid || aid > maxAID {
			return fmt.Errorf("%w: user record keyed %d carries AID %d", ErrMalformedFrame, aid, u.AID)
		}
		rec := buf[off : off+recSize]
		binary.LittleEndian.PutUint32(rec[0:4], u.pack())
		rec[4] = 0
		switch f.Type {
		case TriggerBasic:
			rec[5] = u.basicDependent()
		case TriggerMUBAR:
			binary.LittleEndian.PutUint16(rec[5:7], u.barControl())
		}
		off += recSize
	}
	return f.Header.SerializeTo(b, opts)
}

// EncodeTrigger serializes a trigger frame.
func EncodeTrigger(f *TriggerFrame) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := f.SerializeTo(buf, gopacket.SerializeOptions{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTrigger parses a trigger frame and returns it with the number of
// bytes consumed.
func DecodeTrigger(data []byte) (*TriggerFrame, int, error) {
	h, n, err := Decode(data)
	if err != nil {
		return nil, 0, err
	}
	if h.Kind != KindTrigger {
		return nil, 0, fmt.Errorf("%w: expected trigger, got %s", ErrMalformedFrame, KindName(h.Kind))
	}
	rest := data[n:]
	if len(rest) < triggerCommonInfoSize+1 {
		return nil, 0, fmt.Errorf("%w: trigger common info truncated", ErrMalformedFrame)
	}
	ci := binary.LittleEndian.Uint32(rest[0:4])
	f := &TriggerFrame{
		Header:    h,
		Type:      TriggerType(ci & 0x0f),
		Length:    uint16(ci>>4) & 0x0fff,
		Bandwidth: uint8(ci>>18) & 0x03,
		Users:     make(map[uint16]UserInfo),
	}
	if !f.Type.Known() {
		return nil, 0, fmt.Errorf("%w: reserved trigger type %d", ErrMalformedFrame, uint8(f.Type))
	}
	count := int(rest[8])
	recSize := f.Type.UserInfoSize()
	off := triggerCommonInfoSize + 1
	if len(rest) < off+count*recSize {
		return nil, 0, fmt.Errorf("%w: %d user records of %d bytes do not fit in %d bytes",
			ErrMalformedFrame, count, recSize, len(rest)-off)
	}
	for i := 0; i < count; i++ {
		rec := rest[off : off+recSize]
		u := unpackUserInfo(binary.LittleEndian.Uint32(rec[0:4]))
		switch f.Type {
		case TriggerBasic:
			d := rec[5]
			u.SpacingFactor = d & 0x03
			u.TIDAggLimit = (d >> 2) & 0x07
			u.ACPreferenceLevel = d&(1<<5) != 0
			u.PreferredAC = (d >> 6) & 0x03
		case TriggerMUBAR:
			bar := binary.LittleEndian.Uint16(rec[5:7])
			u.BARAckPolicy = bar&(1<<0) != 0
			u.BARMultiTID = bar&(1<<1) != 0
			u.BARCompressed = bar&(1<<2) != 0
			u.BARTIDInfo = uint8(bar>>12) & 0x0f
		}
		if _, dup := f.Users[u.AID]; dup {
			return nil, 0, fmt.Errorf("%w: duplicate user record for AID %d", ErrMalformedFrame, u.AID)
		}
		f.Users[u.AID] = u
		off += recSize
	}
	return f, n + off, nil
}
