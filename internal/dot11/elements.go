package dot11

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Element IDs used by the AP.
const (
	ElemSSID            = layers.Dot11InformationElementIDSSID
	ElemRates           = layers.Dot11InformationElementIDRates
	ElemDSSet           = layers.Dot11InformationElementIDDSSet
	ElemEDCAParamSet    = layers.Dot11InformationElementIDEDCAParamSet
	ElemERPInfo         = layers.Dot11InformationElementIDERPInfo
	ElemHTCapabilities  = layers.Dot11InformationElementIDHTCapabilities
	ElemExtendedRates   = layers.Dot11InformationElementIDESRates
	ElemHTOperation     = layers.Dot11InformationElementIDHTInfo
	ElemVHTCapabilities = layers.Dot11InformationElementID(191)
	ElemVHTOperation    = layers.Dot11InformationElementID(192)
	ElemExtension       = layers.Dot11InformationElementID(255)

	extIDHEOperation = 36
)

// ElementList is an ordered list of information elements.
type ElementList []layers.Dot11InformationElement

// Add appends an element.
func (l *ElementList) Add(id layers.Dot11InformationElementID, info []byte) {
	*l = append(*l, layers.Dot11InformationElement{ID: id, Length: uint8(len(info)), Info: info})
}

// Find returns the body of the first element with the given ID.
func (l ElementList) Find(id layers.Dot11InformationElementID) ([]byte, bool) {
	for _, e := range l {
		if e.ID == id {
			return e.Info, true
		}
	}
	return nil, false
}

// FindExtension returns the body, without the extension ID, of the first
// extension element with the given extension ID.
func (l ElementList) FindExtension(extID uint8) ([]byte, bool) {
	for _, e := range l {
		if e.ID == ElemExtension && len(e.Info) > 0 && e.Info[0] == extID {
			return e.Info[1:], true
		}
	}
	return nil, false
}

// Size returns the serialized size of the list.
func (l ElementList) Size() int {
	n := 0
	for _, e := range l {
		n += 2 + len(e.OUI) + len(e.Info)
	}
	return n
}

// LayerType implements gopacket.SerializableLayer.
func (l ElementList) LayerType() gopacket.LayerType {
	return layers.LayerTypeDot11InformationElement
}

// SerializeTo prepends every element, preserving list order.
func (l ElementList) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	for i := len(l) - 1; i >= 0; i-- {
		if len(l[i].OUI)+len(l[i].Info) > 0xff {
			return fmt.Errorf("%w: element %d body of %d bytes", ErrMalformedFrame, l[i].ID, len(l[i].Info))
		}
		if err := l[i].SerializeTo(b, opts); err != nil {
			return err
		}
	}
	return nil
}

// IterateElements calls fn for each element in data. It fails if an element
// runs past the end of the buffer.
func IterateElements(data []byte, fn func(id layers.Dot11InformationElementID, info []byte)) error {
	off := 0
	for off < len(data) {
		if off+2 > len(data) {
			return fmt.Errorf("%w: element header truncated at offset %d", ErrMalformedFrame, off)
		}
		id := layers.Dot11InformationElementID(data[off])
		length := int(data[off+1])
		off += 2
		if off+length > len(data) {
			return fmt.Errorf("%w: element %d length %d exceeds remaining %d bytes", ErrMalformedFrame, id, length, len(data)-off)
		}
		fn(id, data[off:off+length])
		off += length
	}
	return nil
}

// ParseElements decodes a list of elements. Bodies alias data.
func ParseElements(data []byte) (ElementList, error) {
	var l ElementList
	err := IterateElements(data, func(id layers.Dot11InformationElementID, info []byte) {
		l.Add(id, info)
	})
	return l, err
}

// DSSSParameterSet carries the current channel.
type DSSSParameterSet struct {
	Channel uint8
}

func (d DSSSParameterSet) Info() []byte { return []byte{d.Channel} }

// ERPInformation is the ERP information element.
type ERPInformation struct {
	NonERPPresent      bool
	UseProtection      bool
	BarkerPreambleMode bool
}

func (e ERPInformation) Info() []byte {
	var b byte
	if e.NonERPPresent {
		b |= 1 << 0
	}
	if e.UseProtection {
		b |= 1 << 1
	}
	if e.BarkerPreambleMode {
		b |= 1 << 2
	}
	return []byte{b}
}

// ParseERPInformation decodes an ERP information element body.
func ParseERPInformation(info []byte) (ERPInformation, error) {
	if len(info) < 1 {
		return ERPInformation{}, fmt.Errorf("%w: empty ERP information", ErrMalformedFrame)
	}
	return ERPInformation{
		NonERPPresent:      info[0]&(1<<0) != 0,
		UseProtection:      info[0]&(1<<1) != 0,
		BarkerPreambleMode: info[0]&(1<<2) != 0,
	}, nil
}

// EDCARecord is one access category record of the EDCA parameter set.
type EDCARecord struct {
	ACI   uint8
	AIFSN uint8
	ACM   bool
	CWMin uint16
	CWMax uint16
	// TXOPLimit is in units of 32 microseconds.
	TXOPLimit uint16
}

// EDCAParameterSet is the EDCA parameter set element. Records are kept in
// on-air order: BE, BK, VI, VO.
type EDCAParameterSet struct {
	QoSInfo uint8
	Records [4]EDCARecord
}

func ecw(cw uint16) uint8 {
	var e uint8
	for (uint32(1)<<e)-1 < uint32(cw) && e < 15 {
		e++
	}
	return e
}

func (p EDCAParameterSet) Info() []byte {
	b := make([]byte, 18)
	b[0] = p.QoSInfo
	for i, r := range p.Records {
		rec := b[2+4*i : 6+4*i]
		rec[0] = r.AIFSN&0x0f | (r.ACI&0x03)<<5
		if r.ACM {
			rec[0] |= 1 << 4
		}
		rec[1] = ecw(r.CWMin) | ecw(r.CWMax)<<4
		binary.LittleEndian.PutUint16(rec[2:4], r.TXOPLimit)
	}
	return b
}

// ParseEDCAParameterSet decodes an EDCA parameter set body.
func ParseEDCAParameterSet(info []byte) (EDCAParameterSet, error) {
	if len(info) < 18 {
		return EDCAParameterSet{}, fmt.Errorf("%w: EDCA parameter set of %d bytes", ErrMalformedFrame, len(info))
	}
	p := EDCAParameterSet{QoSInfo: info[0]}
	for i := range p.Records {
		rec := info[2+4*i : 6+4*i]
		p.Records[i] = EDCARecord{
			AIFSN:     rec[0] & 0x0f,
			ACM:       rec[0]&(1<<4) != 0,
			ACI:       (rec[0] >> 5) & 0x03,
			CWMin:     uint16(1)<<(rec[1]&0x0f) - 1,
			CWMax:     uint16(1)<<(rec[1]>>4) - 1,
			TXOPLimit: binary.LittleEndian.Uint16(rec[2:4]),
		}
	}
	return p, nil
}

// HTCapabilities is the HT capabilities element. Only the receive MCS
// bitmask of the supported MCS set is modeled.
type HTCapabilities struct {
	Info        uint16
	AMPDUParams uint8
	RxMCS       [10]byte
}

// SetSupportedMCS marks an MCS index as supported for reception.
func (c *HTCapabilities) SetSupportedMCS(mcs uint8) {
	if mcs < 77 {
		c.RxMCS[mcs/8] |= 1 << (mcs % 8)
	}
}

// IsSupportedMCS reports whether the MCS index is in the receive bitmask.
func (c HTCapabilities) IsSupportedMCS(mcs uint8) bool {
	if mcs >= 77 {
		return false
	}
	return c.RxMCS[mcs/8]&(1<<(mcs%8)) != 0
}

func (c HTCapabilities) bytes() []byte {
	b := make([]byte, 26)
	binary.LittleEndian.PutUint16(b[0:2], c.Info)
	b[2] = c.AMPDUParams
	copy(b[3:13], c.RxMCS[:])
	return b
}

// ParseHTCapabilities decodes an HT capabilities body.
func ParseHTCapabilities(info []byte) (HTCapabilities, error) {
	if len(info) < 26 {
		return HTCapabilities{}, fmt.Errorf("%w: HT capabilities of %d bytes", ErrMalformedFrame, len(info))
	}
	c := HTCapabilities{
		Info:        binary.LittleEndian.Uint16(info[0:2]),
		AMPDUParams: info[2],
	}
	copy(c.RxMCS[:], info[3:13])
	return c, nil
}

// HTProtection is the HT protection subfield of the HT operation element.
type HTProtection uint8

const (
	HTNoProtection        HTProtection = 0
	HTNonMemberProtection HTProtection = 1
	HT20MHzProtection     HTProtection = 2
	HTMixedModeProtection HTProtection = 3
)

// HTOperation is the HT operation element.
type HTOperation struct {
	PrimaryChannel uint8
	Protection     HTProtection
	BasicMCS       [16]byte
}

func (o HTOperation) bytes() []byte {
	b := make([]byte, 22)
	b[0] = o.PrimaryChannel
	binary.LittleEndian.PutUint16(b[2:4], uint16(o.Protection&0x03))
	copy(b[6:22], o.BasicMCS[:])
	return b
}

// ParseHTOperation decodes an HT operation body.
func ParseHTOperation(info []byte) (HTOperation, error) {
	if len(info) < 22 {
		return HTOperation{}, fmt.Errorf("%w: HT operation of %d bytes", ErrMalformedFrame, len(info))
	}
	o := HTOperation{
		PrimaryChannel: info[0],
		Protection:     HTProtection(binary.LittleEndian.Uint16(info[2:4]) & 0x03),
	}
	copy(o.BasicMCS[:], info[6:22])
	return o, nil
}

// VHT MCS map values for one spatial stream.
const (
	VHTMCS0To7     uint16 = 0
	VHTMCS0To8     uint16 = 1
	VHTMCS0To9     uint16 = 2
	VHTMCSNotAvail uint16 = 3
)

// VHTCapabilities is the VHT capabilities element.
type VHTCapabilities struct {
	Info      uint32
	RxMCSMap  uint16
	RxHighest uint16
	TxMCSMap  uint16
	TxHighest uint16
}

// IsSupportedTxMCS reports whether the single spatial stream transmit map
// covers the MCS index.
func (c VHTCapabilities) IsSupportedTxMCS(mcs uint8) bool {
	switch c.TxMCSMap & 0x03 {
	case VHTMCS0To7:
		return mcs <= 7
	case VHTMCS0To8:
		return mcs <= 8
	case VHTMCS0To9:
		return mcs <= 9
	default:
		return false
	}
}

func (c VHTCapabilities) bytes() []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], c.Info)
	binary.LittleEndian.PutUint16(b[4:6], c.RxMCSMap)
	binary.LittleEndian.PutUint16(b[6:8], c.RxHighest)
	binary.LittleEndian.PutUint16(b[8:10], c.TxMCSMap)
	binary.LittleEndian.PutUint16(b[10:12], c.TxHighest)
	return b
}

// ParseVHTCapabilities decodes a VHT capabilities body.
func ParseVHTCapabilities(info []byte) (VHTCapabilities, error) {
	if len(info) < 12 {
		return VHTCapabilities{}, fmt.Errorf("%w: VHT capabilities of %d bytes", ErrMalformedFrame, len(info))
	}
	return VHTCapabilities{
		Info:      binary.LittleEndian.Uint32(info[0:4]),
		RxMCSMap:  binary.LittleEndian.Uint16(info[4:6]),
		RxHighest: binary.LittleEndian.Uint16(info[6:8]),
		TxMCSMap:  binary.LittleEndian.Uint16(info[8:10]),
		TxHighest: binary.LittleEndian.Uint16(info[10:12]),
	}, nil
}

// VHTOperation is the VHT operation element.
type VHTOperation struct {
	ChannelWidth uint8
	CenterSeg0   uint8
	CenterSeg1   uint8
	BasicMCSMap  uint16
}

func (o VHTOperation) bytes() []byte {
	b := make([]byte, 5)
	b[0] = o.ChannelWidth
	b[1] = o.CenterSeg0
	b[2] = o.CenterSeg1
	binary.LittleEndian.PutUint16(b[3:5], o.BasicMCSMap)
	return b
}

// ParseVHTOperation decodes a VHT operation body.
func ParseVHTOperation(info []byte) (VHTOperation, error) {
	if len(info) < 5 {
		return VHTOperation{}, fmt.Errorf("%w: VHT operation of %d bytes", ErrMalformedFrame, len(info))
	}
	return VHTOperation{
		ChannelWidth: info[0],
		CenterSeg0:   info[1],
		CenterSeg1:   info[2],
		BasicMCSMap:  binary.LittleEndian.Uint16(info[3:5]),
	}, nil
}

// HEOperation is the HE operation extension element. BSSColor is six bits.
type HEOperation struct {
	Params        uint32 // 24 bits
	BSSColor      uint8
	ColorDisabled bool
	BasicMCSNSS   uint16
}

func (o HEOperation) bytes() []byte {
	b := make([]byte, 7)
	b[0] = extIDHEOperation
	b[1] = uint8(o.Params)
	b[2] = uint8(o.Params >> 8)
	b[3] = uint8(o.Params >> 16)
	b[4] = o.BSSColor & 0x3f
	if o.ColorDisabled {
		b[4] |= 1 << 7
	}
	binary.LittleEndian.PutUint16(b[5:7], o.BasicMCSNSS)
	return b
}

// ParseHEOperation decodes an HE operation body without the extension ID.
func ParseHEOperation(info []byte) (HEOperation, error) {
	if len(info) < 6 {
		return HEOperation{}, fmt.Errorf("%w: HE operation of %d bytes", ErrMalformedFrame, len(info))
	}
	return HEOperation{
		Params:        uint32(info[0]) | uint32(info[1])<<8 | uint32(info[2])<<16,
		BSSColor:      info[3] & 0x3f,
		ColorDisabled: info[3]&(1<<7) != 0,
		BasicMCSNSS:   binary.LittleEndian.Uint16(info[4:6]),
	}, nil
}

// AddDSSS appends a DSSS parameter set.
func (l *ElementList) AddDSSS(d DSSSParameterSet) { l.Add(ElemDSSet, d.Info()) }

// AddERP appends an ERP information element.
func (l *ElementList) AddERP(e ERPInformation) { l.Add(ElemERPInfo, e.Info()) }

// AddEDCA appends an EDCA parameter set.
func (l *ElementList) AddEDCA(p EDCAParameterSet) { l.Add(ElemEDCAParamSet, p.Info()) }

// AddHTCapabilities appends an HT capabilities element.
func (l *ElementList) AddHTCapabilities(c HTCapabilities) { l.Add(ElemHTCapabilities, c.bytes()) }

// AddHTOperation appends an HT operation element.
func (l *ElementList) AddHTOperation(o HTOperation) { l.Add(ElemHTOperation, o.bytes()) }

// AddVHTCapabilities appends a VHT capabilities element.
func (l *ElementList) AddVHTCapabilities(c VHTCapabilities) { l.Add(ElemVHTCapabilities, c.bytes()) }

// AddVHTOperation appends a VHT operation element.
func (l *ElementList) AddVHTOperation(o VHTOperation) { l.Add(ElemVHTOperation, o.bytes()) }

// AddHEOperation appends an HE operation extension element.
func (l *ElementList) AddHEOperation(o HEOperation) { l.Add(ElemExtension, o.bytes()) }

// HEOperation returns the HE operation element, if present.
func (l ElementList) HEOperation() (HEOperation, bool, error) {
	info, ok := l.FindExtension(extIDHEOperation)
	if !ok {
		return HEOperation{}, false, nil
	}
	o, err := ParseHEOperation(info)
	return o, true, err
}

// AddSSID appends an SSID element.
func (l *ElementList) AddSSID(ssid string) { l.Add(ElemSSID, []byte(ssid)) }
