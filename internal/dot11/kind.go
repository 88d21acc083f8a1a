package dot11

import (
	"fmt"

	"github.com/google/gopacket/layers"
)

// Frame kinds, encoded the way gopacket encodes them: subtype<<2 | type.
const (
	KindAssocRequest     = layers.Dot11TypeMgmtAssociationReq
	KindAssocResponse    = layers.Dot11TypeMgmtAssociationResp
	KindReassocRequest   = layers.Dot11Type(2<<2 | 0)
	KindReassocResponse  = layers.Dot11Type(3<<2 | 0)
	KindProbeRequest     = layers.Dot11TypeMgmtProbeReq
	KindProbeResponse    = layers.Dot11TypeMgmtProbeResp
	KindBeacon           = layers.Dot11TypeMgmtBeacon
	KindDisassociation   = layers.Dot11TypeMgmtDisassociation
	KindAuthentication   = layers.Dot11TypeMgmtAuthentication
	KindDeauthentication = layers.Dot11TypeMgmtDeauthentication
	KindAction           = layers.Dot11TypeMgmtAction
	KindActionNoAck      = layers.Dot11Type(14<<2 | 0)

	KindTrigger         = layers.Dot11Type(3<<2 | 1)
	KindCtrlWrapper     = layers.Dot11Type(7<<2 | 1)
	KindBlockAckRequest = layers.Dot11TypeCtrlBlockAckReq
	KindBlockAck        = layers.Dot11TypeCtrlBlockAck
	KindRTS             = layers.Dot11TypeCtrlRTS
	KindCTS             = layers.Dot11TypeCtrlCTS
	KindAck             = layers.Dot11TypeCtrlAck

	KindData    = layers.Dot11TypeData
	KindQoSData = layers.Dot11TypeDataQOSData
	KindQoSNull = layers.Dot11TypeDataQOSNull
	KindNull    = layers.Dot11TypeDataNull
)

var kindNames = map[layers.Dot11Type]string{
	KindAssocRequest:     "AssocRequest",
	KindAssocResponse:    "AssocResponse",
	KindReassocRequest:   "ReassocRequest",
	KindReassocResponse:  "ReassocResponse",
	KindProbeRequest:     "ProbeRequest",
	KindProbeResponse:    "ProbeResponse",
	KindBeacon:           "Beacon",
	KindDisassociation:   "Disassociation",
	KindAuthentication:   "Authentication",
	KindDeauthentication: "Deauthentication",
	KindAction:           "Action",
	KindActionNoAck:      "ActionNoAck",

	KindTrigger:         "Trigger",
	KindCtrlWrapper:     "CtrlWrapper",
	KindBlockAckRequest: "BlockAckRequest",
	KindBlockAck:        "BlockAck",
	KindRTS:             "RTS",
	KindCTS:             "CTS",
	KindAck:             "ACK",
}

func init() {
	dataNames := []string{
		"Data", "DataCFAck", "DataCFPoll", "DataCFAckCFPoll",
		"Null", "CFAck", "CFPoll", "CFAckCFPoll",
		"QoSData", "QoSDataCFAck", "QoSDataCFPoll", "QoSDataCFAckCFPoll",
		"QoSNull", "", "QoSCFPoll", "QoSCFAckCFPoll",
	}
	for sub, name := range dataNames {
		if name == "" {
			continue
		}
		kindNames[MakeKind(layers.Dot11TypeData, uint8(sub))] = name
	}
}

// MakeKind builds a kind from its main type and 4-bit subtype.
func MakeKind(mainType layers.Dot11Type, subtype uint8) layers.Dot11Type {
	return layers.Dot11Type(subtype&0x0f)<<2 | mainType&0x03
}

// Subtype returns the 4-bit subtype of a kind.
func Subtype(k layers.Dot11Type) uint8 {
	return uint8(k>>2) & 0x0f
}

// KnownKind reports whether k is one of the recognised (type, subtype) pairs.
func KnownKind(k layers.Dot11Type) bool {
	_, ok := kindNames[k]
	return ok
}

// KindName returns a short human readable name.
func KindName(k layers.Dot11Type) string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(type=%d,subtype=%d)", k.MainType(), Subtype(k))
}

// IsQoSKind reports whether the data subtype carries a QoS control field.
func IsQoSKind(k layers.Dot11Type) bool {
	return k.MainType() == layers.Dot11TypeData && Subtype(k)&0x08 != 0
}
