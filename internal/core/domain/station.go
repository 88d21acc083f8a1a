package domain

import (
	"errors"
	"time"
)

// ErrStationNotFound is returned when neither the registry nor storage
// knows a station.
var ErrStationNotFound = errors.New("station not found")

// AssocState is the association state of a station as seen by the AP.
type AssocState string

const (
	StateUnassociated        AssocState = "unassociated"
	StatePendingConfirmation AssocState = "pending_confirmation"
	StateAssociated          AssocState = "associated"
)

// StationCapabilities are the capabilities a station advertised in its last
// association request, after matching against the AP.
type StationCapabilities struct {
	ShortPreamble bool `json:"short_preamble"`
	ShortSlotTime bool `json:"short_slot_time"`
	ERP           bool `json:"erp"`
	DSSS          bool `json:"dsss"`
	OFDM          bool `json:"ofdm"`
	HT            bool `json:"ht"`
	VHT           bool `json:"vht"`
	HE            bool `json:"he"`
}

// Generation names the newest PHY generation the station supports: "HE",
// "VHT", "HT", "ERP", "OFDM" or "DSSS".
func (c StationCapabilities) Generation() string {
	switch {
	case c.HE:
		return "HE"
	case c.VHT:
		return "VHT"
	case c.HT:
		return "HT"
	case c.ERP:
		return "ERP"
	case c.OFDM:
		return "OFDM"
	default:
		return "DSSS"
	}
}

// Station is an entry in the AP's station registry.
type Station struct {
	MAC          MAC                 `json:"mac"`
	AID          uint16              `json:"aid"`
	State        AssocState          `json:"state"`
	Capabilities StationCapabilities `json:"capabilities"`
	// SupportedModes lists the names of the PHY modes and MCSs recorded for
	// this station on its last successful association.
	SupportedModes []string  `json:"supported_modes,omitempty"`
	NonERP         bool      `json:"non_erp"`
	NonHT          bool      `json:"non_ht"`
	FirstSeen      time.Time `json:"first_seen"`
	LastChange     time.Time `json:"last_change"`
}

// StationEventType describes a registry transition.
type StationEventType string

const (
	EventAssocPending    StationEventType = "assoc_pending"
	EventAssociated      StationEventType = "associated"
	EventAssocTxFailed   StationEventType = "assoc_tx_failed"
	EventAssocRejected   StationEventType = "assoc_rejected"
	EventDisassociated   StationEventType = "disassociated"
	EventBlockAckCreated StationEventType = "blockack_created"
	EventBlockAckDeleted StationEventType = "blockack_deleted"
)

// StationEvent is published by the registry and the AP state machine
// whenever a station changes state.
type StationEvent struct {
	Type    StationEventType `json:"type"`
	Station Station          `json:"station"`
	TID     uint8            `json:"tid,omitempty"`
	Time    time.Time        `json:"time"`
	// SessionID groups the events of one association attempt. It is set
	// by storage.
	SessionID string `json:"session_id,omitempty"`
}
