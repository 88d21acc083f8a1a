package domain

import "time"

// BlockAckAgreement is an established Block-Ack session for one
// (originator, TID) pair.
type BlockAckAgreement struct {
	Originator       MAC           `json:"originator"`
	Recipient        MAC           `json:"recipient"`
	TID              uint8         `json:"tid"`
	BufferSize       uint16        `json:"buffer_size"`
	StartingSequence uint16        `json:"starting_sequence"`
	Immediate        bool          `json:"immediate"`
	AmsduSupported   bool          `json:"amsdu_supported"`
	Timeout          time.Duration `json:"timeout"`
}

// AgreementKey identifies an agreement.
type AgreementKey struct {
	Peer MAC
	TID  uint8
}
