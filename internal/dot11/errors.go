package dot11

import "errors"

var (
	// ErrMalformedFrame is returned when a buffer is too short for the header
	// it declares, or when the frame control carries an unknown subtype.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrProtocolViolation is returned when a frame breaks the 802.11
	// addressing contract. Callers treat it as fatal.
	ErrProtocolViolation = errors.New("802.11 protocol violation")
)
