package dot11

import (
	"encoding/binary"
	"fmt"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

const amsduSubframeHeaderLen = 14

// MsduSubframe is one MSDU carried in an A-MSDU.
type MsduSubframe struct {
	DA      domain.MAC
	SA      domain.MAC
	Payload []byte
}

// AggregateMsdus builds an A-MSDU body. Every subframe except the last is
// padded to a multiple of four bytes.
func AggregateMsdus(subs []MsduSubframe) ([]byte, error) {
	var out []byte
	for i, s := range subs {
		if len(s.Payload) > 0xffff {
			return nil, fmt.Errorf("%w: msdu of %d bytes", ErrMalformedFrame, len(s.Payload))
		}
		hdr := make([]byte, amsduSubframeHeaderLen)
		copy(hdr[0:], s.DA[:])
		copy(hdr[6:], s.SA[:])
		binary.BigEndian.PutUint16(hdr[12:], uint16(len(s.Payload)))
		out = append(out, hdr...)
		out = append(out, s.Payload...)
		if i < len(subs)-1 {
			if pad := (amsduSubframeHeaderLen + len(s.Payload)) % 4; pad != 0 {
				out = append(out, make([]byte, 4-pad)...)
			}
		}
	}
	return out, nil
}

// DeaggregateMsdus splits an A-MSDU body. Payloads alias body.
func DeaggregateMsdus(body []byte) ([]MsduSubframe, error) {
	var subs []MsduSubframe
	off := 0
	for off < len(body) {
		if off+amsduSubframeHeaderLen > len(body) {
			return nil, fmt.Errorf("%w: a-msdu subframe header truncated at offset %d", ErrMalformedFrame, off)
		}
		var s MsduSubframe
		copy(s.DA[:], body[off:])
		copy(s.SA[:], body[off+6:])
		n := int(binary.BigEndian.Uint16(body[off+12:]))
		off += amsduSubframeHeaderLen
		if off+n > len(body) {
			return nil, fmt.Errorf("%w: a-msdu subframe length %d exceeds remaining %d bytes", ErrMalformedFrame, n, len(body)-off)
		}
		s.Payload = body[off : off+n]
		subs = append(subs, s)
		off += n
		// The last subframe carries no padding; any other must be padded
		// in full.
		if pad := (amsduSubframeHeaderLen + n) % 4; pad != 0 && off < len(body) {
			if off+4-pad > len(body) {
				return nil, fmt.Errorf("%w: a-msdu padding truncated at offset %d", ErrMalformedFrame, off)
			}
			off += 4 - pad
		}
	}
	return subs, nil
}
