package dot11

import (
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBARequest_RoundTrip(t *testing.T) {
	req := AddBARequest{
		DialogToken:      7,
		Params:           BlockAckParams{AmsduSupported: true, Immediate: true, TID: 5, BufferSize: 64},
		Timeout:          0,
		StartingSequence: 1234,
	}
	raw := req.Encode()
	cat, act, err := ActionHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, CategoryBlockAck, cat)
	assert.Equal(t, uint8(ActionAddBARequest), act)

	got, err := ParseAddBARequest(raw)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestAddBAResponse_RoundTrip(t *testing.T) {
	resp := AddBAResponse{
		DialogToken: 7,
		Status:      layers.Dot11StatusSuccess,
		Params:      BlockAckParams{Immediate: true, TID: 5, BufferSize: 1023},
		Timeout:     100,
	}
	got, err := ParseAddBAResponse(resp.Encode())
	require.NoError(t, err)
	assert.Equal(t, resp, got)

	_, err = ParseAddBARequest(resp.Encode())
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDelBA_RoundTrip(t *testing.T) {
	d := DelBA{Initiator: true, TID: 3, Reason: layers.Dot11ReasonUnspecified}
	raw := d.Encode()
	assert.Equal(t, byte(0x38), raw[3])

	got, err := ParseDelBA(raw)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	_, err = ParseDelBA(raw[:4])
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestAggregateMsdus_RoundTrip(t *testing.T) {
	subs := []MsduSubframe{
		{DA: staA, SA: staB, Payload: []byte("odd")},
		{DA: dsY, SA: staB, Payload: []byte("four")},
		{DA: staA, SA: dsY, Payload: []byte("last")},
	}
	body, err := AggregateMsdus(subs)
	require.NoError(t, err)
	// 14+3 padded to 20, 14+4 padded to 20, 14+4 unpadded
	assert.Len(t, body, 20+20+18)

	got, err := DeaggregateMsdus(body)
	require.NoError(t, err)
	assert.Equal(t, subs, got)
}

func TestDeaggregateMsdus_Truncated(t *testing.T) {
	body, err := AggregateMsdus([]MsduSubframe{{DA: staA, SA: staB, Payload: []byte("hello")}})
	require.NoError(t, err)

	_, err = DeaggregateMsdus(body[:len(body)-1])
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = DeaggregateMsdus(body[:10])
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDeaggregateMsdus_TruncatedPadding(t *testing.T) {
	body, err := AggregateMsdus([]MsduSubframe{
		{DA: staA, SA: staB, Payload: []byte("odd")},
		{DA: staA, SA: staB, Payload: []byte("next")},
	})
	require.NoError(t, err)

	// First subframe is 17 bytes followed by 3 bytes of padding.
	_, err = DeaggregateMsdus(body[:18])
	assert.ErrorIs(t, err, ErrMalformedFrame)

	got, err := DeaggregateMsdus(body[:17])
	require.NoError(t, err, "the last subframe needs no padding")
	assert.Len(t, got, 1)
}
