package dot11

import (
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeaconBody_RoundTrip(t *testing.T) {
	var elems ElementList
	elems.AddSSID("apmac")
	elems.AddDSSS(DSSSParameterSet{Channel: 1})

	b := BeaconBody{
		Timestamp:    0x0102030405060708,
		Interval:     100,
		Capabilities: CapESS | CapShortSlotTime,
		Elements:     elems,
	}
	raw, err := b.Encode()
	require.NoError(t, err)
	require.Len(t, raw, 12+elems.Size())
	assert.Equal(t, byte(0x08), raw[0])
	assert.Equal(t, byte(100), raw[8])

	got, err := ParseBeaconBody(raw)
	require.NoError(t, err)
	assert.Equal(t, b.Timestamp, got.Timestamp)
	assert.Equal(t, b.Interval, got.Interval)
	assert.True(t, got.Capabilities.Has(CapShortSlotTime))
	ssid, _ := SSIDOf(got.Elements)
	assert.Equal(t, "apmac", ssid)

	_, err = ParseBeaconBody(raw[:11])
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestAssocRequest_RoundTrip(t *testing.T) {
	var elems ElementList
	elems.AddSSID("apmac")
	req := AssocRequest{Capabilities: CapESS | CapShortPreamble, ListenInterval: 10, Elements: elems}

	raw, err := req.Encode()
	require.NoError(t, err)
	got, err := ParseAssocRequest(raw, false)
	require.NoError(t, err)
	assert.Equal(t, req.Capabilities, got.Capabilities)
	assert.Equal(t, uint16(10), got.ListenInterval)
	assert.Len(t, got.Elements, 1)

	req.Reassoc = true
	req.CurrentAP = apX
	raw, err = req.Encode()
	require.NoError(t, err)
	got, err = ParseAssocRequest(raw, true)
	require.NoError(t, err)
	assert.Equal(t, apX, got.CurrentAP)
	assert.Len(t, got.Elements, 1)
}

func TestAssocResponse_AIDBits(t *testing.T) {
	resp := AssocResponse{Capabilities: CapESS, Status: layers.Dot11StatusSuccess, AID: 1}
	raw, err := resp.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0xc0}, raw[4:6])

	got, err := ParseAssocResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), got.AID)

	resp = AssocResponse{Status: layers.Dot11StatusFailure}
	raw, err = resp.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, raw[4:6])
}

func TestDisassociation_RoundTrip(t *testing.T) {
	raw, err := Disassociation{Reason: layers.Dot11ReasonDisasStLeaving}.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 0}, raw)

	got, err := ParseDisassociation(raw)
	require.NoError(t, err)
	assert.Equal(t, layers.Dot11ReasonDisasStLeaving, got.Reason)

	_, err = ParseDisassociation(raw[:1])
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestAuthentication_RoundTrip(t *testing.T) {
	a := Authentication{Algorithm: layers.Dot11AlgorithmOpen, Sequence: 2, Status: layers.Dot11StatusSuccess}
	raw, err := a.Encode()
	require.NoError(t, err)
	got, err := ParseAuthentication(raw)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestCapabilityInfo_Set(t *testing.T) {
	var c CapabilityInfo
	c.Set(CapShortSlotTime, true)
	assert.True(t, c.Has(CapShortSlotTime))
	c.Set(CapShortSlotTime, false)
	assert.False(t, c.Has(CapShortSlotTime))
}
