package dot11

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUser(t TriggerType, aid uint16) UserInfo {
	u := UserInfo{AID: aid, RUIndex: 61, Coding: 1, MCS: 7, DCM: true, SSAllocation: 9}
	switch t {
	case TriggerBasic:
		u.SpacingFactor, u.TIDAggLimit, u.ACPreferenceLevel, u.PreferredAC = 2, 5, true, 3
	case TriggerMUBAR:
		u.BARAckPolicy, u.BARMultiTID, u.BARCompressed, u.BARTIDInfo = true, false, true, 6
	}
	return u
}

func TestTriggerFrame_RoundTrip_AllTypes(t *testing.T) {
	types := []TriggerType{
		TriggerBasic, TriggerBeamformingReportPoll, TriggerMUBAR, TriggerMURTS,
		TriggerBSRP, TriggerGCRMUBAR, TriggerBQRP,
	}
	for _, tt := range types {
		t.Run(tt.String(), func(t *testing.T) {
			f := NewTriggerFrame(tt, MacHeader{Addr1: staA, Addr2: apX, DurationID: 44})
			f.Length = 0x5a5
			f.Bandwidth = 2
			// inserted out of order, serialized ascending
			for _, aid := range []uint16{7, 1, 2007} {
				f.AddUser(sampleUser(tt, aid))
			}

			raw, err := EncodeTrigger(f)
			require.NoError(t, err)
			assert.Equal(t, f.Size(), len(raw))

			got, n, err := DecodeTrigger(raw)
			require.NoError(t, err)
			assert.Equal(t, len(raw), n)
			assert.Equal(t, tt, got.Type)
			assert.Equal(t, uint16(0x5a5), got.Length)
			assert.Equal(t, uint8(2), got.Bandwidth)
			if diff := cmp.Diff(f.Users, got.Users); diff != "" {
				t.Errorf("users (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTriggerFrame_UserOrder(t *testing.T) {
	f := NewTriggerFrame(TriggerBSRP, MacHeader{Addr1: staA, Addr2: apX})
	f.AddUser(UserInfo{AID: 300})
	f.AddUser(UserInfo{AID: 5})

	raw, err := EncodeTrigger(f)
	require.NoError(t, err)

	first := raw[16+9:]
	assert.Equal(t, byte(5), first[0])
	assert.Equal(t, byte(300&0xff), first[5])
}

func TestTriggerFrame_MUBARCompressedBit(t *testing.T) {
	f := NewTriggerFrame(TriggerMUBAR, MacHeader{Addr1: staA, Addr2: apX})
	f.AddUser(UserInfo{AID: 1, BARCompressed: true})

	raw, err := EncodeTrigger(f)
	require.NoError(t, err)
	assert.Equal(t, byte(0x04), raw[16+9+5])
}

func TestTriggerFrame_MURTSKeepsMCS(t *testing.T) {
	f := NewTriggerFrame(TriggerMURTS, MacHeader{Addr1: staA, Addr2: apX})
	f.AddUser(UserInfo{AID: 3, MCS: 9, SSAllocation: 2})

	raw, err := EncodeTrigger(f)
	require.NoError(t, err)
	got, _, err := DecodeTrigger(raw)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), got.Users[3].MCS)
	assert.Equal(t, uint8(2), got.Users[3].SSAllocation)
}

func TestDecodeTrigger_Errors(t *testing.T) {
	f := NewTriggerFrame(TriggerBasic, MacHeader{Addr1: staA, Addr2: apX})
	f.AddUser(UserInfo{AID: 1})
	f.AddUser(UserInfo{AID: 2})
	raw, err := EncodeTrigger(f)
	require.NoError(t, err)

	_, _, err = DecodeTrigger(raw[:len(raw)-1])
	assert.ErrorIs(t, err, ErrMalformedFrame)

	dup := append([]byte(nil), raw...)
	dup[16+9+6] = 1
	_, _, err = DecodeTrigger(dup)
	assert.ErrorIs(t, err, ErrMalformedFrame)

	beacon, err := Encode(headerFor(KindBeacon, 0))
	require.NoError(t, err)
	_, _, err = DecodeTrigger(beacon)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestTriggerFrame_ReservedType(t *testing.T) {
	f := NewTriggerFrame(TriggerMURTS, MacHeader{Addr1: staA, Addr2: apX})
	f.AddUser(UserInfo{AID: 1})
	raw, err := EncodeTrigger(f)
	require.NoError(t, err)

	for _, typ := range []byte{7, 9, 15} {
		bad := append([]byte(nil), raw...)
		bad[16] = bad[16]&0xf0 | typ
		_, _, err = DecodeTrigger(bad)
		assert.ErrorIs(t, err, ErrMalformedFrame, "type %d", typ)
	}

	f.Type = TriggerType(8)
	_, err = EncodeTrigger(f)
	assert.ErrorIs(t, err, ErrMalformedFrame)
	assert.False(t, TriggerType(7).Known())
	assert.True(t, TriggerBQRP.Known())
}

func TestTriggerFrame_MismatchedKey(t *testing.T) {
	f := NewTriggerFrame(TriggerBasic, MacHeader{Addr1: staA, Addr2: apX})
	f.Users[4] = UserInfo{AID: 5}
	_, err := EncodeTrigger(f)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}
