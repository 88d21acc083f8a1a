package apmac

import (
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/services/queue"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beaconsOn(c *Config) { c.BeaconGeneration = true }

func parseBeacon(t *testing.T, f dot11.Frame) dot11.BeaconBody {
	t.Helper()
	b, err := dot11.ParseBeaconBody(f.Body)
	require.NoError(t, err)
	return b
}

func TestApMac_Beacon_Schedule(t *testing.T) {
	f := newFixture(t, "g", queue.ModeShared, beaconsOn)
	f.ap.Start()

	f.sim.RunUntil(0)
	require.Equal(t, 1, f.beacons().Len())
	assert.Equal(t, time.Duration(0), f.beacons().at[0])

	f.sim.RunUntil(DefaultBeaconInterval - time.Microsecond)
	assert.Equal(t, 1, f.beacons().Len())

	f.sim.RunUntil(DefaultBeaconInterval)
	require.Equal(t, 2, f.beacons().Len())
	assert.Equal(t, DefaultBeaconInterval, f.beacons().at[1])

	fr := f.beacons().frames[1]
	assert.Equal(t, dot11.KindBeacon, fr.Header.Kind)
	assert.True(t, fr.Header.Addr1.IsBroadcast())
	assert.Equal(t, apAddr, fr.Header.Addr2)
	assert.Equal(t, apAddr, fr.Header.Addr3)

	b := parseBeacon(t, fr)
	assert.Equal(t, uint16(100), b.Interval)
	assert.Equal(t, uint64(DefaultBeaconInterval.Microseconds()), b.Timestamp)
	assert.True(t, b.Capabilities.Has(dot11.CapESS))
	ssid, ok := dot11.SSIDOf(b.Elements)
	require.True(t, ok)
	assert.Equal(t, "apmac", ssid)

	_, ok = b.Elements.Find(dot11.ElemDSSet)
	assert.True(t, ok, "DSSS parameter set")
	_, ok = b.Elements.Find(dot11.ElemERPInfo)
	assert.True(t, ok, "ERP information")
	_, ok = b.Elements.Find(dot11.ElemEDCAParamSet)
	assert.False(t, ok, "no EDCA without QoS")
	_, ok = b.Elements.Find(dot11.ElemHTCapabilities)
	assert.False(t, ok)

	rates, err := dot11.ParseRateSet(b.Elements)
	require.NoError(t, err)
	for _, r := range gRates {
		assert.True(t, rates.IsSupportedRate(r), "rate %d", r)
	}
	assert.True(t, rates.IsBasicRate(1*mbps))
	assert.True(t, rates.IsBasicRate(6*mbps))
	assert.False(t, rates.IsBasicRate(11*mbps), "HR-DSSS is never basic")
}

func TestApMac_Beacon_Disabled(t *testing.T) {
	f := newFixture(t, "g", queue.ModeShared, nil)
	f.ap.Start()
	f.sim.RunUntil(time.Second)

	assert.Zero(t, f.beacons().Len())
	assert.False(t, f.ap.BeaconGeneration())
}

func TestApMac_Beacon_Jitter(t *testing.T) {
	f := newFixture(t, "g", queue.ModeShared, func(c *Config) {
		c.BeaconGeneration = true
		c.BeaconJitter = true
	})
	f.ap.Start()
	f.sim.RunUntil(2*DefaultBeaconInterval - time.Microsecond)

	q := f.beacons()
	require.Equal(t, 2, q.Len())
	assert.Less(t, q.at[0], DefaultBeaconInterval)
	assert.Equal(t, DefaultBeaconInterval, q.at[1]-q.at[0])
}

func TestApMac_SetBeaconGeneration(t *testing.T) {
	f := newFixture(t, "g", queue.ModeShared, beaconsOn)
	f.ap.Start()
	f.sim.RunUntil(0)
	require.Equal(t, 1, f.beacons().Len())

	f.ap.SetBeaconGeneration(false)
	assert.False(t, f.ap.BeaconGeneration())
	assert.Zero(t, f.sim.Pending())
	f.sim.RunUntil(time.Second)
	assert.Equal(t, 1, f.beacons().Len())

	f.ap.SetBeaconGeneration(true)
	f.ap.SetBeaconGeneration(true)
	f.sim.RunUntil(time.Second)
	require.Equal(t, 2, f.beacons().Len())
	assert.Equal(t, time.Second, f.beacons().at[1])
	assert.Equal(t, 1, f.sim.Pending(), "only one beacon chain")
}

func TestApMac_SetBeaconInterval(t *testing.T) {
	f := newFixture(t, "g", queue.ModeShared, beaconsOn)
	f.ap.Start()
	f.sim.RunUntil(0)

	f.ap.SetBeaconInterval(200 * TimeUnit)
	f.sim.RunUntil(DefaultBeaconInterval)
	require.Equal(t, 2, f.beacons().Len(), "change applies after the pending beacon")

	f.sim.RunUntil(DefaultBeaconInterval + 200*TimeUnit)
	require.Equal(t, 3, f.beacons().Len())
	assert.Equal(t, uint16(200), parseBeacon(t, f.beacons().frames[2]).Interval)
}

func TestApMac_Dispose(t *testing.T) {
	f := newFixture(t, "g", queue.ModeShared, beaconsOn)
	f.ap.Start()
	require.Equal(t, 1, f.sim.Pending())

	f.ap.Dispose()
	assert.Zero(t, f.sim.Pending())

	f.ap.SetBeaconGeneration(true)
	f.sim.Run()
	assert.Zero(t, f.beacons().Len())
}

func TestApMac_Beacon_SlotTime(t *testing.T) {
	f := newFixture(t, "g", queue.ModeShared, beaconsOn)
	f.ap.Start()
	f.sim.RunUntil(0)
	assert.Equal(t, ShortSlot, f.radio.slot)
	assert.True(t, parseBeacon(t, f.beacons().frames[0]).Capabilities.Has(dot11.CapShortSlotTime))

	// An ERP station without short slot support.
	f.associate(t, sta1, rateElements(gRates), assocOpts{})
	assert.Equal(t, ShortSlot, f.radio.slot, "slot changes on the next beacon")

	f.sim.RunUntil(DefaultBeaconInterval)
	assert.Equal(t, LongSlot, f.radio.slot)
	assert.False(t, parseBeacon(t, f.beacons().frames[1]).Capabilities.Has(dot11.CapShortSlotTime))

	f.disassociate(t, sta1)
	f.sim.RunUntil(2 * DefaultBeaconInterval)
	assert.Equal(t, ShortSlot, f.radio.slot)
	assert.Equal(t, []time.Duration{ShortSlot, LongSlot, ShortSlot}, f.radio.slots)
}

func TestApMac_Beacon_ShortSlotStation(t *testing.T) {
	f := newFixture(t, "g", queue.ModeShared, beaconsOn)
	f.ap.Start()
	f.associate(t, sta1, rateElements(gRates), assocOpts{caps: dot11.CapShortSlotTime})
	f.sim.RunUntil(DefaultBeaconInterval)

	assert.Equal(t, ShortSlot, f.radio.slot)
}

func TestApMac_Beacon_NoSlotWithoutErp(t *testing.T) {
	f := newFixture(t, "a", queue.ModeShared, beaconsOn)
	f.ap.Start()
	f.sim.RunUntil(DefaultBeaconInterval)

	require.Equal(t, 2, f.beacons().Len())
	assert.Empty(t, f.radio.slots)
	b := parseBeacon(t, f.beacons().frames[0])
	_, ok := b.Elements.Find(dot11.ElemDSSet)
	assert.False(t, ok)
	_, ok = b.Elements.Find(dot11.ElemERPInfo)
	assert.False(t, ok)
}

func TestApMac_Beacon_HighThroughputElements(t *testing.T) {
	f := newFixture(t, "ax", queue.ModePerStation, func(c *Config) {
		c.BeaconGeneration = true
		c.BSSColor = 42
	})
	f.ap.Start()
	f.sim.RunUntil(0)

	b := parseBeacon(t, f.beacons().frames[0])
	rates, err := dot11.ParseRateSet(b.Elements)
	require.NoError(t, err)
	assert.True(t, rates.HasSelector(dot11.BSSMembershipHT))
	assert.True(t, rates.HasSelector(dot11.BSSMembershipVHT))

	for _, id := range []layers.Dot11InformationElementID{dot11.ElemEDCAParamSet, dot11.ElemHTCapabilities, dot11.ElemHTOperation, dot11.ElemVHTCapabilities, dot11.ElemVHTOperation} {
		_, ok := b.Elements.Find(id)
		assert.True(t, ok, "element %d", id)
	}
	he, ok, err := b.Elements.HEOperation()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(42), he.BSSColor)

	info, _ := b.Elements.Find(dot11.ElemHTOperation)
	op, err := dot11.ParseHTOperation(info)
	require.NoError(t, err)
	assert.Equal(t, dot11.HTNoProtection, op.Protection)
	assert.Equal(t, uint8(0x01), op.BasicMCS[0])
}

func TestApMac_Beacon_BSSColorLowBits(t *testing.T) {
	f := newFixture(t, "ax", queue.ModePerStation, func(c *Config) {
		c.BeaconGeneration = true
	})
	f.ap.SetBSSColor(200)
	assert.Equal(t, uint8(200), f.ap.Config().BSSColor)
	f.ap.Start()
	f.sim.RunUntil(0)

	b := parseBeacon(t, f.beacons().frames[0])
	he, ok, err := b.Elements.HEOperation()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(200&0x3f), he.BSSColor)
}

func TestApMac_ProbeRequest(t *testing.T) {
	probe := func(ssid string) []byte {
		var l dot11.ElementList
		l.AddSSID(ssid)
		body, err := dot11.ProbeRequest{Elements: l}.Encode()
		require.NoError(t, err)
		return body
	}
	tests := []struct {
		name     string
		addr1    domain.MAC
		ssid     string
		answered bool
	}{
		{"wildcard broadcast", domain.BroadcastMAC, "", true},
		{"own ssid", domain.BroadcastMAC, "apmac", true},
		{"directed", apAddr, "apmac", true},
		{"other ssid", domain.BroadcastMAC, "elsewhere", false},
		{"other bss", sta2, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "g", queue.ModeShared, nil)
			hdr := mgmtTo(dot11.KindProbeRequest, sta1, tt.addr1)
			f.receive(t, hdr, probe(tt.ssid))

			if !tt.answered {
				assert.Zero(t, f.mgmt().Len())
				return
			}
			require.Equal(t, 1, f.mgmt().Len())
			fr := f.mgmt().last()
			assert.Equal(t, dot11.KindProbeResponse, fr.Header.Kind)
			assert.Equal(t, sta1, fr.Header.Addr1)
			b := parseBeacon(t, fr)
			ssid, _ := dot11.SSIDOf(b.Elements)
			assert.Equal(t, "apmac", ssid)
		})
	}
}
