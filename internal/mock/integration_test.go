package mock

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/lcalzada-xor/apmac/internal/adapters/medium"
	"github.com/lcalzada-xor/apmac/internal/adapters/phy"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/core/services/apmac"
	"github.com/lcalzada-xor/apmac/internal/core/services/queue"
	"github.com/lcalzada-xor/apmac/internal/core/services/registry"
	"github.com/lcalzada-xor/apmac/internal/core/services/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bssid = domain.MustParseMAC("02:00:00:00:00:01")

type testBSS struct {
	sim *scheduler.Simulator
	inj *medium.MockInjector
	reg *registry.StationRegistry
	ap  *apmac.ApMac
}

func newTestBSS(t *testing.T, standard string, channel uint8) *testBSS {
	t.Helper()
	rates, err := phy.ForStandard(standard, channel)
	require.NoError(t, err)

	sim := scheduler.NewSimulator()
	inj := medium.NewMockInjector()
	stations := medium.NewRemoteStationManager()
	tx := medium.NewTransmitter("mock0", inj, stations, rates.BasicMode(), rates.Channel())
	med := medium.NewMedium(sim, tx, bssid)
	router := queue.NewRouter(queue.ModeShared, nil, func(name string, aifsn uint8) ports.TxQueue {
		return med.NewQueue(name, aifsn)
	})
	reg := registry.NewStationRegistry()
	ap, err := apmac.New(apmac.Config{
		Address:          bssid,
		SSID:             "lab",
		BeaconGeneration: true,
		ShortSlotTime:    true,
		NonErpProtection: true,
	}, apmac.Deps{
		Scheduler: sim,
		Rates:     rates,
		Radio:     tx,
		Stations:  stations,
		Reorder:   medium.NewReorderTable(),
		Router:    router,
		Registry:  reg,
		Rand:      rand.New(rand.NewPCG(3, 4)),
	})
	require.NoError(t, err)
	med.OnTxOutcome(ap.OnTxOutcome)
	ap.Start()
	return &testBSS{sim: sim, inj: inj, reg: reg, ap: ap}
}

func TestNewMockIntegration(t *testing.T) {
	b := newTestBSS(t, "n", 6)

	_, err := NewMockIntegration(IntegrationConfig{Scenario: "nope", Scheduler: b.sim, Injector: b.inj, AP: b.ap})
	assert.Error(t, err)

	_, err = NewMockIntegration(IntegrationConfig{Scenario: "basic"})
	assert.Error(t, err)

	m, err := NewMockIntegration(IntegrationConfig{Scheduler: b.sim, Injector: b.inj, AP: b.ap, SSID: "lab", BSSID: bssid})
	require.NoError(t, err)
	assert.Equal(t, "basic", m.Scenario().Name)
	assert.Len(t, m.Stations(), 5)
}

func TestMockIntegration_StationsAssociate(t *testing.T) {
	b := newTestBSS(t, "n", 6)
	var apErrs []error
	m, err := NewMockIntegration(IntegrationConfig{
		Scenario:  "basic",
		BSSID:     bssid,
		SSID:      "lab",
		Scheduler: b.sim,
		Injector:  b.inj,
		AP:        b.ap,
		Rand:      rand.New(rand.NewPCG(7, 8)),
		OnError:   func(err error) { apErrs = append(apErrs, err) },
	})
	require.NoError(t, err)

	m.Start(context.Background())
	b.sim.RunUntil(5 * time.Second)

	assert.Empty(t, apErrs)
	assert.Equal(t, 5, b.reg.Count())
	for _, st := range m.Stations() {
		assert.Equal(t, "associated", st.State(), st.MAC.String())
		assert.True(t, b.reg.IsAssociated(st.MAC))
		assert.Equal(t, b.reg.GetAid(st.MAC), st.AID())
		assert.Positive(t, st.Stats().DataSent)
		if st.HasQoS() {
			assert.Equal(t, 1, st.Stats().Agreements, st.MAC.String())
		}
	}
	assert.True(t, b.reg.HasNonHT(), "the g stations are not HT capable")

	m.Stop()
	b.ap.Dispose()
}

func TestMockIntegration_LeaveAndRejoin(t *testing.T) {
	b := newTestBSS(t, "n", 6)
	m, err := NewMockIntegration(IntegrationConfig{
		Scenario:  "mixed",
		BSSID:     bssid,
		SSID:      "lab",
		Scheduler: b.sim,
		Injector:  b.inj,
		AP:        b.ap,
		Rand:      rand.New(rand.NewPCG(9, 10)),
	})
	require.NoError(t, err)
	m.Start(context.Background())

	// Everyone joins within the join window and leaves after the lifetime.
	b.sim.RunUntil(45 * time.Second)
	m.Stop()

	for _, st := range m.Stations() {
		stats := st.Stats()
		assert.GreaterOrEqual(t, stats.Associations, 2, "%s (%s) should have rejoined", st.MAC, st.Profile)
		assert.Zero(t, stats.Rejections)
	}
}

func TestMockIntegration_LegacyStationRefused(t *testing.T) {
	// A 5 GHz AP only offers OFDM, so 802.11b devices cannot join.
	b := newTestBSS(t, "ac", 36)
	m, err := NewMockIntegration(IntegrationConfig{
		Scenario:  "mixed",
		BSSID:     bssid,
		SSID:      "lab",
		Scheduler: b.sim,
		Injector:  b.inj,
		AP:        b.ap,
		Rand:      rand.New(rand.NewPCG(11, 12)),
	})
	require.NoError(t, err)
	m.Start(context.Background())
	b.sim.RunUntil(6 * time.Second)
	m.Stop()

	for _, st := range m.Stations() {
		if st.Profile == ProfileB {
			assert.Positive(t, st.Stats().Rejections)
			assert.False(t, b.reg.IsAssociated(st.MAC))
		}
	}
}

func TestDataGenerator_GenerateStation(t *testing.T) {
	g := NewDataGenerator(rand.New(rand.NewPCG(1, 1)))
	seen := make(map[domain.MAC]bool)
	for _, p := range profileOrder {
		st, err := g.GenerateStation(p)
		require.NoError(t, err)
		assert.Equal(t, p, st.Profile)
		assert.NotEmpty(t, st.DeviceName)
		prefix := vendorPrefixes[st.Vendor]
		assert.Equal(t, prefix[:], st.MAC[:3])
		assert.False(t, seen[st.MAC])
		seen[st.MAC] = true
	}
	_, err := g.GenerateStation("z")
	assert.Error(t, err)
}
