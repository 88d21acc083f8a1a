package apmac

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/adapters/medium"
	"github.com/lcalzada-xor/apmac/internal/adapters/phy"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/core/services/queue"
	"github.com/lcalzada-xor/apmac/internal/core/services/registry"
	"github.com/lcalzada-xor/apmac/internal/core/services/scheduler"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/stretchr/testify/require"
)

var (
	apAddr = domain.MustParseMAC("02:00:00:00:00:01")
	sta1   = domain.MustParseMAC("02:00:00:00:00:11")
	sta2   = domain.MustParseMAC("02:00:00:00:00:12")
	sta3   = domain.MustParseMAC("02:00:00:00:00:13")
)

const mbps = 1000000

var (
	dsssRates = []uint64{1 * mbps, 2 * mbps, 5500000, 11 * mbps}
	ofdmRates = []uint64{6 * mbps, 9 * mbps, 12 * mbps, 18 * mbps, 24 * mbps, 36 * mbps, 48 * mbps, 54 * mbps}
	gRates    = append(append([]uint64(nil), dsssRates...), ofdmRates...)
)

type recordingQueue struct {
	name   string
	sim    *scheduler.Simulator
	frames []dot11.Frame
	at     []time.Duration
	addBa  []dot11.AddBAResponse
	delBa  []uint8
}

func (q *recordingQueue) Enqueue(f dot11.Frame) {
	q.frames = append(q.frames, f)
	q.at = append(q.at, q.sim.Now())
}

func (q *recordingQueue) PushFront(f dot11.Frame) {
	q.frames = append([]dot11.Frame{f}, q.frames...)
	q.at = append([]time.Duration{q.sim.Now()}, q.at...)
}

func (q *recordingQueue) Len() int { return len(q.frames) }

func (q *recordingQueue) Flush() { q.frames, q.at = nil, nil }

func (q *recordingQueue) GotAddBaResponse(_ domain.MAC, resp dot11.AddBAResponse) {
	q.addBa = append(q.addBa, resp)
}

func (q *recordingQueue) GotDelBa(_ domain.MAC, tid uint8) { q.delBa = append(q.delBa, tid) }

func (q *recordingQueue) last() dot11.Frame { return q.frames[len(q.frames)-1] }

type fakeRadio struct {
	slot  time.Duration
	slots []time.Duration
}

func (r *fakeRadio) Transmit(dot11.Frame) (time.Duration, error) { return 0, nil }
func (r *fakeRadio) SetSlot(d time.Duration)                     { r.slot = d; r.slots = append(r.slots, d) }
func (r *fakeRadio) Slot() time.Duration                         { return r.slot }

type delivery struct {
	packet   string
	from, to domain.MAC
}

type upperRecorder struct {
	got []delivery
}

func (u *upperRecorder) Deliver(p []byte, from, to domain.MAC) {
	u.got = append(u.got, delivery{string(p), from, to})
}

type fixture struct {
	sim      *scheduler.Simulator
	radio    *fakeRadio
	stations *medium.RemoteStationManager
	reorder  *medium.ReorderTable
	router   *queue.Router
	reg      *registry.StationRegistry
	upper    *upperRecorder
	queues   map[string]*recordingQueue
	ap       *ApMac
}

func newFixture(t *testing.T, standard string, mode queue.Mode, mutate func(*Config)) *fixture {
	t.Helper()
	rates, err := phy.ForStandard(standard, 0)
	require.NoError(t, err)

	f := &fixture{
		sim:      scheduler.NewSimulator(),
		radio:    &fakeRadio{slot: LongSlot},
		stations: medium.NewRemoteStationManager(),
		reorder:  medium.NewReorderTable(),
		reg:      registry.NewStationRegistry(),
		upper:    &upperRecorder{},
		queues:   make(map[string]*recordingQueue),
	}
	f.router = queue.NewRouter(mode, nil, func(name string, _ uint8) ports.TxQueue {
		q := &recordingQueue{name: name, sim: f.sim}
		f.queues[name] = q
		return q
	})

	cfg := Config{
		Address:          apAddr,
		SSID:             "apmac",
		BeaconInterval:   DefaultBeaconInterval,
		ShortSlotTime:    true,
		NonErpProtection: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.ap, err = New(cfg, Deps{
		Scheduler: f.sim,
		Rates:     rates,
		Radio:     f.radio,
		Stations:  f.stations,
		Reorder:   f.reorder,
		Router:    f.router,
		Registry:  f.reg,
		Upper:     f.upper,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) mgmt() *recordingQueue    { return f.queues["DCA"] }
func (f *fixture) beacons() *recordingQueue { return f.queues["Beacon"] }

func (f *fixture) receive(t *testing.T, hdr dot11.MacHeader, body []byte) {
	t.Helper()
	raw, err := dot11.Frame{Header: hdr, Body: body}.Bytes()
	require.NoError(t, err)
	require.NoError(t, f.ap.Receive(context.Background(), raw))
}

func mgmtTo(kind layers.Dot11Type, from, to domain.MAC) dot11.MacHeader {
	return dot11.MacHeader{Kind: kind, Addr1: to, Addr2: from, Addr3: to}
}

func rateElements(rates []uint64) dot11.ElementList {
	var rs dot11.RateSet
	for _, r := range rates {
		rs.AddSupportedRate(r)
	}
	var l dot11.ElementList
	l.AddSSID("apmac")
	rs.AppendTo(&l)
	return l
}

func withHT(l dot11.ElementList, mcs ...uint8) dot11.ElementList {
	c := dot11.HTCapabilities{Info: 0x0001}
	for _, m := range mcs {
		c.SetSupportedMCS(m)
	}
	l.AddHTCapabilities(c)
	return l
}

var htAll = []uint8{0, 1, 2, 3, 4, 5, 6, 7}

type assocOpts struct {
	reassoc bool
	caps    dot11.CapabilityInfo
}

func (f *fixture) sendAssocRequest(t *testing.T, sta domain.MAC, elems dot11.ElementList, o assocOpts) {
	t.Helper()
	kind := dot11.KindAssocRequest
	if o.reassoc {
		kind = dot11.KindReassocRequest
	}
	body, err := dot11.AssocRequest{
		Reassoc:        o.reassoc,
		Capabilities:   o.caps | dot11.CapESS,
		ListenInterval: 10,
		CurrentAP:      apAddr,
		Elements:       elems,
	}.Encode()
	require.NoError(t, err)
	f.receive(t, mgmtTo(kind, sta, apAddr), body)
}

// lastAssocResponse returns the most recent association response in the
// management queue.
func (f *fixture) lastAssocResponse(t *testing.T) (dot11.MacHeader, dot11.AssocResponse) {
	t.Helper()
	q := f.mgmt()
	require.NotEmpty(t, q.frames)
	fr := q.last()
	require.Contains(t, []layers.Dot11Type{dot11.KindAssocResponse, dot11.KindReassocResponse}, fr.Header.Kind)
	resp, err := dot11.ParseAssocResponse(fr.Body)
	require.NoError(t, err)
	return fr.Header, resp
}

// associate runs a full association and confirms the response.
func (f *fixture) associate(t *testing.T, sta domain.MAC, elems dot11.ElementList, o assocOpts) uint16 {
	t.Helper()
	f.sendAssocRequest(t, sta, elems, o)
	hdr, resp := f.lastAssocResponse(t)
	require.Equal(t, layers.Dot11StatusSuccess, resp.Status)
	f.ap.OnTxOutcome(hdr, true)
	require.True(t, f.reg.IsAssociated(sta))
	return resp.AID
}

func (f *fixture) disassociate(t *testing.T, sta domain.MAC) {
	t.Helper()
	body, err := dot11.Disassociation{Reason: layers.Dot11ReasonDisasStLeaving}.Encode()
	require.NoError(t, err)
	f.receive(t, mgmtTo(dot11.KindDisassociation, sta, apAddr), body)
}

func toDS(kind layers.Dot11Type, from, dest domain.MAC) dot11.MacHeader {
	h := dot11.MacHeader{
		Kind:  kind,
		Flags: layers.Dot11FlagsToDS,
		Addr1: apAddr,
		Addr2: from,
		Addr3: dest,
	}
	if dot11.IsQoSKind(kind) {
		h.QoS = &dot11.QoSControl{}
	}
	return h
}
