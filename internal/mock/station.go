package mock

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/dot11"
)

const (
	// responseDelay separates a received frame from the station's answer.
	responseDelay = 50 * time.Microsecond
	// stepTimeout bounds each step of the join sequence.
	stepTimeout    = 200 * time.Millisecond
	listenInterval = 10
)

type stationState int

const (
	stateIdle stationState = iota
	stateScanning
	stateAuthenticating
	stateAssociating
	stateAssociated
)

func (s stationState) String() string {
	switch s {
	case stateScanning:
		return "scanning"
	case stateAuthenticating:
		return "authenticating"
	case stateAssociating:
		return "associating"
	case stateAssociated:
		return "associated"
	default:
		return "idle"
	}
}

// Behavior tunes a scripted station.
type Behavior struct {
	// JoinDelay is the upper bound of the random delay before the first probe.
	JoinDelay time.Duration
	// DataInterval is the mean gap between uplink data frames. Zero means no
	// traffic.
	DataInterval time.Duration
	// Lifetime is how long the station stays associated. Zero means forever.
	Lifetime time.Duration
	// Rejoin is the pause after leaving or being refused.
	Rejoin time.Duration
	// BlockAck makes QoS stations request an agreement for TID 0.
	BlockAck bool
}

// StationStats counts what a station did.
type StationStats struct {
	Associations int
	Rejections   int
	Timeouts     int
	DataSent     int
	DataReceived int
	Agreements   int
}

// Station is a scripted client. It runs on the scheduler goroutine: every
// method is called either from a scheduled event or from the medium
// listener, which the transmitter drives from the same goroutine.
type Station struct {
	MockStation

	bssid    domain.MAC
	ssid     string
	peers    func() []domain.MAC
	sched    ports.Scheduler
	send     func(raw []byte)
	rng      *rand.Rand
	behavior Behavior

	state   stationState
	aid     uint16
	qos     bool
	joined  bool
	seq     uint16
	dialog  uint8
	stats   StationStats
	timer   ports.EventID
	traffic ports.EventID
}

func newStation(ms MockStation, bssid domain.MAC, ssid string, sched ports.Scheduler, rng *rand.Rand, b Behavior, send func([]byte), peers func() []domain.MAC) *Station {
	return &Station{
		MockStation: ms,
		bssid:       bssid,
		ssid:        ssid,
		peers:       peers,
		sched:       sched,
		send:        send,
		rng:         rng,
		behavior:    b,
	}
}

// State returns the join state as text.
func (s *Station) State() string { return s.state.String() }

// AID returns the association identifier, zero when not associated.
func (s *Station) AID() uint16 { return s.aid }

// Stats returns the station counters.
func (s *Station) Stats() StationStats { return s.stats }

func (s *Station) start() {
	delay := time.Duration(0)
	if s.behavior.JoinDelay > 0 {
		delay = time.Duration(s.rng.Int64N(int64(s.behavior.JoinDelay)))
	}
	s.timer = s.sched.Schedule(delay, s.scan)
}

func (s *Station) stop() {
	s.sched.Cancel(s.timer)
	s.sched.Cancel(s.traffic)
	s.state = stateIdle
}

func (s *Station) transmit(hdr dot11.MacHeader, body []byte) {
	s.seq = (s.seq + 1) & 0x0fff
	hdr.Seq = dot11.SeqControl{Number: s.seq}
	raw, err := dot11.Frame{Header: hdr, Body: body}.Bytes()
	if err != nil {
		slog.Error("Mock station failed to build frame", "station", s.MAC, "kind", dot11.KindName(hdr.Kind), "error", err)
		return
	}
	s.sched.Schedule(responseDelay, func() { s.send(raw) })
}

func (s *Station) mgmt(kind layers.Dot11Type, to domain.MAC) dot11.MacHeader {
	return dot11.MacHeader{Kind: kind, Addr1: to, Addr2: s.MAC, Addr3: s.bssid}
}

// arm replaces the pending step timer.
func (s *Station) arm(d time.Duration, fn func()) {
	s.sched.Cancel(s.timer)
	s.timer = s.sched.Schedule(d, fn)
}

func (s *Station) scan() {
	s.state = stateScanning
	var l dot11.ElementList
	l.AddSSID(s.ssid)
	body, err := dot11.ProbeRequest{Elements: l}.Encode()
	if err != nil {
		slog.Error("Mock station failed to encode probe", "station", s.MAC, "error", err)
		return
	}
	hdr := s.mgmt(dot11.KindProbeRequest, domain.BroadcastMAC)
	hdr.Addr3 = domain.BroadcastMAC
	s.transmit(hdr, body)
	s.arm(stepTimeout, s.stepTimedOut)
}

func (s *Station) stepTimedOut() {
	s.stats.Timeouts++
	slog.Debug("Mock station step timed out", "station", s.MAC, "state", s.state)
	s.state = stateIdle
	s.arm(s.backoff(), s.scan)
}

func (s *Station) backoff() time.Duration {
	if s.behavior.Rejoin > 0 {
		return s.behavior.Rejoin
	}
	return time.Second
}

func (s *Station) authenticate() {
	s.state = stateAuthenticating
	body, err := dot11.Authentication{Algorithm: layers.Dot11AlgorithmOpen, Sequence: 1}.Encode()
	if err != nil {
		slog.Error("Mock station failed to encode authentication", "station", s.MAC, "error", err)
		return
	}
	s.transmit(s.mgmt(dot11.KindAuthentication, s.bssid), body)
	s.arm(stepTimeout, s.stepTimedOut)
}

func (s *Station) associate() {
	s.state = stateAssociating
	kind := dot11.KindAssocRequest
	if s.joined {
		kind = dot11.KindReassocRequest
	}
	body, err := dot11.AssocRequest{
		Reassoc:        s.joined,
		Capabilities:   s.Capabilities(),
		ListenInterval: listenInterval,
		CurrentAP:      s.bssid,
		Elements:       s.AssocElements(s.ssid),
	}.Encode()
	if err != nil {
		slog.Error("Mock station failed to encode association request", "station", s.MAC, "error", err)
		return
	}
	s.transmit(s.mgmt(kind, s.bssid), body)
	s.arm(stepTimeout, s.stepTimedOut)
}

// handle processes a frame the AP put on the medium.
func (s *Station) handle(f dot11.Frame) {
	switch f.Header.Kind {
	case dot11.KindBeacon, dot11.KindProbeResponse:
		if s.state != stateScanning || f.Header.Addr2 != s.bssid {
			return
		}
		b, err := dot11.ParseBeaconBody(f.Body)
		if err != nil {
			return
		}
		if ssid, _ := dot11.SSIDOf(b.Elements); ssid != s.ssid {
			return
		}
		s.authenticate()
	case dot11.KindAuthentication:
		if s.state != stateAuthenticating {
			return
		}
		resp, err := dot11.ParseAuthentication(f.Body)
		if err != nil || resp.Sequence != 2 {
			return
		}
		if resp.Status != layers.Dot11StatusSuccess {
			s.refused(resp.Status)
			return
		}
		s.associate()
	case dot11.KindAssocResponse, dot11.KindReassocResponse:
		if s.state != stateAssociating {
			return
		}
		resp, err := dot11.ParseAssocResponse(f.Body)
		if err != nil {
			return
		}
		if resp.Status != layers.Dot11StatusSuccess {
			s.refused(resp.Status)
			return
		}
		_, edca := resp.Elements.Find(dot11.ElemEDCAParamSet)
		s.associated(resp.AID, edca && s.HasQoS())
	case dot11.KindDisassociation, dot11.KindDeauthentication:
		if s.state == stateIdle {
			return
		}
		slog.Debug("Mock station dropped by AP", "station", s.MAC)
		s.reset()
		s.arm(s.backoff(), s.scan)
	case dot11.KindAction:
		if resp, err := dot11.ParseAddBAResponse(f.Body); err == nil && resp.Status == layers.Dot11StatusSuccess {
			s.stats.Agreements++
		}
	default:
		if f.Header.Kind.MainType() == layers.Dot11TypeData && f.Header.Flags.FromDS() {
			s.stats.DataReceived++
		}
	}
}

func (s *Station) refused(status layers.Dot11Status) {
	s.stats.Rejections++
	slog.Info("Mock station refused", "station", s.MAC, "profile", s.Profile, "status", status)
	s.state = stateIdle
	s.arm(10*s.backoff(), s.scan)
}

func (s *Station) associated(aid uint16, qos bool) {
	s.sched.Cancel(s.timer)
	s.state = stateAssociated
	s.aid = aid
	s.qos = qos
	s.joined = true
	s.stats.Associations++
	slog.Info("Mock station associated", "station", s.MAC, "device", s.DeviceName, "aid", aid, "qos", qos)

	if qos && s.behavior.BlockAck {
		s.requestBlockAck(0)
	}
	if s.behavior.DataInterval > 0 {
		s.traffic = s.sched.Schedule(s.nextGap(), s.sendData)
	}
	if s.behavior.Lifetime > 0 {
		s.timer = s.sched.Schedule(s.behavior.Lifetime, s.leave)
	}
}

func (s *Station) reset() {
	s.sched.Cancel(s.traffic)
	s.state = stateIdle
	s.aid = 0
	s.qos = false
}

func (s *Station) requestBlockAck(tid uint8) {
	s.dialog++
	body := dot11.AddBARequest{
		DialogToken: s.dialog,
		Params:      dot11.BlockAckParams{Immediate: true, TID: tid, BufferSize: 64},
		Timeout:     0,
	}.Encode()
	s.transmit(s.mgmt(dot11.KindAction, s.bssid), body)
}

func (s *Station) leave() {
	if s.state != stateAssociated {
		return
	}
	body, err := dot11.Disassociation{Reason: layers.Dot11ReasonDisasStLeaving}.Encode()
	if err != nil {
		slog.Error("Mock station failed to encode disassociation", "station", s.MAC, "error", err)
		return
	}
	s.transmit(s.mgmt(dot11.KindDisassociation, s.bssid), body)
	slog.Info("Mock station leaving", "station", s.MAC)
	s.reset()
	s.arm(s.backoff(), s.scan)
}

// nextGap draws an exponential inter-frame gap around DataInterval.
func (s *Station) nextGap() time.Duration {
	return time.Duration(s.rng.ExpFloat64() * float64(s.behavior.DataInterval))
}

// sendData sends one uplink frame, either to a peer station or to the
// distribution system.
func (s *Station) sendData() {
	if s.state != stateAssociated {
		return
	}
	dest := gatewayMAC
	if peers := s.peers(); len(peers) > 0 && s.rng.IntN(4) == 0 {
		if p := peers[s.rng.IntN(len(peers))]; p != s.MAC {
			dest = p
		}
	}
	hdr := dot11.MacHeader{
		Kind:  dot11.KindData,
		Flags: layers.Dot11FlagsToDS,
		Addr1: s.bssid,
		Addr2: s.MAC,
		Addr3: dest,
	}
	if s.qos {
		hdr.Kind = dot11.KindQoSData
		hdr.QoS = &dot11.QoSControl{TID: trafficTIDs[s.rng.IntN(len(trafficTIDs))]}
	}
	payload := make([]byte, 64+s.rng.IntN(1400))
	for i := range payload {
		payload[i] = byte(s.rng.IntN(256))
	}
	s.transmit(hdr, payload)
	s.stats.DataSent++
	s.traffic = s.sched.Schedule(s.nextGap(), s.sendData)
}

// gatewayMAC stands in for the router behind the distribution system.
var gatewayMAC = domain.MAC{0x02, 0x00, 0x5e, 0x00, 0x00, 0x01}

// trafficTIDs weighs best effort over video and voice.
var trafficTIDs = []uint8{0, 0, 0, 0, 3, 5, 6}
