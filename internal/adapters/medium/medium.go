package medium

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

// Medium owns channel access for every transmit queue of one AP. Queues
// drain through the scheduler, one frame per access, and report each
// frame's outcome through the function set with OnTxOutcome.
type Medium struct {
	mu      sync.Mutex
	sched   ports.Scheduler
	radio   ports.Radio
	self    domain.MAC
	outcome ports.TxOutcomeFunc
	queues  []*Queue
}

// NewMedium binds a radio to a scheduler. self is the address used as the
// originator of outgoing Block-Ack agreements.
func NewMedium(sched ports.Scheduler, radio ports.Radio, self domain.MAC) *Medium {
	return &Medium{sched: sched, radio: radio, self: self}
}

// OnTxOutcome registers the transmit outcome callback.
func (m *Medium) OnTxOutcome(fn ports.TxOutcomeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcome = fn
}

func (m *Medium) report(hdr dot11.MacHeader, ok bool) {
	m.mu.Lock()
	fn := m.outcome
	m.mu.Unlock()
	if fn != nil {
		fn(hdr, ok)
	}
}

// NewQueue creates a queue contending with the given AIFSN.
func (m *Medium) NewQueue(name string, aifsn uint8) *Queue {
	q := &Queue{
		name:       name,
		aifsn:      aifsn,
		medium:     m,
		agreements: make(map[domain.AgreementKey]domain.BlockAckAgreement),
	}
	m.mu.Lock()
	m.queues = append(m.queues, q)
	m.mu.Unlock()
	return q
}

// Backlog is the number of frames waiting across all queues.
func (m *Medium) Backlog() int {
	m.mu.Lock()
	qs := append([]*Queue(nil), m.queues...)
	m.mu.Unlock()
	n := 0
	for _, q := range qs {
		n += q.Len()
	}
	return n
}

// Queue is a FIFO of frames waiting for the medium. It implements
// ports.TxQueue.
type Queue struct {
	mu         sync.Mutex
	name       string
	aifsn      uint8
	medium     *Medium
	frames     []dot11.Frame
	access     ports.EventID
	agreements map[domain.AgreementKey]domain.BlockAckAgreement
}

func (q *Queue) aifs() time.Duration {
	return SIFS + time.Duration(q.aifsn)*q.medium.radio.Slot()
}

// Name identifies the queue in logs and metrics.
func (q *Queue) Name() string { return q.name }

// Enqueue appends f and requests channel access if the queue was idle.
func (q *Queue) Enqueue(f dot11.Frame) {
	q.mu.Lock()
	q.frames = append(q.frames, f)
	q.requestAccessLocked(q.aifs())
	depth := len(q.frames)
	q.mu.Unlock()
	telemetry.QueueDepth.WithLabelValues(q.name).Set(float64(depth))
}

// PushFront puts f at the head of the queue.
func (q *Queue) PushFront(f dot11.Frame) {
	q.mu.Lock()
	q.frames = append([]dot11.Frame{f}, q.frames...)
	q.requestAccessLocked(q.aifs())
	depth := len(q.frames)
	q.mu.Unlock()
	telemetry.QueueDepth.WithLabelValues(q.name).Set(float64(depth))
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Peek returns the frame at the head of the queue.
func (q *Queue) Peek() (dot11.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return dot11.Frame{}, false
	}
	return q.frames[0], true
}

// Flush drops every queued frame and cancels pending access.
func (q *Queue) Flush() {
	q.mu.Lock()
	q.frames = nil
	if q.access != 0 {
		q.medium.sched.Cancel(q.access)
		q.access = 0
	}
	q.mu.Unlock()
	telemetry.QueueDepth.WithLabelValues(q.name).Set(0)
}

func (q *Queue) requestAccessLocked(delay time.Duration) {
	if q.access != 0 {
		return
	}
	q.access = q.medium.sched.Schedule(delay, q.transmitNext)
}

func (q *Queue) transmitNext() {
	q.mu.Lock()
	q.access = 0
	if len(q.frames) == 0 {
		q.mu.Unlock()
		return
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	depth := len(q.frames)
	q.mu.Unlock()
	telemetry.QueueDepth.WithLabelValues(q.name).Set(float64(depth))

	airtime, err := q.medium.radio.Transmit(f)
	if err != nil {
		slog.Warn("Transmission failed", "queue", q.name, "kind", dot11.KindName(f.Header.Kind), "ra", f.Header.Addr1, "error", err)
	}
	q.medium.report(f.Header, err == nil)

	q.mu.Lock()
	if len(q.frames) > 0 {
		q.requestAccessLocked(airtime + q.aifs())
	}
	q.mu.Unlock()
}

// GotAddBaResponse records an outgoing agreement when the recipient accepted
// it.
func (q *Queue) GotAddBaResponse(from domain.MAC, resp dot11.AddBAResponse) {
	if resp.Status != layers.Dot11StatusSuccess {
		slog.Debug("ADDBA refused by recipient", "peer", from, "tid", resp.Params.TID, "status", resp.Status)
		return
	}
	a := domain.BlockAckAgreement{
		Originator:     q.medium.self,
		Recipient:      from,
		TID:            resp.Params.TID,
		BufferSize:     resp.Params.BufferSize,
		Immediate:      resp.Params.Immediate,
		AmsduSupported: resp.Params.AmsduSupported,
		Timeout:        time.Duration(resp.Timeout) * 1024 * time.Microsecond,
	}
	q.mu.Lock()
	q.agreements[domain.AgreementKey{Peer: from, TID: a.TID}] = a
	q.mu.Unlock()
}

// GotDelBa forgets an outgoing agreement.
func (q *Queue) GotDelBa(from domain.MAC, tid uint8) {
	q.mu.Lock()
	delete(q.agreements, domain.AgreementKey{Peer: from, TID: tid})
	q.mu.Unlock()
}

// Agreement returns the outgoing agreement with a recipient for a TID.
func (q *Queue) Agreement(peer domain.MAC, tid uint8) (domain.BlockAckAgreement, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.agreements[domain.AgreementKey{Peer: peer, TID: tid}]
	return a, ok
}
