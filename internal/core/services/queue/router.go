package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

// ErrRoutingMiss is returned when a frame is routed to an AID that has no
// queue set.
var ErrRoutingMiss = errors.New("no queue provisioned for AID")

// Mode selects how outbound traffic is spread over queues. The modes are
// exclusive for the lifetime of a router.
type Mode int

const (
	// ModeShared routes every station through one queue per access category.
	ModeShared Mode = iota
	// ModePerStation gives every associated AID its own queue per access
	// category. Used for HE/OFDMA operation.
	ModePerStation
)

func (m Mode) String() string {
	if m == ModePerStation {
		return "per-station"
	}
	return "shared"
}

// BroadcastAID is the AID group-addressed traffic is routed through.
const BroadcastAID uint16 = 0

// Factory creates a queue contending with the given AIFSN.
type Factory func(name string, aifsn uint8) ports.TxQueue

// Set is the queue of each access category for one AID.
type Set map[domain.AccessCategory]ports.TxQueue

// Router maps (AID, TID) to a transmit queue.
type Router struct {
	mu       sync.RWMutex
	mode     Mode
	newQueue Factory
	edca     map[domain.AccessCategory]domain.EdcaParams

	management ports.TxQueue
	beacon     ports.TxQueue
	shared     Set
	perAID     map[uint16]Set
}

// NewRouter creates the management, beacon and shared queues. In
// per-station mode the broadcast AID is provisioned as well.
func NewRouter(mode Mode, edca map[domain.AccessCategory]domain.EdcaParams, newQueue Factory) *Router {
	if edca == nil {
		edca = domain.DefaultEdcaParams()
	}
	r := &Router{
		mode:       mode,
		newQueue:   newQueue,
		edca:       edca,
		management: newQueue("DCA", 2),
		beacon:     newQueue("Beacon", 1),
		shared:     make(Set, len(domain.AllAccessCategories)),
		perAID:     make(map[uint16]Set),
	}
	for _, ac := range domain.AllAccessCategories {
		r.shared[ac] = newQueue(ac.String(), edca[ac].AIFSN)
	}
	if mode == ModePerStation {
		r.Provision(BroadcastAID)
	}
	return r
}

// Mode returns the routing mode.
func (r *Router) Mode() Mode { return r.mode }

// Management returns the queue used for management frames.
func (r *Router) Management() ports.TxQueue { return r.management }

// Beacon returns the beacon queue.
func (r *Router) Beacon() ports.TxQueue { return r.beacon }

// Shared returns the shared queue of an access category.
func (r *Router) Shared(ac domain.AccessCategory) ports.TxQueue {
	return r.shared[ac]
}

// Provision creates the queue set of aid. It is a no-op in shared mode and
// for AIDs that already have one. It reports whether a set was created.
func (r *Router) Provision(aid uint16) bool {
	if r.mode != ModePerStation {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.perAID[aid]; ok {
		return false
	}
	set := make(Set, len(domain.AllAccessCategories))
	for _, ac := range domain.AllAccessCategories {
		set[ac] = r.newQueue(fmt.Sprintf("AID%d/%s", aid, ac), r.edca[ac].AIFSN)
	}
	r.perAID[aid] = set
	slog.Debug("Queue set provisioned", "aid", aid)
	return true
}

// Route returns the queue for a frame with the given TID sent to aid.
func (r *Router) Route(aid uint16, tid uint8) (ports.TxQueue, error) {
	ac := domain.TIDToAC(tid)
	if r.mode == ModeShared {
		return r.shared[ac], nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.perAID[aid]
	if !ok {
		return nil, fmt.Errorf("aid %d: %w", aid, ErrRoutingMiss)
	}
	return set[ac], nil
}

// Lookup returns the queue set of aid.
func (r *Router) Lookup(aid uint16) (Set, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.perAID[aid]
	return set, ok
}

// Select returns the queue for Block-Ack signalling with the station holding
// aid: its per-AID queue for tid when it has a queue set, else the shared
// queue of the TID's access category. AID 0 means the peer has no AID and
// always gets the shared queue.
func (r *Router) Select(aid uint16, tid uint8) ports.TxQueue {
	ac := domain.TIDToAC(tid)
	if aid != BroadcastAID {
		if set, ok := r.Lookup(aid); ok {
			return set[ac]
		}
	}
	return r.shared[ac]
}

// Teardown removes the queue set of aid, flushing queues that support it.
// The AP never calls it: a disassociated station keeps its queue set so a
// re-association reuses it. It is for owners that reclaim sets themselves.
func (r *Router) Teardown(aid uint16) bool {
	r.mu.Lock()
	set, ok := r.perAID[aid]
	delete(r.perAID, aid)
	r.mu.Unlock()
	if !ok {
		return false
	}
	for _, q := range set {
		if f, ok := q.(interface{ Flush() }); ok {
			f.Flush()
		}
	}
	slog.Debug("Queue set torn down", "aid", aid)
	return true
}

// AIDs lists the provisioned AIDs in ascending order.
func (r *Router) AIDs() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	aids := make([]uint16, 0, len(r.perAID))
	for aid := range r.perAID {
		aids = append(aids, aid)
	}
	sort.Slice(aids, func(i, j int) bool { return aids[i] < aids[j] })
	return aids
}

// Backlog is the number of frames waiting in every queue the router owns.
func (r *Router) Backlog() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.management.Len() + r.beacon.Len()
	for _, q := range r.shared {
		n += q.Len()
	}
	for _, set := range r.perAID {
		for _, q := range set {
			n += q.Len()
		}
	}
	return n
}
