package medium

import (
	"sync"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// ReorderTable is the receive side of Block-Ack agreements. It implements
// ports.ReorderManager.
type ReorderTable struct {
	mu         sync.RWMutex
	agreements map[domain.AgreementKey]domain.BlockAckAgreement
}

func NewReorderTable() *ReorderTable {
	return &ReorderTable{agreements: make(map[domain.AgreementKey]domain.BlockAckAgreement)}
}

// CreateAgreement installs or replaces the agreement for (originator, TID).
func (r *ReorderTable) CreateAgreement(a domain.BlockAckAgreement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agreements[domain.AgreementKey{Peer: a.Originator, TID: a.TID}] = a
}

func (r *ReorderTable) DestroyAgreement(originator domain.MAC, tid uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agreements, domain.AgreementKey{Peer: originator, TID: tid})
}

func (r *ReorderTable) Agreement(originator domain.MAC, tid uint8) (domain.BlockAckAgreement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agreements[domain.AgreementKey{Peer: originator, TID: tid}]
	return a, ok
}

// Len is the number of active agreements.
func (r *ReorderTable) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agreements)
}

// DestroyAll drops every agreement with originator and returns the TIDs
// that were active.
func (r *ReorderTable) DestroyAll(originator domain.MAC) []uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tids []uint8
	for tid := uint8(0); tid < 16; tid++ {
		k := domain.AgreementKey{Peer: originator, TID: tid}
		if _, ok := r.agreements[k]; ok {
			delete(r.agreements, k)
			tids = append(tids, tid)
		}
	}
	return tids
}
