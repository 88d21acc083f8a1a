package registry

import (
	"context"
	"slices"
	"sync"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

// ObserverFunc adapts a plain function to ports.StationObserver.
type ObserverFunc func(ctx context.Context, ev domain.StationEvent)

func (f ObserverFunc) OnStationEvent(ctx context.Context, ev domain.StationEvent) {
	f(ctx, ev)
}

type subscription struct {
	observer ports.StationObserver
	// types restricts delivery; empty means every event.
	types []domain.StationEventType
}

// RegistrySubject fans station events out to subscribers.
type RegistrySubject struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewRegistrySubject creates a subject with no subscribers.
func NewRegistrySubject() *RegistrySubject {
	return &RegistrySubject{}
}

// AddObserver registers observer for the given event types, or for all
// events when none are given.
func (s *RegistrySubject) AddObserver(observer ports.StationObserver, types ...domain.StationEventType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, subscription{observer: observer, types: types})
}

// Notify delivers ev in registration order on the caller's goroutine.
// Observers must not block and must not call back into the registry.
func (s *RegistrySubject) Notify(ctx context.Context, ev domain.StationEvent) {
	s.mu.RLock()
	subs := s.subs
	s.mu.RUnlock()
	for _, sub := range subs {
		if len(sub.types) > 0 && !slices.Contains(sub.types, ev.Type) {
			continue
		}
		sub.observer.OnStationEvent(ctx, ev)
	}
}
