package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

// PersistenceManager handles background batch writing of station records
// and their history to storage. It observes the station registry.
type PersistenceManager struct {
	storage   ports.StationStore
	events    chan domain.StationEvent
	batchSize int
	interval  time.Duration
	enabled   bool
	dropped   int
	mu        sync.RWMutex
}

// NewPersistenceManager creates a new manager.
func NewPersistenceManager(storage ports.StationStore, bufferSize int) *PersistenceManager {
	return &PersistenceManager{
		storage:   storage,
		events:    make(chan domain.StationEvent, bufferSize),
		batchSize: 100,
		interval:  5 * time.Second,
		enabled:   true,
	}
}

// OnStationEvent implements ports.StationObserver.
func (p *PersistenceManager) OnStationEvent(_ context.Context, ev domain.StationEvent) {
	p.Persist(ev)
}

// Persist queues an event for persistence if enabled. It never blocks the
// MAC: when the buffer is full the event is dropped.
func (p *PersistenceManager) Persist(ev domain.StationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped++
		slog.Warn("Persistence queue full, dropping station event", "station", ev.Station.MAC, "type", ev.Type)
	}
}

// Dropped returns the number of events lost to a full buffer.
func (p *PersistenceManager) Dropped() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

// IsEnabled returns the current persistence status.
func (p *PersistenceManager) IsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

// SetEnabled toggles the persistence logic.
func (p *PersistenceManager) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// SetStorage updates the storage adapter used for persistence.
func (p *PersistenceManager) SetStorage(storage ports.StationStore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.storage = storage
}

// Start begins the persistence loop. The returned channel is closed once
// the final flush after ctx is cancelled has completed.
func (p *PersistenceManager) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(p.interval)
	b := newBatch()

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.drain(b)
				p.flush(context.WithoutCancel(ctx), b)
				return
			case ev := <-p.events:
				b.add(ev)
				if b.len() >= p.batchSize {
					p.flush(ctx, b)
					b = newBatch()
				}
			case <-ticker.C:
				if b.len() > 0 {
					p.flush(ctx, b)
					b = newBatch()
				}
			}
		}
	}()
	return done
}

func (p *PersistenceManager) drain(b *batch) {
	for {
		select {
		case ev := <-p.events:
			b.add(ev)
		default:
			return
		}
	}
}

// batch keeps the latest snapshot per station and every event in arrival
// order.
type batch struct {
	stations map[domain.MAC]domain.Station
	events   []domain.StationEvent
}

func newBatch() *batch {
	return &batch{stations: make(map[domain.MAC]domain.Station)}
}

func (b *batch) add(ev domain.StationEvent) {
	b.stations[ev.Station.MAC] = ev.Station
	b.events = append(b.events, ev)
}

func (b *batch) len() int { return len(b.events) }

func (p *PersistenceManager) flush(ctx context.Context, b *batch) {
	p.mu.RLock()
	storage := p.storage
	p.mu.RUnlock()
	if b.len() == 0 || storage == nil {
		return
	}
	stations := make([]domain.Station, 0, len(b.stations))
	for _, s := range b.stations {
		stations = append(stations, s)
	}
	if err := storage.SaveStationsBatch(ctx, stations); err != nil {
		slog.Error("Failed to batch save stations", "count", len(stations), "error", err)
	}
	for _, ev := range b.events {
		if err := storage.SaveEvent(ctx, ev); err != nil {
			slog.Error("Failed to save station event", "station", ev.Station.MAC, "type", ev.Type, "error", err)
		}
	}
}
