package ports

import (
	"context"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/dot11"
)

// EventID identifies a scheduled event. The zero value is never issued.
type EventID uint64

// Scheduler runs closures at points in simulated or real time. Events are
// executed one at a time, in time order, FIFO within the same instant.
type Scheduler interface {
	// Now returns the time elapsed since the scheduler started.
	Now() time.Duration
	// Schedule runs fn after delay.
	Schedule(delay time.Duration, fn func()) EventID
	// ScheduleNow runs fn at the current time, after events already queued
	// for this instant.
	ScheduleNow(fn func()) EventID
	// Cancel drops a pending event. Unknown or expired IDs are ignored.
	Cancel(id EventID)
}

// RateService exposes the PHY mode tables of the configured standard.
type RateService interface {
	// Modes returns the non-MCS modes the PHY supports, in table order.
	Modes() []domain.WifiMode
	// McsList returns the MCSs of an MCS class, or nil if unsupported.
	McsList(class domain.ModulationClass) []domain.WifiMode
	// Supports reports whether the PHY implements a modulation class.
	Supports(class domain.ModulationClass) bool
	// ShortPreambleSupported reports PHY short preamble support.
	ShortPreambleSupported() bool
	// Channel is the operating channel number.
	Channel() uint8
}

// TxQueue is one transmit queue: the management queue, the beacon queue, a
// shared per-AC queue or a per-AID per-AC queue.
type TxQueue interface {
	Enqueue(f dot11.Frame)
	PushFront(f dot11.Frame)
	Len() int
	// GotAddBaResponse hands an ADDBA response for an agreement this queue
	// originated.
	GotAddBaResponse(from domain.MAC, resp dot11.AddBAResponse)
	// GotDelBa tears down an agreement this queue originated.
	GotDelBa(from domain.MAC, tid uint8)
}

// TxOutcomeFunc receives the fate of every frame a queue hands to the radio.
type TxOutcomeFunc func(hdr dot11.MacHeader, ok bool)

// ReorderManager keeps the receive side of Block-Ack agreements.
type ReorderManager interface {
	CreateAgreement(a domain.BlockAckAgreement)
	DestroyAgreement(originator domain.MAC, tid uint8)
	Agreement(originator domain.MAC, tid uint8) (domain.BlockAckAgreement, bool)
}

// StationManager tracks per-station PHY capabilities used for rate selection.
type StationManager interface {
	AddSupportedMode(station domain.MAC, mode domain.WifiMode)
	SetShortPreamble(station domain.MAC, enabled bool)
	SetShortSlotTime(station domain.MAC, enabled bool)
	Reset(station domain.MAC)
	DataMode(station domain.MAC) (domain.WifiMode, bool)
}

// UpperLayer receives MSDUs delivered by the AP.
type UpperLayer interface {
	Deliver(packet []byte, from, to domain.MAC)
}

// Radio puts a serialized frame on the medium and reports its airtime.
type Radio interface {
	Transmit(f dot11.Frame) (time.Duration, error)
	SetSlot(d time.Duration)
	Slot() time.Duration
}

// StationObserver is notified of every registry transition.
type StationObserver interface {
	OnStationEvent(ctx context.Context, ev domain.StationEvent)
}

// StationStore persists stations and their history.
type StationStore interface {
	SaveStationsBatch(ctx context.Context, stations []domain.Station) error
	SaveEvent(ctx context.Context, ev domain.StationEvent) error
	GetStation(ctx context.Context, mac domain.MAC) (*domain.Station, error)
	ListStations(ctx context.Context) ([]domain.Station, error)
	ListEvents(ctx context.Context, mac domain.MAC, limit int) ([]domain.StationEvent, error)
	Close() error
}
