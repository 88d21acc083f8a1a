package medium

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"github.com/lcalzada-xor/apmac/internal/dot11"
	"github.com/lcalzada-xor/apmac/internal/telemetry"
)

// Slot times and interframe spacing used for channel access.
const (
	ShortSlot = 9 * time.Microsecond
	LongSlot  = 20 * time.Microsecond
	SIFS      = 16 * time.Microsecond

	preambleDuration = 20 * time.Microsecond
	fallbackRate     = 6000000
)

// Transmitter implements ports.Radio on top of a PacketInjector: it adds a
// radiotap header carrying the selected rate, injects the frame and records
// it in an optional capture file.
type Transmitter struct {
	mu        sync.Mutex
	iface     string
	injector  PacketInjector
	stations  ports.StationManager
	basicRate domain.WifiMode
	channel   uint8
	slot      time.Duration
	capture   *CaptureWriter
	now       func() time.Time
}

// NewTransmitter creates a radio. basic is the rate used for group and
// management traffic.
func NewTransmitter(iface string, injector PacketInjector, stations ports.StationManager, basic domain.WifiMode, channel uint8) *Transmitter {
	return &Transmitter{
		iface:     iface,
		injector:  injector,
		stations:  stations,
		basicRate: basic,
		channel:   channel,
		slot:      LongSlot,
		now:       time.Now,
	}
}

// SetCapture mirrors every transmitted frame into w.
func (t *Transmitter) SetCapture(w *CaptureWriter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.capture = w
}

// SetSlot changes the slot time used for channel access.
func (t *Transmitter) SetSlot(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.slot != d {
		slog.Debug("Slot time changed", "slot", d)
	}
	t.slot = d
}

// Slot returns the current slot time.
func (t *Transmitter) Slot() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slot
}

// ChannelFrequency returns the centre frequency in MHz of a channel number.
func ChannelFrequency(channel uint8) uint16 {
	switch {
	case channel == 14:
		return 2484
	case channel >= 1 && channel <= 13:
		return 2407 + 5*uint16(channel)
	default:
		return 5000 + 5*uint16(channel)
	}
}

func (t *Transmitter) modeFor(h dot11.MacHeader) domain.WifiMode {
	if h.Kind.MainType() != layers.Dot11TypeData || h.Addr1.IsGroup() || t.stations == nil {
		return t.basicRate
	}
	if m, ok := t.stations.DataMode(h.Addr1); ok {
		return m
	}
	return t.basicRate
}

func (t *Transmitter) radiotap(mode domain.WifiMode) *layers.RadioTap {
	freq := ChannelFrequency(t.channel)
	flags := layers.RadioTapChannelFlagsGhz2
	if freq > 5000 {
		flags = layers.RadioTapChannelFlagsGhz5
	}
	rt := &layers.RadioTap{
		Present:          layers.RadioTapPresentChannel,
		ChannelFrequency: layers.RadioTapChannelFrequency(freq),
		ChannelFlags:     flags,
	}
	if mode.Class.IsMcsClass() {
		rt.Present |= layers.RadioTapPresentMCS
		rt.MCS = layers.RadioTapMCS{
			Known: layers.RadioTapMCSKnownMCSIndex,
			MCS:   mode.MCS,
		}
	} else {
		rt.Present |= layers.RadioTapPresentRate
		rt.Rate = layers.RadioTapRate(mode.DataRate / 500000)
	}
	return rt
}

// Airtime estimates how long a frame of n bytes occupies the medium.
func Airtime(n int, mode domain.WifiMode) time.Duration {
	rate := mode.DataRate
	if rate == 0 {
		rate = fallbackRate
	}
	return preambleDuration + time.Duration(uint64(n)*8*uint64(time.Second)/rate)
}

// Transmit serializes and injects f. It returns the frame's airtime.
func (t *Transmitter) Transmit(f dot11.Frame) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kind := dot11.KindName(f.Header.Kind)
	mode := t.modeFor(f.Header)
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, t.radiotap(mode), f.Header, gopacket.Payload(f.Body)); err != nil {
		telemetry.TxFailures.WithLabelValues(kind).Inc()
		return 0, fmt.Errorf("serialize %s: %w", kind, err)
	}
	if err := t.injector.Inject(buf.Bytes()); err != nil {
		telemetry.InjectionErrors.WithLabelValues(t.iface).Inc()
		telemetry.TxFailures.WithLabelValues(kind).Inc()
		return 0, fmt.Errorf("inject %s: %w", kind, err)
	}
	telemetry.FramesTransmitted.WithLabelValues(kind).Inc()
	if t.capture != nil {
		if err := t.capture.WriteFrame(t.now(), buf.Bytes()); err != nil {
			slog.Warn("Capture write failed", "error", err)
		}
	}
	return Airtime(f.Size(), mode), nil
}
