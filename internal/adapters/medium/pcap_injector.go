package medium

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gopacket/pcap"
)

// ErrInjectorClosed is returned by Inject after Close.
var ErrInjectorClosed = errors.New("injector closed")

// packetWriter is the part of *pcap.Handle the injector needs.
type packetWriter interface {
	WritePacketData(data []byte) error
	Close()
}

// InjectorStats counts what went out through a PcapInjector.
type InjectorStats struct {
	Frames uint64
	Bytes  uint64
	Errors uint64
}

// PcapInjector writes radiotap frames to a monitor-mode interface.
// Writes are serialized; libpcap handles are not safe for concurrent sends.
type PcapInjector struct {
	mu     sync.Mutex
	out    packetWriter
	closed bool
	stats  InjectorStats
}

// NewPcapInjector opens iface for injection. The handle is never read from,
// so a short read timeout keeps Close from blocking.
func NewPcapInjector(iface string) (*PcapInjector, error) {
	handle, err := pcap.OpenLive(iface, snapLen, false, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("pcap open %s: %w", iface, err)
	}
	return newPcapInjector(handle), nil
}

func newPcapInjector(out packetWriter) *PcapInjector {
	return &PcapInjector{out: out}
}

func (p *PcapInjector) Inject(packet []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrInjectorClosed
	}
	if err := p.out.WritePacketData(packet); err != nil {
		p.stats.Errors++
		return err
	}
	p.stats.Frames++
	p.stats.Bytes += uint64(len(packet))
	return nil
}

// Stats returns the counters so far.
func (p *PcapInjector) Stats() InjectorStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close releases the handle. Further calls are no-ops.
func (p *PcapInjector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.out.Close()
}
