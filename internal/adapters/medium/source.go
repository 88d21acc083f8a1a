package medium

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// FrameHandler receives the 802.11 bytes of a captured frame, FCS removed.
type FrameHandler func(frame []byte)

// StripRadiotap returns the 802.11 part of a radiotap frame.
func StripRadiotap(packet gopacket.Packet) ([]byte, bool) {
	rtLayer := packet.Layer(layers.LayerTypeRadioTap)
	if rtLayer == nil {
		return nil, false
	}
	rt, _ := rtLayer.(*layers.RadioTap)
	// gopacket appends a computed FCS when the capture carries none, so the
	// payload always ends in one.
	payload := rt.Payload
	if len(payload) < 4 {
		return nil, false
	}
	return payload[:len(payload)-4], true
}

// DecodeInjected strips the radiotap header from bytes produced by a
// Transmitter.
func DecodeInjected(data []byte) ([]byte, bool) {
	return StripRadiotap(gopacket.NewPacket(data, layers.LayerTypeRadioTap, gopacket.NoCopy))
}

// LiveSource reads frames from a monitor-mode interface.
type LiveSource struct {
	handle *pcap.Handle
}

// OpenLiveSource opens iface for capture. filter is an optional BPF filter.
func OpenLiveSource(iface, filter string) (*LiveSource, error) {
	handle, err := pcap.OpenLive(iface, snapLen, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("monitor handle: %w", err)
	}
	if filter != "" {
		if err := handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("bpf filter %q: %w", filter, err)
		}
	}
	return &LiveSource{handle: handle}, nil
}

// Run hands every captured frame to fn until ctx is done.
func (s *LiveSource) Run(ctx context.Context, fn FrameHandler) error {
	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	packets := source.Packets()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case packet, ok := <-packets:
			if !ok {
				return nil
			}
			frame, ok := StripRadiotap(packet)
			if !ok {
				slog.Debug("Dropping capture without radiotap header")
				continue
			}
			fn(frame)
		}
	}
}

// Close releases the capture handle.
func (s *LiveSource) Close() {
	s.handle.Close()
}
