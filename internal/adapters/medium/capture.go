package medium

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const snapLen = 65536

// CaptureWriter records radiotap frames in pcap format.
type CaptureWriter struct {
	mu     sync.Mutex
	w      *pcapgo.Writer
	closer io.Closer
	count  int
}

// NewCaptureWriter writes a pcap file header to w.
func NewCaptureWriter(w io.Writer) (*CaptureWriter, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeIEEE80211Radio); err != nil {
		return nil, fmt.Errorf("pcap header: %w", err)
	}
	cw := &CaptureWriter{w: pw}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	return cw, nil
}

// CreateCaptureFile creates path and returns a writer on it.
func CreateCaptureFile(path string) (*CaptureWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	cw, err := NewCaptureWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return cw, nil
}

// WriteFrame appends one frame stamped with ts.
func (c *CaptureWriter) WriteFrame(ts time.Time, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := c.w.WritePacket(ci, data); err != nil {
		return err
	}
	c.count++
	return nil
}

// Count returns the number of frames written.
func (c *CaptureWriter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Close closes the underlying file, if any.
func (c *CaptureWriter) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
