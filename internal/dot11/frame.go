package dot11

import (
	"github.com/google/gopacket"
)

// Frame is a MAC header together with its body. The FCS is not modeled.
type Frame struct {
	Header MacHeader
	Body   []byte
}

// Bytes serializes header and body.
func (f Frame) Bytes() ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, f.Header, gopacket.Payload(f.Body)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Size returns the number of bytes Bytes would produce.
func (f Frame) Size() int {
	return f.Header.Size() + len(f.Body)
}

// ParseFrame splits raw bytes into header and body. The body aliases data.
func ParseFrame(data []byte) (Frame, error) {
	h, n, err := Decode(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Body: data[n:]}, nil
}
