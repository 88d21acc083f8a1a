package medium

import (
	"errors"
	"sync"
)

// ErrInjectFailed is returned by MockInjector while failures are armed.
var ErrInjectFailed = errors.New("injection failed")

// MockInjector implements PacketInjector for tests and mock runs.
// It keeps injected packets in memory and can forward them to a listener.
type MockInjector struct {
	mu         sync.Mutex
	ReqPackets [][]byte
	Closed     bool
	failNext   int
	listener   func(packet []byte)
}

// NewMockInjector creates a new instance of MockInjector.
func NewMockInjector() *MockInjector {
	return &MockInjector{
		ReqPackets: make([][]byte, 0),
	}
}

// Inject stores the packet, or fails if failures are armed.
func (m *MockInjector) Inject(packet []byte) error {
	m.mu.Lock()
	if m.failNext > 0 {
		m.failNext--
		m.mu.Unlock()
		return ErrInjectFailed
	}

	// Copy buffer to avoid reference issues if the caller reuses the buffer
	p := make([]byte, len(packet))
	copy(p, packet)
	m.ReqPackets = append(m.ReqPackets, p)
	listener := m.listener
	m.mu.Unlock()

	if listener != nil {
		listener(p)
	}
	return nil
}

// FailNext makes the next n injections fail.
func (m *MockInjector) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// SetListener registers a function that sees every injected packet.
func (m *MockInjector) SetListener(fn func(packet []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

// Close marks the injector as closed.
func (m *MockInjector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
}

// GetPackets returns a copy of the captured packets.
func (m *MockInjector) GetPackets() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	packets := make([][]byte, len(m.ReqPackets))
	for i, p := range m.ReqPackets {
		packets[i] = make([]byte, len(p))
		copy(packets[i], p)
	}
	return packets
}

// ClearPackets clears the captured packets buffer.
func (m *MockInjector) ClearPackets() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReqPackets = make([][]byte, 0)
}
