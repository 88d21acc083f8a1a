package medium

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	written [][]byte
	fail    bool
	closes  int
}

func (f *fakeHandle) WritePacketData(data []byte) error {
	if f.fail {
		return errors.New("send failed")
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeHandle) Close() { f.closes++ }

func TestPcapInjector_Stats(t *testing.T) {
	h := &fakeHandle{}
	inj := newPcapInjector(h)

	require.NoError(t, inj.Inject([]byte{1, 2, 3}))
	require.NoError(t, inj.Inject([]byte{4}))
	h.fail = true
	assert.Error(t, inj.Inject([]byte{5}))

	assert.Equal(t, InjectorStats{Frames: 2, Bytes: 4, Errors: 1}, inj.Stats())
	assert.Len(t, h.written, 2)
}

func TestPcapInjector_Close(t *testing.T) {
	h := &fakeHandle{}
	inj := newPcapInjector(h)
	inj.Close()
	inj.Close()

	assert.Equal(t, 1, h.closes)
	assert.ErrorIs(t, inj.Inject([]byte{1}), ErrInjectorClosed)
}
