package ofdm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCircularBufferWrapsAndOrders(t *testing.T) {
	c := newCircularBuffer(3)
	c.Append([]complex64{1, 2, 3, 4})
	require.Equal(t, 3, c.Len())

	out := make([]complex64, c.Len())
	c.Ordered(out)
	require.Equal(t, []complex64{2, 3, 4}, out)
}

func TestCircularBufferReset(t *testing.T) {
	c := newCircularBuffer(2)
	c.Append([]complex64{1, 2})
	c.Reset()
	require.Equal(t, 0, c.Len())
	c.Append([]complex64{5})
	out := make([]complex64, c.Len())
	c.Ordered(out)
	require.Equal(t, []complex64{5}, out)
}

func TestLinearBufferConsumeAndFull(t *testing.T) {
	b := newLinearBuffer(4)
	n := b.ConsumeBuffer([]complex64{1, 2})
	require.Equal(t, 2, n)
	require.False(t, b.IsFull())

	n = b.ConsumeBuffer([]complex64{3, 4, 5})
	require.Equal(t, 2, n) // only 2 slots remaining
	require.True(t, b.IsFull())
	require.Equal(t, []complex64{1, 2, 3, 4}, b.Filled())
}

func TestFrameBufferSymbolSlots(t *testing.T) {
	p := Params{NbFFT: 4, NbCyclicPrefix: 2, NbNullPeriod: 10, NbFrameSymbols: 3, NbDataCarriers: 2}
	fb := newFrameBuffer(p)

	require.Equal(t, 4, fb.NbSymbols()) // 3 data/PRS slots + 1 null slot
	require.Len(t, fb.Symbol(0), p.NbSymbolPeriod())
	require.Len(t, fb.Symbol(2), p.NbSymbolPeriod())
	require.Len(t, fb.Symbol(3), p.NbNullPeriod) // the trailing null slot

	total := p.NbFrameSymbols*p.NbSymbolPeriod() + p.NbNullPeriod
	samples := make([]complex64, total)
	for i := range samples {
		samples[i] = complex64(complex(float32(i), 0))
	}

	n := fb.ConsumeBuffer(samples)
	require.Equal(t, total, n)
	require.True(t, fb.IsFull())
	require.Equal(t, complex64(0), fb.Symbol(0)[0])
	require.Equal(t, samples[p.NbFrameSymbols*p.NbSymbolPeriod()], fb.TrailingNull()[0])
}
