package ofdm

// circularBuffer accumulates samples examined while searching for the null
// symbol's power dip. It behaves like a ring of fixed capacity: once full,
// further writes silently overwrite the oldest samples, and Ordered returns
// the contents oldest-first.
type circularBuffer struct {
	data   []complex64
	cap    int
	length int
	head   int // index of the oldest sample
}

func newCircularBuffer(capacity int) *circularBuffer {
	return &circularBuffer{data: make([]complex64, capacity), cap: capacity}
}

func (c *circularBuffer) Reset() {
	c.length = 0
	c.head = 0
}

func (c *circularBuffer) Append(samples []complex64) {
	for _, s := range samples {
		writeAt := (c.head + c.length) % c.cap
		c.data[writeAt] = s
		if c.length < c.cap {
			c.length++
		} else {
			c.head = (c.head + 1) % c.cap
		}
	}
}

// Ordered writes the buffer's contents, oldest sample first, into dst.
func (c *circularBuffer) Ordered(dst []complex64) {
	for i := 0; i < c.length; i++ {
		dst[i] = c.data[(c.head+i)%c.cap]
	}
}

func (c *circularBuffer) Len() int { return c.length }

// linearBuffer is a simple append-until-full staging buffer, used to
// accumulate the null + PRS period ahead of coarse/fine frequency sync.
type linearBuffer struct {
	data []complex64
	n    int
}

func newLinearBuffer(capacity int) *linearBuffer {
	return &linearBuffer{data: make([]complex64, capacity)}
}

// SetFromSlice replaces the buffer's contents with src (len(src) <=
// capacity) and marks that much of it filled.
func (b *linearBuffer) SetFromSlice(src []complex64) {
	b.n = copy(b.data, src)
}

func (b *linearBuffer) Reset() { b.n = 0 }

func (b *linearBuffer) IsFull() bool { return b.n >= len(b.data) }

// ConsumeBuffer copies as much of src as fits into the remaining capacity
// and returns how many samples it consumed.
func (b *linearBuffer) ConsumeBuffer(src []complex64) int {
	remaining := len(b.data) - b.n
	if remaining <= 0 {
		return 0
	}
	n := len(src)
	if n > remaining {
		n = remaining
	}
	copy(b.data[b.n:], src[:n])
	b.n += n
	return n
}

func (b *linearBuffer) Filled() []complex64 { return b.data[:b.n] }
func (b *linearBuffer) Cap() int            { return len(b.data) }

// frameBuffer holds one full received frame: NbFrameSymbols uniform
// symbol-period slots (slot 0 is the PRS) followed by one trailing slot
// sized NbNullPeriod that captures the null symbol leading into the next
// frame. Workers address it by symbol index via Symbol; index
// NbFrameSymbols (the null slot) participates in PLL/FFT for pipeline
// uniformity but is excluded from cyclic phase-error accumulation and
// DQPSK demodulation (see pipeline.go).
type frameBuffer struct {
	params   Params
	samples  []complex64
	dataLen  int // params.NbFrameSymbols * params.NbSymbolPeriod()
	filled   int
}

func newFrameBuffer(p Params) *frameBuffer {
	dataLen := p.NbFrameSymbols * p.NbSymbolPeriod()
	total := dataLen + p.NbNullPeriod
	return &frameBuffer{
		params:  p,
		samples: make([]complex64, total),
		dataLen: dataLen,
	}
}

func (f *frameBuffer) Reset() { f.filled = 0 }

func (f *frameBuffer) IsFull() bool { return f.filled >= len(f.samples) }

func (f *frameBuffer) Remaining() int { return len(f.samples) - f.filled }

// ConsumeBuffer copies as much of src as fits into the remaining capacity.
func (f *frameBuffer) ConsumeBuffer(src []complex64) int {
	remaining := f.Remaining()
	if remaining <= 0 {
		return 0
	}
	n := len(src)
	if n > remaining {
		n = remaining
	}
	copy(f.samples[f.filled:], src[:n])
	f.filled += n
	return n
}

// NbSymbols returns the total number of addressable symbol slots,
// including the trailing null slot: NbFrameSymbols + 1.
func (f *frameBuffer) NbSymbols() int { return f.params.NbFrameSymbols + 1 }

// Symbol returns the slice backing symbol slot i. For i < NbFrameSymbols
// this is NbSymbolPeriod samples (cyclic prefix + FFT window); for
// i == NbFrameSymbols (the last slot) it is NbNullPeriod samples.
func (f *frameBuffer) Symbol(i int) []complex64 {
	period := f.params.NbSymbolPeriod()
	if i < f.params.NbFrameSymbols {
		return f.samples[i*period : (i+1)*period]
	}
	return f.samples[f.dataLen : f.dataLen+f.params.NbNullPeriod]
}

// TrailingNull returns the captured null symbol at the end of the frame,
// used to seed the next frame's correlation buffer.
func (f *frameBuffer) TrailingNull() []complex64 {
	return f.samples[f.dataLen:]
}
