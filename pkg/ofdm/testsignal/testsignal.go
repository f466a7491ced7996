// Package testsignal synthesizes baseband DAB OFDM frames for exercising
// the demodulator without a real radio front end, grounded on
// simulate_transmitter's dummy-signal generator: build a frame by
// IFFT-modulating the PRS and data subcarriers, prepend cyclic prefixes,
// and optionally apply a constant frequency offset the same way
// ApplyFrequencyShift does.
package testsignal

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/dabcore/ofdmreceiver/pkg/ofdm"
	"github.com/dabcore/ofdmreceiver/pkg/ofdm/modes"
)

// Generator builds synthetic frames for a single transmission mode.
type Generator struct {
	Mode          modes.Mode
	Params        ofdm.Params
	PRSFFT        []complex128
	CarrierMapper []int
	ViterbiHigh   float64

	fft *fourier.CmplxFFT
}

// NewGenerator builds a Generator for the given mode using the same
// deterministic PRS and carrier map the receiver's modes.Reference
// derives its correlation reference from.
func NewGenerator(m modes.Mode) (*Generator, error) {
	params, err := modes.Params(m)
	if err != nil {
		return nil, err
	}
	prsFFT, carrierMapper, err := modes.RawReference(m)
	if err != nil {
		return nil, err
	}
	return &Generator{
		Mode:          m,
		Params:        params,
		PRSFFT:        prsFFT,
		CarrierMapper: carrierMapper,
		ViterbiHigh:   127.0,
		fft:           fourier.NewCmplxFFT(params.NbFFT),
	}, nil
}

// quadrants holds the four unit QPSK phases used to differentially
// encode a data symbol's subcarrier relative to the previous symbol.
var quadrants = []complex128{1, complex(0, 1), -1, complex(0, -1)}

func (g *Generator) ifft(freqDomain []complex128) []complex64 {
	td := g.fft.Sequence(nil, freqDomain)
	out := make([]complex64, len(td))
	for i, v := range td {
		out[i] = complex64(v)
	}
	return out
}

// Frame synthesizes one complete frame: a null symbol, the PRS, and
// NbFrameSymbols-1 data symbols, each with its cyclic prefix. seed selects
// a deterministic pseudo-random data pattern so repeated calls with the
// same seed produce identical frames. It returns the time-domain samples
// and the soft bits a correct demodulator should recover from them.
func (g *Generator) Frame(seed int) (samples []complex64, expectedBits []int8) {
	p := g.Params
	nbFFT := p.NbFFT
	m := p.NbDataCarriers / 2

	null := make([]complex64, p.NbNullPeriod)
	for i := range null {
		null[i] = complex64(complex(0.01, 0))
	}

	prevFreq := make([]complex128, nbFFT)
	copy(prevFreq, g.PRSFFT)
	prsSym := g.modulateSymbol(prevFreq, p.NbCyclicPrefix)

	total := p.NbNullPeriod + p.NbSymbolPeriod()*p.NbFrameSymbols
	samples = make([]complex64, 0, total)
	samples = append(samples, null...)
	samples = append(samples, prsSym...)

	expectedBits = make([]int8, (p.NbFrameSymbols-1)*p.NbDataCarriers*2)

	rngState := uint32(seed*2654435761 + 1)
	for s := 1; s < p.NbFrameSymbols; s++ {
		curFreq := make([]complex128, nbFFT)
		outBase := (s - 1) * p.NbDataCarriers * 2
		for i := -m; i <= m; i++ {
			if i == 0 {
				continue
			}
			fftIndex := ((i % nbFFT) + nbFFT) % nbFFT
			subcarrierIndex := i + m
			if i > 0 {
				subcarrierIndex--
			}

			rngState = nextRand(&rngState)
			q := quadrants[rngState&3]
			curFreq[fftIndex] = prevFreq[fftIndex] * q

			j := g.CarrierMapper[subcarrierIndex]
			a := math.Max(math.Abs(real(q)), math.Abs(imag(q)))
			norm := q / complex(a, 0)
			expectedBits[outBase+j] = convertToViterbiBit(real(norm), g.ViterbiHigh)
			expectedBits[outBase+p.NbDataCarriers+j] = convertToViterbiBit(-imag(norm), g.ViterbiHigh)
		}
		sym := g.modulateSymbol(curFreq, p.NbCyclicPrefix)
		samples = append(samples, sym...)
		prevFreq = curFreq
	}

	return samples, expectedBits
}

// modulateSymbol IFFTs a frequency-domain symbol and prepends its cyclic
// prefix, the reverse of the demodulator's cyclic-prefix-strip + FFT step.
func (g *Generator) modulateSymbol(freqDomain []complex128, cp int) []complex64 {
	td := g.ifft(freqDomain)
	out := make([]complex64, cp+len(td))
	copy(out[cp:], td)
	copy(out[:cp], td[len(td)-cp:])
	return out
}

// Stream concatenates a warm-up segment (so the receiver's running power
// average isn't still at zero when the first null arrives) followed by
// nFrames consecutive frames.
func (g *Generator) Stream(nFrames int) ([]complex64, [][]int8) {
	warmup := make([]complex64, 4*g.Params.NbSymbolPeriod())
	rngState := uint32(0x9e3779b9)
	for i := range warmup {
		rngState = nextRand(&rngState)
		phase := float64(rngState) / float64(1<<32) * 2 * math.Pi
		warmup[i] = complex64(complex(math.Cos(phase), math.Sin(phase)))
	}

	out := make([]complex64, 0, len(warmup)+nFrames*(g.Params.NbNullPeriod+g.Params.NbSymbolPeriod()*g.Params.NbFrameSymbols))
	out = append(out, warmup...)

	bits := make([][]int8, nFrames)
	for f := 0; f < nFrames; f++ {
		frame, expected := g.Frame(f + 1)
		out = append(out, frame...)
		bits[f] = expected
	}
	return out, bits
}

// ApplyFrequencyShift rotates x by a constant per-sample phase increment,
// mirroring simulate_transmitter's ApplyFrequencyShift: a continuous PLL
// starting at zero phase, not reset between samples.
func ApplyFrequencyShift(x []complex64, freqOffset float64) []complex64 {
	out := make([]complex64, len(x))
	dt := 0.0
	for i, v := range x {
		rot := complex(math.Cos(dt), math.Sin(dt))
		out[i] = complex64(complex128(v) * rot)
		dt += 2 * math.Pi * freqOffset
	}
	return out
}

// nextRand is a small deterministic xorshift generator; it carries no
// cryptographic weight, only repeatability across calls.
func nextRand(state *uint32) uint32 {
	x := *state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	*state = x
	return x
}

// convertToViterbiBit mirrors ofdm's internal soft-bit conversion so the
// generator's expected bits match what a correct demodulator produces.
func convertToViterbiBit(x, viterbiHigh float64) int8 {
	v := math.Round(-x * viterbiHigh)
	if v > 127 {
		v = 127
	}
	if v < -128 {
		v = -128
	}
	return int8(v)
}
