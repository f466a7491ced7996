package ofdm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateL1Average(t *testing.T) {
	block := []complex64{
		complex(1, 1),
		complex(-2, 0),
		complex(0, -3),
	}
	got := calculateL1Average(block)
	require.InDelta(t, (2.0+2.0+3.0)/3.0, got, 1e-9)
}

func TestCalculateRelativePhase(t *testing.T) {
	in := []complex64{1, complex(0, 1), -1, complex(0, -1)}
	out := make([]complex64, len(in))
	calculateRelativePhase(in, out)

	require.InDelta(t, 0.0, real(out[0]), 1e-6)
	require.InDelta(t, 1.0, imag(out[0]), 1e-6)
	require.Equal(t, complex64(0), out[len(in)-1])
}

func TestCalculateMagnitudeFFTShift(t *testing.T) {
	n := 8
	fftBuf := make([]complex64, n)
	fftBuf[0] = complex(2, 0) // DC
	magBuf := make([]float64, n)
	calculateMagnitude(fftBuf, magBuf)

	// After fftshift, DC lands in the middle bin.
	require.InDelta(t, 20*math.Log10(2), magBuf[n/2], 1e-6)
}

func TestConvertToViterbiBitClamps(t *testing.T) {
	require.Equal(t, int8(127), convertToViterbiBit(-2.0, 127))
	require.Equal(t, int8(-128), convertToViterbiBit(2.0, 127))
	require.Equal(t, int8(0), convertToViterbiBit(0, 127))
}

func TestApplyPLLZeroFrequencyIsIdentity(t *testing.T) {
	x := []complex64{1, complex(0, 1), -1}
	orig := append([]complex64{}, x...)
	applyPLL(x, 0, 0, 0)
	for i := range x {
		require.InDelta(t, real(orig[i]), real(x[i]), 1e-6)
		require.InDelta(t, imag(orig[i]), imag(x[i]), 1e-6)
	}
}

func TestComplexConjMulSum(t *testing.T) {
	a := []complex64{1, complex(0, 1)}
	b := []complex64{complex(0, 1), 1}
	// sum(conj(a[i])*b[i]) = conj(1)*i + conj(i)*1 = i + (-i)*1 = i - i = 0
	got := complexConjMulSum(a, b)
	require.InDelta(t, 0.0, real(got), 1e-6)
	require.InDelta(t, 0.0, imag(got), 1e-6)
}
