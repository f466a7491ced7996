package ofdm

import (
	"math"
	"math/cmplx"

	"github.com/racerxdl/segdsp/dsp"
)

// calculateL1Average returns the mean of |Re|+|Im| over a block of samples,
// the cheap magnitude proxy used to threshold the null symbol's power dip.
func calculateL1Average(block []complex64) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, v := range block {
		sum += math.Abs(float64(real(v))) + math.Abs(float64(imag(v)))
	}
	return sum / float64(len(block))
}

// calculateRelativePhase writes out[i] = conj(in[i]) * in[i+1] for every
// adjacent carrier pair, with the final bin zeroed. It is the building
// block both for the PRS's differential time-domain reference and for
// coarse frequency sync.
func calculateRelativePhase(in, out []complex64) {
	n := len(in)
	for i := 0; i < n-1; i++ {
		out[i] = in[i+1] * complex64(cmplx.Conj(complex128(in[i])))
	}
	out[n-1] = 0
}

// calculateMagnitude fftshifts fftBuf and writes 20*log10(|.|) into magBuf,
// so that bin 0 of magBuf corresponds to the most negative frequency.
func calculateMagnitude(fftBuf []complex64, magBuf []float64) {
	n := len(fftBuf)
	half := n / 2
	for i := 0; i < n; i++ {
		j := (i + half) % n
		mag := cmplx.Abs(complex128(fftBuf[j]))
		if mag <= 0 {
			magBuf[i] = math.Inf(-1)
			continue
		}
		magBuf[i] = 20 * math.Log10(mag)
	}
}

// complexConjMulSum computes sum(conj(a[i]) * b[i]), grounded on
// segdsp's MultiplyConjugate primitive which the teacher uses for
// quadrature-demod phase-difference accumulation
// (pkg/dsp/demodulators/quad/quad_demod.go). The cyclic-prefix phase error
// estimator needs only the summed product, not the per-sample vector
// MultiplyConjugate returns, so it reduces segdsp's output itself.
func complexConjMulSum(a, b []complex64) complex64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	prod := dsp.MultiplyConjugate(b, a, n)
	var sum complex64
	for _, v := range prod {
		sum += v
	}
	return sum
}

// applyPLL rotates in-place: x[n] *= exp(j*2*pi*(dt0 + n*freq)), starting
// the sample index at sampleOffset so that phase stays continuous across
// symbol boundaries within a frame.
func applyPLL(x []complex64, sampleOffset int, dt0, freq float64) {
	for n := range x {
		phase := 2 * math.Pi * (dt0 + float64(sampleOffset+n)*freq)
		rot := cmplx.Exp(complex(0, phase))
		x[n] = complex64(complex128(x[n]) * rot)
	}
}

// convertToViterbiBit maps a normalized DQPSK soft component to the signed
// soft-bit range consumed by a downstream Viterbi decoder. The sign flip
// matches the convention that a positive received component represents a
// transmitted '0' bit.
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
