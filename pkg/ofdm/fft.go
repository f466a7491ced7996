package ofdm

import "gonum.org/v1/gonum/dsp/fourier"

// fftPlan is the opaque complex FFT/IFFT engine the demodulator's math
// routines are built against. Every transform operates on pre-sized
// buffers supplied by the caller; the plan never allocates once
// constructed, matching the "size once, never mid-frame" buffer policy
// (DESIGN.md, "FFTW alignment arena").
type fftPlan struct {
	n    int
	fft  *fourier.CmplxFFT
	in   []complex128
	out  []complex128
}

func newFFTPlan(n int) *fftPlan {
	return &fftPlan{
		n:   n,
		fft: fourier.NewCmplxFFT(n),
		in:  make([]complex128, n),
		out: make([]complex128, n),
	}
}

// Forward computes dst = FFT(src). len(src) == len(dst) == n.
func (p *fftPlan) Forward(dst, src []complex64) {
	for i, v := range src {
		p.in[i] = complex(float64(real(v)), float64(imag(v)))
	}
	p.fft.Coefficients(p.out, p.in)
	for i, v := range p.out {
		dst[i] = complex64(v)
	}
}

// Inverse computes dst = IFFT(src). gonum's Sequence already normalizes by
// 1/n, so Inverse(Forward(x)) == x. len(src) == len(dst) == n.
func (p *fftPlan) Inverse(dst, src []complex64) {
	for i, v := range src {
		p.in[i] = complex(float64(real(v)), float64(imag(v)))
	}
	p.fft.Sequence(p.out, p.in)
	for i, v := range p.out {
		dst[i] = complex64(v)
	}
}

// forward128/inverse128 operate on complex128 slices directly, used by the
// reference builder which works ahead of any complex64 frame data.
func (p *fftPlan) forward128(dst, src []complex128) {
	p.fft.Coefficients(dst, src)
}

func (p *fftPlan) inverse128(dst, src []complex128) {
	p.fft.Sequence(dst, src)
}
