package ofdm

import "fmt"

// Reference holds the per-transmission-mode correlation references derived
// once at construction time: the conjugated frequency-domain PRS, its
// conjugated differential time-domain counterpart, and the frequency
// deinterleaving carrier map.
type Reference struct {
	// NbFFT is the FFT length this reference was built for.
	NbFFT int
	// PRSFFTReference is conj(prsFFTRef), ready to multiply against a
	// received PRS spectrum during fine time sync.
	PRSFFTReference []complex64
	// PRSTimeReference is conj(IFFT(relativePhase(prsFFTRef))), used by
	// coarse frequency sync to correlate the received PRS's differential
	// time-domain pattern against the transmitted one.
	PRSTimeReference []complex64
	// CarrierMapper deinterleaves demodulated data carriers back into
	// transmission order: CarrierMapper[i] is the destination bit index
	// for subcarrier i.
	CarrierMapper []int
}

// NewReference builds a Reference from an unconjugated frequency-domain PRS
// (one complex value per FFT bin, zero on unused bins) and a carrier
// deinterleaving map. It mirrors the OFDM demodulator constructor's
// reference precomputation in ofdm_demodulator.cpp: conjugate the PRS
// spectrum, derive its relative-phase time-domain counterpart via IFFT, and
// conjugate that too.
func NewReference(prsFFTRef []complex128, carrierMapper []int) (Reference, error) {
	n := len(prsFFTRef)
	if n == 0 || n&(n-1) != 0 {
		return Reference{}, fmt.Errorf("ofdm: reference FFT length must be a positive power of two, got %d", n)
	}

	prsFFT := make([]complex64, n)
	for i, v := range prsFFTRef {
		prsFFT[i] = complex64(v)
	}

	fftConj := make([]complex64, n)
	for i, v := range prsFFT {
		fftConj[i] = complex64(conj128(complex128(v)))
	}

	relPhase := make([]complex64, n)
	calculateRelativePhase(prsFFT, relPhase)

	plan := newFFTPlan(n)
	timeRef := make([]complex64, n)
	plan.Inverse(timeRef, relPhase)

	timeConj := make([]complex64, n)
	for i, v := range timeRef {
		timeConj[i] = complex64(conj128(complex128(v)))
	}

	mapCopy := make([]int, len(carrierMapper))
	copy(mapCopy, carrierMapper)

	return Reference{
		NbFFT:            n,
		PRSFFTReference:  fftConj,
		PRSTimeReference: timeConj,
		CarrierMapper:    mapCopy,
	}, nil
}

func conj128(z complex128) complex128 {
	return complex(real(z), -imag(z))
}
