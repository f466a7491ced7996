package ofdm

import "fmt"

// Params fixes the OFDM geometry for a chosen DAB transmission mode. It is
// immutable after construction (spec §3 "OFDM parameters").
type Params struct {
	// NbFFT is the useful symbol length in samples.
	NbFFT int
	// NbCyclicPrefix is the cyclic prefix length in samples.
	NbCyclicPrefix int
	// NbNullPeriod is the length of the null symbol preceding the PRS.
	NbNullPeriod int
	// NbFrameSymbols is the number of data symbols per frame, including
	// the PRS as symbol 0.
	NbFrameSymbols int
	// NbDataCarriers is the number of information-bearing subcarriers,
	// symmetric about DC.
	NbDataCarriers int
}

// NbSymbolPeriod is the length of one OFDM symbol including its cyclic
// prefix.
func (p Params) NbSymbolPeriod() int {
	return p.NbFFT + p.NbCyclicPrefix
}

// Validate reports configuration errors found at construction time (spec §7
// "Configuration errors"): the core refuses to start rather than surface
// them on the sample path.
func (p Params) Validate() error {
	if p.NbFFT <= 0 {
		return fmt.Errorf("ofdm: nb_fft must be positive, got %d", p.NbFFT)
	}
	if p.NbFFT&(p.NbFFT-1) != 0 {
		return fmt.Errorf("ofdm: nb_fft must be a power of two, got %d", p.NbFFT)
	}
	if p.NbCyclicPrefix <= 0 || p.NbCyclicPrefix >= p.NbFFT {
		return fmt.Errorf("ofdm: nb_cyclic_prefix must be in (0, nb_fft), got %d", p.NbCyclicPrefix)
	}
	if p.NbNullPeriod <= p.NbSymbolPeriod() {
		return fmt.Errorf("ofdm: nb_null_period (%d) must exceed one symbol period (%d)", p.NbNullPeriod, p.NbSymbolPeriod())
	}
	if p.NbFrameSymbols < 2 {
		return fmt.Errorf("ofdm: nb_frame_symbols must be >= 2 (PRS + at least one data symbol), got %d", p.NbFrameSymbols)
	}
	if p.NbDataCarriers <= 0 || p.NbDataCarriers%2 != 0 {
		return fmt.Errorf("ofdm: nb_data_carriers must be a positive even number, got %d", p.NbDataCarriers)
	}
	if p.NbDataCarriers >= p.NbFFT {
		return fmt.Errorf("ofdm: nb_data_carriers (%d) must be less than nb_fft (%d)", p.NbDataCarriers, p.NbFFT)
	}
	return nil
}
