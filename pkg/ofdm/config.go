package ofdm

// Config holds the tunables of the acquisition and tracking loops. Field
// names mirror the teacher's turbine/config.go convention of one YAML-tagged
// struct with documented defaults rather than scattered constants.
type Config struct {
	// NbDesiredThreads caps the number of pipeline worker goroutines. Zero
	// means derive it from GOMAXPROCS, reserving one core for ingest.
	NbDesiredThreads int `yaml:"nb_desired_threads"`

	// SignalL1 configures the running L1-average tracker used both for
	// null-dip detection thresholds and general AGC-adjacent bookkeeping.
	SignalL1 SignalL1Config `yaml:"signal_l1"`

	// ThreshNullStart/ThreshNullEnd are fractions of the running L1
	// average below/above which a sample block is classified as being
	// inside/outside the null symbol's power dip.
	ThreshNullStart float64 `yaml:"thresh_null_start"`
	ThreshNullEnd   float64 `yaml:"thresh_null_end"`

	// IsCoarseFreqCorrection enables the FFT-domain coarse carrier search.
	// Disabling it is useful when the tuner's LO is already well
	// calibrated, or for isolating fine sync behaviour in tests.
	IsCoarseFreqCorrection bool `yaml:"is_coarse_freq_correction"`
	// MaxCarrierOffset bounds the coarse search window, in carriers.
	MaxCarrierOffset int `yaml:"max_carrier_offset"`
	// CoarseFreqSlowBeta is the EMA weight applied to coarse corrections
	// once the receiver is no longer in its initial fast-acquisition
	// regime.
	CoarseFreqSlowBeta float64 `yaml:"coarse_freq_slow_beta"`
	// LargeOffsetThresholdFactor switches the coarse loop back into fast-update
	// mode when the measured error exceeds this many carrier-spacings.
	// Expressed as a multiple of 1/NbFFT.
	LargeOffsetThresholdFactor float64 `yaml:"large_offset_threshold_factor"`

	// ImpulsePeakDistanceProbability biases the fine-time peak search
	// toward the expected cyclic-prefix offset, trading sensitivity to
	// multipath ghosts for timing stability.
	ImpulsePeakDistanceProbability float64 `yaml:"impulse_peak_distance_probability"`
	// ImpulsePeakThresholdDB is the minimum peak-to-average ratio, in dB,
	// required to accept fine time sync; below it the frame is declared
	// desynced.
	ImpulsePeakThresholdDB float64 `yaml:"impulse_peak_threshold_db"`

	// FineFreqUpdateBeta is the per-frame EMA weight applied to the
	// coordinator's cyclic-prefix phase-error fine frequency correction.
	FineFreqUpdateBeta float64 `yaml:"fine_freq_update_beta"`

	// SoftDecisionViterbiHigh scales normalized DQPSK components into the
	// soft-bit range consumed by a downstream Viterbi decoder.
	SoftDecisionViterbiHigh float64 `yaml:"soft_decision_viterbi_high"`
}

// SignalL1Config configures the decimated running-average tracker.
type SignalL1Config struct {
	NbSamples  int     `yaml:"nb_samples"`
	NbDecimate int     `yaml:"nb_decimate"`
	Beta       float64 `yaml:"beta"`
}

// DefaultConfig returns the values used by the reference implementation,
// ported from the documented defaults in ofdm_demodulator.cpp.
func DefaultConfig() Config {
	return Config{
		NbDesiredThreads: 0,
		SignalL1: SignalL1Config{
			NbSamples:  4096,
			NbDecimate: 4,
			Beta:       0.1,
		},
		ThreshNullStart:                0.35,
		ThreshNullEnd:                  0.35,
		IsCoarseFreqCorrection:         true,
		MaxCarrierOffset:               29,
		CoarseFreqSlowBeta:             0.1,
		LargeOffsetThresholdFactor:     1.5,
		ImpulsePeakDistanceProbability: 0.15,
		ImpulsePeakThresholdDB:         6.0,
		FineFreqUpdateBeta:             0.1,
		SoftDecisionViterbiHigh:        127.0,
	}
}
