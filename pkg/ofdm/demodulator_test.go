package ofdm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dabcore/ofdmreceiver/pkg/ofdm"
	"github.com/dabcore/ofdmreceiver/pkg/ofdm/modes"
	"github.com/dabcore/ofdmreceiver/pkg/ofdm/testsignal"
)

// fastAcquisitionConfig tunes the L1-average block size well below the
// mode's null period so a synthetic frame's power dip is detected cleanly
// within one or two blocks, instead of being averaged away by a block
// spanning both the null and its surrounding symbols.
func fastAcquisitionConfig(nullPeriod int) ofdm.Config {
	cfg := ofdm.DefaultConfig()
	cfg.SignalL1.NbSamples = nullPeriod / 8
	cfg.SignalL1.Beta = 0.3
	cfg.NbDesiredThreads = 2
	return cfg
}

func collectFrames(t *testing.T, results chan ofdm.FrameResult, n int) []ofdm.FrameResult {
	t.Helper()
	got := make([]ofdm.FrameResult, 0, n)
	for len(got) < n {
		select {
		case r := <-results:
			got = append(got, r)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for decoded frames, got %d/%d", len(got), n)
		}
	}
	return got
}

func TestDemodulatorRoundTripNoFrequencyOffset(t *testing.T) {
	gen, err := testsignal.NewGenerator(modes.ModeIII)
	require.NoError(t, err)

	params, err := modes.Params(modes.ModeIII)
	require.NoError(t, err)
	ref, err := modes.Reference(modes.ModeIII)
	require.NoError(t, err)

	cfg := fastAcquisitionConfig(params.NbNullPeriod)

	results := make(chan ofdm.FrameResult, 8)
	demod, err := ofdm.NewDemodulator(cfg, params, ref, ofdm.WithObserver(func(r ofdm.FrameResult) {
		results <- r
	}))
	require.NoError(t, err)
	defer demod.Close()

	samples, expectedBits := gen.Stream(2)
	require.NoError(t, demod.Process(samples))

	got := collectFrames(t, results, 2)
	require.Equal(t, expectedBits[0], got[0].Bits)
	require.Equal(t, expectedBits[1], got[1].Bits)
	require.Equal(t, uint64(0), got[1].TotalFramesDesync)
}

func TestDemodulatorRoundTripWithFrequencyOffset(t *testing.T) {
	gen, err := testsignal.NewGenerator(modes.ModeIII)
	require.NoError(t, err)

	params, err := modes.Params(modes.ModeIII)
	require.NoError(t, err)
	ref, err := modes.Reference(modes.ModeIII)
	require.NoError(t, err)

	cfg := fastAcquisitionConfig(params.NbNullPeriod)

	results := make(chan ofdm.FrameResult, 8)
	demod, err := ofdm.NewDemodulator(cfg, params, ref, ofdm.WithObserver(func(r ofdm.FrameResult) {
		results <- r
	}))
	require.NoError(t, err)
	defer demod.Close()

	samples, expectedBits := gen.Stream(2)
	shifted := testsignal.ApplyFrequencyShift(samples, 0.0008)
	require.NoError(t, demod.Process(shifted))

	got := collectFrames(t, results, 2)
	require.Equal(t, expectedBits[1], got[1].Bits)
	require.Zero(t, got[1].FreqCoarseOffset)
}

func TestDemodulatorDecodesNoFramesFromNoise(t *testing.T) {
	params, err := modes.Params(modes.ModeIII)
	require.NoError(t, err)
	ref, err := modes.Reference(modes.ModeIII)
	require.NoError(t, err)

	cfg := fastAcquisitionConfig(params.NbNullPeriod)

	demod, err := ofdm.NewDemodulator(cfg, params, ref)
	require.NoError(t, err)
	defer demod.Close()

	noise := make([]complex64, 20*params.NbNullPeriod)
	state := uint32(12345)
	for i := range noise {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		re := float32(state%1000)/1000 - 0.5
		noise[i] = complex(re, -re)
	}

	require.NoError(t, demod.Process(noise))
	require.Equal(t, uint64(0), demod.TotalFramesRead())
}
