package modes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParamsValidForEveryMode(t *testing.T) {
	for _, m := range []Mode{ModeI, ModeII, ModeIII, ModeIV} {
		p, err := Params(m)
		require.NoError(t, err, m.String())
		require.NoError(t, p.Validate(), m.String())
	}
}

func TestReferenceShapeMatchesParams(t *testing.T) {
	for _, m := range []Mode{ModeI, ModeII, ModeIII, ModeIV} {
		p, err := Params(m)
		require.NoError(t, err)

		ref, err := Reference(m)
		require.NoError(t, err)

		require.Equal(t, p.NbFFT, ref.NbFFT)
		require.Len(t, ref.PRSFFTReference, p.NbFFT)
		require.Len(t, ref.PRSTimeReference, p.NbFFT)
		require.Len(t, ref.CarrierMapper, p.NbDataCarriers)
	}
}

func TestCarrierMapperIsAPermutation(t *testing.T) {
	for _, m := range []Mode{ModeI, ModeII, ModeIII, ModeIV} {
		_, carrierMapper, err := RawReference(m)
		require.NoError(t, err)

		seen := make(map[int]bool, len(carrierMapper))
		for _, j := range carrierMapper {
			require.False(t, seen[j], "duplicate mapped index %d in mode %v", j, m)
			seen[j] = true
		}
		require.Len(t, seen, len(carrierMapper))
	}
}

func TestUnknownModeErrors(t *testing.T) {
	_, err := Params(Mode(99))
	require.Error(t, err)
}
