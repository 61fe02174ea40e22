package audio

import (
	"testing"

	"github.com/blockbox/controller/internal/resampler"
	"github.com/stretchr/testify/require"
)

func identityRows(p int) [][]float32 {
	rows := make([][]float32, p)
	for i := range rows {
		rows[i] = []float32{1}
	}
	return rows
}

func TestNewChannelSRCSelectsStagesByRate(t *testing.T) {
	c96, err := NewChannelSRC(SRCConfig{Rate: Rate96000, AdaptiveCoefs: identityRows(4)})
	require.NoError(t, err)
	require.Nil(t, c96.interp2x)
	require.Nil(t, c96.fixed)
	require.NotNil(t, c96.adaptive)

	c48, err := NewChannelSRC(SRCConfig{
		Rate:          Rate48000,
		Interp2xCoefs: identityRows(2),
		AdaptiveCoefs: identityRows(4),
	})
	require.NoError(t, err)
	require.NotNil(t, c48.interp2x)
	require.Nil(t, c48.fixed)

	c44, err := NewChannelSRC(SRCConfig{
		Rate:            Rate44100,
		Interp2xCoefs:   identityRows(2),
		Fixed160Over147: identityRows(160),
		AdaptiveCoefs:   identityRows(4),
	})
	require.NoError(t, err)
	require.NotNil(t, c44.interp2x)
	require.NotNil(t, c44.fixed)
}

func TestNewChannelSRCRejectsUnknownRate(t *testing.T) {
	_, err := NewChannelSRC(SRCConfig{Rate: InputRate(99), AdaptiveCoefs: identityRows(4)})
	require.ErrorIs(t, err, ErrUnsupportedRate)
}

func TestChannelSRCConvertProducesRequestedOutputLength(t *testing.T) {
	c, err := NewChannelSRC(SRCConfig{Rate: Rate96000, AdaptiveCoefs: identityRows(4)})
	require.NoError(t, err)

	in := make([]float32, 2000)
	for i := range in {
		in[i] = float32(i)
	}
	out := make([]float32, 512)

	consumed := c.Convert(in, out, resampler.Step{Int: 4})
	require.Greater(t, consumed, 0)
	require.LessOrEqual(t, consumed, len(in))
}
