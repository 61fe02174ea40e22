package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMixerIdentityPassesThrough(t *testing.T) {
	m := NewIdentityMixer(2)
	in := [][]float32{{1, 2, 3}, {4, 5, 6}}
	out := [][]float32{make([]float32, 3), make([]float32, 3)}

	require.NoError(t, m.Apply(in, out))
	require.Equal(t, in, out)
}

func TestMixerAppliesGainMatrix(t *testing.T) {
	m := &Mixer{Gains: [][]float32{{0.5, 0.5}}} // mono downmix of 2 channels
	in := [][]float32{{2, 4}, {4, 8}}
	out := [][]float32{make([]float32, 2)}

	require.NoError(t, m.Apply(in, out))
	require.Equal(t, []float32{3, 6}, out[0])
}

func TestMixerRejectsChannelMismatch(t *testing.T) {
	m := NewIdentityMixer(2)
	in := [][]float32{{1}, {2}, {3}}
	out := [][]float32{make([]float32, 1), make([]float32, 1)}

	require.ErrorIs(t, m.Apply(in, out), ErrChannelMismatch)
}

func TestBiquadPassthroughWhenIdentity(t *testing.T) {
	bq := Biquad{B0: 1}
	require.Equal(t, float32(5), bq.Process(5))
	require.Equal(t, float32(-2), bq.Process(-2))
}

func TestBiquadResetClearsState(t *testing.T) {
	bq := Biquad{B0: 1, B1: 1}
	bq.Process(1)
	bq.Reset()
	require.Equal(t, float32(5), bq.Process(5), "after reset, B1 term should see a zeroed x1")
}

func TestBiquadCascadePostShiftDoublesGain(t *testing.T) {
	c := &BiquadCascade{Stages: []Biquad{{B0: 1}}, PostShift: 1}
	samples := []float32{1, 2, 3}
	c.ProcessBatch(samples)
	require.Equal(t, []float32{2, 4, 6}, samples)
}

func TestFIRReversedCoefficientOrder(t *testing.T) {
	// Taps = [1, 0, 0]: output equals the current input sample only.
	f := NewFIR([]float32{1, 0, 0})
	out := []float32{1, 2, 3}
	f.ProcessBatch(out)
	require.Equal(t, []float32{1, 2, 3}, out)
}

func TestFIRAppliesDelayedTaps(t *testing.T) {
	// Taps = [0, 1, 0]: output equals the previous input sample.
	f := NewFIR([]float32{0, 1, 0})
	out := []float32{10, 20, 30}
	f.ProcessBatch(out)
	require.Equal(t, []float32{0, 10, 20}, out)
}

func TestOutputStageInterleaved(t *testing.T) {
	o := &OutputStage{Gain: 2}
	in := [][]float32{{1, 2}, {10, 20}}
	out := make([]float32, 4)

	require.NoError(t, o.WriteInterleaved(in, out))
	require.Equal(t, []float32{2, 20, 4, 40}, out)
}

func TestOutputStageNonInterleaved(t *testing.T) {
	o := &OutputStage{Gain: 0.5}
	in := [][]float32{{2, 4}}
	out := [][]float32{make([]float32, 2)}

	require.NoError(t, o.WriteNonInterleaved(in, out))
	require.Equal(t, []float32{1, 2}, out[0])
}
