package safety

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testCeiling() (c [measurementTypeCount][timescaleCount][channelCount]float32) {
	for mt := range c {
		for ts := range c[mt] {
			for ch := range c[mt][ts] {
				c[mt][ts][ch] = 100
			}
		}
	}
	return c
}

func TestBuildUniformCeilingBroadcastsAcrossChannels(t *testing.T) {
	c := BuildUniformCeiling(
		[timescaleCount]float32{1, 2, 3},
		[timescaleCount]float32{4, 5, 6},
		[timescaleCount]float32{7, 8, 9},
	)
	for ch := Channel(0); ch < channelCount; ch++ {
		require.Equal(t, float32(1), c[IRms][Instantaneous][ch])
		require.Equal(t, float32(2), c[IRms][Fast][ch])
		require.Equal(t, float32(3), c[IRms][Slow][ch])
		require.Equal(t, float32(6), c[PAvg][Slow][ch])
		require.Equal(t, float32(9), c[PApp][Slow][ch])
	}
}

func TestSetThresholdRejectedOutsideManualShutdown(t *testing.T) {
	s := NewSupervisor(thresholdTable{}, testCeiling())

	err := s.SetThreshold(IRms, Instantaneous, ChannelA, Err, 10)
	require.ErrorIs(t, err, ErrNotInManualShutdown)
}

func TestSetThresholdClampsErrToCeiling(t *testing.T) {
	s := NewSupervisor(thresholdTable{}, testCeiling())
	s.SetManualShutdown(true)

	require.NoError(t, s.SetThreshold(IRms, Instantaneous, ChannelA, Err, 500))
	require.Equal(t, float32(100), s.Threshold(IRms, Instantaneous, ChannelA, Err))
}

func TestCheckInstantaneousLatchesOnErrBreach(t *testing.T) {
	s := NewSupervisor(thresholdTable{}, testCeiling())
	s.SetManualShutdown(true)
	require.NoError(t, s.SetThreshold(IRms, Instantaneous, ChannelB, Err, 10))
	require.NoError(t, s.SetThreshold(IRms, Instantaneous, ChannelB, Warn, 5))
	s.SetManualShutdown(false)

	var values [channelCount]float32
	values[ChannelB] = 12
	s.CheckInstantaneous(IRms, values)

	require.True(t, s.SafetyShutdown())
	ev := <-s.Events
	require.Equal(t, EventErr, ev.Kind)
	require.Equal(t, ChannelB, ev.Channel)
}

func TestCheckInstantaneousWarnDoesNotLatch(t *testing.T) {
	s := NewSupervisor(thresholdTable{}, testCeiling())
	s.SetManualShutdown(true)
	require.NoError(t, s.SetThreshold(PAvg, Fast, ChannelC, Err, 50))
	require.NoError(t, s.SetThreshold(PAvg, Fast, ChannelC, Warn, 10))
	s.SetManualShutdown(false)

	var values [channelCount]float32
	values[ChannelC] = 20
	s.CheckFast(PAvg, values)

	require.False(t, s.SafetyShutdown())
	ev := <-s.Events
	require.Equal(t, EventWarn, ev.Kind)
}

func TestIsShutdownRule(t *testing.T) {
	s := NewSupervisor(thresholdTable{}, testCeiling())
	require.False(t, s.IsShutdown(true))
	require.True(t, s.IsShutdown(false), "invalid pvdd forces shutdown")

	s.SetManualShutdown(true)
	require.True(t, s.IsShutdown(true))
}

func TestSanityCheckFailureResetsThresholdsAndLatches(t *testing.T) {
	ceiling := testCeiling()
	s := NewSupervisor(thresholdTable{}, ceiling)
	// Force an out-of-bounds ERR threshold directly, bypassing the
	// clamp-on-write path, to simulate corrupted state.
	s.thresholds[IRms][Instantaneous][ChannelA][Err] = 1000

	var values [channelCount]float32
	s.CheckInstantaneous(IRms, values)

	require.True(t, s.SafetyShutdown())
	ev := <-s.Events
	require.Equal(t, EventSanityFail, ev.Kind)
	require.Equal(t, s.defaults, s.thresholds)
}
