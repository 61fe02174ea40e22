package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouterPicksFirstAvailableAfterTick(t *testing.T) {
	r := NewRouter()
	r.NotifySamplesArrived(SourceUSB)
	r.Tick()

	require.Equal(t, SourceUSB, r.Active())
	require.False(t, r.Available(SourceI2S1), "i2s1 never fed a sample, so it drops out on the first tick")
}

func TestRouterSwitchesWhenActiveGoesSilent(t *testing.T) {
	r := NewRouter()
	r.NotifySamplesArrived(SourceI2S1)
	r.Tick()
	require.Equal(t, SourceI2S1, r.Active())

	var notified [2]Source
	r.OnActiveChange = func(old, new Source) { notified = [2]Source{old, new} }

	r.NotifySamplesArrived(SourceUSB)
	r.Tick() // i2s1 goes silent, usb becomes active

	require.Equal(t, SourceUSB, r.Active())
	require.Equal(t, [2]Source{SourceI2S1, SourceUSB}, notified)
}

func TestRouterGoesToNoneWhenNothingAvailable(t *testing.T) {
	r := NewRouter()
	r.NotifySamplesArrived(SourceI2S1)
	r.Tick()
	require.Equal(t, SourceI2S1, r.Active())

	r.Tick() // nothing fed a sample this cycle
	require.Equal(t, SourceNone, r.Active())
}

func TestRouterStaysOnActiveWhileItKeepsFeeding(t *testing.T) {
	r := NewRouter()
	for i := 0; i < 5; i++ {
		r.NotifySamplesArrived(SourceSPDIF)
		r.Tick()
		require.Equal(t, SourceSPDIF, r.Active())
	}
}
