package battery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShutdownArmStartsCountdown(t *testing.T) {
	c := NewShutdownController()
	c.Arm(HostRequest)
	require.True(t, c.Armed(HostRequest))
	require.Equal(t, defaultShutdownTicks[HostRequest], c.Remaining(HostRequest))
}

func TestShutdownReArmIsNoop(t *testing.T) {
	c := NewShutdownController()
	c.Arm(FullShutdown)
	c.Tick()
	c.Tick()
	remainingAfterTwoTicks := c.Remaining(FullShutdown)

	c.Arm(FullShutdown) // should not reset
	require.Equal(t, remainingAfterTwoTicks, c.Remaining(FullShutdown))
}

func TestShutdownFiresAtZeroAndDisarms(t *testing.T) {
	c := NewShutdownController()
	c.ticksTotal[HostRequest] = 3
	var fired ShutdownType = -1
	c.Fire = func(st ShutdownType) { fired = st }

	c.Arm(HostRequest)
	c.Tick()
	c.Tick()
	require.Equal(t, ShutdownType(-1), fired)
	c.Tick()

	require.Equal(t, HostRequest, fired)
	require.False(t, c.Armed(HostRequest))
}

func TestShutdownCancelStopsCountdown(t *testing.T) {
	c := NewShutdownController()
	c.ticksTotal[EndOfDischarge] = 5
	c.Arm(EndOfDischarge)
	c.Tick()
	c.Cancel(EndOfDischarge)

	require.False(t, c.Armed(EndOfDischarge))

	var fired bool
	c.Fire = func(ShutdownType) { fired = true }
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	require.False(t, fired)
}

func TestShutdownCountdownsAreIndependent(t *testing.T) {
	c := NewShutdownController()
	c.ticksTotal[FullShutdown] = 2
	c.ticksTotal[HostRequest] = 5

	c.Arm(FullShutdown)
	c.Arm(HostRequest)

	var order []ShutdownType
	c.Fire = func(st ShutdownType) { order = append(order, st) }

	for i := 0; i < 5; i++ {
		c.Tick()
	}

	require.Equal(t, []ShutdownType{FullShutdown, HostRequest}, order)
}
