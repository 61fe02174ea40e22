package safety

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testPVDDConfig() PVDDConfig {
	return PVDDConfig{
		VMin: 20, VMax: 60,
		OffsetMax:        2,
		OffsetStep:       0.5,
		CorrectThreshold: 0.3,
		ReductionFactor:  0.9,
		FailMargin:       1.0,
		FailMarginReductionScale: 2.0,
		OVPCeiling:       65,
		DACFactor:        10.87,
		Intercept:        17.9,
		WindowSize:       4,
		StabilityMargin:  0.1,
		LockoutTicks:     2,
		ReductionLockoutTicks: 2,
		ReductionTimeoutTicks: 10,
		EMAAlpha:         0.5,
	}
}

func TestDACCodeClampsAboveMaxTargetPlusOneVolt(t *testing.T) {
	cfg := testPVDDConfig()
	c := NewController(cfg)
	c.requested = cfg.VMax + 5 // far past the +1V defense-in-depth ceiling
	c.offset = 0

	clamped := cfg.VMax + 1
	want := int((clamped - cfg.Intercept) * cfg.DACFactor)
	require.Equal(t, want, c.DACCode())
}

func TestDACCodeClampsBelowIntercept(t *testing.T) {
	cfg := testPVDDConfig()
	c := NewController(cfg)
	c.requested = cfg.Intercept - 5
	c.offset = 0

	require.Equal(t, 0, c.DACCode())
}

func TestSetTargetDirectApplyWhenReachable(t *testing.T) {
	c := NewController(testPVDDConfig())
	c.measured = 40
	c.SetTarget(38)

	require.Equal(t, float32(38), c.Target())
	require.Equal(t, float32(38), c.Requested())
	require.False(t, c.InReduction())
}

func TestSetTargetEntersReductionWhenBelowFactor(t *testing.T) {
	c := NewController(testPVDDConfig())
	c.measured = 40
	c.SetTarget(20) // well below 40*0.9=36

	require.True(t, c.InReduction())
	require.Equal(t, float32(36), c.Requested())
}

func TestSetTargetSameValueTwiceIsNoop(t *testing.T) {
	c := NewController(testPVDDConfig())
	c.measured = 40
	c.SetTarget(38)
	before := c.Requested()

	c.SetTarget(38)
	require.Equal(t, before, c.Requested())
}

func TestTickVoltageFailLowLatchesErrAndResets(t *testing.T) {
	c := NewController(testPVDDConfig())
	c.measured = 40
	c.SetTarget(40)
	c.lockout = 0
	c.valid = true

	c.Tick(30) // far below target by more than FailMargin

	require.False(t, c.Valid())
	ev := <-c.Events
	require.Equal(t, PVDDErr, ev)
}

func TestTickOffsetCorrectionNudgesTowardTarget(t *testing.T) {
	c := NewController(testPVDDConfig())
	c.measured = 40
	c.SetTarget(40)
	c.lockout = 0
	c.valid = true
	c.measuredEMA = 40

	c.Tick(39) // undershoot beyond CorrectThreshold(0.3) once folded into the EMA
	require.Greater(t, c.Offset(), float32(0))
}

func TestReductionConvergesAndExitsToNormal(t *testing.T) {
	cfg := testPVDDConfig()
	cfg.ReductionTimeoutTicks = 1000 // long enough that only convergence ends the reduction
	c := NewController(cfg)
	c.measured = 40
	c.SetTarget(20)
	require.True(t, c.InReduction())

	// Feed a stable measured voltage at the current reduction goal long
	// enough to fill the window and pass the lock-out, repeatedly, until
	// the geometric step-down converges on the target.
	for i := 0; i < 60 && c.InReduction(); i++ {
		c.Tick(c.Requested())
	}

	require.False(t, c.InReduction(), "reduction should eventually converge to target and return to normal")
	require.InDelta(t, 20, c.Target(), 0.01)
}

func TestReductionHardTimeout(t *testing.T) {
	cfg := testPVDDConfig()
	cfg.ReductionTimeoutTicks = 3
	cfg.WindowSize = 100 // never stabilizes before the window fills
	c := NewController(cfg)
	c.measured = 40
	c.SetTarget(10)
	require.True(t, c.InReduction())

	c.Tick(35)
	c.Tick(35)
	c.Tick(35)

	require.False(t, c.InReduction())
	ev := <-c.Events
	require.Equal(t, PVDDReductionTimeout, ev)
}
