package safety

import "math"

// pvddMode distinguishes the tracking controller's two operating modes.
type pvddMode int

const (
	pvddNormal pvddMode = iota
	pvddReduction
)

// PVDDEventKind distinguishes the tracking controller's reportable faults.
type PVDDEventKind int

const (
	PVDDErr PVDDEventKind = iota
	PVDDOffsetLimit
	PVDDReductionTimeout
)

// PVDDConfig bundles the tracking-supply controller's compile-time
// constants (spec §4.E).
type PVDDConfig struct {
	VMin, VMax       float32
	OffsetMax        float32
	OffsetStep       float32
	CorrectThreshold float32 // "CORRECT": offset nudges when |error| exceeds this
	ReductionFactor  float32 // fraction of measured voltage a direct-apply must clear
	FailMargin       float32
	FailMarginReductionScale float32 // widens FailMargin during reduction
	OVPCeiling       float32
	DACFactor        float32
	Intercept        float32 // ~17.9 V
	WindowSize       int     // N-sample stability window
	StabilityMargin  float32 // "MARGIN": max-min below this is "stable"
	LockoutTicks     int     // short lock-out after a direct apply or offset step
	ReductionLockoutTicks int
	ReductionTimeoutTicks int // 30s hard timeout, expressed in main-loop ticks
	EMAAlpha         float32 // fast EMA coefficient for the measured-voltage sample
}

// Controller implements the PVDD set-target state machine, voltage-fail
// detection, and offset correction from spec §4.E.
type Controller struct {
	cfg PVDDConfig

	target    float32
	requested float32
	measured  float32
	measuredEMA float32
	offset    float32
	valid     bool

	mode pvddMode

	window      []float32
	lockout     int
	reductionElapsed int
	reductionGoal    float32

	// Events receives PVDD faults; nil drops them.
	Events chan PVDDEventKind
}

// NewController builds a controller at V=0, invalid, in Normal mode.
func NewController(cfg PVDDConfig) *Controller {
	return &Controller{cfg: cfg, Events: make(chan PVDDEventKind, 16)}
}

func (c *Controller) emit(k PVDDEventKind) {
	if c.Events == nil {
		return
	}
	select {
	case c.Events <- k:
	default:
	}
}

// Valid reports whether the controller currently trusts its voltage state.
func (c *Controller) Valid() bool { return c.valid }

// Target, Requested, Measured, Offset expose the controller's live state.
func (c *Controller) Target() float32    { return c.target }
func (c *Controller) Requested() float32 { return c.requested }
func (c *Controller) Measured() float32  { return c.measured }
func (c *Controller) Offset() float32    { return c.offset }

// InReduction reports whether the controller is mid-reduction.
func (c *Controller) InReduction() bool { return c.mode == pvddReduction }

// DACCode computes the DAC code for the current requested voltage (plus
// offset): floor(DAC_FACTOR * (V_req - intercept)), after clamping V_req to
// [intercept, VMax+1] regardless of the target-voltage clamp SetTarget
// already applies (pvdd_control.c's _PVDD_WriteDACVoltage: a defense-in-depth
// clamp on the value actually written to the DAC, independent of how
// pvdd_voltage_requested got there).
func (c *Controller) DACCode() int {
	vreq := clampf(c.requested+c.offset, c.cfg.Intercept, c.cfg.VMax+1)
	return int(math.Floor(float64(c.cfg.DACFactor) * float64(vreq-c.cfg.Intercept)))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetTarget requests a new target voltage (spec §4.E "Set-target state
// machine"). A target that the current measured voltage can reach directly
// (V_new >= V_meas*ReductionFactor) is applied immediately with a short
// lock-out armed; otherwise the controller enters REDUCTION, stepping down
// toward V_new via max(V_meas*ReductionFactor, V_new) steps.
func (c *Controller) SetTarget(vNew float32) {
	vNew = clampf(vNew, c.cfg.VMin, c.cfg.VMax)
	if vNew == c.target && c.mode == pvddNormal {
		return // idempotent: already settled at this target
	}

	if vNew >= c.measured*c.cfg.ReductionFactor {
		c.target = vNew
		c.requested = vNew
		c.mode = pvddNormal
		c.lockout = c.cfg.LockoutTicks
		return
	}

	c.target = vNew
	c.mode = pvddReduction
	c.reductionGoal = float32(math.Max(float64(c.measured*c.cfg.ReductionFactor), float64(vNew)))
	c.requested = c.reductionGoal
	c.lockout = c.cfg.ReductionLockoutTicks
	c.reductionElapsed = 0
	c.window = c.window[:0]
}

// Tick runs one main-loop cycle: it folds measuredVoltage into the fast
// EMA, advances the reduction state machine if active (which runs
// voltage-fail detection with the widened margin), and otherwise runs
// voltage-fail detection and, once any lock-out has expired, offset
// correction.
func (c *Controller) Tick(measuredVoltage float32) {
	if c.lockout > 0 {
		c.lockout--
	}
	alpha := c.cfg.EMAAlpha
	if c.measuredEMA == 0 {
		c.measuredEMA = measuredVoltage
	} else {
		c.measuredEMA = alpha*measuredVoltage + (1-alpha)*c.measuredEMA
	}
	c.measured = c.measuredEMA

	if c.mode == pvddReduction {
		c.tickReduction()
		return
	}

	c.checkVoltageFail(c.cfg.FailMargin)
	if c.valid && c.lockout == 0 {
		c.checkOffsetCorrection()
	}
}

func (c *Controller) tickReduction() {
	c.checkVoltageFail(c.cfg.FailMargin * c.cfg.FailMarginReductionScale)
	if c.mode != pvddReduction {
		return // checkVoltageFail reset the controller to Normal
	}

	c.reductionElapsed++
	c.window = append(c.window, c.measured)
	if len(c.window) > c.cfg.WindowSize {
		c.window = c.window[len(c.window)-c.cfg.WindowSize:]
	}

	if c.reductionElapsed >= c.cfg.ReductionTimeoutTicks {
		c.target = c.measured
		c.requested = c.measured
		c.mode = pvddNormal
		c.emit(PVDDReductionTimeout)
		return
	}

	if len(c.window) < c.cfg.WindowSize || c.lockout > 0 {
		return
	}

	lo, hi := c.window[0], c.window[0]
	for _, v := range c.window {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo >= c.cfg.StabilityMargin {
		return
	}

	if c.requested <= c.target {
		c.mode = pvddNormal
		c.requested = c.target
		return
	}

	next := float32(math.Max(float64(c.measured*c.cfg.ReductionFactor), float64(c.target)))
	c.requested = next
	c.lockout = c.cfg.ReductionLockoutTicks
	c.window = c.window[:0]
	if next <= c.target {
		c.mode = pvddNormal
	}
}

// checkVoltageFail runs voltage-fail detection (spec §4.E) with the given
// fail margin: callers in Normal mode pass FailMargin directly; tickReduction
// passes it widened by FailMarginReductionScale, since the rail is
// deliberately transiting away from the target during a reduction step.
func (c *Controller) checkVoltageFail(margin float32) {
	diff := c.measured - c.target
	failLow := diff < -margin
	failHigh := c.measured > c.cfg.OVPCeiling
	if !failLow && !failHigh {
		return
	}
	c.valid = false
	c.offset = 0
	reqClamped := clampf(c.measured, c.cfg.VMin, c.cfg.VMax)
	c.requested = reqClamped
	c.target = reqClamped
	c.mode = pvddNormal
	c.emit(PVDDErr)
}

func (c *Controller) checkOffsetCorrection() {
	err := c.measured - c.target
	if err < -c.cfg.CorrectThreshold && c.offset < c.cfg.OffsetMax {
		c.offset = clampf(c.offset+c.cfg.OffsetStep, -c.cfg.OffsetMax, c.cfg.OffsetMax)
		c.lockout = c.cfg.LockoutTicks
		if c.offset >= c.cfg.OffsetMax {
			c.emit(PVDDOffsetLimit)
		}
		return
	}
	if err > c.cfg.CorrectThreshold && c.offset > -c.cfg.OffsetMax {
		c.offset = clampf(c.offset-c.cfg.OffsetStep, -c.cfg.OffsetMax, c.cfg.OffsetMax)
		c.lockout = c.cfg.LockoutTicks
		if c.offset <= -c.cfg.OffsetMax {
			c.emit(PVDDOffsetLimit)
		}
	}
}

// MarkValid allows the owner to declare the voltage trustworthy again after
// a controller reset has re-synced to the measured rail (spec: "requests
// the currently measured voltage ... and raises PVDD_ERR", after which
// normal Tick calls resume once the caller confirms the new request
// settled).
func (c *Controller) MarkValid() {
	c.valid = true
}
