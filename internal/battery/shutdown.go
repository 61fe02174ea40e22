package battery

// ShutdownType distinguishes the three timed-shutdown flavors (spec §4.F).
type ShutdownType int

const (
	FullShutdown ShutdownType = iota
	EndOfDischarge
	HostRequest
	shutdownTypeCount
)

// defaultShutdownTicks gives each type's countdown length at a 10ms
// main-loop period: FullShutdown ~8.5s, EndOfDischarge ~30s, HostRequest
// ~10s.
var defaultShutdownTicks = [shutdownTypeCount]int{
	FullShutdown:   850,
	EndOfDischarge: 3000,
	HostRequest:    1000,
}

// ShutdownController tracks the independent countdowns for the three timed
// shutdown types. Arming an already-armed countdown of the same type is a
// no-op (spec: "does not reset its countdown").
type ShutdownController struct {
	ticksTotal   [shutdownTypeCount]int
	remaining    [shutdownTypeCount]int
	armed        [shutdownTypeCount]bool

	// Fire is invoked once per type when its countdown reaches zero. The
	// caller distinguishes FullShutdown (issue the BMS shutdown
	// subcommand) from the other two (request deepsleep), per spec.
	Fire func(ShutdownType)
}

// NewShutdownController builds a controller using the spec's default
// countdown lengths.
func NewShutdownController() *ShutdownController {
	return &ShutdownController{ticksTotal: defaultShutdownTicks}
}

// Arm starts t's countdown if it isn't already armed; re-arming an already
// armed countdown is a no-op.
func (c *ShutdownController) Arm(t ShutdownType) {
	if c.armed[t] {
		return
	}
	c.armed[t] = true
	c.remaining[t] = c.ticksTotal[t]
}

// Cancel disarms t's countdown without firing.
func (c *ShutdownController) Cancel(t ShutdownType) {
	c.armed[t] = false
	c.remaining[t] = 0
}

// Armed reports whether t's countdown is currently running.
func (c *ShutdownController) Armed(t ShutdownType) bool {
	return c.armed[t]
}

// Remaining reports t's remaining tick count (0 if not armed).
func (c *ShutdownController) Remaining(t ShutdownType) int {
	return c.remaining[t]
}

// Tick advances every armed countdown by one main-loop tick, firing and
// disarming any that reach zero.
func (c *ShutdownController) Tick() {
	for t := ShutdownType(0); t < shutdownTypeCount; t++ {
		if !c.armed[t] {
			continue
		}
		c.remaining[t]--
		if c.remaining[t] <= 0 {
			c.armed[t] = false
			if c.Fire != nil {
				c.Fire(t)
			}
		}
	}
}
