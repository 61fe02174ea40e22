// Package safety implements the power-amp safety supervisor and the PVDD
// tracking-supply controller (spec §4.E): a three-timescale threshold
// engine over RMS current, average real power, and apparent power, and the
// adaptive tracking-rail state machine.
package safety

import (
	"errors"
	"fmt"
	"math"
)

// MeasurementType distinguishes the three electrical quantities the
// supervisor watches.
type MeasurementType int

const (
	IRms MeasurementType = iota
	PAvg
	PApp
	measurementTypeCount
)

func (m MeasurementType) String() string {
	switch m {
	case IRms:
		return "i_rms"
	case PAvg:
		return "p_avg"
	case PApp:
		return "p_app"
	default:
		return "unknown"
	}
}

// Timescale distinguishes the three observation windows: instantaneous (per
// ADC batch), a 0.1s EMA ("fast"), and a 1s EMA ("slow").
type Timescale int

const (
	Instantaneous Timescale = iota
	Fast
	Slow
	timescaleCount
)

// Channel indexes the four amplifier output channels plus their sum.
type Channel int

const (
	ChannelA Channel = iota
	ChannelB
	ChannelC
	ChannelD
	ChannelSum
	channelCount
)

func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	case ChannelC:
		return "C"
	case ChannelD:
		return "D"
	case ChannelSum:
		return "sum"
	default:
		return "unknown"
	}
}

// Level distinguishes a warning threshold (edge-reported, never latches)
// from an error threshold (latches a shutdown).
type Level int

const (
	Warn Level = iota
	Err
	levelCount
)

// ErrNotInManualShutdown is returned by SetThreshold when a write is
// attempted while the amplifier is not in manual shutdown (spec: "Thresholds
// may only be written while the host has asserted manual_shutdown").
var ErrNotInManualShutdown = errors.New("safety: threshold writes require manual shutdown")

type thresholdTable [measurementTypeCount][timescaleCount][channelCount][levelCount]float32

// ThresholdTable is the exported form of the live/default threshold array,
// for callers outside the package that need to build one (cmd/controller's
// config-driven startup). Cells are addressed with the package's exported
// MeasurementType/Timescale/Channel/Level constants.
type ThresholdTable = thresholdTable

// CeilingTable is the exported form of the compile-time ceiling array
// NewSupervisor uses to clamp ERR-level writes and sanity-check the table.
type CeilingTable = [measurementTypeCount][timescaleCount][channelCount]float32

// BuildUniformCeiling constructs a CeilingTable applying the same
// per-timescale ceiling to every channel: the appliance has no per-channel
// ceiling requirement, only a per-measurement-type/timescale one, so the
// config layer supplies one [Instantaneous, Fast, Slow] triple per
// measurement type rather than a full channel-indexed table.
func BuildUniformCeiling(iRms, pAvg, pApp [timescaleCount]float32) CeilingTable {
	var c CeilingTable
	for ch := Channel(0); ch < channelCount; ch++ {
		for ts := Timescale(0); ts < timescaleCount; ts++ {
			c[IRms][ts][ch] = iRms[ts]
			c[PAvg][ts][ch] = pAvg[ts]
			c[PApp][ts][ch] = pApp[ts]
		}
	}
	return c
}

// EventKind distinguishes the supervisor's three reportable conditions.
type EventKind int

const (
	// EventWarn: a WARN breach on this tick (edge-reported, non-latching).
	EventWarn EventKind = iota
	// EventErr: an ERR breach; latches safety_shutdown.
	EventErr
	// EventSanityFail: the threshold table failed its ceiling sanity
	// check; all thresholds were reset to defaults and a shutdown latched.
	EventSanityFail
)

// Event reports one supervisor finding, carrying enough of the source bits
// described in spec §4.E to let the host attribute it ({measurement-type,
// channel-index}).
type Event struct {
	Kind        EventKind
	Measurement MeasurementType
	Timescale   Timescale
	Channel     Channel
}

// Supervisor holds the live and default threshold tables, the compile-time
// error ceiling, and the latched/edge safety state.
type Supervisor struct {
	thresholds thresholdTable
	defaults   thresholdTable
	ceiling    [measurementTypeCount][timescaleCount][channelCount]float32

	manualShutdown bool
	safetyShutdown bool

	// Events receives every Event raised by Check*; the caller is
	// responsible for draining it (e.g. into INT_SERR/INT_SWARN register
	// updates). A nil channel silently drops events.
	Events chan Event
}

// NewSupervisor builds a supervisor with defaults installed as the initial
// threshold table and the given ceiling used both to clamp writes and to
// sanity-check the table before every check pass.
func NewSupervisor(defaults ThresholdTable, ceiling CeilingTable) *Supervisor {
	return &Supervisor{
		thresholds: defaults,
		defaults:   defaults,
		ceiling:    ceiling,
		Events:     make(chan Event, 32),
	}
}

// SetManualShutdown sets the manual_shutdown flag, gating threshold writes
// and contributing to the overall is-shutdown rule.
func (s *Supervisor) SetManualShutdown(on bool) {
	s.manualShutdown = on
}

// ManualShutdown reports the current manual_shutdown flag.
func (s *Supervisor) ManualShutdown() bool {
	return s.manualShutdown
}

// SetThreshold writes one threshold cell. It is rejected outside manual
// shutdown; an ERR-level value is clamped to the compile-time ceiling for
// that cell before being stored.
func (s *Supervisor) SetThreshold(mt MeasurementType, ts Timescale, ch Channel, lvl Level, value float32) error {
	if !s.manualShutdown {
		return fmt.Errorf("%w: %s/%v/%v/%v", ErrNotInManualShutdown, mt, ts, ch, lvl)
	}
	if lvl == Err {
		ceiling := s.ceiling[mt][ts][ch]
		if value > ceiling {
			value = ceiling
		}
	}
	if value < 0 || math.IsNaN(float64(value)) {
		value = 0
	}
	s.thresholds[mt][ts][ch][lvl] = value
	return nil
}

// Threshold reads one threshold cell.
func (s *Supervisor) Threshold(mt MeasurementType, ts Timescale, ch Channel, lvl Level) float32 {
	return s.thresholds[mt][ts][ch][lvl]
}

// SafetyShutdown reports the latched safety_shutdown flag.
func (s *Supervisor) SafetyShutdown() bool {
	return s.safetyShutdown
}

// ClearSafetyShutdown clears the latch; the real system requires a
// host-issued clear (spec §7: "a latched safety fault requires ... a
// manual_shutdown toggle to clear"), which the caller is expected to have
// already gated.
func (s *Supervisor) ClearSafetyShutdown() {
	s.safetyShutdown = false
}

// sanityCheck verifies that no ERR threshold exceeds its compile-time
// ceiling. A failure resets the whole table to defaults and latches a
// shutdown with source bits "all types, no channel" (spec §4.E), reported
// as an EventSanityFail with a zero-value Channel/Measurement/Timescale.
func (s *Supervisor) sanityCheck() bool {
	for mt := MeasurementType(0); mt < measurementTypeCount; mt++ {
		for ts := Timescale(0); ts < timescaleCount; ts++ {
			for ch := Channel(0); ch < channelCount; ch++ {
				if s.thresholds[mt][ts][ch][Err] > s.ceiling[mt][ts][ch] {
					s.thresholds = s.defaults
					s.safetyShutdown = true
					s.emit(Event{Kind: EventSanityFail})
					return false
				}
			}
		}
	}
	return true
}

func (s *Supervisor) emit(e Event) {
	if s.Events == nil {
		return
	}
	select {
	case s.Events <- e:
	default:
	}
}

// CheckInstantaneous compares one ADC batch's per-channel and sum
// measurements against the instantaneous thresholds for mt. values must be
// indexed by Channel (ChannelSum's entry is expected to already equal the
// sum of A..D, per the spec invariant that sum-threshold checks see the
// same total as the monitor registers report).
func (s *Supervisor) CheckInstantaneous(mt MeasurementType, values [channelCount]float32) {
	s.check(mt, Instantaneous, values)
}

// CheckFast compares one main-loop tick's 0.1s-EMA measurements.
func (s *Supervisor) CheckFast(mt MeasurementType, values [channelCount]float32) {
	s.check(mt, Fast, values)
}

// CheckSlow compares one main-loop tick's 1s-EMA measurements.
func (s *Supervisor) CheckSlow(mt MeasurementType, values [channelCount]float32) {
	s.check(mt, Slow, values)
}

func (s *Supervisor) check(mt MeasurementType, ts Timescale, values [channelCount]float32) {
	if !s.sanityCheck() {
		return
	}
	for ch := Channel(0); ch < channelCount; ch++ {
		v := values[ch]
		if v > s.thresholds[mt][ts][ch][Err] {
			s.safetyShutdown = true
			s.emit(Event{Kind: EventErr, Measurement: mt, Timescale: ts, Channel: ch})
			continue
		}
		if v > s.thresholds[mt][ts][ch][Warn] {
			s.emit(Event{Kind: EventWarn, Measurement: mt, Timescale: ts, Channel: ch})
		}
	}
}

// IsShutdown implements the is-shutdown rule from spec §4.E:
// safety_shutdown OR manual_shutdown OR NOT pvdd_valid. The amplifier reset
// line should mirror this value.
func (s *Supervisor) IsShutdown(pvddValid bool) bool {
	return s.safetyShutdown || s.manualShutdown || !pvddValid
}
