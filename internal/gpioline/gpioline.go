// Package gpioline wraps the GPIO lines this controller drives directly:
// the amplifier reset line, the module interrupt lines (open-drain,
// active-low per spec §6), and the BMS/BT reset lines, via
// github.com/warthog618/go-gpiocdev.
package gpioline

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// InterruptLine wraps an open-drain, active-low interrupt request line: the
// remote module drives it low while any unmasked interrupt bit is set, or
// while its reset-flag bit is set (spec §6).
type InterruptLine struct {
	line *gpiocdev.Line
}

// RequestInterruptLine opens chip/offset as an input with both-edge
// detection, invoking handler on every edge. The caller owns the returned
// InterruptLine and must Close it.
func RequestInterruptLine(chip string, offset int, handler func(active bool)) (*InterruptLine, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handler(evt.Type == gpiocdev.LineEventFallingEdge)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("gpioline: request interrupt line %s:%d: %w", chip, offset, err)
	}
	return &InterruptLine{line: l}, nil
}

// Active reports whether the line currently reads asserted (logic low,
// since the line is active-low and open-drain).
func (l *InterruptLine) Active() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("gpioline: read interrupt line: %w", err)
	}
	return v == 0, nil
}

// Close releases the underlying line.
func (l *InterruptLine) Close() error {
	return l.line.Close()
}

// ResetLine wraps an output line used to hold a peripheral in reset (the
// amplifier reset line, or a module's hardware reset).
type ResetLine struct {
	line       *gpiocdev.Line
	activeLow  bool
}

// RequestResetLine opens chip/offset as an output, initially deasserted.
// If activeLow is true, Assert drives the line to logic 0.
func RequestResetLine(chip string, offset int, activeLow bool) (*ResetLine, error) {
	initial := 0
	if activeLow {
		initial = 1 // deasserted = logic high when active-low
	}
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("gpioline: request reset line %s:%d: %w", chip, offset, err)
	}
	return &ResetLine{line: l, activeLow: activeLow}, nil
}

// Assert drives the line to its asserted (reset-active) level.
func (r *ResetLine) Assert() error {
	return r.set(true)
}

// Deassert drives the line to its deasserted (running) level.
func (r *ResetLine) Deassert() error {
	return r.set(false)
}

func (r *ResetLine) set(assert bool) error {
	v := 0
	if assert == r.activeLow {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("gpioline: set reset line: %w", err)
	}
	return nil
}

// Close releases the underlying line.
func (r *ResetLine) Close() error {
	return r.line.Close()
}
