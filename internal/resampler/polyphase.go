// Package resampler implements the fractional polyphase FIR resampler
// (spec §4.C): a phase-accumulator-driven polyphase filter that converts
// between arbitrary real sample-rate ratios with bounded per-sample work.
package resampler

import "errors"

// ErrInvalidParams is returned by New when the phase or tap counts cannot
// describe a valid filter.
var ErrInvalidParams = errors.New("resampler: invalid parameters")

// Filter is one polyphase FIR: P phases of T taps each, driven by a
// phase_int/phase_frac accumulator. Coefficients are supplied already split
// per phase, coefs[p][k] for p in [0,P), k in [0,T).
type Filter struct {
	coefs [][]float32
	p     int
	t     int

	// delay holds the most recently written T input samples, mirrored at
	// offset T so a convolution can always read T contiguous samples
	// starting at delay[write] without wrap checks (spec §4.C: "the
	// single-sample-optimised layout mirrors them ... for contiguous
	// access").
	delay []float32
	write int // next write position within [0, T)

	phaseInt int
	phaseFrac float64 // in [0,1)
}

// New builds a Filter from a per-phase coefficient table. len(coefs) is P;
// every row must have the same length T, both of which must be positive.
func New(coefs [][]float32) (*Filter, error) {
	p := len(coefs)
	if p == 0 {
		return nil, ErrInvalidParams
	}
	t := len(coefs[0])
	if t == 0 {
		return nil, ErrInvalidParams
	}
	for _, row := range coefs {
		if len(row) != t {
			return nil, ErrInvalidParams
		}
	}
	return &Filter{
		coefs: coefs,
		p:     p,
		t:     t,
		delay: make([]float32, 2*t),
	}, nil
}

// Phases and Taps report the filter's dimensions.
func (f *Filter) Phases() int { return f.p }
func (f *Filter) Taps() int   { return f.t }

// PhaseInt and PhaseFrac expose the current accumulator state. phase_int is
// in [0, P) whenever Process filters a sample; when Process returns because
// out is full, phase_int can be P or more, and the next Process call
// consumes input to bring it back below P.
func (f *Filter) PhaseInt() int       { return f.phaseInt }
func (f *Filter) PhaseFrac() float64  { return f.phaseFrac }

func (f *Filter) delayLen() int { return f.t }

// pushSample shifts one fresh input sample into the delay line, maintaining
// the mirror invariant buf[i] == buf[i+N].
func (f *Filter) pushSample(x float32) {
	n := f.delayLen()
	f.delay[f.write] = x
	f.delay[f.write+n] = x
	f.write++
	if f.write >= n {
		f.write = 0
	}
}

// tapsAt returns a contiguous view of the T most recent input samples,
// oldest first, usable directly in the convolution without any wraparound
// logic thanks to the mirrored layout.
func (f *Filter) tapsAt() []float32 {
	n := f.delayLen()
	start := f.write // oldest sample is exactly one write-slot ahead (circularly)
	return f.delay[start : start+n]
}

// Step describes the fixed per-sample phase advance, split into an integer
// part (whole phases) and a fractional part (less than one phase).
type Step struct {
	Int  int
	Frac float64
}

// Process runs the loop described in spec §4.C: it advances the phase by
// consuming input samples until a phase within [0,P) is available, filters
// at that phase, advances by step, and repeats until either out is full or
// in is exhausted. It returns the number of output samples produced and
// input samples consumed.
func (f *Filter) Process(in []float32, out []float32, step Step) (produced, consumed int) {
	if f.p <= 0 || f.t <= 0 {
		return 0, 0
	}
	inPos := 0
	outPos := 0

	for outPos < len(out) {
		for f.phaseInt >= f.p {
			if inPos >= len(in) {
				return outPos, inPos
			}
			f.pushSample(in[inPos])
			inPos++
			f.phaseInt -= f.p
		}

		out[outPos] = f.filterAt(f.phaseInt)
		outPos++

		f.phaseFrac += step.Frac
		whole := int(f.phaseFrac)
		f.phaseFrac -= float64(whole)
		f.phaseInt += step.Int + whole
	}

	return outPos, inPos
}

func (f *Filter) filterAt(phase int) float32 {
	row := f.coefs[phase]
	taps := f.tapsAt()
	var acc float32
	for k := 0; k < f.t; k++ {
		acc += row[k] * taps[k]
	}
	return acc
}
