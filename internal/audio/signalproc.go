package audio

import "errors"

// ErrChannelMismatch is returned when a buffer's channel count does not
// match what a stage was configured for.
var ErrChannelMismatch = errors.New("audio: channel count mismatch")

// Mixer implements the signal processor's first stage (spec §4.D.1): an
// outChannels x inChannels gain matrix applied to one batch of
// non-interleaved input, producing outChannels of output. An identity
// matrix (1 on the diagonal, 0 elsewhere) leaves channels unchanged.
type Mixer struct {
	Gains [][]float32 // Gains[out][in]
}

// NewIdentityMixer returns a mixer that passes n channels through unchanged.
func NewIdentityMixer(n int) *Mixer {
	gains := make([][]float32, n)
	for out := range gains {
		row := make([]float32, n)
		row[out] = 1
		gains[out] = row
	}
	return &Mixer{Gains: gains}
}

// Apply mixes in (one slice per input channel, all the same length) into
// out (one slice per output channel, pre-sized by the caller).
func (m *Mixer) Apply(in [][]float32, out [][]float32) error {
	if len(m.Gains) != len(out) {
		return ErrChannelMismatch
	}
	for _, row := range m.Gains {
		if len(row) != len(in) {
			return ErrChannelMismatch
		}
	}
	if len(in) == 0 {
		return nil
	}
	n := len(in[0])
	for outCh, row := range m.Gains {
		dst := out[outCh]
		if len(dst) != n {
			return ErrChannelMismatch
		}
		for i := 0; i < n; i++ {
			var acc float32
			for inCh, g := range row {
				acc += g * in[inCh][i]
			}
			dst[i] = acc
		}
	}
	return nil
}

// Biquad is one direct-form-I second-order IIR section:
// y[n] = b0*x[n] + b1*x[n-1] + b2*x[n-2] - a1*y[n-1] - a2*y[n-2].
type Biquad struct {
	B0, B1, B2 float32
	A1, A2     float32

	x1, x2 float32
	y1, y2 float32
}

// Process filters one sample through the section.
func (bq *Biquad) Process(x float32) float32 {
	y := bq.B0*x + bq.B1*bq.x1 + bq.B2*bq.x2 - bq.A1*bq.y1 - bq.A2*bq.y2
	bq.x2, bq.x1 = bq.x1, x
	bq.y2, bq.y1 = bq.y1, y
	return y
}

// Reset clears the section's internal state, as required after any change
// to stage count or post-shift (spec: "requires a subsequent internal-state
// reset to avoid numerical artefacts").
func (bq *Biquad) Reset() {
	bq.x1, bq.x2, bq.y1, bq.y2 = 0, 0, 0, 0
}

// BiquadCascade chains up to SP_MAX_BIQUADS stages for one channel, with a
// per-channel post-shift applied as a final gain of 2^PostShift.
type BiquadCascade struct {
	Stages    []Biquad
	PostShift int
}

// Reset clears every stage's state.
func (c *BiquadCascade) Reset() {
	for i := range c.Stages {
		c.Stages[i].Reset()
	}
}

// ProcessBatch filters a batch in place.
func (c *BiquadCascade) ProcessBatch(samples []float32) {
	gain := float32(1.0)
	if c.PostShift != 0 {
		gain = pow2f(c.PostShift)
	}
	for i, x := range samples {
		y := x
		for s := range c.Stages {
			y = c.Stages[s].Process(y)
		}
		samples[i] = y * gain
	}
}

func pow2f(shift int) float32 {
	if shift >= 0 {
		return float32(int64(1) << uint(shift))
	}
	v := float32(1.0)
	for i := 0; i < -shift; i++ {
		v /= 2
	}
	return v
}

// FIR is a single per-channel finite impulse response filter with up to
// SP_MAX_FIR_LENGTH taps, applied with reversed coefficient order (spec:
// "reversed coefficient order") meaning Taps[0] multiplies the newest
// sample.
type FIR struct {
	Taps  []float32
	delay []float32 // most recent len(Taps)-1 inputs, oldest first
}

// NewFIR builds a FIR with the given tap set; the delay line starts zeroed.
func NewFIR(taps []float32) *FIR {
	f := &FIR{Taps: taps}
	if len(taps) > 1 {
		f.delay = make([]float32, len(taps)-1)
	}
	return f
}

// Reset clears the delay line.
func (f *FIR) Reset() {
	for i := range f.delay {
		f.delay[i] = 0
	}
}

// ProcessBatch filters a batch in place.
func (f *FIR) ProcessBatch(samples []float32) {
	for i, x := range samples {
		samples[i] = f.processSample(x)
	}
}

func (f *FIR) processSample(x float32) float32 {
	var acc float32
	acc += f.Taps[0] * x
	for k := 1; k < len(f.Taps); k++ {
		acc += f.Taps[k] * f.delay[len(f.delay)-k]
	}
	if len(f.delay) > 0 {
		copy(f.delay, f.delay[1:])
		f.delay[len(f.delay)-1] = x
	}
	return acc
}

// OutputStage applies a final gain (the inverse of any headroom shift
// introduced earlier in the chain) and performs the stride-aware copy into
// the caller's output buffers, supporting both non-interleaved (one slice
// per channel) and interleaved layouts (spec §4.D.4).
type OutputStage struct {
	Gain float32
}

// WriteNonInterleaved copies in (per-channel) into out (per-channel),
// applying Gain.
func (o *OutputStage) WriteNonInterleaved(in [][]float32, out [][]float32) error {
	if len(in) != len(out) {
		return ErrChannelMismatch
	}
	for ch := range in {
		if len(in[ch]) != len(out[ch]) {
			return ErrChannelMismatch
		}
		for i, v := range in[ch] {
			out[ch][i] = v * o.Gain
		}
	}
	return nil
}

// WriteInterleaved copies in (per-channel) into a single interleaved out
// slice of length len(in)*frames, applying Gain.
func (o *OutputStage) WriteInterleaved(in [][]float32, out []float32) error {
	if len(in) == 0 {
		return nil
	}
	frames := len(in[0])
	if len(out) != frames*len(in) {
		return ErrChannelMismatch
	}
	for i := 0; i < frames; i++ {
		for ch := range in {
			out[i*len(in)+ch] = in[ch][i] * o.Gain
		}
	}
	return nil
}
