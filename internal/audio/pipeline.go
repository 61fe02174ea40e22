package audio

// Pipeline ties the ready-gating state machine (spec §4.D "Ready gating")
// to a channel's ring buffer: playback is only considered ready once the
// buffer has filled past an ideal level, and a critical-low refill during
// playback drops back to not-ready and stops the active input.
type Pipeline struct {
	buf *RingBuffer

	idealFill    float64
	criticalFill float64

	ready bool

	// StopActiveInput is invoked when the buffer drains below the critical
	// level during playback, mirroring "stops the active input, and waits
	// for a refill".
	StopActiveInput func()
}

// NewPipeline wraps buf with ready gating at idealFill/criticalFill
// fractions of capacity (both in [0,1], criticalFill < idealFill).
func NewPipeline(buf *RingBuffer, idealFill, criticalFill float64) *Pipeline {
	return &Pipeline{buf: buf, idealFill: idealFill, criticalFill: criticalFill}
}

// Ready reports whether the pipeline currently considers itself ready to
// feed the output stage.
func (p *Pipeline) Ready() bool {
	return p.ready
}

// Feed deposits fresh input samples into the buffer (ISR path).
func (p *Pipeline) Feed(samples []float32) int {
	return p.buf.Write(samples)
}

// Tick re-evaluates the ready flag against the current buffer fill level,
// to be called once per main-loop cycle.
func (p *Pipeline) Tick() {
	fill := p.buf.FillLevel()
	if !p.ready {
		if fill >= p.idealFill {
			p.ready = true
		}
		return
	}
	if fill < p.criticalFill {
		p.ready = false
		if p.StopActiveInput != nil {
			p.StopActiveInput()
		}
	}
}
