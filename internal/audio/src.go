package audio

import (
	"errors"

	"github.com/blockbox/controller/internal/resampler"
)

// InputRate identifies one of the three sample rates the SRC accepts (spec
// §4.D).
type InputRate int

const (
	Rate44100 InputRate = iota
	Rate48000
	Rate96000
)

// ErrUnsupportedRate is returned by NewChannelSRC for any rate other than the
// three the table in spec §4.D names.
var ErrUnsupportedRate = errors.New("audio: unsupported input rate")

// TargetRate is the internal working rate every input is converted to.
const TargetRate = 96000

// stagesFor reports which of the three conversion stages apply for rate,
// per the table in spec §4.D.
func stagesFor(rate InputRate) (interp2x, fixed160over147, adaptive bool, err error) {
	switch rate {
	case Rate44100:
		return true, true, true, nil
	case Rate48000:
		return true, false, true, nil
	case Rate96000:
		return false, false, true, nil
	default:
		return false, false, false, ErrUnsupportedRate
	}
}

// ChannelSRC runs one channel's up-to-three-stage conversion chain: an
// optional 2x interpolator, an optional fixed 160/147 polyphase stage, and
// the always-present adaptive stage whose step is recomputed per batch and
// shared across every active channel to keep them phase-locked.
type ChannelSRC struct {
	interp2x *resampler.Filter
	fixed    *resampler.Filter
	adaptive *resampler.Filter

	scratch1 []float32
	scratch2 []float32
}

// SRCConfig bundles the per-stage coefficient tables; a stage's table is
// nil when that stage does not apply for the configured input rate.
type SRCConfig struct {
	Rate              InputRate
	Interp2xCoefs     [][]float32 // P=2
	Fixed160Over147   [][]float32 // P=160, consumed with step.Int=147
	AdaptiveCoefs     [][]float32 // P = adaptive phase count
	ScratchBatchSize  int
}

// NewChannelSRC builds the stage chain for one channel from cfg.
func NewChannelSRC(cfg SRCConfig) (*ChannelSRC, error) {
	interp2x, fixed160, adaptive, err := stagesFor(cfg.Rate)
	if err != nil {
		return nil, err
	}

	c := &ChannelSRC{}
	if interp2x {
		f, err := resampler.New(cfg.Interp2xCoefs)
		if err != nil {
			return nil, err
		}
		c.interp2x = f
	}
	if fixed160 {
		f, err := resampler.New(cfg.Fixed160Over147)
		if err != nil {
			return nil, err
		}
		c.fixed = f
	}
	if adaptive {
		f, err := resampler.New(cfg.AdaptiveCoefs)
		if err != nil {
			return nil, err
		}
		c.adaptive = f
	}

	scratchSize := cfg.ScratchBatchSize
	if scratchSize <= 0 {
		scratchSize = 4096
	}
	c.scratch1 = make([]float32, scratchSize)
	c.scratch2 = make([]float32, scratchSize)
	return c, nil
}

// Convert runs in through every configured stage in order, filling out from
// the final adaptive stage driven by adaptiveStep, and returns the number of
// input samples the whole chain consumed. The adaptive stage stops early if
// its input runs out, leaving the tail of out unwritten; the number of
// output samples written is not returned.
func (c *ChannelSRC) Convert(in []float32, out []float32, adaptiveStep resampler.Step) int {
	stage := in
	consumedFromIn := -1 // set by whichever stage reads directly from `in`

	if c.interp2x != nil {
		produced, consumed := c.interp2x.Process(stage, c.scratch1[:cap(c.scratch1)], resampler.Step{Int: 1})
		consumedFromIn = consumed
		stage = c.scratch1[:produced]
	}
	if c.fixed != nil {
		produced, consumed := c.fixed.Process(stage, c.scratch2[:cap(c.scratch2)], resampler.Step{Int: 147})
		if consumedFromIn < 0 {
			consumedFromIn = consumed
		}
		stage = c.scratch2[:produced]
	}

	_, consumed := c.adaptive.Process(stage, out, adaptiveStep)
	if consumedFromIn < 0 {
		consumedFromIn = consumed
	}
	return consumedFromIn
}
