// Package audio implements the real-time audio pipeline (spec §4.D): input
// source routing, the three-stage sample-rate converter, and the signal
// processor (mixer, biquad cascade, FIR, output stage).
package audio

// Source enumerates the five input sources the pipeline multiplexes
// between, in the fixed priority order used when selecting a replacement
// for a source that goes unavailable.
type Source int

const (
	SourceI2S1 Source = iota
	SourceI2S2
	SourceI2S3
	SourceUSB
	SourceSPDIF
	sourceCount

	// SourceNone is returned by Active when no source is available.
	SourceNone Source = -1
)

func (s Source) String() string {
	switch s {
	case SourceI2S1:
		return "i2s1"
	case SourceI2S2:
		return "i2s2"
	case SourceI2S3:
		return "i2s3"
	case SourceUSB:
		return "usb"
	case SourceSPDIF:
		return "spdif"
	case SourceNone:
		return "none"
	default:
		return "unknown"
	}
}

// Router tracks per-source availability and picks the active input (spec
// §4.D "Input routing"): at each main-loop tick, a source whose silent flag
// is still set (no samples arrived during the previous tick) is marked
// unavailable, and if it was active, the next available source in enum
// order becomes active.
type Router struct {
	available [sourceCount]bool
	silent    [sourceCount]bool
	active    Source

	// OnActiveChange, if set, is invoked synchronously from Tick whenever
	// the active source changes (spec: "triggers an input-sample-rate
	// query, an SRC re-configure, and a DSP state reset").
	OnActiveChange func(old, new Source)
}

// NewRouter returns a Router with every source initially available and no
// active source.
func NewRouter() *Router {
	r := &Router{active: SourceNone}
	for s := Source(0); s < sourceCount; s++ {
		r.available[s] = true
		r.silent[s] = true
	}
	return r
}

// NotifySamplesArrived clears the silent flag for src, called from the
// audio ISR path whenever a batch of samples is deposited for that source.
func (r *Router) NotifySamplesArrived(src Source) {
	if src < 0 || src >= sourceCount {
		return
	}
	r.silent[src] = false
}

// Available reports whether src is currently considered available.
func (r *Router) Available(src Source) bool {
	if src < 0 || src >= sourceCount {
		return false
	}
	return r.available[src]
}

// Active returns the currently selected source, or SourceNone.
func (r *Router) Active() Source {
	return r.active
}

// Tick runs one main-loop routing pass: sources still silent since the last
// tick are marked unavailable, and sources that reported a batch since the
// last tick are marked available; the silent flag is then re-armed for every
// source (the ISR path must report a batch before the next tick to stay
// available). If the active source just went unavailable, the next
// available source (in enum order) takes over, or SourceNone if none
// remain.
func (r *Router) Tick() {
	for s := Source(0); s < sourceCount; s++ {
		if r.silent[s] {
			r.available[s] = false
		} else {
			r.available[s] = true
		}
		r.silent[s] = true
	}

	if r.active != SourceNone && r.available[r.active] {
		return
	}

	old := r.active
	r.active = r.nextAvailable()
	if r.active != old && r.OnActiveChange != nil {
		r.OnActiveChange(old, r.active)
	}
}

func (r *Router) nextAvailable() Source {
	for s := Source(0); s < sourceCount; s++ {
		if r.available[s] {
			return s
		}
	}
	return SourceNone
}
