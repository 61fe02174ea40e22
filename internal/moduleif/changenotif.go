package moduleif

import "math"

// DiffKind selects the equality predicate used to decide whether a
// register's value has "changed" for change-notification purposes (spec
// §4.B). Different register semantics need different notions of equality:
// a state word may carry reserved or don't-care bits that should not trigger
// a spurious notification, and floats need NaN-aware comparison.
type DiffKind int

const (
	// DiffRaw: bitwise inequality of the full register value.
	DiffRaw DiffKind = iota
	// DiffStateWord: inequality restricted to a mask of semantically
	// relevant bits; other bits are ignored.
	DiffStateWord
	// DiffFloat32: NaN-aware float inequality (two NaNs compare equal, so a
	// persistently-NaN measurement does not generate a notification storm).
	DiffFloat32
	// DiffString: fixed-bound byte comparison, as for a null-padded ASCII
	// field.
	DiffString
	// DiffPresence: inequality of "is the value nonzero", not of the exact
	// bits — used for fault/alert words where the notification should fire
	// on presence-or-absence of a fault, not on which specific bit flipped.
	DiffPresence
)

// WatchSpec describes how one register participates in change-notification
// scanning: its diff predicate, and (for DiffStateWord) the bitmask of bits
// that matter.
type WatchSpec struct {
	Kind DiffKind
	Mask uint32 // only consulted for DiffStateWord; 0 means "all bits"
}

// ChangeWatcher runs the periodic change-notification scan described in spec
// §4.B: every CHANGE_NOTIF_CHECK_PERIOD cycles, compare each watched
// register against its last-reported snapshot and report those that differ
// under their configured predicate.
type ChangeWatcher struct {
	rm       *RegisterMap
	specs    map[byte]WatchSpec
	snapshot map[byte][]byte
}

// NewChangeWatcher builds a watcher over rm for the given per-address
// watch specs. The initial snapshot is taken immediately, so the first
// Scan only reports registers that have changed since construction.
func NewChangeWatcher(rm *RegisterMap, specs map[byte]WatchSpec) *ChangeWatcher {
	w := &ChangeWatcher{rm: rm, specs: specs, snapshot: make(map[byte][]byte, len(specs))}
	for addr := range specs {
		if v, err := rm.Get(addr); err == nil {
			w.snapshot[addr] = v
		}
	}
	return w
}

// Scan compares every watched register's current value against the stored
// snapshot, using the register's configured DiffKind, and returns the
// addresses that differ. The snapshot is updated to the current values
// regardless of whether a caller acts on the result, matching the slave's
// "compare against last reported value" semantics: a register that changes
// and changes back between two scans is not reported.
func (w *ChangeWatcher) Scan() []byte {
	var changed []byte
	for addr, spec := range w.specs {
		cur, err := w.rm.Get(addr)
		if err != nil {
			continue
		}
		prev, had := w.snapshot[addr]
		if had && !differs(spec, prev, cur) {
			w.snapshot[addr] = cur
			continue
		}
		w.snapshot[addr] = cur
		if had {
			changed = append(changed, addr)
		}
	}
	return changed
}

func differs(spec WatchSpec, prev, cur []byte) bool {
	switch spec.Kind {
	case DiffStateWord:
		return stateWordDiffers(spec.Mask, prev, cur)
	case DiffFloat32:
		return float32Differs(prev, cur)
	case DiffString:
		return bytesDiffer(prev, cur)
	case DiffPresence:
		return presenceDiffers(prev, cur)
	default:
		return bytesDiffer(prev, cur)
	}
}

func presenceDiffers(prev, cur []byte) bool {
	return isNonzero(prev) != isNonzero(cur)
}

func isNonzero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}

func bytesDiffer(a, b []byte) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}

func stateWordDiffers(mask uint32, prev, cur []byte) bool {
	pv := toUint32LE(prev)
	cv := toUint32LE(cur)
	if mask == 0 {
		return pv != cv
	}
	return (pv & mask) != (cv & mask)
}

func float32Differs(prev, cur []byte) bool {
	if len(prev) != 4 || len(cur) != 4 {
		return true
	}
	pv := math.Float32frombits(toUint32LE(prev))
	cv := math.Float32frombits(toUint32LE(cur))
	if math.IsNaN(float64(pv)) && math.IsNaN(float64(cv)) {
		return false
	}
	return pv != cv
}

func toUint32LE(b []byte) uint32 {
	var v uint32
	for i := len(b) - 1; i >= 0; i-- {
		v = (v << 8) | uint32(b[i])
	}
	return v
}
