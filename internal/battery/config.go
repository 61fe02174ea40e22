package battery

import "fmt"

// ConfigBlockSize is the length of the contiguous data-memory block
// compared against the expected configuration (spec §4.F: "74 bytes at
// offset 0x14 relative to the calibration region").
const ConfigBlockSize = 74

// ConfigBlockOffset is the block's offset relative to the calibration
// region base address.
const ConfigBlockOffset = 0x14

// SizeMap maps a byte offset within the config block to its register
// width: 1 or 2 (a 2-byte register occupies its offset and the next), or 0
// meaning "this offset is the second byte of the prior 2-byte register and
// must not be written on its own" (spec: "a 115-entry size map where 0
// means second byte of a prior 2-byte register").
type SizeMap [ConfigBlockSize]int

// RegisterDiff names one register that differs between the live config
// block and the expected one, in terms of its own offset and width (not
// raw byte offsets).
type RegisterDiff struct {
	Offset int
	Width  int
}

// Reconcile compares live against expected (both ConfigBlockSize bytes)
// using sizes to walk register boundaries, and returns the registers that
// differ. A 0-width entry mid-register is skipped, since it was already
// covered by the preceding 2-byte register.
func Reconcile(live, expected [ConfigBlockSize]byte, sizes SizeMap) ([]RegisterDiff, error) {
	var diffs []RegisterDiff
	offset := 0
	for offset < ConfigBlockSize {
		width := sizes[offset]
		if width == 0 {
			return nil, fmt.Errorf("battery: size map has a bare continuation byte at offset %d", offset)
		}
		if offset+width > ConfigBlockSize {
			return nil, fmt.Errorf("battery: register at offset %d (width %d) overruns the config block", offset, width)
		}
		if !bytesEqual(live[offset:offset+width], expected[offset:offset+width]) {
			diffs = append(diffs, RegisterDiff{Offset: offset, Width: width})
		}
		offset += width
	}
	return diffs, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// WriteDiffs applies each differing register from expected into the gauge
// via writeRegister, in offset order, while mode is CFGUPDATE. The caller
// is responsible for entering/exiting CFGUPDATE and re-verifying afterward
// (spec: "write each differing register ... exit CFGUPDATE, re-detect CRC
// mode, wait for init-complete alert, re-read and verify").
func WriteDiffs(expected [ConfigBlockSize]byte, diffs []RegisterDiff, writeRegister func(offset int, data []byte) error) error {
	for _, d := range diffs {
		if err := writeRegister(d.Offset, expected[d.Offset:d.Offset+d.Width]); err != nil {
			return fmt.Errorf("battery: writing config register at offset %d: %w", d.Offset, err)
		}
	}
	return nil
}
