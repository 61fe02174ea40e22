// Package moduleif implements the register-abstraction layer (spec §4.B):
// a fixed-width register map, an async transfer queue with retry semantics,
// and the change-notification diff engine, running uniformly over either of
// the two linkframer transports.
package moduleif

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotARegister is returned for an address whose compile-time width is 0.
var ErrNotARegister = errors.New("moduleif: address is not a register")

// ErrFormat signals a partial or mis-sized write, surfaced as FORMAT_ERROR
// on the wire (spec §3: "partial writes are rejected").
var ErrFormat = errors.New("moduleif: malformed register write")

// WidthTable is the compile-time per-address byte-width table for one
// module (spec §3). Index 0 is always invalid (width 0): address 0 is
// reserved, never a real register.
type WidthTable [256]int

// RegisterMap is the per-module register-abstraction shadow store. A read
// returns exactly width(a) bytes of the last known state; a module
// interface keeps this up to date via direct reads and change-notification
// pushes from the remote end.
type RegisterMap struct {
	widths WidthTable
	values map[byte][]byte
}

// NewRegisterMap builds an empty register map using the given width table.
// All registers start out zero-filled.
func NewRegisterMap(widths WidthTable) *RegisterMap {
	rm := &RegisterMap{widths: widths, values: make(map[byte][]byte, 64)}
	for addr := 0; addr < 256; addr++ {
		w := widths[addr]
		if w > 0 {
			rm.values[byte(addr)] = make([]byte, w)
		}
	}
	return rm
}

// Width returns the compile-time byte width of a register address; 0 means
// "not a register".
func (rm *RegisterMap) Width(addr byte) int {
	return rm.widths[addr]
}

// Get returns a copy of the current shadow value for addr.
func (rm *RegisterMap) Get(addr byte) ([]byte, error) {
	w := rm.widths[addr]
	if w == 0 {
		return nil, fmt.Errorf("%w: 0x%02X", ErrNotARegister, addr)
	}
	out := make([]byte, w)
	copy(out, rm.values[addr])
	return out, nil
}

// Set overwrites the shadow value for addr. len(data) must equal Width(addr)
// exactly; partial writes are rejected as FORMAT_ERROR per spec §3.
func (rm *RegisterMap) Set(addr byte, data []byte) error {
	w := rm.widths[addr]
	if w == 0 {
		return fmt.Errorf("%w: 0x%02X", ErrNotARegister, addr)
	}
	if len(data) != w {
		return fmt.Errorf("%w: address 0x%02X wants %d bytes, got %d", ErrFormat, addr, w, len(data))
	}
	buf := make([]byte, w)
	copy(buf, data)
	rm.values[addr] = buf
	return nil
}

// GetUint32 reads a register as a little-endian unsigned integer, using
// only as many bytes as Width(addr) provides (1, 2, or 4 bytes). This is
// the "value_u32_low_bits" shape used by completion callbacks (spec §4.B).
func (rm *RegisterMap) GetUint32(addr byte) (uint32, int, error) {
	raw, err := rm.Get(addr)
	if err != nil {
		return 0, 0, err
	}
	var v uint32
	for i := len(raw) - 1; i >= 0; i-- {
		v = (v << 8) | uint32(raw[i])
	}
	return v, len(raw), nil
}

// GetFloat32 reinterprets a 4-byte little-endian register as an IEEE-754
// float, used throughout the power-amp register set (PVDD, monitors,
// thresholds).
func (rm *RegisterMap) GetFloat32(addr byte) (float32, error) {
	raw, err := rm.Get(addr)
	if err != nil {
		return 0, err
	}
	if len(raw) != 4 {
		return 0, fmt.Errorf("%w: address 0x%02X is not a 4-byte float register", ErrFormat, addr)
	}
	bits := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	return math.Float32frombits(bits), nil
}

// SetFloat32 writes a 4-byte little-endian float register.
func (rm *RegisterMap) SetFloat32(addr byte, v float32) error {
	bits := math.Float32bits(v)
	return rm.Set(addr, []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)})
}

// All returns a snapshot copy of every populated register, keyed by
// address. Used by the change-notification engine and by init's "read all
// reportable registers" pass.
func (rm *RegisterMap) All() map[byte][]byte {
	out := make(map[byte][]byte, len(rm.values))
	for addr, v := range rm.values {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[addr] = cp
	}
	return out
}
