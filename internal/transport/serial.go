// Package transport wraps the UART byte transport this controller drives
// the link framer over, via github.com/pkg/term, plus a creack/pty-backed
// harness for exercising it without real hardware.
package transport

import (
	"fmt"
	"time"

	"github.com/pkg/term"
)

// SerialPort is a byte-oriented transport for the UART link framer.
type SerialPort struct {
	t *term.Term
}

// OpenSerial opens device at baud, with a read timeout matching the link's
// "non-idle" watchdog (spec §4.A: "≈30-100ms").
func OpenSerial(device string, baud int, readTimeout time.Duration) (*SerialPort, error) {
	t, err := term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", device, err)
	}
	if err := t.SetReadTimeout(readTimeout); err != nil {
		t.Close()
		return nil, fmt.Errorf("transport: set read timeout on %s: %w", device, err)
	}
	return &SerialPort{t: t}, nil
}

// Read reads up to len(p) bytes, returning (0, nil) on a timeout with no
// data (matching the link framer's need to keep polling without treating a
// quiet line as an error).
func (s *SerialPort) Read(p []byte) (int, error) {
	return s.t.Read(p)
}

// Write writes p to the terminal, wrapping any write error.
func (s *SerialPort) Write(p []byte) (int, error) {
	n, err := s.t.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: write: %w", err)
	}
	return n, nil
}

// Close releases the underlying terminal.
func (s *SerialPort) Close() error {
	return s.t.Close()
}
