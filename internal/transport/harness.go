package transport

import (
	"fmt"
	"os"

	"github.com/creack/pty"
)

// LoopbackPair is a pseudo-terminal pair usable in tests as a stand-in for
// a real UART: writes to Controller are readable from Peripheral and vice
// versa, without any real serial hardware.
type LoopbackPair struct {
	Controller *os.File // the master side (ptmx)
	Peripheral *os.File // the slave side (pts)
}

// NewLoopbackPair opens a fresh pty pair.
func NewLoopbackPair() (*LoopbackPair, error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("transport: open pty: %w", err)
	}
	return &LoopbackPair{Controller: ptmx, Peripheral: pts}, nil
}

// Close releases both ends.
func (p *LoopbackPair) Close() error {
	err1 := p.Controller.Close()
	err2 := p.Peripheral.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
