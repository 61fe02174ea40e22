package moduleif

import "github.com/blockbox/controller/internal/linkframer"

// LinkTransport is the byte-oriented transport a Pump drives the link framer
// over (transport.SerialPort in production, a loopback pty in tests).
type LinkTransport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Event subtypes carried in a slave->master Event frame (spec §6: "Event
// subtypes include MCU_RESET=0x00, WRITE_ACK=0x01, ERROR=0x02, BT_RESET=0x03").
const (
	EventMCUReset byte = 0x00
	EventWriteAck byte = 0x01
	EventError    byte = 0x02
	EventBTReset  byte = 0x03
)

// LinkEventKind classifies what a Pump is reporting on its Events channel.
type LinkEventKind int

const (
	LinkEventFormatError LinkEventKind = iota
	LinkEventCRCError
	LinkEventModuleReset
	LinkEventSlaveError
	LinkEventWatchdogExpired
)

// LinkEvent is one occurrence raised by a Pump, for the host to log or act
// on (spec §4.A: "expiry triggers a peripheral-level reset and raises an
// internal-error event").
type LinkEvent struct {
	Kind LinkEventKind
	Err  error
}

// DefaultWatchdogTicks bounds how many consecutive idle ticks (no bytes
// received) a Pump tolerates before declaring the link dead (spec §4.A:
// "a non-idle watchdog, ≈30-100ms"); at a 10ms main-loop period this is
// 100ms.
const DefaultWatchdogTicks = 10

// Pump drives one Module's transfer queue against a LinkTransport: it
// encodes the head-of-queue Transfer as a UART frame, writes it, and
// decodes whatever bytes come back, completing the transfer (or routing an
// unsolicited event/change-notification frame) as frames close (spec §4.A +
// §4.B).
type Pump struct {
	module    *Module
	transport LinkTransport
	decoder   *linkframer.Decoder

	// Events reports watchdog expiry, framing errors, and slave-reported
	// resets/errors. Buffered so Tick never blocks on a slow consumer.
	Events chan LinkEvent

	watchdogTicks      int
	ticksSinceActivity int
	inFlightDir        Direction
	inFlightAddr       byte
	readBuf            []byte
}

// NewPump builds a Pump for m over transport, with the default watchdog.
func NewPump(m *Module, transport LinkTransport) *Pump {
	return &Pump{
		module:        m,
		transport:     transport,
		decoder:       linkframer.NewDecoder(),
		Events:        make(chan LinkEvent, 16),
		watchdogTicks: DefaultWatchdogTicks,
		readBuf:       make([]byte, 256),
	}
}

// SetWatchdogTicks overrides the default idle-tick watchdog bound.
func (p *Pump) SetWatchdogTicks(n int) {
	p.watchdogTicks = n
}

// Tick drives one main-loop cycle: dispatch a queued transfer if the queue
// is idle, read and decode whatever bytes the transport has, and advance
// the watchdog. Call once per main-loop period.
func (p *Pump) Tick() {
	p.dispatchPending()

	n, err := p.transport.Read(p.readBuf)
	if err != nil {
		p.raise(LinkEventFormatError, err)
		return
	}
	if n == 0 {
		p.ticksSinceActivity++
		if p.watchdogTicks > 0 && p.ticksSinceActivity >= p.watchdogTicks {
			p.ticksSinceActivity = 0
			p.raise(LinkEventWatchdogExpired, nil)
		}
		return
	}
	p.ticksSinceActivity = 0

	frames, errs := p.decoder.FeedAll(p.readBuf[:n])
	for _, err := range errs {
		if err == linkframer.ErrCRC {
			p.raise(LinkEventCRCError, err)
		} else {
			p.raise(LinkEventFormatError, err)
		}
	}
	for _, f := range frames {
		p.handleFrame(f)
	}
}

func (p *Pump) raise(kind LinkEventKind, err error) {
	select {
	case p.Events <- LinkEvent{Kind: kind, Err: err}:
	default:
	}
}

func (p *Pump) dispatchPending() {
	tr := p.module.Queue.Dispatch()
	if tr == nil {
		return
	}
	p.inFlightDir = tr.Direction
	p.inFlightAddr = tr.Address

	var frameType byte
	payload := make([]byte, 0, 1+len(tr.Payload))
	payload = append(payload, tr.Address)
	if tr.Direction == DirWrite {
		frameType = linkframer.TypeWriteOrChangeNotif
		payload = append(payload, tr.Payload...)
	} else {
		frameType = linkframer.TypeReadOrEvent
	}

	_, _ = p.transport.Write(linkframer.EncodeFrame(frameType, payload))
}

func (p *Pump) handleFrame(f *linkframer.Frame) {
	switch f.Type {
	case linkframer.TypeReadResponse:
		p.completeRead(f.Payload)
	case linkframer.TypeWriteOrChangeNotif:
		p.handleWriteAckOrChangeNotif(f.Payload)
	case linkframer.TypeReadOrEvent:
		p.handleEvent(f.Payload)
	}
}

func (p *Pump) completeRead(payload []byte) {
	if p.module.Queue.InFlight() == nil || p.inFlightDir != DirRead || len(payload) < 1 {
		return
	}
	addr := payload[0]
	data := payload[1:]
	if addr != p.inFlightAddr {
		return
	}
	value := decodeLE(data)
	p.module.Queue.Complete(true, value, len(data), ErrKindNone)
}

func (p *Pump) handleWriteAckOrChangeNotif(payload []byte) {
	if len(payload) < 1 {
		return
	}
	addr := payload[0]
	data := payload[1:]

	if p.module.Queue.InFlight() != nil && p.inFlightDir == DirWrite && addr == p.inFlightAddr {
		p.module.Queue.Complete(true, decodeLE(data), len(data), ErrKindNone)
		return
	}

	// Unsolicited: the slave is reporting a changed register (spec §4.B's
	// change-notification mechanism) ahead of the next scheduled read.
	if len(data) > 0 {
		_ = p.module.Registers.Set(addr, data)
	}
}

func (p *Pump) handleEvent(payload []byte) {
	if len(payload) < 1 {
		return
	}
	switch payload[0] {
	case EventMCUReset, EventBTReset:
		p.module.NotifyResetDetected()
		p.raise(LinkEventModuleReset, nil)
	case EventError:
		p.raise(LinkEventSlaveError, nil)
	case EventWriteAck:
		// Acks for writes are already resolved via TypeWriteOrChangeNotif;
		// an Event-framed ack (link glitch resend) is otherwise a no-op.
	}
}

func decodeLE(data []byte) uint32 {
	var v uint32
	for i, b := range data {
		if i >= 4 {
			break
		}
		v |= uint32(b) << (8 * uint(i))
	}
	return v
}
