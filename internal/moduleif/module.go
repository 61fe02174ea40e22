package moduleif

import "fmt"

// State tracks where a Module sits in the init/reset handshake (spec §4.B).
type State int

const (
	// StateUninitialized: no successful register read has completed yet.
	StateUninitialized State = iota
	// StateInitializing: the module-ID verify / notify-enable / reportable
	// register sync is in flight.
	StateInitializing
	// StateReady: initialization completed; the module is participating in
	// normal transfer and change-notification traffic.
	StateReady
	// StateResetting: a reset condition was observed (reset line asserted,
	// or the module reported a RESET_OCCURRED event); the module must be
	// re-initialized from scratch before any new transfer is trusted.
	StateResetting
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateResetting:
		return "resetting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultInitTimeoutTicks bounds a module's init handshake when
// InitHandshake.TimeoutTicks is unset: 50 ticks, which at a 10ms main-loop
// period is 500ms, matching the reset-ack figure spec §5 names. Slower peripherals
// (e.g. the Bluetooth receiver's ~4s handshake) must set their own value.
const DefaultInitTimeoutTicks = 50

// InitHandshake configures the module-ID verification and
// notification-enable steps that precede the reportable-register sync
// (spec §4.B: "InitModule reads the module-ID register, verifies the
// expected constant, enables interrupts/notifications on the slave, then
// triggers a one-shot read of all reportable registers"). A zero
// ModuleIDAddr skips ID verification (address 0 is invalid per spec §6, so
// it doubles as "no ID register"); a zero EnableNotifyAddr skips the
// notify-enable write.
type InitHandshake struct {
	ModuleIDAddr     byte
	ExpectedModuleID uint32

	EnableNotifyAddr  byte
	EnableNotifyValue uint32
	EnableNotifyWidth int // defaults to the register's configured width

	// TimeoutTicks bounds how many Tick calls the handshake may take
	// before it aborts. Defaults to DefaultInitTimeoutTicks if <= 0.
	TimeoutTicks int
}

// Module binds one module's register map, transfer queue, and
// change-notification watcher together with the init/reset handshake state
// machine that drives them (spec §4.B: "on power-up, or whenever a reset is
// detected, the controller must treat every previously known register value
// as stale until the full reportable set has been re-read").
type Module struct {
	Name      string
	Registers *RegisterMap
	Queue     *Queue
	Watcher   *ChangeWatcher

	state        State
	reportable   []byte
	pendingReads map[byte]bool

	handshake      InitHandshake
	ticksRemaining int
}

// NewModule constructs a module in StateUninitialized. reportable lists the
// register addresses that must be successfully read before the module is
// considered initialized; watchSpecs configures the change-notification
// scan over the same register map; handshake configures the ID-verify and
// notify-enable steps BeginInit runs first.
func NewModule(name string, widths WidthTable, reportable []byte, watchSpecs map[byte]WatchSpec, handshake InitHandshake) *Module {
	rm := NewRegisterMap(widths)
	return &Module{
		Name:       name,
		Registers:  rm,
		Queue:      NewQueue(),
		Watcher:    NewChangeWatcher(rm, watchSpecs),
		state:      StateUninitialized,
		reportable: reportable,
		handshake:  handshake,
	}
}

// State returns the module's current handshake state.
func (m *Module) State() State {
	return m.state
}

// BeginInit starts (or restarts) the init handshake: StateInitializing,
// module-ID verification (if configured), notify-enable (if configured),
// then a one-shot read of every reportable register. The caller is
// responsible for pumping the queue (Dispatch/Complete) against the
// transport and calling Tick once per main-loop cycle to drive the init
// timeout.
func (m *Module) BeginInit() {
	m.state = StateInitializing
	m.ticksRemaining = m.handshake.TimeoutTicks
	if m.ticksRemaining <= 0 {
		m.ticksRemaining = DefaultInitTimeoutTicks
	}
	m.Queue = NewQueue()

	if m.handshake.ModuleIDAddr != 0 {
		m.beginIDVerify()
		return
	}
	m.beginNotifyEnable()
}

func (m *Module) beginIDVerify() {
	addr := m.handshake.ModuleIDAddr
	m.Queue.Enqueue(&Transfer{
		Direction: DirRead,
		Address:   addr,
		Length:    m.Registers.Width(addr),
		Callback: func(ok bool, value uint32, width int) {
			if m.state != StateInitializing {
				return // superseded by a reset-triggered restart
			}
			if !ok || value != m.handshake.ExpectedModuleID {
				m.failInit()
				return
			}
			m.beginNotifyEnable()
		},
	})
}

func (m *Module) beginNotifyEnable() {
	if m.handshake.EnableNotifyAddr == 0 {
		m.beginRegisterSync()
		return
	}
	width := m.handshake.EnableNotifyWidth
	if width <= 0 {
		width = m.Registers.Width(m.handshake.EnableNotifyAddr)
	}
	payload := make([]byte, width)
	for i := 0; i < width; i++ {
		payload[i] = byte(m.handshake.EnableNotifyValue >> (8 * uint(i)))
	}
	m.Queue.Enqueue(&Transfer{
		Direction: DirWrite,
		Address:   m.handshake.EnableNotifyAddr,
		Length:    width,
		Payload:   payload,
		Callback: func(ok bool, value uint32, width int) {
			if m.state != StateInitializing {
				return
			}
			if !ok {
				m.failInit()
				return
			}
			m.beginRegisterSync()
		},
	})
}

func (m *Module) beginRegisterSync() {
	m.pendingReads = make(map[byte]bool, len(m.reportable))
	for _, addr := range m.reportable {
		addr := addr
		m.pendingReads[addr] = true
		m.Queue.Enqueue(&Transfer{
			Direction: DirRead,
			Address:   addr,
			Length:    m.Registers.Width(addr),
			Callback: func(ok bool, value uint32, width int) {
				delete(m.pendingReads, addr)
				if m.state != StateInitializing {
					return
				}
				if ok {
					buf := make([]byte, width)
					for i := 0; i < width; i++ {
						buf[i] = byte(value >> (8 * uint(i)))
					}
					_ = m.Registers.Set(addr, buf)
				}
				if len(m.pendingReads) == 0 {
					m.state = StateReady
				}
			},
		})
	}
}

// failInit aborts the handshake, invoking the callback of every in-flight
// and queued transfer with ok=false (spec §5: "Expiry
// always invokes the pending callback with ok=false before freeing the
// transfer"); the caller discovers this by observing State() fall back to
// StateUninitialized and must call BeginInit again to retry.
func (m *Module) failInit() {
	m.state = StateUninitialized
	m.pendingReads = nil
	old := m.Queue
	m.Queue = NewQueue()
	aborted := old.pending
	if old.inFlight != nil {
		aborted = append([]*Transfer{old.inFlight}, aborted...)
	}
	for _, t := range aborted {
		if t.Callback != nil {
			t.Callback(false, 0, 0)
		}
	}
}

// Tick advances the init-timeout countdown; call it once per main-loop
// cycle. It is a no-op outside StateInitializing.
func (m *Module) Tick() {
	if m.state != StateInitializing {
		return
	}
	m.ticksRemaining--
	if m.ticksRemaining <= 0 {
		m.failInit()
	}
}

// NotifyResetDetected handles an observed reset condition (reset GPIO edge,
// or a RESET_OCCURRED change-notification payload): the module is no longer
// trusted and must go through BeginInit again before resuming normal
// traffic. Any transfers still queued for the old epoch are dropped, since
// their in-flight addresses may no longer mean what the caller thinks. If
// the reset arrives while already initializing, init restarts immediately
// (spec §4.B: "If the slave has posted a MODULE_RESET event in the
// meantime, init restarts").
func (m *Module) NotifyResetDetected() {
	wasInitializing := m.state == StateInitializing
	m.state = StateResetting
	m.Queue = NewQueue()
	m.pendingReads = nil
	if wasInitializing {
		m.BeginInit()
	}
}

// Ready reports whether the module has completed initialization and is not
// in a reset condition.
func (m *Module) Ready() bool {
	return m.state == StateReady
}
