package moduleif

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockbox/controller/internal/linkframer"
)

// fakeTransport is a single-threaded stand-in for a UART port: writes are
// captured for inspection, and queued bytes are handed back on the next
// Read (an empty queue reads as (0, nil), matching transport.SerialPort's
// idle-timeout behaviour).
type fakeTransport struct {
	written [][]byte
	toRead  []byte
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	f.written = append(f.written, cp)
	return len(p), nil
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	if len(f.toRead) == 0 {
		return 0, nil
	}
	n := copy(p, f.toRead)
	f.toRead = f.toRead[n:]
	return n, nil
}

func pumpTestModule() *Module {
	var widths WidthTable
	widths[0x08] = 4
	return NewModule("pump-test", widths, []byte{0x08}, nil, InitHandshake{})
}

func TestPumpDispatchesReadAndCompletesOnResponse(t *testing.T) {
	m := pumpTestModule()
	var gotValue uint32
	var gotOK bool
	m.Queue.Enqueue(&Transfer{Direction: DirRead, Address: 0x08, Length: 4, Callback: func(ok bool, value uint32, width int) {
		gotOK, gotValue = ok, value
	}})

	tr := &fakeTransport{}
	p := NewPump(m, tr)

	p.Tick()
	require.Len(t, tr.written, 1, "the pump must write an encoded read-request frame")

	resp := linkframer.EncodeFrame(linkframer.TypeReadResponse, []byte{0x08, 0x01, 0x00, 0x00, 0x00})
	tr.toRead = resp
	p.Tick()

	require.True(t, gotOK)
	require.Equal(t, uint32(1), gotValue)
}

func TestPumpIgnoresReadResponseForWrongAddress(t *testing.T) {
	m := pumpTestModule()
	completed := false
	m.Queue.Enqueue(&Transfer{Direction: DirRead, Address: 0x08, Length: 4, Callback: func(ok bool, value uint32, width int) {
		completed = true
	}})

	tr := &fakeTransport{}
	p := NewPump(m, tr)
	p.Tick()

	tr.toRead = linkframer.EncodeFrame(linkframer.TypeReadResponse, []byte{0x09, 0x01})
	p.Tick()

	require.False(t, completed, "a response for a different address must not complete the in-flight read")
}

func TestPumpAppliesUnsolicitedChangeNotification(t *testing.T) {
	m := pumpTestModule()
	tr := &fakeTransport{}
	p := NewPump(m, tr)

	tr.toRead = linkframer.EncodeFrame(linkframer.TypeWriteOrChangeNotif, []byte{0x08, 0x2A, 0x00, 0x00, 0x00})
	p.Tick()

	v, _, err := m.Registers.GetUint32(0x08)
	require.NoError(t, err)
	require.Equal(t, uint32(0x2A), v, "an unsolicited change-notification frame must update the shadow register")
}

func TestPumpWatchdogExpiresOnIdleLink(t *testing.T) {
	m := pumpTestModule()
	tr := &fakeTransport{}
	p := NewPump(m, tr)
	p.SetWatchdogTicks(3)

	for i := 0; i < 2; i++ {
		p.Tick()
		select {
		case ev := <-p.Events:
			t.Fatalf("unexpected early event %+v", ev)
		default:
		}
	}

	p.Tick()
	select {
	case ev := <-p.Events:
		require.Equal(t, LinkEventWatchdogExpired, ev.Kind)
	default:
		t.Fatal("expected a watchdog-expired event")
	}
}

func TestPumpHandlesModuleResetEvent(t *testing.T) {
	m := pumpTestModule()
	m.state = StateReady

	tr := &fakeTransport{}
	p := NewPump(m, tr)
	tr.toRead = linkframer.EncodeFrame(linkframer.TypeReadOrEvent, []byte{EventMCUReset})

	p.Tick()

	require.Equal(t, StateResetting, m.State())
	select {
	case ev := <-p.Events:
		require.Equal(t, LinkEventModuleReset, ev.Kind)
	default:
		t.Fatal("expected a module-reset event")
	}
}
