package moduleif

// Direction distinguishes a register read from a register write transfer.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

// ErrorKind classifies the outcome of a failed link-level transfer attempt,
// which determines whether the queue retries it (spec §4.B / §7).
type ErrorKind int

const (
	// ErrKindNone: the transfer succeeded.
	ErrKindNone ErrorKind = iota
	// ErrKindUnknown, ErrKindTimeout, ErrKindOpenGeneral: retryable.
	ErrKindUnknown
	ErrKindTimeout
	ErrKindOpenGeneral
	// ErrKindCommandNotAllowed, ErrKindWrongParameter: non-retryable.
	ErrKindCommandNotAllowed
	ErrKindWrongParameter
)

// Retryable reports whether the queue should requeue a transfer that failed
// with this error kind (spec §4.B: "unknown, timeout, open-general-error").
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrKindUnknown, ErrKindTimeout, ErrKindOpenGeneral:
		return true
	default:
		return false
	}
}

// CompletionCallback receives the outcome of a transfer: ok, the register
// value (low bits, for reads), and the register width in bytes.
type CompletionCallback func(ok bool, value uint32, width int)

// Transfer is one queued register access (spec §3's "Transfer record").
type Transfer struct {
	Direction   Direction
	Address     byte
	Length      int
	Payload     []byte // write data, or read destination sizing only
	Callback    CompletionCallback
	RetryBudget int
}

// DefaultRetryBudget matches the link framer's retransmit default.
const DefaultRetryBudget = 3

// Queue is the per-module async transfer queue (spec §4.B: "At most one
// in-flight transfer per module", FIFO, head-of-line requeue on retryable
// failure).
type Queue struct {
	pending []*Transfer
	inFlight *Transfer // the transfer currently in flight, nil if idle
}

// NewQueue returns an empty transfer queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a transfer to the FIFO tail.
func (q *Queue) Enqueue(t *Transfer) {
	if t.RetryBudget <= 0 {
		t.RetryBudget = DefaultRetryBudget
	}
	q.pending = append(q.pending, t)
}

// InFlight returns the transfer currently being serviced, or nil if the
// queue is idle and ready to dispatch the next one.
func (q *Queue) InFlight() *Transfer {
	return q.inFlight
}

// Idle reports whether the queue has nothing in flight.
func (q *Queue) Idle() bool {
	return q.inFlight == nil
}

// Dispatch pops the head of the queue into the in-flight slot, if idle and
// non-empty, and returns it (nil if there was nothing to dispatch).
func (q *Queue) Dispatch() *Transfer {
	if !q.Idle() || len(q.pending) == 0 {
		return nil
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	q.inFlight = t
	return t
}

// Complete reports the outcome of the in-flight transfer. On success, or on
// a non-retryable failure, the transfer's callback fires with the given
// result and the queue becomes idle again. On a retryable failure with
// remaining budget, the transfer is requeued at the head (so it is the next
// one Dispatch returns) with its budget decremented, and no callback fires
// yet. On retryable-but-exhausted budget, the callback fires with ok=false.
//
// Complete is a no-op if the queue has nothing in flight.
func (q *Queue) Complete(ok bool, value uint32, width int, kind ErrorKind) {
	t := q.inFlight
	if t == nil {
		return
	}
	q.inFlight = nil

	if ok {
		if t.Callback != nil {
			t.Callback(true, value, width)
		}
		return
	}

	if kind.Retryable() {
		t.RetryBudget--
		if t.RetryBudget > 0 {
			q.pending = append([]*Transfer{t}, q.pending...)
			return
		}
	}

	if t.Callback != nil {
		t.Callback(false, 0, 0)
	}
}

// Len returns the number of transfers waiting (not counting the in-flight
// one).
func (q *Queue) Len() int {
	return len(q.pending)
}
