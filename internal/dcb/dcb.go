// Package dcb implements the descriptor control block from spec §4.3: the
// buffered, half-duplex, event-driven I/O unit every client and backend
// connection uses. A DCB is the handler registered with its owning
// worker's internal/poller.Poller — its own state is single-writer,
// mutated only by that worker, per spec §5's shared-resource policy.
package dcb

import (
	"errors"
	"fmt"
	"net"

	"github.com/joeycumines/go-dbrouter/internal/poller"
)

// Role distinguishes a client-facing DCB from a backend-facing one.
type Role uint8

const (
	RoleClient Role = iota
	RoleBackend
)

// State is the DCB lifecycle, spec §4.3's CREATED/POLLING/DISCONNECTED/
// NOPOLLING set, plus Destroyed for the second phase of close.
type State uint8

const (
	StateCreated State = iota
	StatePolling
	StateNoPolling
	StateDisconnected
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StatePolling:
		return "POLLING"
	case StateNoPolling:
		return "NOPOLLING"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateDestroyed:
		return "DESTROYED"
	default:
		return "UNKNOWN"
	}
}

// TLSState is the handshake state machine spec §4.3 names.
type TLSState uint8

const (
	TLSHandshakeUnknown TLSState = iota
	TLSHandshakeRequired
	TLSEstablished
	TLSHandshakeFailed
)

// CallbackReason keys the callback list (spec §4.3: HIGH_WATER, LOW_WATER).
type CallbackReason uint8

const (
	ReasonHighWater CallbackReason = iota
	ReasonLowWater
)

// Callback is one add_callback/remove_callback registration. Two callbacks
// are duplicates (and rejected by AddCallback) when Reason, Fn, and User all
// match — Fn compared by pointer identity via reflect, since funcs aren't
// otherwise comparable.
type Callback struct {
	Reason CallbackReason
	Fn     func(d *DCB)
	User   any
}

var (
	ErrDuplicateCallback = errors.New("dcb: duplicate callback")
	ErrNotOwner          = errors.New("dcb: caller is not the owning worker")
	ErrWrongState        = errors.New("dcb: operation not valid in current state")
)

// ReadResult is the three-state read() outcome spec §4.3 names.
type ReadResult uint8

const (
	ReadOK ReadResult = iota
	ReadInsufficientData
	ReadError
)

// Drain controls whether writeq_append attempts an immediate drain.
type Drain bool

const (
	DrainYes Drain = true
	DrainNo  Drain = false
)

// DCB is the per-connection buffered I/O unit. Every field is touched only
// by the owning worker's goroutine/thread (ownerID exists purely to make
// that contract checkable, not to provide locking — there is deliberately
// no mutex here, per spec §4.3's single-writer policy).
type DCB struct {
	ID   uint64
	FD   int
	Conn net.Conn
	Role Role

	state State
	tls   TLSState

	readQ  *queue
	writeQ *queue

	// wantRead/wantWrite record a TLS WANT_READ/WANT_WRITE retry direction,
	// so the next poll cycle re-arms the matching readiness bit instead of
	// re-attempting blindly.
	wantRead, wantWrite bool

	// pendingHangup/pendingRead/pendingWrite are the synthetic
	// trigger_*_event flags; multiple triggers within one handler tick
	// collapse to the last one, per spec §4.3.
	pendingHangup, pendingRead, pendingWrite bool

	callbacks []Callback

	ownerID uint64

	// Handler is invoked by the owning worker when the poller reports
	// readiness, or when a synthetic event fires.
	Handler func(d *DCB, ev poller.Events)

	// Session is the back-reference to whatever owns this DCB at the
	// protocol layer (internal/session.Session, once built); left as any
	// to avoid an import cycle between dcb and session.
	Session any

	lastErr error
}

// New constructs a DCB in the CREATED state, owned by ownerID. It is not
// registered with any poller until EnableEvents is called.
func New(id uint64, fd int, conn net.Conn, role Role, ownerID uint64, marks WaterMarks) *DCB {
	return &DCB{
		ID:      id,
		FD:      fd,
		Conn:    conn,
		Role:    role,
		state:   StateCreated,
		readQ:   newQueue(marks),
		writeQ:  newQueue(marks),
		ownerID: ownerID,
	}
}

func (d *DCB) State() State       { return d.state }
func (d *DCB) TLSState() TLSState { return d.tls }
func (d *DCB) WriteQueueLen() int { return d.writeQ.Len() }
func (d *DCB) ReadQueueLen() int  { return d.readQ.Len() }
func (d *DCB) LastError() error   { return d.lastErr }

func (d *DCB) checkOwner(callerID uint64) error {
	if callerID != d.ownerID {
		return fmt.Errorf("%w: dcb %d owned by %d, called by %d", ErrNotOwner, d.ID, d.ownerID, callerID)
	}
	return nil
}

// SetOwner transfers ownership, permitted only outside POLLING (spec §4.3).
func (d *DCB) SetOwner(callerID, newOwnerID uint64) error {
	if err := d.checkOwner(callerID); err != nil {
		return err
	}
	if d.state == StatePolling {
		return fmt.Errorf("%w: set_owner while POLLING", ErrWrongState)
	}
	d.ownerID = newOwnerID
	return nil
}

// EnableEvents registers the DCB with p, transitioning CREATED/NOPOLLING →
// POLLING. Only the owning worker may call this.
func (d *DCB) EnableEvents(callerID uint64, p *poller.Poller, want poller.Events) error {
	if err := d.checkOwner(callerID); err != nil {
		return err
	}
	if d.state != StateCreated && d.state != StateNoPolling {
		return fmt.Errorf("%w: enable_events from %s", ErrWrongState, d.state)
	}
	if err := p.AddFD(d.FD, want, poller.Handler{
		Owner: d,
		Callback: func(_ int, ev poller.Events) {
			d.dispatch(ev)
		},
	}); err != nil {
		return err
	}
	d.state = StatePolling
	return nil
}

// DisableEvents unregisters the DCB from p, transitioning POLLING →
// NOPOLLING. Only the owning worker may call this.
func (d *DCB) DisableEvents(callerID uint64, p *poller.Poller) error {
	if err := d.checkOwner(callerID); err != nil {
		return err
	}
	if d.state != StatePolling {
		return fmt.Errorf("%w: disable_events from %s", ErrWrongState, d.state)
	}
	if err := p.RemoveFD(d.FD); err != nil {
		return err
	}
	d.state = StateNoPolling
	return nil
}

func (d *DCB) dispatch(ev poller.Events) {
	if d.Handler != nil {
		d.Handler(d, ev)
	}
	d.flushTriggers()
}

// flushTriggers delivers any synthetic events queued during the handler
// invocation that just returned, then clears them — the "collapse to the
// last trigger within a tick" rule is enforced by the trigger_* setters
// themselves, each of which sets its own bool and clears the other two
// rather than queueing N events.
func (d *DCB) flushTriggers() {
	hangup, read, write := d.pendingHangup, d.pendingRead, d.pendingWrite
	d.pendingHangup, d.pendingRead, d.pendingWrite = false, false, false
	if !hangup && !read && !write {
		return
	}
	var synthetic poller.Events
	if hangup {
		synthetic |= poller.Hangup
	}
	if read {
		synthetic |= poller.Read
	}
	if write {
		synthetic |= poller.Write
	}
	if d.Handler != nil {
		d.Handler(d, synthetic)
	}
}

func (d *DCB) TriggerHangupEvent() { d.pendingHangup, d.pendingRead, d.pendingWrite = true, false, false }
func (d *DCB) TriggerReadEvent()   { d.pendingHangup, d.pendingRead, d.pendingWrite = false, true, false }
func (d *DCB) TriggerWriteEvent()  { d.pendingHangup, d.pendingRead, d.pendingWrite = false, false, true }

// AddCallback registers cb for reason, rejecting an identical (reason, fn,
// user) triple already present. Fn identity is compared via reflect since
// funcs are otherwise incomparable in Go.
func (d *DCB) AddCallback(cb Callback) error {
	for _, existing := range d.callbacks {
		if existing.Reason == cb.Reason && existing.User == cb.User && sameFunc(existing.Fn, cb.Fn) {
			return ErrDuplicateCallback
		}
	}
	d.callbacks = append(d.callbacks, cb)
	return nil
}

// RemoveCallback removes the first registration matching reason/user/fn.
func (d *DCB) RemoveCallback(reason CallbackReason, fn func(d *DCB), user any) {
	for i, existing := range d.callbacks {
		if existing.Reason == reason && existing.User == user && sameFunc(existing.Fn, fn) {
			d.callbacks = append(d.callbacks[:i], d.callbacks[i+1:]...)
			return
		}
	}
}

func (d *DCB) fireCallbacks(reason CallbackReason) {
	for _, cb := range d.callbacks {
		if cb.Reason == reason {
			cb.Fn(d)
		}
	}
}

// WriteqAppend appends buf to the write queue, attempting an immediate
// drain when drain is DrainYes. It returns false only on allocation
// failure (never due to a socket error, which surfaces later via the
// handler's hangup path per spec §4.3).
func (d *DCB) WriteqAppend(buf []byte, drain Drain) bool {
	if d.writeQ.Append(buf) {
		d.fireCallbacks(ReasonHighWater)
	}
	if drain == DrainYes {
		_, _ = d.WriteqDrain()
	}
	return true
}

// WriteqDrain writes from the write queue to the socket until it would
// block, firing LOW_WATER on a crossing below low_water.
func (d *DCB) WriteqDrain() (bytesWritten int, err error) {
	for d.writeQ.Len() > 0 {
		chunk := d.writeQ.Peek(4096)
		n, werr := d.Conn.Write(chunk)
		if n > 0 {
			_, crossedLow := d.writeQ.Drain(n)
			bytesWritten += n
			if crossedLow {
				d.fireCallbacks(ReasonLowWater)
			}
		}
		if werr != nil {
			if isWouldBlock(werr) {
				d.wantWrite = true
				return bytesWritten, nil
			}
			d.lastErr = werr
			return bytesWritten, werr
		}
		if n == 0 {
			return bytesWritten, nil
		}
	}
	return bytesWritten, nil
}

// Read returns data from the internal read queue first, then pulls from
// the socket until minBytes are available or the socket would block. A
// zero minBytes returns whatever is already available.
func (d *DCB) Read(minBytes, maxBytes int) (ReadResult, []byte) {
	for d.readQ.Len() < minBytes {
		buf := make([]byte, 4096)
		n, err := d.Conn.Read(buf)
		if n > 0 {
			d.readQ.Append(buf[:n])
		}
		if err != nil {
			if isWouldBlock(err) {
				d.wantRead = true
				break
			}
			d.lastErr = err
			return ReadError, nil
		}
		if n == 0 {
			break
		}
	}
	if d.readQ.Len() < minBytes && minBytes > 0 {
		return ReadInsufficientData, nil
	}
	data, _ := d.readQ.Drain(maxBytes)
	return ReadOK, data
}

func sameFunc(a, b func(d *DCB)) bool {
	return fmt.Sprintf("%p", a) == fmt.Sprintf("%p", b)
}
