package worker

import (
	"runtime"
	"time"

	"github.com/joeycumines/go-dbrouter/internal/loadavg"
	"github.com/joeycumines/go-dbrouter/internal/poller"
)

const maxEventsPerWait = 256

// Worker drives one Poller on one pinned goroutine (spec §4.2: "a per-
// thread cooperative scheduler"). It is not preemptive: handlers run to
// completion on this goroutine, and all cross-goroutine access goes
// through Execute/PostMessage, never direct field mutation.
type Worker struct {
	ID uint64

	state atomicState
	p     *poller.Poller
	mq    *MessageQueue
	calls *delayedCalls
	load  *loadavg.Tracker

	shouldShutdown bool

	// PreRun/PostRun/EpollTick are the hooks spec §4.2 names
	// (pre_run/post_run/epoll_tick).
	PreRun    func()
	PostRun   func()
	EpollTick func()
}

// New constructs a Worker with its own Poller and inbox. It does not start
// running until Start is called.
func New(id uint64, granularity time.Duration) (*Worker, error) {
	p, err := poller.New()
	if err != nil {
		return nil, err
	}
	mq, err := NewMessageQueue()
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	w := &Worker{
		ID:    id,
		p:     p,
		mq:    mq,
		calls: newDelayedCalls(),
		load:  loadavg.New(granularity, time.Now()),
	}
	w.state.Store(StateIdle)
	if err := p.AddFD(mq.ReadFD(), poller.Read, poller.Handler{
		Owner:    w,
		Callback: func(int, poller.Events) {},
	}); err != nil {
		_ = mq.Close()
		_ = p.Close()
		return nil, err
	}
	return w, nil
}

// State reports the worker's current lifecycle state. Safe to call from
// any goroutine (advisory outside the worker's own goroutine).
func (w *Worker) State() State { return w.state.Load() }

// Load returns the worker's rolling fraction-of-wall-time-busy metric —
// the one value spec §4.2 permits a router to read cross-thread.
func (w *Worker) Load() float64 { return w.load.Load() }

// Poller exposes the worker's own Poller so DCBs it owns can register.
// Only the worker's own goroutine may call AddFD/RemoveFD on it, per
// internal/dcb's ownership contract.
func (w *Worker) Poller() *poller.Poller { return w.p }

// Execute enqueues task per mode (spec §4.2). Under Auto, if isWorkerGoroutine
// reports true the task runs inline immediately (and before return, so a
// caller on the worker's own goroutine sees synchronous completion);
// otherwise — and always under Queued — it is sent via the inbox.
func (w *Worker) Execute(task Task, mode ExecMode, isWorkerGoroutine bool) {
	if mode == Auto && isWorkerGoroutine {
		task()
		return
	}
	w.mq.Send(task)
}

// PostMessage is the signal-safe shutdown path: an atomic write to the
// inbox wake pipe, safe to call from a signal handler.
func (w *Worker) PostMessage(task Task) { w.mq.Send(task) }

// Shutdown requests the worker stop at the start of its next tick.
func (w *Worker) Shutdown() {
	w.PostMessage(func() { w.shouldShutdown = true })
}

// DelayedCall schedules a one-shot per spec §4.2; cb may return true from
// a Fired invocation to re-arm for another delay from now.
func (w *Worker) DelayedCall(delay time.Duration, cb DelayedCallback) uint64 {
	return w.calls.schedule(time.Now(), delay, cb)
}

// CancelDelayedCall is best-effort: a no-op if the call already fired.
func (w *Worker) CancelDelayedCall(id uint64) { w.calls.cancel(id) }

// Run is the blocking loop body: pre_run, then IDLE/POLLING/PROCESSING
// cycles until should_shutdown() becomes true, then post_run. Callers
// normally invoke this on a freshly pinned goroutine (runtime.LockOSThread),
// matching spec §3's "every DCB... belongs to exactly one worker" model.
func (w *Worker) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.PreRun != nil {
		w.PreRun()
	}
	for !w.shouldShutdown {
		w.tick()
	}
	w.calls.cancelAll()
	if w.PostRun != nil {
		w.PostRun()
	}
	w.state.Store(StateStopped)
}

// tick is one epoll-loop cycle, per spec §4.2's five numbered steps. Only
// the PROCESSING portion (steps 3-5) counts toward the load average —
// time blocked in Wait is, by definition, idle time.
func (w *Worker) tick() {
	now := time.Now()

	// Step 1: timeout = max(0, granularity - elapsed-in-window), further
	// bounded by the next delayed call's fire time.
	timeout := w.load.Timeout(now)
	if nf := w.calls.nextFireIn(now); nf >= 0 && nf < timeout {
		timeout = nf
	}

	w.state.Store(StatePolling)
	// Step 2: wait for readiness. Dispatch (step 4) happens inline, inside
	// Wait, via each fd's registered callback — mirroring the teacher's
	// FastPoller, which invokes handlers directly from epoll_wait rather
	// than building an intermediate event list.
	_, _ = w.p.Wait(maxEventsPerWait, int(timeout/time.Millisecond))
	pollEnd := time.Now()

	w.state.Store(StateProcessing)
	for _, task := range w.mq.Drain() {
		task()
	}
	w.calls.fireDue(time.Now())
	if w.EpollTick != nil {
		w.EpollTick()
	}
	w.state.Store(StateIdle)

	processEnd := time.Now()
	w.load.AddBusy(processEnd, processEnd.Sub(pollEnd))
}

// Close releases the worker's Poller and inbox. Call only after Run has
// returned.
func (w *Worker) Close() error {
	if err := w.mq.Close(); err != nil {
		return err
	}
	return w.p.Close()
}
