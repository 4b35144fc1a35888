package worker

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Task is one unit of cross-thread work submitted to a Worker's inbox.
type Task func()

// ExecMode selects Worker.Execute's dispatch strategy (spec §4.2).
type ExecMode int

const (
	// Auto runs the task inline if the caller is already on the worker's
	// own goroutine, otherwise queues it like Queued.
	Auto ExecMode = iota
	// Queued always sends the task through the inbox, even from the
	// worker's own goroutine (it runs on a later tick).
	Queued
)

// MessageQueue is the wake-fd-backed inbox attached to a Worker (spec §3:
// "one inbox"). It has no capacity limit: Send always appends, however
// many tasks are already queued. It is backed by an os.Pipe so its read end can
// be registered with the worker's Poller like any other fd — the write
// end's byte is the wakeup; the actual payload travels over the Go
// channel-free external slice, guarded by mu, mirroring the teacher's
// mutex+chunked-queue choice (mutex outperforms lock-free under
// contention, and a worker's inbox is exactly that: many producers, one
// consumer).
type MessageQueue struct {
	mu       sync.Mutex
	external []Task

	readFD, writeFD *os.File
	pending         atomic.Bool
}

// NewMessageQueue creates the inbox and its wakeup pipe.
func NewMessageQueue() (*MessageQueue, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &MessageQueue{readFD: r, writeFD: w}, nil
}

// ReadFD is the descriptor the owning worker registers with its Poller.
func (q *MessageQueue) ReadFD() int { return int(q.readFD.Fd()) }

// Close releases the pipe. Only the owning worker calls this, during
// shutdown.
func (q *MessageQueue) Close() error {
	werr := q.writeFD.Close()
	rerr := q.readFD.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Send enqueues task and wakes the worker if it isn't already pending a
// wakeup — multiple sends between drains collapse to a single byte on
// the pipe, since Drain always empties the whole queue in one pass.
func (q *MessageQueue) Send(task Task) {
	q.mu.Lock()
	q.external = append(q.external, task)
	q.mu.Unlock()
	if q.pending.CompareAndSwap(false, true) {
		var b [1]byte
		_, _ = q.writeFD.Write(b[:])
	}
}

// Drain removes and returns every queued task, and consumes the wakeup
// byte(s) from the pipe so the next Send schedules a fresh wakeup.
func (q *MessageQueue) Drain() []Task {
	q.mu.Lock()
	tasks := q.external
	q.external = nil
	q.mu.Unlock()

	q.pending.Store(false)
	// Drain runs once per tick regardless of whether the poller actually
	// reported readFD readable, so the read must never block: an already-
	// elapsed deadline turns it into a non-blocking poll, same trick
	// internal/dcb uses for sockets.
	_ = q.readFD.SetReadDeadline(time.Now())
	var buf [64]byte
	_, _ = q.readFD.Read(buf[:])
	return tasks
}
