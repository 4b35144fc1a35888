//go:build linux

package poller

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// maxFDs bounds direct-indexed fd storage, matching the single-owner,
// one-poller-per-worker invariant spec §4.1 assumes.
const maxFDs = 65536

type fdEntry struct {
	handler Handler
	events  Events
	active  bool
}

// Poller is one epoll instance, owned by exactly one worker.
type Poller struct {
	epfd    int
	version atomic.Uint64
	mu      sync.RWMutex
	fds     [maxFDs]fdEntry
	events  [256]unix.EpollEvent
	closed  atomic.Bool
}

// New creates and initializes an epoll instance.
func New() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Poller{epfd: epfd}, nil
}

// AddFD registers fd for the given readiness events, always edge-triggered.
func (p *Poller) AddFD(fd int, want Events, h Handler) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}

	p.mu.Lock()
	if p.fds[fd].active {
		p.mu.Unlock()
		return ErrAlreadyRegistered
	}
	p.fds[fd] = fdEntry{handler: h, events: want, active: true}
	p.version.Add(1)
	p.mu.Unlock()

	ev := unix.EpollEvent{Events: toEpoll(want) | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		p.mu.Lock()
		p.fds[fd] = fdEntry{}
		p.mu.Unlock()
		return p.classify("add", fd, err)
	}
	return nil
}

// RemoveFD unregisters fd. It is a no-op error (EEXIST/ENOENT-shaped: not
// registered) rather than a hard failure, matching spec §4.1's policy table.
func (p *Poller) RemoveFD(fd int) error {
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}
	p.mu.Lock()
	if !p.fds[fd].active {
		p.mu.Unlock()
		return ErrNotRegistered
	}
	p.fds[fd] = fdEntry{}
	p.version.Add(1)
	p.mu.Unlock()

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return p.classify("remove", fd, err)
	}
	return nil
}

// classify maps an add/remove errno to spec §4.1's benign / degraded /
// fatal policy. Fatal errors are returned, not panicked on — the worker
// owning this poller decides how "abort the process" is actually carried
// out (spec doesn't require the poller itself to call os.Exit).
func (p *Poller) classify(op string, fd int, err error) error {
	policy := PolicyDegraded
	switch err {
	case unix.EEXIST, unix.ENOENT:
		policy = PolicyBenign
	case unix.ENOSPC:
		policy = PolicyDegraded
	case unix.EBADF, unix.EINVAL, unix.ENOMEM, unix.EPERM:
		policy = PolicyFatal
	}
	return &OpError{Op: op, FD: fd, Err: err, Policy: policy}
}

// Wait blocks for up to timeoutMs (negative blocks indefinitely, zero
// returns immediately) and dispatches every ready fd's handler inline on
// the calling goroutine before returning the count processed.
func (p *Poller) Wait(maxEvents, timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	if maxEvents <= 0 || maxEvents > len(p.events) {
		maxEvents = len(p.events)
	}

	v := p.version.Load()
	n, err := unix.EpollWait(p.epfd, p.events[:maxEvents], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	if p.version.Load() != v {
		// A callback from a racing call (shouldn't happen: single-owner)
		// mutated the fd table mid-wait; discard rather than dispatch
		// against a stale snapshot.
		return 0, nil
	}

	p.dispatch(n)
	return n, nil
}

func (p *Poller) dispatch(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		if fd < 0 || fd >= maxFDs {
			continue
		}
		p.mu.RLock()
		entry := p.fds[fd]
		p.mu.RUnlock()
		if entry.active && entry.handler.Callback != nil {
			entry.handler.Callback(fd, fromEpoll(p.events[i].Events))
		}
	}
}

// Close releases the epoll fd. It does not close any registered fds — the
// DCBs that own them are responsible for that, per spec §4.3's two-phase
// destruction.
func (p *Poller) Close() error {
	p.closed.Store(true)
	return unix.Close(p.epfd)
}

func toEpoll(ev Events) uint32 {
	var out uint32
	if ev&Read != 0 {
		out |= unix.EPOLLIN
	}
	if ev&Write != 0 {
		out |= unix.EPOLLOUT
	}
	return out
}

func fromEpoll(ev uint32) Events {
	var out Events
	if ev&unix.EPOLLIN != 0 {
		out |= Read
	}
	if ev&unix.EPOLLOUT != 0 {
		out |= Write
	}
	if ev&unix.EPOLLERR != 0 {
		out |= Error
	}
	if ev&unix.EPOLLHUP != 0 {
		out |= Hangup
	}
	return out
}
