//go:build linux

package poller

import (
	"os"
	"testing"
	"time"
)

func TestAddFDWaitDispatch(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	gotEvents := make(chan Events, 1)
	h := Handler{Callback: func(fd int, ev Events) { gotEvents <- ev }}
	if err := p.AddFD(int(r.Fd()), Read, h); err != nil {
		t.Fatalf("AddFD: %v", err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	n, err := p.Wait(16, 1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d events, want 1", n)
	}

	select {
	case ev := <-gotEvents:
		if ev&Read == 0 {
			t.Fatalf("got %v, want Read set", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("callback never fired")
	}

	if err := p.RemoveFD(int(r.Fd())); err != nil {
		t.Fatalf("RemoveFD: %v", err)
	}
	if err := p.RemoveFD(int(r.Fd())); err != ErrNotRegistered {
		t.Fatalf("second RemoveFD: got %v, want ErrNotRegistered", err)
	}
}

func TestAddFDOutOfRange(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.AddFD(-1, Read, Handler{}); err != ErrFDOutOfRange {
		t.Fatalf("got %v, want ErrFDOutOfRange", err)
	}
	if err := p.AddFD(maxFDs, Read, Handler{}); err != ErrFDOutOfRange {
		t.Fatalf("got %v, want ErrFDOutOfRange", err)
	}
}

func TestAddFDDuplicate(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if err := p.AddFD(int(r.Fd()), Read, Handler{}); err != nil {
		t.Fatalf("AddFD: %v", err)
	}
	if err := p.AddFD(int(r.Fd()), Read, Handler{}); err != ErrAlreadyRegistered {
		t.Fatalf("got %v, want ErrAlreadyRegistered", err)
	}
}
