package dcb

import (
	"net"
	"testing"
	"time"

	"github.com/joeycumines/go-dbrouter/internal/poller"
)

func pipePair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	client, server = net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestReadPullsFromSocket(t *testing.T) {
	client, server := pipePair(t)
	d := New(0, -1, client, RoleClient, 1, DefaultWaterMarks)

	go server.Write([]byte("hello"))

	result, data := d.Read(5, 0)
	if result != ReadOK {
		t.Fatalf("got %v, want ReadOK", result)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
}

func TestReadInsufficientDataOnWouldBlock(t *testing.T) {
	client, _ := pipePair(t)
	client.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
	d := New(0, -1, client, RoleClient, 1, DefaultWaterMarks)

	result, _ := d.Read(5, 0)
	if result != ReadInsufficientData {
		t.Fatalf("got %v, want ReadInsufficientData", result)
	}
	if !d.WantRead() {
		t.Fatalf("a would-block read should record WantRead")
	}
}

func TestWriteqAppendDrainsToSocket(t *testing.T) {
	client, server := pipePair(t)
	d := New(0, -1, client, RoleClient, 1, DefaultWaterMarks)

	received := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		received <- buf[:n]
	}()

	if ok := d.WriteqAppend([]byte("ping"), DrainYes); !ok {
		t.Fatalf("WriteqAppend returned false")
	}

	select {
	case got := <-received:
		if string(got) != "ping" {
			t.Fatalf("got %q, want ping", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the drained write")
	}
	if d.WriteQueueLen() != 0 {
		t.Fatalf("write queue should be empty after a successful drain")
	}
}

func TestAddCallbackRejectsDuplicates(t *testing.T) {
	client, _ := pipePair(t)
	d := New(0, -1, client, RoleClient, 1, DefaultWaterMarks)
	fn := func(*DCB) {}

	if err := d.AddCallback(Callback{Reason: ReasonHighWater, Fn: fn, User: "x"}); err != nil {
		t.Fatalf("first AddCallback: %v", err)
	}
	if err := d.AddCallback(Callback{Reason: ReasonHighWater, Fn: fn, User: "x"}); err != ErrDuplicateCallback {
		t.Fatalf("got %v, want ErrDuplicateCallback", err)
	}
}

func TestTriggerEventsCollapseToOneDispatch(t *testing.T) {
	client, _ := pipePair(t)
	d := New(0, -1, client, RoleClient, 1, DefaultWaterMarks)

	var calls int
	var lastEvents poller.Events
	d.Handler = func(_ *DCB, ev poller.Events) {
		calls++
		if ev != 0 {
			lastEvents = ev
		}
	}

	d.TriggerReadEvent()
	d.TriggerReadEvent()
	d.TriggerWriteEvent()

	d.dispatch(poller.Read)

	// One call for the real event, one for the collapsed synthetic batch.
	if calls != 2 {
		t.Fatalf("got %d handler invocations, want 2", calls)
	}
	// Only the last trigger (Write) is honoured.
	if lastEvents != poller.Write {
		t.Fatalf("got events %v, want Write", lastEvents)
	}
}

func TestEnableDisableEventsRequireOwner(t *testing.T) {
	client, _ := pipePair(t)
	d := New(0, -1, client, RoleClient, 1, DefaultWaterMarks)

	if err := d.SetOwner(2, 3); err == nil {
		t.Fatalf("expected ErrNotOwner for a mismatched caller id")
	}
	if err := d.SetOwner(1, 2); err != nil {
		t.Fatalf("SetOwner by the real owner: %v", err)
	}
	if d.ownerID != 2 {
		t.Fatalf("ownership should have transferred")
	}
}
