package dcb

import "testing"

func TestQueueHighWaterFiresOncePerCrossing(t *testing.T) {
	q := newQueue(WaterMarks{Low: 4, High: 8})

	if crossed := q.Append(make([]byte, 5)); crossed {
		t.Fatalf("5 bytes should not cross an 8-byte high watermark")
	}
	if crossed := q.Append(make([]byte, 5)); !crossed {
		t.Fatalf("10 total bytes should cross the 8-byte high watermark")
	}
	if crossed := q.Append(make([]byte, 1)); crossed {
		t.Fatalf("already above high: must not fire a second time")
	}
}

func TestQueueLowWaterFiresOnDrainBelow(t *testing.T) {
	q := newQueue(WaterMarks{Low: 4, High: 8})
	q.Append(make([]byte, 10))

	if _, crossed := q.Drain(3); crossed {
		t.Fatalf("draining to 7 bytes remaining should not cross below low=4")
	}
	if _, crossed := q.Drain(4); !crossed {
		t.Fatalf("draining to 3 bytes remaining should cross below low=4")
	}
	// A second drain while still below low must not fire again (the latch
	// is already clear).
	q.Append(make([]byte, 1))
	if _, crossed := q.Drain(1); crossed {
		t.Fatalf("latch already clear: must not fire a second LOW_WATER")
	}
}

func TestQueueRoundTrip(t *testing.T) {
	q := newQueue(WaterMarks{Low: 100, High: 200})
	q.Append([]byte("hello"))
	q.Append([]byte(" world"))
	if q.Len() != 11 {
		t.Fatalf("got len %d, want 11", q.Len())
	}
	data, _ := q.Drain(0)
	if string(data) != "hello world" {
		t.Fatalf("got %q", data)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty after a full drain")
	}
}
