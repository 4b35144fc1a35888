package dcb

import "testing"

func TestManagerTwoPhaseClose(t *testing.T) {
	m := NewManager()
	d := New(0, -1, nil, RoleClient, 1, DefaultWaterMarks)
	id := m.Add(d)

	if _, ok := m.Get(id); !ok {
		t.Fatalf("just-added DCB should be live")
	}

	// Remove before reaching NOPOLLING is a no-op: the DCB is still CREATED.
	m.Remove(id)
	if released := m.Destroy(); len(released) != 0 {
		t.Fatalf("Remove on a non-NOPOLLING DCB must not schedule release, got %v", released)
	}
	if _, ok := m.Get(id); !ok {
		t.Fatalf("DCB should still be live after a no-op Remove")
	}

	d.state = StateNoPolling
	m.Remove(id)
	if _, ok := m.Get(id); !ok {
		t.Fatalf("DCB must remain reachable between Remove and Destroy")
	}

	released := m.Destroy()
	if len(released) != 1 || released[0] != id {
		t.Fatalf("got %v, want [%d]", released, id)
	}
	if _, ok := m.Get(id); ok {
		t.Fatalf("DCB should be gone after Destroy")
	}
	if d.State() != StateDestroyed {
		t.Fatalf("got state %s, want DESTROYED", d.State())
	}
}

func TestManagerDestroyWithNothingPendingIsNoop(t *testing.T) {
	m := NewManager()
	if released := m.Destroy(); released != nil {
		t.Fatalf("got %v, want nil", released)
	}
}
