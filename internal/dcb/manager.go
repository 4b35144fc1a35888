package dcb

import "sync"

// Manager is the per-worker pool spec §4.3's two-phase close relies on: a
// DCB is first detached from its poller (state → NOPOLLING) and only
// released — removed from the pool — by the owning worker on a later tick
// (ids are never reused: Add hands out a fresh one each time), after any inflight handler has returned.
// The core never deletes a DCB from inside a handler; it calls Remove,
// which only schedules the release, and Destroy runs the schedule.
//
// Grounded on the teacher's registry (eventloop/registry.go): an id-keyed
// map plus a small pending list scavenged in batches, rather than freeing
// synchronously on every Remove call.
type Manager struct {
	mu      sync.Mutex
	nextID  uint64
	live    map[uint64]*DCB
	pending []uint64
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{live: make(map[uint64]*DCB)}
}

// Add assigns the next id, registers d under it, and returns the id.
func (m *Manager) Add(d *DCB) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	d.ID = id
	m.live[id] = d
	return id
}

// Get looks up a live DCB by id.
func (m *Manager) Get(id uint64) (*DCB, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.live[id]
	return d, ok
}

// Remove begins phase one of close: the caller must already have called
// DisableEvents (state NOPOLLING) before calling Remove. The DCB is not
// freed yet — it stays reachable via Get until the next Destroy call, so
// any handler invocation already in flight against it still sees valid
// state.
func (m *Manager) Remove(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.live[id]; ok && d.state == StateNoPolling {
		m.pending = append(m.pending, id)
	}
}

// Destroy runs phase two for every id scheduled by Remove since the last
// Destroy call: it marks each DCB Destroyed and drops it from the pool.
// The owning worker calls this once per tick, never from inside a handler.
func (m *Manager) Destroy() (released []uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	released = m.pending
	m.pending = nil
	for _, id := range released {
		if d, ok := m.live[id]; ok {
			d.state = StateDestroyed
			delete(m.live, id)
		}
	}
	return released
}

// Len reports the number of live (not yet destroyed) DCBs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
