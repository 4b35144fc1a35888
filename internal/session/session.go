// Package session implements the per-connection aggregate SPEC_FULL.md §3
// adds: a connection owned by exactly one worker, embedding the
// transaction/classifier state plus the client and backend DCB ids bound
// to it. Not present as a named type in the distilled spec — required so
// QueryClassifier operates per-connection rather than as a singleton,
// grounded in spec.md's repeated "per-session" state references.
package session

import (
	"net/netip"

	"github.com/joeycumines/go-dbrouter/internal/classifier"
)

// Session is a client connection's full routing state, plus the DCB ids
// (per internal/dcb.Manager) for its client-facing and currently-bound
// backend descriptor control blocks. Touched only by its owning worker —
// there is no lock here, matching DCB's single-writer policy (spec §4.3)
// and Worker's single-goroutine model (spec §4.2).
type Session struct {
	*classifier.Session

	ID       uint64
	WorkerID uint64

	// ClientDCBID is fixed for the Session's lifetime. BackendDCBID is
	// reassigned on every routing decision that picks a new server
	// (master failover, hint-directed named-server routing, a fresh
	// connection to a slave) and is zero when no backend is currently
	// bound.
	ClientDCBID  uint64
	BackendDCBID uint64

	ClientAddr netip.Addr

	// LastServer is the name of the server BackendDCBID currently points
	// at, for hint matching (ROUTE_TO_NAMED_SERVER) and reconnection on
	// "master replaced".
	LastServer string
}

// New constructs a Session for a freshly accepted client connection,
// bound to clientDCBID on workerID.
func New(id, workerID, clientDCBID uint64, clientAddr netip.Addr) *Session {
	return &Session{
		Session:     classifier.NewSession(),
		ID:          id,
		WorkerID:    workerID,
		ClientDCBID: clientDCBID,
		ClientAddr:  clientAddr,
	}
}

// BindBackend records the backend DCB and server name a routing decision
// selected, superseding any previously bound backend.
func (s *Session) BindBackend(backendDCBID uint64, serverName string) {
	s.BackendDCBID = backendDCBID
	s.LastServer = serverName
}

// UnbindBackend clears the current backend binding, e.g. on backend
// hangup or handover back to the pool.
func (s *Session) UnbindBackend() {
	s.BackendDCBID = 0
	s.LastServer = ""
}

// HasBackend reports whether a backend is currently bound.
func (s *Session) HasBackend() bool { return s.BackendDCBID != 0 }
