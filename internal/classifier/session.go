package classifier

import (
	"github.com/joeycumines/go-dbrouter/internal/hint"
	"github.com/joeycumines/go-dbrouter/internal/txtracker"
)

// PreparedStatement is the per-id record from spec §3: the original
// statement text (classified on the first COM_STMT_EXECUTE that carries
// parameter metadata) and the cached classification from that run, which
// later executions reuse.
type PreparedStatement struct {
	Text      []byte
	NumParams int
	Cached    *RouteInfo
}

// Session holds everything QueryClassifier needs that outlives a single
// statement: the transaction tracker, the temporary-table set, the
// prepared-statement table, and the per-session hint-stack parser.
type Session struct {
	Tracker       txtracker.Tracker
	TempTables    map[string]struct{}
	PreparedStmts map[uint32]*PreparedStatement
	Hints         *hint.Parser

	// trxReadOnly mirrors RouteInfo.Flags' TRX_IS_READ_ONLY for the
	// duration of one open transaction: true from the statement that opens
	// the transaction, whatever its declared access mode, until
	// either the transaction ends or a WRITE statement is observed inside
	// it, whichever comes first (spec §4.6 point 2).
	trxReadOnly bool

	// lastTarget/lastTargetServer back ROUTE_TO_LAST_USED and prepared-
	// statement continuations (spec §4.6 points 1 and 5).
	lastTarget       Target
	lastTargetServer string
}

// NewSession returns a session in its initial state: no open transaction,
// no temporary tables, no prepared statements, an empty hint stack.
func NewSession() *Session {
	return &Session{
		Tracker:       txtracker.New(),
		TempTables:    make(map[string]struct{}),
		PreparedStmts: make(map[uint32]*PreparedStatement),
		Hints:         hint.NewParser(),
	}
}

// TrxReadOnly reports the session's current TRX_IS_READ_ONLY flag.
func (s *Session) TrxReadOnly() bool { return s.trxReadOnly }

// LastTarget reports the most recently committed routing target, used for
// ROUTE_TO_LAST_USED and prepared-statement continuations.
func (s *Session) LastTarget() (Target, string) { return s.lastTarget, s.lastTargetServer }

// RegisterPreparedStatement records a statement id the server assigned in
// its COM_STMT_PREPARE reply. The request itself carries no id (the server
// mints it), so this is called from the reply path, not UpdateRouteInfo.
func (s *Session) RegisterPreparedStatement(id uint32, text []byte, numParams int) {
	s.PreparedStmts[id] = &PreparedStatement{Text: text, NumParams: numParams}
}

// InvalidateOnMasterReplace drops every tracked temporary table: they live
// only on the replaced master and are gone after a failover (spec §3:
// "Temporary-table writes are also removed on 'master replaced'").
func (s *Session) InvalidateOnMasterReplace() {
	for k := range s.TempTables {
		delete(s.TempTables, k)
	}
}
