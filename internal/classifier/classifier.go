package classifier

import (
	"encoding/binary"

	"github.com/joeycumines/go-dbrouter/internal/hint"
	"github.com/joeycumines/go-dbrouter/internal/sqlparser"
	"github.com/joeycumines/go-dbrouter/internal/txtracker"
	"github.com/joeycumines/go-dbrouter/internal/wire"
)

// QueryClassifier is stateless; all per-connection state lives in Session.
type QueryClassifier struct{}

func New() *QueryClassifier { return &QueryClassifier{} }

// PendingUpdate is the optimistic routing decision from UpdateRouteInfo.
// Session is left untouched until Commit is called, so discarding a
// PendingUpdate (revert_update, spec §3/§4.6) is simply not calling Commit.
type PendingUpdate struct {
	sess *Session
	info RouteInfo

	newTracker          txtracker.Tracker
	newTrxReadOnly      bool
	newLastTarget       Target
	newLastTargetServer string

	tempTableAdd    string
	tempTableRemove string

	closeStmtID uint32
	closeStmt   bool

	cachePSID   uint32
	cachePS     bool
	hintPending *hint.Pending
}

// Info returns the staged routing decision.
func (u *PendingUpdate) Info() *RouteInfo { return &u.info }

// Commit applies the staged update to Session (commit_route_info_update).
func (u *PendingUpdate) Commit() {
	s := u.sess
	s.Tracker = u.newTracker
	s.trxReadOnly = u.newTrxReadOnly
	s.lastTarget = u.newLastTarget
	s.lastTargetServer = u.newLastTargetServer

	if u.tempTableAdd != "" {
		s.TempTables[u.tempTableAdd] = struct{}{}
	}
	if u.tempTableRemove != "" {
		delete(s.TempTables, u.tempTableRemove)
	}
	if u.closeStmt {
		delete(s.PreparedStmts, u.closeStmtID)
	}
	if u.hintPending != nil {
		s.Hints.Commit(u.hintPending)
	}
	if u.cachePS {
		if ps, ok := s.PreparedStmts[u.cachePSID]; ok {
			info := u.info
			ps.Cached = &info
		}
	}
}

// Revert discards the staged update. No-op: Session was never touched.
func (u *PendingUpdate) Revert() {}

// UpdateRouteInfo classifies one request buffer (a de-framed command
// payload: command byte followed by its arguments) against sess, per spec
// §4.6. multiPart marks that this buffer continues a larger logical
// request than fits one wire packet; prev, if non-nil, is the caller's
// previously classified RouteInfo on this connection — when multiPart is
// set, prev is annotated with NextMultiPartPacket immediately, matching the
// "latency of one" correction spec §4.6 describes (this mutates an already-
// committed record, not sess, so it is independent of this call's own
// commit/revert).
func (c *QueryClassifier) UpdateRouteInfo(sess *Session, payload []byte, multiPart bool, prev *RouteInfo) (*PendingUpdate, error) {
	if len(payload) == 0 {
		return nil, wire.ErrShortPacket
	}

	u := &PendingUpdate{
		sess:                sess,
		newTracker:          sess.Tracker,
		newTrxReadOnly:      sess.trxReadOnly,
		newLastTarget:       sess.lastTarget,
		newLastTargetServer: sess.lastTargetServer,
	}
	u.info.Command = wire.Command(payload[0])
	u.info.Tracker = sess.Tracker
	if multiPart {
		u.info.Flags |= MultiPartPacket
		if prev != nil {
			prev.Flags |= NextMultiPartPacket
		}
	}

	switch u.info.Command {
	case wire.ComQuery:
		c.classifyQuery(sess, u, payload[1:])

	case wire.ComStmtPrepare:
		// The server, not the request, assigns the statement id; the caller
		// completes registration via Session.RegisterPreparedStatement once
		// it sees the id in the COM_STMT_PREPARE_OK reply.
		u.info.Target = Master
		u.newLastTarget, u.newLastTargetServer = Master, ""

	case wire.ComStmtExecute:
		c.classifyStmtExecute(sess, u, payload[1:])

	case wire.ComStmtFetch:
		u.info.Flags |= PSContinuation
		u.info.StmtID = readStmtID(payload[1:])
		u.info.Target = sess.lastTarget
		u.info.TargetServer = sess.lastTargetServer

	case wire.ComStmtClose:
		u.closeStmtID = readStmtID(payload[1:])
		u.closeStmt = true
		u.info.StmtID = u.closeStmtID

	default:
		// Session-affecting but not statement-routing commands (COM_PING,
		// COM_INIT_DB, ...) always go to whichever connection currently
		// holds the session's state: the master.
		u.info.Target = Master
		u.newLastTarget, u.newLastTargetServer = Master, ""
	}

	return u, nil
}

func readStmtID(args []byte) uint32 {
	if len(args) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(args)
}

func (c *QueryClassifier) classifyQuery(sess *Session, u *PendingUpdate, sql []byte) {
	mask := sqlparser.ParseTransactionBoundary(sql)
	u.info.TypeMask = mask

	u.newTracker.Apply(mask)

	// A transaction starts out optimistically read-only regardless of its
	// declared access mode, and stays that way until either it ends or a
	// WRITE statement is observed inside it (spec §8 scenarios 1 and 3: a
	// plain BEGIN and an implicit autocommit=0 transaction are both SLAVE-
	// eligible on their first SELECT). Starting is set for exactly the one
	// statement that opens the transaction, whether that's an explicit
	// BEGIN_TRX or the implicit open folded in by Apply itself.
	if u.newTracker.State.Has(txtracker.Starting) {
		u.newTrxReadOnly = true
	} else if !u.newTracker.InOpenTransaction() {
		u.newTrxReadOnly = false
	}

	kind := sqlparser.KindUnknown
	if mask == 0 {
		kind = sqlparser.ClassifyStatementKind(sql)
	}
	if isLoadDataInfile(sql) {
		u.info.Flags |= LoadDataActive
	}

	if op, name := sqlparser.DetectTempTableOp(sql); op != sqlparser.NoTempTableOp {
		switch op {
		case sqlparser.CreateTempTable:
			u.tempTableAdd = name
		case sqlparser.DropTable:
			if _, ok := sess.TempTables[name]; ok {
				u.tempTableRemove = name
			}
		}
	}

	h, pend := sess.Hints.Stage(sql)
	u.hintPending = pend

	u.info.Target, u.info.TargetServer = decideTarget(sess, u, mask, kind, sql, h)
	if u.newTrxReadOnly && kind == sqlparser.KindWrite {
		u.newTrxReadOnly = false
	}
	u.newLastTarget, u.newLastTargetServer = u.info.Target, u.info.TargetServer
	if u.newTrxReadOnly {
		u.info.Flags |= TrxIsReadOnly
	}
}

func (c *QueryClassifier) classifyStmtExecute(sess *Session, u *PendingUpdate, args []byte) {
	id := readStmtID(args)
	u.info.StmtID = id

	ps, ok := sess.PreparedStmts[id]
	continuation := !ok || !hasParamMetadata(ps, args)
	if continuation {
		u.info.Flags |= PSContinuation
		u.info.Target = sess.lastTarget
		u.info.TargetServer = sess.lastTargetServer
		return
	}

	if ps.Cached != nil {
		u.info.TypeMask = ps.Cached.TypeMask
		u.info.Target = ps.Cached.Target
		u.info.TargetServer = ps.Cached.TargetServer
		u.newLastTarget, u.newLastTargetServer = u.info.Target, u.info.TargetServer
		return
	}

	// Not cached yet: reclassify from the stored statement text and cache
	// the result for subsequent executions.
	mask := sqlparser.ParseTransactionBoundary(ps.Text)
	u.info.TypeMask = mask
	kind := sqlparser.KindUnknown
	if mask == 0 {
		kind = sqlparser.ClassifyStatementKind(ps.Text)
	}
	h, _ := sess.Hints.Stage(ps.Text)
	u.info.Target, u.info.TargetServer = decideTarget(sess, u, mask, kind, ps.Text, h)
	u.newLastTarget, u.newLastTargetServer = u.info.Target, u.info.TargetServer
	u.cachePSID = id
	u.cachePS = true
}

// hasParamMetadata approximates "EXECUTE carries parameter metadata": true
// when the statement has at least one parameter and the packet is long
// enough to carry the null-bitmap + bound-flag prefix the binary protocol
// adds in that case.
func hasParamMetadata(ps *PreparedStatement, args []byte) bool {
	const fixedPrefixLen = 4 + 1 + 4 // stmt_id, flags, iteration_count
	return ps.NumParams > 0 && len(args) > fixedPrefixLen
}

func isLoadDataInfile(sql []byte) bool {
	s := sqlparser.NewScanner(sql)
	return s.TryKeyword("LOAD") && s.TryKeyword("DATA")
}
