package classifier

import (
	"bytes"

	"github.com/joeycumines/go-dbrouter/internal/hint"
	"github.com/joeycumines/go-dbrouter/internal/sqlparser"
)

// decideTarget implements the target-selection rules of spec §4.6, points
// 1-4 (point 5, prepared-statement continuation, is handled by its caller
// before decideTarget is ever reached).
func decideTarget(sess *Session, u *PendingUpdate, mask sqlparser.TypeMask, kind sqlparser.StatementKind, sql []byte, h *hint.Hint) (Target, string) {
	// 1. Explicit routing hints override everything.
	if r := firstRoutingHint(h); r != nil {
		switch r.Tag {
		case hint.RouteToMaster:
			return Master, ""
		case hint.RouteToSlave:
			return Slave, ""
		case hint.RouteToLastUsed:
			return LastUsed, ""
		case hint.RouteToNamedServer:
			return NamedServer, r.Target
		}
	}

	// 4. Temporary-table reads force MASTER: the replica doesn't have it.
	if kind == sqlparser.KindRead && referencesTempTable(sess, sql) {
		return Master, ""
	}

	// 2 & 3 collapse to one rule: only a recognized read statement is ever
	// SLAVE-eligible, and only while not inside a transaction that has
	// already been written to. Everything else — actual writes, ambiguous
	// CALL/DO statements, transaction-boundary statements (BEGIN, COMMIT,
	// SET ...), and anything the scanner doesn't recognize — is routed
	// MASTER, matching every target in spec §8's scenarios 1-3.
	if kind == sqlparser.KindRead && (u.newTrxReadOnly || !u.newTracker.InOpenTransaction()) {
		return Slave, ""
	}
	return Master, ""
}

// firstRoutingHint walks the hint chain for the first entry that actually
// selects a target — a bare PARAMETER hint carries a session setting, not
// a routing decision, and is skipped.
func firstRoutingHint(h *hint.Hint) *hint.Hint {
	for ; h != nil; h = h.Next {
		if h.Tag != hint.Parameter {
			return h
		}
	}
	return nil
}

// referencesTempTable is a best-effort check: the scanner doesn't parse
// general SELECT/FROM grammar, so this looks for the temp-table name as a
// whole word anywhere in the statement rather than resolving the FROM
// clause precisely.
func referencesTempTable(sess *Session, sql []byte) bool {
	for name := range sess.TempTables {
		if containsWord(sql, name) {
			return true
		}
	}
	return false
}

func containsWord(sql []byte, word string) bool {
	w := []byte(word)
	i := 0
	for {
		idx := bytes.Index(sql[i:], w)
		if idx < 0 {
			return false
		}
		start := i + idx
		end := start + len(w)
		beforeOK := start == 0 || !isWordByte(sql[start-1])
		afterOK := end == len(sql) || !isWordByte(sql[end])
		if beforeOK && afterOK {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}
