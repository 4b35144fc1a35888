// Package txtracker implements the per-session transaction-boundary state
// machine described in spec §4.5: it consumes the type mask produced by
// sqlparser.ParseTransactionBoundary and maintains whether an explicit
// transaction is open, its access mode, and the autocommit flag, folding in
// the server's authoritative status-flag reply to self-correct.
package txtracker

import "github.com/joeycumines/go-dbrouter/internal/sqlparser"

// State is the trx_state flag mask from spec §3: ACTIVE, READ_ONLY, ENDING,
// STARTING. STARTING and ENDING are never both set; ACTIVE is always set
// whenever either is.
type State uint8

const (
	Active State = 1 << iota
	ReadOnly
	Ending
	Starting
)

func (s State) Has(want State) bool { return s&want == want }

func (s State) String() string {
	if s == 0 {
		return "INACTIVE"
	}
	out := ""
	add := func(bit State, name string) {
		if s.Has(bit) {
			if out != "" {
				out += "|"
			}
			out += name
		}
	}
	add(Active, "ACTIVE")
	add(ReadOnly, "READ_ONLY")
	add(Ending, "ENDING")
	add(Starting, "STARTING")
	return out
}

// Tracker is the per-session transaction-state machine. It is a small value
// type with no pointer fields, so callers may freely copy it to take a
// snapshot before a tentative update, and discard the copy to revert.
type Tracker struct {
	State      State
	Autocommit bool
	// DefaultMode is the sticky access mode set by SET SESSION TRANSACTION;
	// it is either ReadOnly or 0.
	DefaultMode State
}

// New returns a tracker in its initial state: no open transaction,
// autocommit enabled, default read/write access mode.
func New() Tracker {
	return Tracker{Autocommit: true}
}

// Apply folds one statement's type mask into the tracker, per the
// transition table in spec §4.5.
func (t *Tracker) Apply(mask sqlparser.TypeMask) {
	// Step 1: current-state-only preconditions, applied regardless of mask,
	// "then fold input" by falling through to steps 2-4 below.
	switch {
	case t.State.Has(Ending) && t.Autocommit:
		t.State = 0
	case t.State.Has(Ending) && !t.Autocommit:
		t.State = Active | Starting | t.DefaultMode
	case t.State.Has(Starting):
		t.State &^= Starting
	case t.State == 0 && !t.Autocommit:
		t.State = Active | Starting | t.DefaultMode
	}

	// Step 2: BEGIN_TRX.
	if mask.Has(sqlparser.BeginTrx) {
		if mask.Has(sqlparser.DisableAutocommit) {
			t.State = 0
			t.Autocommit = false
		} else {
			next := Active | Starting
			switch {
			case mask.Has(sqlparser.Read):
				next |= ReadOnly
			case mask.Has(sqlparser.Write):
				// explicit write: no ReadOnly bit, regardless of default mode
			default:
				next |= t.DefaultMode
			}
			t.State = next
		}
	}

	// Step 3: COMMIT/ROLLBACK, only meaningful while a transaction is open.
	if t.State.Has(Active) && (mask.Has(sqlparser.Commit) || mask.Has(sqlparser.Rollback)) {
		t.State |= Ending
		t.State &^= Starting
		if mask.Has(sqlparser.EnableAutocommit) {
			t.Autocommit = true
		}
	}

	// Step 4: READONLY/READWRITE without NEXT_TRX updates the sticky
	// default access mode for subsequent transactions.
	if !mask.Has(sqlparser.NextTrx) {
		switch {
		case mask.Has(sqlparser.ReadOnly):
			t.DefaultMode = ReadOnly
		case mask.Has(sqlparser.ReadWrite):
			t.DefaultMode = 0
		}
	}
}

// InOpenTransaction reports whether, for routing purposes, a statement
// arriving right now is considered to be inside an explicit transaction.
// ENDING still counts — the COMMIT/ROLLBACK statement itself must route to
// wherever the transaction lives, even though the tracker will fold to
// INACTIVE on the following statement.
func (t Tracker) InOpenTransaction() bool { return t.State.Has(Active) }

// IsReadOnly reports whether the open transaction's sticky access mode is
// read-only. Meaningless (returns false) outside a transaction.
func (t Tracker) IsReadOnly() bool { return t.State.Has(ReadOnly) }

// FixTrxState reconciles the parser's view against the server's
// authoritative status flags (spec §4.5, §6, §9). It corrects both
// directions: a stored procedure opening a transaction the parser couldn't
// see, and a transaction the parser thinks is open but the server reports
// closed.
func (t *Tracker) FixTrxState(inTrx, inROTrx, autocommit bool) {
	if inTrx && !t.State.Has(Active) {
		next := Active | Starting
		if inROTrx {
			next |= ReadOnly
		}
		t.State = next
	} else if !inTrx && t.State.Has(Active) {
		t.State = 0
	}
	t.Autocommit = autocommit
}
