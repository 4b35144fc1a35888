package txtracker

import (
	"testing"

	"github.com/joeycumines/go-dbrouter/internal/sqlparser"
)

func parse(sql string) sqlparser.TypeMask {
	return sqlparser.ParseTransactionBoundary([]byte(sql))
}

// TestScenario1 walks BEGIN; SELECT; INSERT; COMMIT — the plain
// autocommit-default transaction lifecycle from spec §8.
func TestScenario1(t *testing.T) {
	tr := New()

	tr.Apply(parse("BEGIN"))
	if tr.State != Active|Starting {
		t.Fatalf("after BEGIN: got %s", tr.State)
	}

	tr.Apply(parse("SELECT 1"))
	if tr.State != Active {
		t.Fatalf("after SELECT: got %s", tr.State)
	}

	tr.Apply(parse("INSERT INTO t VALUES (1)"))
	if tr.State != Active {
		t.Fatalf("after INSERT: got %s", tr.State)
	}

	tr.Apply(parse("COMMIT"))
	if tr.State != Active|Ending {
		t.Fatalf("after COMMIT: got %s", tr.State)
	}
	if !tr.Autocommit {
		t.Fatal("autocommit should remain true across a plain COMMIT")
	}

	tr.Apply(0) // next statement folds ENDING away
	if tr.State != 0 {
		t.Fatalf("after fold: got %s", tr.State)
	}
}

// TestScenario2 walks START TRANSACTION READ ONLY; SELECT; COMMIT, checking
// the ReadOnly bit survives until the transaction ends.
func TestScenario2(t *testing.T) {
	tr := New()

	tr.Apply(parse("START TRANSACTION READ ONLY"))
	if tr.State != Active|Starting|ReadOnly {
		t.Fatalf("after START TRANSACTION READ ONLY: got %s", tr.State)
	}
	if !tr.IsReadOnly() {
		t.Fatal("expected read-only transaction")
	}

	tr.Apply(parse("SELECT a FROM t"))
	if tr.State != Active|ReadOnly {
		t.Fatalf("after SELECT: got %s", tr.State)
	}

	tr.Apply(parse("COMMIT"))
	if tr.State != Active|ReadOnly|Ending {
		t.Fatalf("after COMMIT: got %s", tr.State)
	}
}

// TestScenario3 walks SET AUTOCOMMIT=0; SELECT; SET AUTOCOMMIT=1 — disabling
// autocommit implicitly opens a transaction around every statement.
func TestScenario3(t *testing.T) {
	tr := New()

	tr.Apply(parse("SET AUTOCOMMIT=0"))
	if tr.State != 0 || tr.Autocommit {
		t.Fatalf("after SET AUTOCOMMIT=0: state=%s autocommit=%v", tr.State, tr.Autocommit)
	}

	tr.Apply(parse("SELECT 1"))
	if tr.State != Active|Starting {
		t.Fatalf("after SELECT with autocommit off: got %s", tr.State)
	}

	tr.Apply(parse("SET AUTOCOMMIT=1"))
	if !tr.State.Has(Ending) {
		t.Fatalf("expected ENDING after re-enabling autocommit mid-implicit-trx, got %s", tr.State)
	}
	if !tr.Autocommit {
		t.Fatal("autocommit should be re-enabled")
	}

	tr.Apply(0)
	if tr.State != 0 {
		t.Fatalf("after fold: got %s", tr.State)
	}
}

func TestSetSessionTransactionStickyMode(t *testing.T) {
	tr := New()
	tr.Apply(parse("SET SESSION TRANSACTION READ ONLY"))
	if tr.DefaultMode != ReadOnly {
		t.Fatalf("expected sticky default mode ReadOnly, got %s", tr.DefaultMode)
	}

	tr.Apply(parse("BEGIN"))
	if !tr.IsReadOnly() {
		t.Fatal("expected subsequent BEGIN to inherit sticky read-only default")
	}
}

func TestSetTransactionNextOnlyDoesNotAffectCurrentOpenTrx(t *testing.T) {
	tr := New()
	tr.Apply(parse("BEGIN"))
	tr.Apply(parse("SET TRANSACTION READ ONLY")) // NEXT_TRX: affects only the *next* transaction
	if tr.IsReadOnly() {
		t.Fatal("SET TRANSACTION (without SESSION) must not retroactively mark the open transaction read-only")
	}
}

func TestFixTrxState(t *testing.T) {
	tr := New()
	tr.FixTrxState(true, true, true)
	if !tr.InOpenTransaction() || !tr.IsReadOnly() {
		t.Fatalf("expected server-reported open read-only trx to be reflected, got %s", tr.State)
	}

	tr.FixTrxState(false, false, true)
	if tr.InOpenTransaction() {
		t.Fatalf("expected server-reported closed trx to clear state, got %s", tr.State)
	}
}
