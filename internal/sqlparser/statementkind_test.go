package sqlparser

import "testing"

func TestClassifyStatementKind(t *testing.T) {
	cases := []struct {
		sql  string
		want StatementKind
	}{
		{"SELECT 1", KindRead},
		{"show tables", KindRead},
		{"INSERT INTO t VALUES (1)", KindWrite},
		{"UPDATE t SET a = 1", KindWrite},
		{"DELETE FROM t", KindWrite},
		{"CALL proc()", KindReadWrite},
		{"BEGIN", KindUnknown},
	}
	for _, c := range cases {
		if got := ClassifyStatementKind([]byte(c.sql)); got != c.want {
			t.Errorf("ClassifyStatementKind(%q) = %d, want %d", c.sql, got, c.want)
		}
	}
}

func TestDetectTempTableOp(t *testing.T) {
	op, name := DetectTempTableOp([]byte("CREATE TEMPORARY TABLE foo (a int)"))
	if op != CreateTempTable || name != "foo" {
		t.Fatalf("got (%d, %q)", op, name)
	}

	op, name = DetectTempTableOp([]byte("DROP TABLE foo"))
	if op != DropTable || name != "foo" {
		t.Fatalf("got (%d, %q)", op, name)
	}

	op, name = DetectTempTableOp([]byte("DROP TEMPORARY TABLE IF EXISTS foo"))
	if op != DropTable || name != "foo" {
		t.Fatalf("got (%d, %q)", op, name)
	}

	op, _ = DetectTempTableOp([]byte("CREATE TABLE foo (a int)"))
	if op != NoTempTableOp {
		t.Fatalf("non-temporary CREATE TABLE should not match, got %d", op)
	}

	op, _ = DetectTempTableOp([]byte("SELECT 1"))
	if op != NoTempTableOp {
		t.Fatalf("got %d", op)
	}
}
