package sqlparser

// StatementKind is the read/write nature of a non-transactional statement,
// used by the query classifier's default routing rule (spec §4.6 point 3)
// to distinguish reads from writes once the transaction-boundary parser has
// already returned a zero type mask.
type StatementKind uint8

const (
	KindUnknown StatementKind = iota
	KindRead
	KindWrite
	// KindReadWrite covers statements (stored procedure calls) that may do
	// either, routed the same as an explicit READWRITE type mask bit.
	KindReadWrite
)

var readKeywords = []string{"SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH"}

var writeKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "REPLACE", "LOAD",
	"CREATE", "DROP", "ALTER", "TRUNCATE", "RENAME", "GRANT", "REVOKE",
}

var readWriteKeywords = []string{"CALL", "DO"}

// ClassifyStatementKind inspects only the statement's leading keyword.
func ClassifyStatementKind(sql []byte) StatementKind {
	s := NewScanner(sql)
	for _, kw := range readKeywords {
		if s.TryKeyword(kw) {
			return KindRead
		}
	}
	for _, kw := range writeKeywords {
		if s.TryKeyword(kw) {
			return KindWrite
		}
	}
	for _, kw := range readWriteKeywords {
		if s.TryKeyword(kw) {
			return KindReadWrite
		}
	}
	return KindUnknown
}
