package oracle

import "strings"

// StatementKind closes the classification required before choosing
// EXECUTE options: query results differ from DML row counts, PL/SQL
// blocks carry IN/OUT binds, DDL never returns rows.
type StatementKind int

const (
	StatementQuery StatementKind = iota
	StatementDML
	StatementPLSQL
	StatementDDL
	StatementReturning // DML with a RETURNING ... INTO clause
)

func (k StatementKind) String() string {
	switch k {
	case StatementQuery:
		return "Query"
	case StatementDML:
		return "DML"
	case StatementPLSQL:
		return "PLSQL"
	case StatementDDL:
		return "DDL"
	case StatementReturning:
		return "Returning"
	default:
		return "Unknown"
	}
}

// classifyStatement inspects the first non-comment, non-whitespace
// keyword of sql, the same way every pack-reference driver's statement
// layer (rana/ora stmt.go, go-hdb session.go) picks an execution path
// before talking to the wire.
func classifyStatement(sql string) StatementKind {
	trimmed := stripLeadingNoise(sql)
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "BEGIN"), strings.HasPrefix(upper, "DECLARE"):
		return StatementPLSQL
	case strings.HasPrefix(upper, "SELECT"), strings.HasPrefix(upper, "WITH"):
		return StatementQuery
	case strings.HasPrefix(upper, "CREATE"), strings.HasPrefix(upper, "ALTER"),
		strings.HasPrefix(upper, "DROP"), strings.HasPrefix(upper, "TRUNCATE"),
		strings.HasPrefix(upper, "GRANT"), strings.HasPrefix(upper, "REVOKE"):
		return StatementDDL
	case strings.HasPrefix(upper, "INSERT"), strings.HasPrefix(upper, "UPDATE"),
		strings.HasPrefix(upper, "DELETE"), strings.HasPrefix(upper, "MERGE"):
		if hasReturningInto(upper) {
			return StatementReturning
		}
		return StatementDML
	default:
		return StatementDML
	}
}

func hasReturningInto(upper string) bool {
	idx := strings.Index(upper, "RETURNING")
	return idx >= 0 && strings.Contains(upper[idx:], "INTO")
}

// stripLeadingNoise drops leading whitespace and comments so
// classifyStatement always inspects the real first keyword.
func stripLeadingNoise(sql string) string {
	i := 0
	n := len(sql)
	for i < n {
		switch {
		case sql[i] == ' ' || sql[i] == '\t' || sql[i] == '\n' || sql[i] == '\r':
			i++
		case i+1 < n && sql[i] == '-' && sql[i+1] == '-':
			i = skipLineComment(sql, i)
		case i+1 < n && sql[i] == '/' && sql[i+1] == '*':
			i = skipBlockComment(sql, i)
		default:
			return sql[i:]
		}
	}
	return sql[i:]
}

// ExecuteOptions is the flag bag controlling an EXECUTE call.
type ExecuteOptions struct {
	AutoCommit       bool
	ArrayDMLRowCount bool
	BatchErrors      bool
	Parse            bool
	Execute          bool
	Fetch            bool
	Describe         bool
	NumRows          int // for array bind DML
	PrefetchRows     int
}

// DescribeInfo is the cached column metadata for a query, filled in once
// from a DESCRIBE_INFO message and reused across re-executions until the
// statement is closed.
type DescribeInfo struct {
	Columns []OracleColumn
}

// OracleColumn is one projected column's metadata.
type OracleColumn struct {
	Name        string
	Type        OracleDataType
	Size        uint32
	Precision   int8
	Scale       int8
	Nullable    bool
	CharsetForm CharsetForm
	CharsetID   uint16
}

// Statement is the client-side handle for one parsed/executing SQL
// text: its classification, resolved binds, describe cache, and the
// cursor ID the server assigned once PARSE completed.
type Statement struct {
	SQL    string
	Kind   StatementKind
	Binds  []BindInfo
	Values []Variable

	CursorID  uint16
	Describe  *DescribeInfo
	rowBuffer *AdaptiveRowBuffer

	// pendingOutBinds accumulates PL/SQL out-bind bytes flushed by a
	// FLUSH_OUT_BINDS message between EXECUTE completing and the caller
	// retrieving them.
	pendingOutBinds [][]byte

	// priorBindShapes and requiresFullExecute track whether any bind's
	// type/size/precision/scale/array-ness changed since the previous
	// execution, forcing a re-PARSE instead of a lighter re-BIND.
	priorBindShapes     []bindShape
	requiresFullExecute bool
}

// NewStatement parses sql's bind placeholders and classifies it.
func NewStatement(sql string) *Statement {
	kind := classifyStatement(sql)
	binds := classifyBinds(kind, parseBindTokens(sql))
	return &Statement{
		SQL:   sql,
		Kind:  kind,
		Binds: binds,
	}
}

// BindByName looks up a named bind's current Variable, or ok=false if no
// such name was parsed from the statement text.
func (s *Statement) BindByName(name string) (Variable, bool) {
	for _, v := range s.Values {
		if v.Info.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// SetBind assigns value to the bind at position (1-based) or name,
// creating the Variable slot the first time and growing its MaxSize on
// later calls per the "grows, never shrinks" invariant.
func (s *Statement) SetBind(info BindInfo, value []byte) {
	for i := range s.Values {
		if s.Values[i].Info.Position == info.Position && s.Values[i].Info.Name == info.Name {
			s.Values[i].growTo(uint32(len(value)))
			s.Values[i].Value = value
			return
		}
	}
	s.Values = append(s.Values, newVariable(info, value))
}

// RequiresDescribe reports whether this statement kind produces a row
// projection that must be described before FETCH (queries and
// RETURNING DML).
func (s *Statement) RequiresDescribe() bool {
	return s.Kind == StatementQuery || s.Kind == StatementReturning
}

// OutBinds drains and returns the out-bind values flushed by the server
// since the last call, in the order FLUSH_OUT_BINDS delivered them.
func (s *Statement) OutBinds() [][]byte {
	out := s.pendingOutBinds
	s.pendingOutBinds = nil
	return out
}
