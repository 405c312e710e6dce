package oracle

import "testing"

func TestClassifyStatement(t *testing.T) {
	cases := []struct {
		sql  string
		want StatementKind
	}{
		{"SELECT 1 FROM dual", StatementQuery},
		{"  -- comment\nSELECT * FROM t", StatementQuery},
		{"WITH x AS (SELECT 1 FROM dual) SELECT * FROM x", StatementQuery},
		{"INSERT INTO t VALUES (1)", StatementDML},
		{"UPDATE t SET a=1 WHERE b=2 RETURNING c INTO :out", StatementReturning},
		{"DELETE FROM t", StatementDML},
		{"CREATE TABLE t (a NUMBER)", StatementDDL},
		{"BEGIN NULL; END;", StatementPLSQL},
		{"DECLARE x NUMBER; BEGIN x := 1; END;", StatementPLSQL},
	}
	for _, c := range cases {
		t.Run(c.sql, func(t *testing.T) {
			got := classifyStatement(c.sql)
			if got != c.want {
				t.Fatalf("classifyStatement(%q) = %s, want %s", c.sql, got, c.want)
			}
		})
	}
}

func TestParseBindTokensNamedAndPositional(t *testing.T) {
	binds := parseBindTokens("SELECT * FROM t WHERE a = :id AND b = ? AND c = ':not_a_bind'")
	if len(binds) != 2 {
		t.Fatalf("expected 2 binds, got %d: %+v", len(binds), binds)
	}
	if binds[0].Name != "id" || binds[0].Position != 1 {
		t.Fatalf("unexpected first bind: %+v", binds[0])
	}
	if binds[1].Name != "" || binds[1].Position != 2 {
		t.Fatalf("unexpected second bind: %+v", binds[1])
	}
}

func TestParseBindTokensSkipsComments(t *testing.T) {
	binds := parseBindTokens("SELECT :a /* :ignored */ FROM t -- :also_ignored\nWHERE b = :c")
	if len(binds) != 2 {
		t.Fatalf("expected 2 binds, got %d: %+v", len(binds), binds)
	}
	if binds[0].Name != "a" || binds[1].Name != "c" {
		t.Fatalf("unexpected binds: %+v", binds)
	}
}

func TestStatementSetBindGrowsNeverShrinks(t *testing.T) {
	s := NewStatement("SELECT :x FROM dual")
	info := s.Binds[0]
	s.SetBind(info, []byte("short"))
	firstMax := s.Values[0].MaxSize

	s.SetBind(info, []byte("a"))
	if s.Values[0].MaxSize != firstMax {
		t.Fatalf("expected MaxSize to stay at %d, got %d", firstMax, s.Values[0].MaxSize)
	}

	longer := make([]byte, firstMax+50)
	s.SetBind(info, longer)
	if s.Values[0].MaxSize != uint32(len(longer)) {
		t.Fatalf("expected MaxSize to grow to %d, got %d", len(longer), s.Values[0].MaxSize)
	}
}

func TestRequiresDescribe(t *testing.T) {
	if !NewStatement("SELECT 1 FROM dual").RequiresDescribe() {
		t.Fatal("expected query to require describe")
	}
	if NewStatement("INSERT INTO t VALUES (1)").RequiresDescribe() {
		t.Fatal("expected plain DML to not require describe")
	}
}
