package oracle

import "testing"

func TestPreExecuteMissingBindValue(t *testing.T) {
	s := NewStatement("SELECT :x FROM dual")
	err := s.preExecute(&CleanupContext{})
	if err == nil {
		t.Fatal("expected MissingBindValue error when no value is bound")
	}
	oerr, ok := err.(*Error)
	if !ok || oerr.Kind != KindMissingBindValue {
		t.Fatalf("expected KindMissingBindValue, got %v", err)
	}
}

func TestPreExecuteRequiresFullExecuteOnFirstRunAndShapeChange(t *testing.T) {
	s := NewStatement("SELECT :x FROM dual")
	info := s.Binds[0]
	s.SetBind(info, []byte("abc"))

	if err := s.preExecute(&CleanupContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.requiresFullExecute {
		t.Fatal("expected first execution to require a full execute")
	}

	// Re-running with an identical bind shape should not force a re-parse.
	if err := s.preExecute(&CleanupContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.requiresFullExecute {
		t.Fatal("expected an unchanged bind shape to not require a full execute")
	}

	// Growing the bound value's buffer changes BufferSize and should
	// force a re-parse again.
	s.SetBind(info, make([]byte, 9000))
	if err := s.preExecute(&CleanupContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.requiresFullExecute {
		t.Fatal("expected a changed bind shape to require a full execute")
	}
}

func TestPreExecuteUpgradesOversizedPLSQLBindToTempLOB(t *testing.T) {
	s := NewStatement("BEGIN :out := long_proc(:x); END;")
	var xInfo, outInfo BindInfo
	for _, b := range s.Binds {
		switch b.Name {
		case "x":
			xInfo = b
		case "out":
			outInfo = b
		}
	}
	s.SetBind(outInfo, nil)
	s.SetBind(xInfo, make([]byte, maxInlineBindSize+1))

	cleanup := &CleanupContext{}
	if err := s.preExecute(cleanup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cleanup.TempLOBsToClose) != 1 {
		t.Fatalf("expected one temp LOB registered for cleanup, got %d", len(cleanup.TempLOBsToClose))
	}
	if len(cleanup.TempLOBsToClose[0]) != tempLOBLocatorSize {
		t.Fatalf("expected a %d-byte locator, got %d", tempLOBLocatorSize, len(cleanup.TempLOBsToClose[0]))
	}

	var upgraded BindInfo
	for _, b := range s.Binds {
		if b.Name == "x" {
			upgraded = b
		}
	}
	if upgraded.Type != TypeClob {
		t.Fatalf("expected bind :x to be upgraded to TypeClob, got %v", upgraded.Type)
	}
	if _, ok := s.variableFor(upgraded); !ok {
		t.Fatal("expected the upgraded bind to still resolve to a Variable")
	}
}

func TestShapeOfDiffersOnArrayness(t *testing.T) {
	info := BindInfo{Type: TypeVarchar}
	a := shapeOf(info, Variable{Value: []byte("x"), MaxSize: 10})
	info.IsArray = true
	info.ArrayCount = 3
	b := shapeOf(info, Variable{Value: []byte("x"), MaxSize: 10})
	if a == b {
		t.Fatal("expected array-ness to change the bind shape")
	}
}
