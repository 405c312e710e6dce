package oracle

import "testing"

func TestCleanupContextCapsCursorsToClose(t *testing.T) {
	c := &CleanupContext{}
	for i := 0; i < TNSMaxCursorsToClose+10; i++ {
		c.AddCursor(uint16(i))
	}
	if len(c.CursorsToClose) != TNSMaxCursorsToClose {
		t.Fatalf("expected cap at %d, got %d", TNSMaxCursorsToClose, len(c.CursorsToClose))
	}
	// The oldest entries should have been dropped, keeping the most recent.
	if c.CursorsToClose[len(c.CursorsToClose)-1] != uint16(TNSMaxCursorsToClose+9) {
		t.Fatalf("expected most recent cursor retained, got %d", c.CursorsToClose[len(c.CursorsToClose)-1])
	}
}

func TestCleanupContextFlushEmpty(t *testing.T) {
	c := &CleanupContext{}
	if c.Flush() != nil {
		t.Fatal("expected nil flush when nothing pending")
	}
}

func TestCleanupContextFlushClearsState(t *testing.T) {
	c := &CleanupContext{}
	c.AddCursor(5)
	c.AddTempLOB([]byte{1, 2, 3})
	body := c.Flush()
	if body == nil {
		t.Fatal("expected non-nil flush body")
	}
	if len(c.CursorsToClose) != 0 || len(c.TempLOBsToClose) != 0 {
		t.Fatal("expected Flush to clear accumulated state")
	}
}
