package oracle

import "testing"

func TestMarkerStateOnlyOneOutstandingBreak(t *testing.T) {
	m := &markerState{}
	first := m.RequestBreak()
	if first == nil {
		t.Fatal("expected first RequestBreak to produce a packet")
	}
	second := m.RequestBreak()
	if second != nil {
		t.Fatal("expected second RequestBreak to be a no-op while one is outstanding")
	}
	m.Acknowledge()
	third := m.RequestBreak()
	if third == nil {
		t.Fatal("expected RequestBreak to work again after Acknowledge")
	}
}

func TestMarkerStateResetClearsOutstanding(t *testing.T) {
	m := &markerState{}
	m.RequestBreak()
	m.RequestReset()
	if m.breakOutstanding {
		t.Fatal("expected RequestReset to clear breakOutstanding")
	}
}
