package oracle

// markerState enforces the "only one outstanding BREAK" discipline: a
// second cancellation request while one is already in flight is a no-op
// rather than sending a redundant marker.
type markerState struct {
	breakOutstanding bool
}

// RequestBreak encodes a BREAK marker packet if one is not already
// outstanding, returning nil bytes when the request is a no-op.
func (m *markerState) RequestBreak() []byte {
	if m.breakOutstanding {
		return nil
	}
	m.breakOutstanding = true
	pkt := &Packet{
		Header:  PacketHeader{Type: PacketTypeMarker},
		Payload: []byte{byte(MarkerBreak)},
	}
	return pkt.Encode(TNSVersionDesired)
}

// RequestReset encodes a RESET marker, sent after a BREAK's server-side
// acknowledgement to resynchronize the data stream, and clears the
// outstanding-break flag.
func (m *markerState) RequestReset() []byte {
	m.breakOutstanding = false
	pkt := &Packet{
		Header:  PacketHeader{Type: PacketTypeMarker},
		Payload: []byte{byte(MarkerReset)},
	}
	return pkt.Encode(TNSVersionDesired)
}

// Acknowledge clears the outstanding-break flag once the server has
// acknowledged the BREAK (the dispatcher calls it when a STATUS message
// arrives), allowing a subsequent cancellation.
func (m *markerState) Acknowledge() {
	m.breakOutstanding = false
}
