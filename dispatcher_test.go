package oracle

import (
	"net"
	"testing"
)

func TestIsOperationalErr(t *testing.T) {
	if !isOperationalErr(newError(KindConnection, "boom")) {
		t.Fatal("expected non-server errors to be treated as operational")
	}
	serverErr := &Error{Kind: KindServer, Number: 3113}
	if !isOperationalErr(serverErr) {
		t.Fatal("expected ORA-03113 to be operational")
	}
	benign := &Error{Kind: KindServer, Number: 1}
	if isOperationalErr(benign) {
		t.Fatal("expected ORA-00001 to not be operational")
	}
}

func TestDispatcherCancelActiveWritesBreakThenReset(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := &Connection{conn: client, caps: NewCapabilities()}
	d := NewDispatcher(conn, nil)

	readDone := make(chan []byte, 2)
	go func() {
		buf := make([]byte, 64)
		n, _ := server.Read(buf)
		readDone <- append([]byte{}, buf[:n]...)
		n, _ = server.Read(buf)
		readDone <- append([]byte{}, buf[:n]...)
	}()

	cancelDone := make(chan Action, 1)
	go func() { cancelDone <- d.cancelActive(nil) }()

	first := <-readDone
	if len(first) == 0 || PacketType(first[4]) != PacketTypeMarker {
		t.Fatalf("expected first write to be a MARKER packet, got %x", first)
	}
	if MarkerType(first[8]) != MarkerBreak {
		t.Fatalf("expected BREAK marker, got %x", first)
	}

	// Simulate the server's STATUS acknowledgement of the BREAK, the
	// signal cancelActive waits on before sending RESET.
	d.observeMarkerAck([]Message{&StatusMessage{}})

	second := <-readDone
	if len(second) == 0 || MarkerType(second[8]) != MarkerReset {
		t.Fatalf("expected RESET marker, got %x", second)
	}
	<-cancelDone
}
