package oracle

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeHeaderLargeSDU(t *testing.T) {
	h := PacketHeader{Length: 42, Type: PacketTypeData, Flags: 0}
	encoded := encodeHeader(h, TNSVersionDesired)
	if len(encoded) != 8 {
		t.Fatalf("expected 8-byte header, got %d", len(encoded))
	}
	r := newByteReader(encoded)
	got, err := decodeHeader(r, TNSVersionDesired)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if got.Length != h.Length || got.Type != h.Type || got.Flags != h.Flags {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
	}
}

func TestEncodeDecodeHeaderSmallSDU(t *testing.T) {
	h := PacketHeader{Length: 99, Type: PacketTypeConnect, Flags: 0}
	const oldVersion = 300
	encoded := encodeHeader(h, oldVersion)
	r := newByteReader(encoded)
	got, err := decodeHeader(r, oldVersion)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if got.Length != h.Length {
		t.Fatalf("small-SDU round trip: got %d want %d", got.Length, h.Length)
	}
}

func TestReadPacketNeedsMoreData(t *testing.T) {
	pkt := &Packet{Header: PacketHeader{Type: PacketTypeMarker}, Payload: []byte{1}}
	full := pkt.Encode(TNSVersionDesired)
	_, _, ok, err := ReadPacket(full[:len(full)-1], TNSVersionDesired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for truncated packet")
	}
}

func TestReadPacketRoundTripData(t *testing.T) {
	pkt := &Packet{
		Header:    PacketHeader{Type: PacketTypeData},
		DataFlags: DataFlagsEndOfRequest,
		Payload:   []byte("hello"),
	}
	encoded := pkt.Encode(TNSVersionDesired)
	got, n, ok, err := ReadPacket(encoded, TNSVersionDesired)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if !ok || n != len(encoded) {
		t.Fatalf("expected full consume, got n=%d ok=%v", n, ok)
	}
	if got.DataFlags != DataFlagsEndOfRequest || !bytes.Equal(got.Payload, []byte("hello")) {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestCodecFeedReassemblesAcrossPackets(t *testing.T) {
	c := NewCodec(TNSVersionDesired)
	first := (&Packet{Header: PacketHeader{Type: PacketTypeData}, Payload: []byte("AB")}).Encode(TNSVersionDesired)
	second := (&Packet{Header: PacketHeader{Type: PacketTypeData}, DataFlags: DataFlagsEndOfRequest, Payload: []byte("CD")}).Encode(TNSVersionDesired)

	res, n, err := c.Feed(append(first, second...))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if n != len(first)+len(second) {
		t.Fatalf("expected to consume both packets, got %d", n)
	}
	if len(res.DataPayloads) != 1 || string(res.DataPayloads[0]) != "ABCD" {
		t.Fatalf("expected reassembled ABCD, got %+v", res.DataPayloads)
	}
}

func TestCodecFeedWaitsForEndOfRequest(t *testing.T) {
	c := NewCodec(TNSVersionDesired)
	first := (&Packet{Header: PacketHeader{Type: PacketTypeData}, Payload: []byte("partial")}).Encode(TNSVersionDesired)
	res, _, err := c.Feed(first)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(res.DataPayloads) != 0 {
		t.Fatalf("expected no completed payloads yet, got %d", len(res.DataPayloads))
	}
}
