package oracle

import (
	"bytes"
	"testing"
)

func TestUBRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    uint64
		max  int
	}{
		{"zero", 0, 4},
		{"small", 5, 1},
		{"ub2", 0x1234, 2},
		{"ub4", 0xdeadbeef, 4},
		{"ub8", 0x0102030405060708, 8},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf := appendUB(nil, c.v, c.max)
			r := newByteReader(buf)
			got, ok := r.readUB(c.max)
			if !ok {
				t.Fatal("readUB failed")
			}
			if got != c.v {
				t.Fatalf("got %d want %d", got, c.v)
			}
		})
	}
}

func TestLengthPrefixedShort(t *testing.T) {
	data := []byte("hello world")
	buf := appendLengthPrefixed(nil, data)
	r := newByteReader(buf)
	got, present, err := readLengthPrefixed(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !present || !bytes.Equal(got, data) {
		t.Fatalf("got %q present=%v", got, present)
	}
}

func TestLengthPrefixedNull(t *testing.T) {
	buf := appendLengthPrefixed(nil, nil)
	r := newByteReader(buf)
	got, present, err := readLengthPrefixed(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if present || got != nil {
		t.Fatalf("expected absent value, got %q present=%v", got, present)
	}
}

func TestLengthPrefixedLongChunked(t *testing.T) {
	data := make([]byte, 0x5000)
	for i := range data {
		data[i] = byte(i)
	}
	buf := appendLengthPrefixed(nil, data)
	if buf[0] != tnsLengthLong {
		t.Fatalf("expected long marker for %d bytes, got 0x%02x", len(data), buf[0])
	}
	r := newByteReader(buf)
	got, present, err := readLengthPrefixed(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !present || !bytes.Equal(got, data) {
		t.Fatal("long-chunked round trip mismatch")
	}
}
