package oracle

import "encoding/binary"

// Wire-level sentinel bytes for the three length-encoding schemes used
// throughout TTC messages.
const (
	tnsLengthNull byte = 255 // no value follows
	tnsLengthLong byte = 254 // chunked representation follows
	tnsEscape     byte = 253 // introduces a special sequence
	tnsMaxShort        = 252 // largest length encodable as a single byte
)

// byteReader is the minimal cursor the frame codec decodes from. It is
// satisfied by a plain []byte slice wrapper, mirroring the zgrab2
// oracle test's sliceReader / getSliceReader helper pair, generalized
// into a reusable type instead of a test-only shim.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) remaining() int { return len(r.data) - r.pos }

func (r *byteReader) readByte() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++
	return b, true
}

func (r *byteReader) readBytes(n int) ([]byte, bool) {
	if r.remaining() < n {
		return nil, false
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

// readUB reads a big-endian unsigned integer whose length in bytes is
// itself given by a leading length byte (the UB1/UB2/UB4/UB8 family).
// A length byte of 0 decodes to the value 0 without consuming further
// bytes, matching how Oracle servers omit zero-valued numeric fields.
func (r *byteReader) readUB(maxBytes int) (uint64, bool) {
	n, ok := r.readByte()
	if !ok {
		return 0, false
	}
	if n == 0 {
		return 0, true
	}
	if int(n) > maxBytes {
		return 0, false
	}
	b, ok := r.readBytes(int(n))
	if !ok {
		return 0, false
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v, true
}

func (r *byteReader) readUB1() (uint8, bool) {
	v, ok := r.readUB(1)
	return uint8(v), ok
}

func (r *byteReader) readUB2() (uint16, bool) {
	v, ok := r.readUB(2)
	return uint16(v), ok
}

func (r *byteReader) readUB4() (uint32, bool) {
	v, ok := r.readUB(4)
	return uint32(v), ok
}

func (r *byteReader) readUB8() (uint64, bool) {
	return r.readUB(8)
}

// appendUB appends the length-prefixed big-endian encoding of v using
// at most maxBytes bytes, trimming leading zero bytes the way the
// server does (a value that fits in fewer bytes is encoded shorter).
func appendUB(buf []byte, v uint64, maxBytes int) []byte {
	if v == 0 {
		return append(buf, 0)
	}
	tmp := make([]byte, maxBytes)
	full := make([]byte, 8)
	binary.BigEndian.PutUint64(full, v)
	start := 8 - maxBytes
	copy(tmp, full[start:])
	// trim leading zero bytes
	i := 0
	for i < len(tmp)-1 && tmp[i] == 0 {
		i++
	}
	trimmed := tmp[i:]
	buf = append(buf, byte(len(trimmed)))
	return append(buf, trimmed...)
}

func appendUB1(buf []byte, v uint8) []byte  { return appendUB(buf, uint64(v), 1) }
func appendUB2(buf []byte, v uint16) []byte { return appendUB(buf, uint64(v), 2) }
func appendUB4(buf []byte, v uint32) []byte { return appendUB(buf, uint64(v), 4) }
func appendUB8(buf []byte, v uint64) []byte { return appendUB(buf, v, 8) }

// readLengthPrefixed decodes a value framed with the short/null/long
// scheme:
//
//  1. short: one byte n <= 252, followed by n bytes of payload.
//  2. null: one byte == 255, no payload, value is absent.
//  3. long: one byte == 254, followed by repeating
//     (UB4 chunk_length, chunk_bytes) pairs terminated by a
//     zero-length chunk.
//
// The second return value reports whether the value was present (false
// for the null case); decoding failures return an error.
func readLengthPrefixed(r *byteReader) ([]byte, bool, error) {
	marker, ok := r.readByte()
	if !ok {
		return nil, false, newError(KindMessageDecodingFailure, "truncated length prefix")
	}
	switch {
	case marker == tnsLengthNull:
		return nil, false, nil
	case marker <= tnsMaxShort:
		if marker == 0 {
			return []byte{}, true, nil
		}
		b, ok := r.readBytes(int(marker))
		if !ok {
			return nil, false, newError(KindMessageDecodingFailure, "truncated short-length payload")
		}
		return b, true, nil
	case marker == tnsLengthLong:
		var out []byte
		for {
			chunkLen, ok := r.readUB4()
			if !ok {
				return nil, false, newError(KindMessageDecodingFailure, "truncated long-length chunk header")
			}
			if chunkLen == 0 {
				return out, true, nil
			}
			chunk, ok := r.readBytes(int(chunkLen))
			if !ok {
				return nil, false, newError(KindMessageDecodingFailure, "truncated long-length chunk body")
			}
			out = append(out, chunk...)
		}
	default:
		return nil, false, newError(KindMessageDecodingFailure, "unknown length marker 0x%02x", marker)
	}
}

// appendLengthPrefixed encodes data using the short scheme when it fits
// (<=252 bytes), the long chunked scheme otherwise, or the null marker
// when data is nil.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	if data == nil {
		return append(buf, tnsLengthNull)
	}
	if len(data) <= tnsMaxShort {
		buf = append(buf, byte(len(data)))
		return append(buf, data...)
	}
	const chunkSize = 0x4000
	buf = append(buf, tnsLengthLong)
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		buf = appendUB4(buf, uint32(end-off))
		buf = append(buf, data[off:end]...)
	}
	return appendUB4(buf, 0)
}
