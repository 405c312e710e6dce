package oracle

import "encoding/binary"

// PacketType identifies a TNS packet. Naming follows the zgrab2 oracle
// module's PacketType constants (modules/oracle/types_test.go),
// extended with the DATA-flag bits the older zgrab2 header format
// predates.
type PacketType uint8

const (
	PacketTypeConnect  PacketType = 1
	PacketTypeAccept   PacketType = 2
	PacketTypeRefuse   PacketType = 4
	PacketTypeRedirect PacketType = 5
	PacketTypeData     PacketType = 6
	PacketTypeResend   PacketType = 11
	PacketTypeMarker   PacketType = 12
	PacketTypeControl  PacketType = 14
)

// MarkerType is the subtype carried by a MARKER packet's single data
// byte.
type MarkerType uint8

const (
	MarkerBreak     MarkerType = 1
	MarkerReset     MarkerType = 2
	MarkerInterrupt MarkerType = 3
)

// ControlType is the subtype carried by a CONTROL packet.
type ControlType uint8

const (
	ControlInbandNotification ControlType = 8
	ControlResetOOB           ControlType = 9
)

// Data-flags bits carried in a DATA packet's header extension.
const (
	DataFlagsEndOfRequest uint16 = 0x0001
	DataFlagsEOF          uint16 = 0x0002
)

// TNSVersionDesired is advertised by the client in CONNECT.
const TNSVersionDesired uint16 = 319

// TNSVersionMinAccepted is the lowest protocol_version an ACCEPT may
// carry before the connection attempt fails.
const TNSVersionMinAccepted uint16 = 315

// TNSVersionMinLargeSDU is the protocol version at which the packet
// header's length field widens from u16 to u32.
const TNSVersionMinLargeSDU uint16 = 315

// PacketHeader is the 8-byte (or, pre-large-SDU, 8-byte with a zero
// padding word) TNS packet header.
type PacketHeader struct {
	Length uint32
	Type   PacketType
	Flags  uint8
}

// encodeHeader writes the header for protocolVersion, choosing the
// large- or small-SDU length layout: protocol_version >=
// TNS_VERSION_MIN_LARGE_SDU means the first 4 bytes are the length;
// otherwise the first 2 bytes are the length and the next 2 are zero.
func encodeHeader(h PacketHeader, protocolVersion uint16) []byte {
	buf := make([]byte, 8)
	if protocolVersion >= TNSVersionMinLargeSDU {
		binary.BigEndian.PutUint32(buf[0:4], h.Length)
	} else {
		binary.BigEndian.PutUint16(buf[0:2], uint16(h.Length))
		binary.BigEndian.PutUint16(buf[2:4], 0)
	}
	buf[4] = byte(h.Type)
	buf[5] = h.Flags
	buf[6] = 0
	buf[7] = 0
	return buf
}

func decodeHeader(r *byteReader, protocolVersion uint16) (PacketHeader, error) {
	b, ok := r.readBytes(8)
	if !ok {
		return PacketHeader{}, newError(KindMessageDecodingFailure, "truncated packet header")
	}
	var h PacketHeader
	if protocolVersion >= TNSVersionMinLargeSDU {
		h.Length = binary.BigEndian.Uint32(b[0:4])
	} else {
		h.Length = uint32(binary.BigEndian.Uint16(b[0:2]))
		if binary.BigEndian.Uint16(b[2:4]) != 0 {
			return PacketHeader{}, newError(KindMessageDecodingFailure, "non-zero padding in small-SDU header")
		}
	}
	h.Type = PacketType(b[4])
	h.Flags = b[5]
	return h, nil
}

// Packet is a fully decoded TNS frame: a header plus its raw payload
// (for DATA packets, the data-flags word is held in DataFlags and the
// payload is only the message bytes, which SplitMessages splits further
// into Messages).
type Packet struct {
	Header    PacketHeader
	DataFlags uint16 // only meaningful when Header.Type == PacketTypeData
	Payload   []byte
}

// Encode serializes p for the given negotiated protocol version.
func (p *Packet) Encode(protocolVersion uint16) []byte {
	var body []byte
	if p.Header.Type == PacketTypeData {
		df := make([]byte, 2)
		binary.BigEndian.PutUint16(df, p.DataFlags)
		body = append(df, p.Payload...)
	} else {
		body = p.Payload
	}
	h := p.Header
	h.Length = uint32(8 + len(body))
	return append(encodeHeader(h, protocolVersion), body...)
}

// headerSize is always 8 regardless of SDU layout: the large-SDU form
// uses all 4 length bytes, the small-SDU form keeps 2 padding bytes.
const headerSize = 8

// ReadPacket decodes exactly one packet from the front of data. It
// returns the packet, the number of bytes consumed, and whether enough
// data was available (false means "need more bytes", not an error).
func ReadPacket(data []byte, protocolVersion uint16) (*Packet, int, bool, error) {
	if len(data) < headerSize {
		return nil, 0, false, nil
	}
	r := newByteReader(data)
	h, err := decodeHeader(r, protocolVersion)
	if err != nil {
		return nil, 0, false, err
	}
	if h.Length < headerSize {
		return nil, 0, false, newError(KindMessageDecodingFailure, "packet length %d smaller than header", h.Length)
	}
	if len(data) < int(h.Length) {
		return nil, 0, false, nil
	}
	body := data[headerSize:h.Length]
	p := &Packet{Header: h}
	if h.Type == PacketTypeData {
		if len(body) < 2 {
			return nil, 0, false, newError(KindMessageDecodingFailure, "truncated DATA header")
		}
		p.DataFlags = binary.BigEndian.Uint16(body[0:2])
		p.Payload = body[2:]
	} else {
		p.Payload = body
	}
	return p, int(h.Length), true, nil
}
