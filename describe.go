package oracle

import (
	"golang.org/x/text/encoding/unicode"
)

// ncharDecoder is the single UTF-16 variant this driver accepts for
// NCHAR/NVARCHAR2 column names and values. Wiring golang.org/x/text
// here, rather than hand-rolling a UTF-16 decoder, follows the same
// ecosystem-first rule the corpus uses for every other codec concern.
var ncharDecoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()

func decodeNChar(b []byte) (string, error) {
	out, err := ncharDecoder.Bytes(b)
	if err != nil {
		return "", newError(KindNationalCharsetNotSupported, "ncharset decode: %v", err)
	}
	return string(out), nil
}

// decodeDescribeInfo parses a DESCRIBE_INFO message body into column
// metadata, consulting usesExtendedFieldVersion (capabilities.go) to
// know whether the extra field-version-18.1 bytes follow each column's
// core fields.
func decodeDescribeInfo(buf []byte, compileCaps [TNSCCAPMax]uint8) (*DescribeInfoMessage, int, bool, error) {
	r := newByteReader(buf)
	count, ok := r.readUB2()
	if !ok {
		return nil, 0, false, nil
	}
	extended := usesExtendedFieldVersion(compileCaps)
	cols := make([]OracleColumn, 0, count)
	for i := uint16(0); i < count; i++ {
		typeNumber, ok1 := r.readUB2()
		csfrm, ok2 := r.readUB1()
		size, ok3 := r.readUB4()
		precision, ok4 := r.readUB1()
		scale, ok5 := r.readUB1()
		nullableByte, ok6 := r.readUB1()
		nameBytes, _, e := readLengthPrefixed(r)
		if e != nil {
			return nil, 0, false, e
		}
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
			return nil, 0, false, nil
		}
		charsetID, ok7 := r.readUB2()
		if !ok7 {
			return nil, 0, false, nil
		}
		if extended {
			// Extended field version appends an additional property byte
			// (e.g. annotations/JSON flags); it is read and discarded.
			if _, ok := r.readUB1(); !ok {
				return nil, 0, false, nil
			}
		}
		name := string(nameBytes)
		if CharsetForm(csfrm) == CharsetFormNChar {
			if decoded, err := decodeNChar(nameBytes); err == nil {
				name = decoded
			}
		}
		cols = append(cols, OracleColumn{
			Name:        name,
			Type:        TypeFromWire(typeNumber, CharsetForm(csfrm)),
			Size:        size,
			Precision:   int8(precision),
			Scale:       int8(scale),
			Nullable:    nullableByte != 0,
			CharsetForm: CharsetForm(csfrm),
			CharsetID:   charsetID,
		})
	}
	consumed := len(buf) - r.remaining()
	return &DescribeInfoMessage{baseMessage: baseMessage{Raw: buf[:consumed]}, Columns: cols}, consumed, true, nil
}

// decodeRowData parses one ROW_DATA message body given the column count
// from the statement's cached DescribeInfo, splitting on the
// short/null/long length scheme per column.
func decodeRowData(buf []byte, columns []OracleColumn) (*RowDataMessage, int, bool, error) {
	r := newByteReader(buf)
	values := make([][]byte, 0, len(columns))
	for range columns {
		v, present, err := readLengthPrefixed(r)
		if err != nil {
			return nil, 0, false, err
		}
		if !present {
			values = append(values, nil)
			continue
		}
		values = append(values, v)
	}
	consumed := len(buf) - r.remaining()
	return &RowDataMessage{baseMessage: baseMessage{Raw: buf[:consumed]}, Columns: values}, consumed, true, nil
}

// decodeStatementMessages extends SplitMessages with the two message
// types whose layout depends on an active Statement's describe cache
// (DESCRIBE_INFO, ROW_DATA). It is only ever called with the buffer
// SplitMessages left undecoded, and only when a StatementExecution is
// active to supply columns/compileCaps context.
func decodeStatementMessages(buf []byte, columns []OracleColumn, compileCaps [TNSCCAPMax]uint8) ([]Message, error) {
	var msgs []Message
	for len(buf) > 0 {
		typ := MessageType(buf[0])
		body := buf[1:]
		switch typ {
		case MessageTypeDescribeInfo:
			m, n, ok, err := decodeDescribeInfo(body, compileCaps)
			if err != nil {
				return msgs, err
			}
			if !ok {
				return msgs, nil
			}
			msgs = append(msgs, m)
			buf = body[n:]
			columns = m.Columns
		case MessageTypeRowData:
			m, n, ok, err := decodeRowData(body, columns)
			if err != nil {
				return msgs, err
			}
			if !ok {
				return msgs, nil
			}
			msgs = append(msgs, m)
			buf = body[n:]
		default:
			// Fall back to the generic table for everything else
			// (STATUS/ERROR/etc may still trail a DESCRIBE_INFO/ROW_DATA
			// run within the same payload).
			m, n, ok, err := decodeMessage(buf)
			if err != nil || !ok {
				return msgs, nil
			}
			msgs = append(msgs, m)
			buf = buf[n:]
		}
	}
	return msgs, nil
}
