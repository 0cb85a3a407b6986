package protocol

import (
	"bytes"
	"encoding/binary"
)

// The readers below take the PDU bytes already cut to the declared end and a
// cursor, and return the value with the advanced cursor. They never read past
// len(b).

// ReadUint8 reads one byte at pos.
func ReadUint8(b []byte, pos int) (uint8, int, error) {
	if pos < 0 || len(b)-pos < 1 {
		return 0, pos, truncated("uint8", pos, 1, len(b)-pos)
	}
	return b[pos], pos + 1, nil
}

// ReadUint16 reads a big-endian uint16 at pos.
func ReadUint16(b []byte, pos int) (uint16, int, error) {
	if pos < 0 || len(b)-pos < 2 {
		return 0, pos, truncated("uint16", pos, 2, len(b)-pos)
	}
	return binary.BigEndian.Uint16(b[pos:]), pos + 2, nil
}

// ReadUint32 reads a big-endian uint32 at pos.
func ReadUint32(b []byte, pos int) (uint32, int, error) {
	if pos < 0 || len(b)-pos < 4 {
		return 0, pos, truncated("uint32", pos, 4, len(b)-pos)
	}
	return binary.BigEndian.Uint32(b[pos:]), pos + 4, nil
}

// ReadString reads a string preceded by a 1-byte length. The cursor advances
// by 1 + length.
func ReadString(b []byte, pos int) (Text, int, error) {
	n, next, err := ReadUint8(b, pos)
	if err != nil {
		return Text{}, pos, withField(err, "string length")
	}
	if len(b)-next < int(n) {
		return Text{}, pos, truncated("string", next, int(n), len(b)-next)
	}
	end := next + int(n)
	return Text{Value: string(b[next:end]), Span: Span{Offset: next, Length: int(n)}}, end, nil
}

// ReadCString reads a NUL-terminated string. The cursor advances past the
// terminator.
func ReadCString(b []byte, pos int) (Text, int, error) {
	if pos < 0 || pos >= len(b) {
		return Text{}, pos, truncated("cstring", pos, 1, len(b)-pos)
	}
	i := bytes.IndexByte(b[pos:], 0)
	if i < 0 {
		return Text{}, pos, truncated("cstring", pos, len(b)-pos+1, len(b)-pos)
	}
	return Text{Value: string(b[pos : pos+i]), Span: Span{Offset: pos, Length: i + 1}}, pos + i + 1, nil
}
