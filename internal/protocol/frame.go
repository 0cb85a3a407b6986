package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// NeededLength reports the total length of the PDU starting at tail[0]. It
// returns false while fewer than LengthFieldSize bytes are available. The
// value is returned as declared, including the length field, even when it is
// nonsensical.
func NeededLength(tail []byte) (uint32, bool) {
	if len(tail) < LengthFieldSize {
		return 0, false
	}
	return uint32(binary.BigEndian.Uint16(tail)), true
}

// ReadPDU reads exactly one PDU from r into buf, growing it when it is too
// small, and returns the PDU bytes including the length field.
func ReadPDU(r io.Reader, buf []byte) ([]byte, error) {
	var h [LengthFieldSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, err
	}
	n, _ := NeededLength(h[:])
	if n < LengthFieldSize {
		return nil, ErrBadLength
	}
	if cap(buf) < int(n) {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
	}
	copy(buf, h[:])
	if _, err := io.ReadFull(r, buf[LengthFieldSize:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// Cut splits the first PDU off data. It returns ErrNeedMoreData when data
// ends inside the length field or the PDU body, and ErrBadLength when the
// declared length cannot be advanced past. pdu aliases data.
func Cut(data []byte) (pdu, rest []byte, err error) {
	n, ok := NeededLength(data)
	if !ok {
		return nil, data, ErrNeedMoreData
	}
	if n < LengthFieldSize {
		return nil, data, ErrBadLength
	}
	if len(data) < int(n) {
		return nil, data, ErrNeedMoreData
	}
	return data[:n], data[n:], nil
}

// SplitPDU is a bufio.SplitFunc yielding one PDU per token. Scanners using it
// need a buffer of at least MaxPDUSize bytes.
func SplitPDU(data []byte, atEOF bool) (int, []byte, error) {
	pdu, _, err := Cut(data)
	switch {
	case err == nil:
		return len(pdu), pdu, nil
	case errors.Is(err, ErrNeedMoreData):
		if atEOF && len(data) > 0 {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, nil
	default:
		return 0, nil, err
	}
}
