package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrNeedMoreData means the buffer ends before the PDU it starts does.
	ErrNeedMoreData = errors.New("polychat: need more data")
	// ErrTruncated means a field claims more bytes than the PDU holds.
	ErrTruncated = errors.New("polychat: truncated field")
	// ErrMalformed means the payload did not end exactly at the declared length.
	ErrMalformed = errors.New("polychat: malformed pdu")
	// ErrBadLength means the declared length is shorter than the length field
	// itself, so the stream cannot advance past it.
	ErrBadLength = errors.New("polychat: declared length shorter than length field")
	// ErrFieldTooLong is returned by the encoder for values that do not fit
	// their wire width.
	ErrFieldTooLong = errors.New("polychat: field too long")
	// ErrInvalidPayload is returned by the encoder for payloads that cannot be
	// expressed for the PDU's type.
	ErrInvalidPayload = errors.New("polychat: payload does not match type")
)

// ErrorKind classifies a DecodeError.
type ErrorKind int

const (
	KindTruncated ErrorKind = iota + 1
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTruncated:
		return "truncated"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecodeError describes where decoding of a single PDU stopped.
type DecodeError struct {
	Kind   ErrorKind
	Field  string
	Offset int
	// Need and Have are byte counts: for Truncated, bytes the field wanted and
	// bytes left; for Malformed, the declared length and the final cursor.
	Need int
	Have int
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindTruncated:
		return fmt.Sprintf("%v: %s at offset %d needs %d bytes, %d left", ErrTruncated, e.Field, e.Offset, e.Need, e.Have)
	case KindMalformed:
		return fmt.Sprintf("%v: declared length %d, consumed %d", ErrMalformed, e.Need, e.Have)
	default:
		return "polychat: decode error"
	}
}

func (e *DecodeError) Unwrap() error {
	switch e.Kind {
	case KindTruncated:
		return ErrTruncated
	case KindMalformed:
		return ErrMalformed
	default:
		return nil
	}
}

func truncated(field string, offset, need, have int) error {
	if have < 0 {
		have = 0
	}
	return &DecodeError{Kind: KindTruncated, Field: field, Offset: offset, Need: need, Have: have}
}

// withField renames the field of a truncation error raised by a primitive so
// the report names the protocol field rather than the primitive.
func withField(err error, field string) error {
	var de *DecodeError
	if errors.As(err, &de) {
		de.Field = field
	}
	return err
}

// KindOf returns the kind of a decode error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
