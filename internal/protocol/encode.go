package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Constructors for the companion encoder. Spans are left zero; Encode ignores
// them.

func Register(handle string) *Pdu {
	return &Pdu{Type: TypeRegister, Payload: SingleHandle{Handle: Text{Value: handle}}}
}

func Handle(handle string) *Pdu {
	return &Pdu{Type: TypeHandle, Payload: SingleHandle{Handle: Text{Value: handle}}}
}

// Signal builds a header-only PDU such as RegisterSuccess or ListHandles.
func Signal(t MessageType) *Pdu {
	return &Pdu{Type: t, Payload: Empty{}}
}

func Broadcast(sender, body string) *Pdu {
	return &Pdu{Type: TypeBroadcast, Payload: Addressed{Sender: Text{Value: sender}, Body: Text{Value: body}}}
}

func Direct(sender string, recipients []string, body string) *Pdu {
	return addressed(TypeDirect, sender, recipients, body)
}

func Multicast(sender string, recipients []string, body string) *Pdu {
	return addressed(TypeMulticast, sender, recipients, body)
}

func ListLen(n uint32) *Pdu {
	return &Pdu{Type: TypeListLen, Payload: Count{Count: n}}
}

func addressed(t MessageType, sender string, recipients []string, body string) *Pdu {
	a := Addressed{Sender: Text{Value: sender}, Body: Text{Value: body}}
	for _, r := range recipients {
		a.Recipients = append(a.Recipients, Text{Value: r})
	}
	return &Pdu{Type: t, Payload: a}
}

// Encode serialises p. The length field is computed; p.DeclaredLength is
// ignored.
func Encode(p *Pdu) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, byte(p.Type)})

	switch pl := p.Payload.(type) {
	case SingleHandle:
		if p.Type != TypeRegister && p.Type != TypeHandle {
			return nil, fmt.Errorf("%w: %s cannot carry a handle", ErrInvalidPayload, p.Type)
		}
		if err := putString(&buf, "handle", pl.Handle.Value); err != nil {
			return nil, err
		}
	case Addressed:
		if err := encodeAddressed(&buf, p.Type, pl); err != nil {
			return nil, err
		}
	case Count:
		if p.Type != TypeListLen {
			return nil, fmt.Errorf("%w: %s cannot carry a count", ErrInvalidPayload, p.Type)
		}
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], pl.Count)
		buf.Write(n[:])
	case Empty, Unknown, nil:
		if p.Type.Known() && !isEmptyType(p.Type) {
			return nil, fmt.Errorf("%w: %s needs a payload", ErrInvalidPayload, p.Type)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidPayload, p.Payload)
	}

	out := buf.Bytes()
	if len(out) > MaxPDUSize {
		return nil, fmt.Errorf("%w: pdu is %d bytes", ErrFieldTooLong, len(out))
	}
	binary.BigEndian.PutUint16(out, uint16(len(out)))
	return out, nil
}

// WritePDU encodes p and writes it to w in one call.
func WritePDU(w io.Writer, p *Pdu) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func encodeAddressed(buf *bytes.Buffer, t MessageType, a Addressed) error {
	switch t {
	case TypeBroadcast:
		if len(a.Recipients) > 0 {
			return fmt.Errorf("%w: broadcast has no recipient list", ErrInvalidPayload)
		}
	case TypeDirect, TypeMulticast:
		if len(a.Recipients) > MaxRecipients {
			return fmt.Errorf("%w: %d recipients", ErrFieldTooLong, len(a.Recipients))
		}
	default:
		return fmt.Errorf("%w: %s cannot carry a message", ErrInvalidPayload, t)
	}

	if err := putString(buf, "sender", a.Sender.Value); err != nil {
		return err
	}
	if t != TypeBroadcast {
		buf.WriteByte(byte(len(a.Recipients)))
		for _, r := range a.Recipients {
			if err := putString(buf, "recipient", r.Value); err != nil {
				return err
			}
		}
	}
	if bytes.IndexByte([]byte(a.Body.Value), 0) >= 0 {
		return fmt.Errorf("%w: message contains NUL", ErrInvalidPayload)
	}
	buf.WriteString(a.Body.Value)
	buf.WriteByte(0)
	return nil
}

func putString(buf *bytes.Buffer, field, s string) error {
	if len(s) > MaxStringLen {
		return fmt.Errorf("%w: %s is %d bytes", ErrFieldTooLong, field, len(s))
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func isEmptyType(t MessageType) bool {
	switch t {
	case TypeRegisterSuccess, TypeRegisterFail, TypeBadHandle, TypeListHandles, TypeHandlesListDone:
		return true
	}
	return false
}
