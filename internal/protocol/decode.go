package protocol

import "fmt"

// Decode parses one buffered PDU. b should hold exactly the number of bytes
// NeededLength reported; reads are bounded by the smaller of len(b) and the
// declared length, and bytes past the declared length are not examined.
//
// Unknown tags are not an error. On Malformed the decoded Pdu is returned
// together with the error.
func Decode(b []byte) (*Pdu, error) {
	if len(b) < HeaderSize {
		return nil, truncated("header", 0, HeaderSize, len(b))
	}
	length, pos, _ := ReadUint16(b, 0)
	tag, pos, _ := ReadUint8(b, pos)

	p := &Pdu{DeclaredLength: length, Type: MessageType(tag)}

	end := int(length)
	if end > len(b) {
		end = len(b)
	}
	body := b[:end]

	var err error
	switch p.Type {
	case TypeRegister, TypeHandle:
		p.Payload, pos, err = decodeSingleHandle(body, pos)
	case TypeRegisterSuccess, TypeRegisterFail, TypeBadHandle, TypeListHandles, TypeHandlesListDone:
		p.Payload = Empty{}
	case TypeBroadcast:
		p.Payload, pos, err = decodeAddressed(body, pos, false)
	case TypeDirect, TypeMulticast:
		p.Payload, pos, err = decodeAddressed(body, pos, true)
	case TypeListLen:
		p.Payload, pos, err = decodeCount(body, pos)
	default:
		p.Payload = Unknown{Tag: tag}
	}
	if err != nil {
		return nil, err
	}

	p.Consumed = pos
	if pos != int(length) {
		return p, &DecodeError{Kind: KindMalformed, Field: "pdu", Offset: pos, Need: int(length), Have: pos}
	}
	return p, nil
}

func decodeSingleHandle(b []byte, pos int) (Payload, int, error) {
	handle, pos, err := ReadString(b, pos)
	if err != nil {
		return nil, pos, withField(err, "handle")
	}
	return SingleHandle{Handle: handle}, pos, nil
}

func decodeAddressed(b []byte, pos int, counted bool) (Payload, int, error) {
	var a Addressed
	var err error

	a.Sender, pos, err = ReadString(b, pos)
	if err != nil {
		return nil, pos, withField(err, "sender")
	}

	// Broadcast addresses everyone and carries no count byte.
	var count uint8
	a.CountSpan = Span{Offset: pos}
	if counted {
		count, pos, err = ReadUint8(b, pos)
		if err != nil {
			return nil, pos, withField(err, "recipient count")
		}
		a.CountSpan.Length = 1
	}

	// An oversized count fails on the first recipient that does not fit;
	// nothing is returned for a partially read list.
	if count > 0 {
		a.Recipients = make([]Text, 0, count)
	}
	for i := 0; i < int(count); i++ {
		var r Text
		r, pos, err = ReadString(b, pos)
		if err != nil {
			return nil, pos, withField(err, fmt.Sprintf("recipient[%d]", i))
		}
		a.Recipients = append(a.Recipients, r)
	}

	a.Body, pos, err = ReadCString(b, pos)
	if err != nil {
		return nil, pos, withField(err, "message")
	}
	return a, pos, nil
}

func decodeCount(b []byte, pos int) (Payload, int, error) {
	start := pos
	n, pos, err := ReadUint32(b, pos)
	if err != nil {
		return nil, pos, withField(err, "list length")
	}
	return Count{Count: n, Span: Span{Offset: start, Length: 4}}, pos, nil
}
