package producer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/polychat-monitor/internal/protocol"
)

// Script columns
const (
	ColType       = "type"
	ColHandle     = "handle"
	ColSender     = "sender"
	ColRecipients = "recipients"
	ColBody       = "body"
	ColCount      = "count"
	ColHex        = "hex"
)

var (
	ErrMissingType = errors.New("producer: row has no type")
	ErrUnknownType = errors.New("producer: unknown message type")
	ErrBadCount    = errors.New("producer: invalid count")
	ErrBadHex      = errors.New("producer: invalid hex")
)

// Step is one row ready to send.
type Step struct {
	Type protocol.MessageType
	Data []byte
}

// ScriptTransformer builds PDUs from script rows.
type ScriptTransformer struct{}

func NewScriptTransformer() *ScriptTransformer {
	return &ScriptTransformer{}
}

// TransformRow encodes one row. A non-empty hex column is sent verbatim, which
// lets a script inject PDUs the encoder would refuse to build.
func (t *ScriptTransformer) TransformRow(row map[string]string) (Step, error) {
	if raw := strings.TrimSpace(row[ColHex]); raw != "" {
		data, err := hex.DecodeString(strings.Join(strings.Fields(raw), ""))
		if err != nil {
			return Step{}, fmt.Errorf("%w: %v", ErrBadHex, err)
		}
		var typ protocol.MessageType
		if len(data) >= protocol.HeaderSize {
			typ = protocol.MessageType(data[2])
		}
		return Step{Type: typ, Data: data}, nil
	}

	p, err := BuildPDU(row)
	if err != nil {
		return Step{}, err
	}
	data, err := protocol.Encode(p)
	if err != nil {
		return Step{}, err
	}
	return Step{Type: p.Type, Data: data}, nil
}

// BuildPDU maps a row onto the constructor for its type. Unknown numeric tags
// become header-only PDUs.
func BuildPDU(row map[string]string) (*protocol.Pdu, error) {
	t, err := ParseType(row[ColType])
	if err != nil {
		return nil, err
	}

	switch t {
	case protocol.TypeRegister:
		return protocol.Register(row[ColHandle]), nil
	case protocol.TypeHandle:
		return protocol.Handle(row[ColHandle]), nil
	case protocol.TypeBroadcast:
		return protocol.Broadcast(row[ColSender], row[ColBody]), nil
	case protocol.TypeDirect:
		return protocol.Direct(row[ColSender], ParseRecipients(row[ColRecipients]), row[ColBody]), nil
	case protocol.TypeMulticast:
		return protocol.Multicast(row[ColSender], ParseRecipients(row[ColRecipients]), row[ColBody]), nil
	case protocol.TypeListLen:
		n, err := strconv.ParseUint(strings.TrimSpace(row[ColCount]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadCount, row[ColCount])
		}
		return protocol.ListLen(uint32(n)), nil
	}
	if t.Known() {
		return protocol.Signal(t), nil
	}
	return &protocol.Pdu{Type: t, Payload: protocol.Unknown{Tag: uint8(t)}}, nil
}

// ParseType accepts a type name in any case ("direct", "Register Success") or a
// numeric tag ("5", "0x0c").
func ParseType(s string) (protocol.MessageType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingType
	}
	if n, err := strconv.ParseUint(s, 0, 8); err == nil {
		return protocol.MessageType(n), nil
	}
	for tag := 0; tag <= 0xFF; tag++ {
		t := protocol.MessageType(tag)
		if t.Known() && strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// ParseRecipients splits a ;-separated recipient list, dropping blanks.
func ParseRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
