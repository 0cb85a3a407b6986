// Package dissect turns decoded Polychat PDUs into display records: an info
// line, a flat field list with byte ranges and a text tree.
package dissect

const (
	ProtocolName  = "POLYCHAT Protocol"
	ProtocolShort = "PCHAT"
	ProtocolAbbr  = "polychat"
	// DefaultPort is the TCP port Polychat servers listen on.
	DefaultPort = 8000
)

// FieldKind is the wire representation of a field.
type FieldKind int

const (
	KindUint8 FieldKind = iota
	KindUint16
	KindUint32
	KindString
	KindStringz
)

func (k FieldKind) String() string {
	switch k {
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindString:
		return "string"
	case KindStringz:
		return "stringz"
	default:
		return "unknown"
	}
}

// FieldInfo is the display metadata of one field.
type FieldInfo struct {
	Abbrev string
	Name   string
	Kind   FieldKind
}

var (
	FieldLength         = FieldInfo{Abbrev: "polychat.length", Name: "Length", Kind: KindUint16}
	FieldFlag           = FieldInfo{Abbrev: "polychat.flag", Name: "Flag", Kind: KindUint8}
	FieldSender         = FieldInfo{Abbrev: "polychat.sender", Name: "Sender", Kind: KindString}
	FieldHandle         = FieldInfo{Abbrev: "polychat.handle", Name: "Handle", Kind: KindString}
	FieldRecipient      = FieldInfo{Abbrev: "polychat.recipient", Name: "Recipient", Kind: KindString}
	FieldRecipientCount = FieldInfo{Abbrev: "polychat.handle_count", Name: "Recipient Count", Kind: KindUint8}
	FieldMessage        = FieldInfo{Abbrev: "polychat.msg", Name: "Message", Kind: KindStringz}
	FieldListLength     = FieldInfo{Abbrev: "polychat.list_length", Name: "Count", Kind: KindUint32}
)

// Fields lists every registered field in display order.
func Fields() []FieldInfo {
	return []FieldInfo{
		FieldLength,
		FieldFlag,
		FieldSender,
		FieldHandle,
		FieldRecipient,
		FieldRecipientCount,
		FieldMessage,
		FieldListLength,
	}
}

// LookupField finds a field by its filter abbreviation.
func LookupField(abbrev string) (FieldInfo, bool) {
	for _, f := range Fields() {
		if f.Abbrev == abbrev {
			return f, true
		}
	}
	return FieldInfo{}, false
}
