package protocol

import "fmt"

const (
	// LengthFieldSize is the number of bytes the framer needs before it can
	// report a PDU length.
	LengthFieldSize = 2
	// HeaderSize is the fixed header: 2-byte total length + 1-byte type.
	HeaderSize = 3
	// MaxPDUSize is the largest length a 16-bit length field can declare.
	MaxPDUSize = 0xFFFF
	// MaxStringLen is the largest length-prefixed string.
	MaxStringLen = 0xFF
	// MaxRecipients is the largest recipient count.
	MaxRecipients = 0xFF
)

// MessageType is the 1-byte tag at offset 2 of every PDU.
type MessageType uint8

const (
	TypeNone            MessageType = 0
	TypeRegister        MessageType = 1
	TypeRegisterSuccess MessageType = 2
	TypeRegisterFail    MessageType = 3
	TypeBroadcast       MessageType = 4
	TypeDirect          MessageType = 5
	TypeMulticast       MessageType = 6
	TypeBadHandle       MessageType = 7
	TypeListHandles     MessageType = 10
	TypeListLen         MessageType = 11
	TypeHandle          MessageType = 12
	TypeHandlesListDone MessageType = 13
)

var typeNames = map[MessageType]string{
	TypeNone:            "None",
	TypeRegister:        "Register",
	TypeRegisterSuccess: "Register Success",
	TypeRegisterFail:    "Register Failure",
	TypeBroadcast:       "Broadcast",
	TypeDirect:          "Direct",
	TypeMulticast:       "Multicast",
	TypeBadHandle:       "Unknown Handle",
	TypeListHandles:     "List",
	TypeListLen:         "List Length",
	TypeHandle:          "Handle",
	TypeHandlesListDone: "List Complete",
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%02x)", uint8(t))
}

// Known reports whether t has a defined payload layout. TypeNone has a display
// name but no layout, so it decodes as Unknown.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok && t != TypeNone
}

// ParseMessageType resolves a display name (case-sensitive, as returned by
// String) back to its tag.
func ParseMessageType(name string) (MessageType, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Span is a byte range inside one PDU.
type Span struct {
	Offset int
	Length int
}

// End returns the offset just past the span.
func (s Span) End() int { return s.Offset + s.Length }

// Text is a decoded string and where it sat on the wire. For length-prefixed
// strings the span covers the content only; for the trailing message it
// includes the terminator.
type Text struct {
	Value string
	Span  Span
}

// Payload is one of SingleHandle, Empty, Addressed, Count or Unknown.
type Payload interface {
	isPayload()
}

// SingleHandle carries Register and Handle.
type SingleHandle struct {
	Handle Text
}

// Empty carries header-only types (RegisterSuccess, RegisterFail, BadHandle,
// ListHandles, HandlesListDone).
type Empty struct{}

// Addressed carries Broadcast, Direct and Multicast. Broadcast has no count
// byte on the wire, so CountSpan is zero-length and Recipients is empty.
type Addressed struct {
	Sender     Text
	CountSpan  Span
	Recipients []Text
	Body       Text
}

// Count carries ListLen.
type Count struct {
	Count uint32
	Span  Span
}

// Unknown is any tag without a payload layout. The payload is not read.
type Unknown struct {
	Tag uint8
}

func (SingleHandle) isPayload() {}
func (Empty) isPayload()        {}
func (Addressed) isPayload()    {}
func (Count) isPayload()        {}
func (Unknown) isPayload()      {}

// Pdu is one decoded message.
type Pdu struct {
	// DeclaredLength is the header's total length, including the 2 length bytes.
	DeclaredLength uint16
	Type           MessageType
	Payload        Payload
	// Consumed is the decoder's final cursor.
	Consumed int
}
