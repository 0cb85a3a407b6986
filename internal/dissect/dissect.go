package dissect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/polychat-monitor/internal/message"
	"github.com/polychat-monitor/internal/protocol"
)

// Source identifies the stream a PDU was read from.
type Source struct {
	Stream    string
	Direction message.Direction
}

// Dissector renders PDUs into records. It holds no per-stream state and is
// safe for concurrent use.
type Dissector struct {
	keepRaw bool
}

// Option configures a Dissector.
type Option func(*Dissector)

// WithRaw keeps a copy of the PDU bytes on every record.
func WithRaw() Option {
	return func(d *Dissector) { d.keepRaw = true }
}

func New(opts ...Option) *Dissector {
	d := &Dissector{}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dissect decodes one framed PDU. Decode failures are reported on the record,
// with whatever fields could be read before the failure.
func (d *Dissector) Dissect(src Source, seq uint64, offset int64, raw []byte) *message.Record {
	rec := message.New(src.Stream, src.Direction, seq)
	rec.Offset = offset
	rec.Length = len(raw)
	if d.keepRaw {
		rec.Raw = append([]byte(nil), raw...)
	}

	var info strings.Builder
	declared, ok := protocol.NeededLength(raw)
	if ok {
		addField(rec, FieldLength, strconv.FormatUint(uint64(declared), 10), 0, protocol.LengthFieldSize)
	}
	if len(raw) >= protocol.HeaderSize {
		t := protocol.MessageType(raw[2])
		rec.TypeCode = raw[2]
		rec.Type = t.String()
		addField(rec, FieldFlag, fmt.Sprintf("%s (%d)", t, raw[2]), 2, 1)
		fmt.Fprintf(&info, "%s Length=%d", t, declared)
	}

	p, err := protocol.Decode(raw)
	if p != nil {
		dissectPayload(rec, &info, p.Payload)
	}
	if err != nil {
		rec.Error = err.Error()
		rec.ErrorKind = protocol.KindOf(err).String()
		if info.Len() > 0 {
			info.WriteByte(' ')
		}
		info.WriteString(errorSummary(err))
	}
	rec.Info = info.String()
	return rec
}

func dissectPayload(rec *message.Record, info *strings.Builder, payload protocol.Payload) {
	switch pl := payload.(type) {
	case protocol.SingleHandle:
		addText(rec, FieldHandle, pl.Handle)
		fmt.Fprintf(info, " Handle=%s", pl.Handle.Value)
	case protocol.Addressed:
		addText(rec, FieldSender, pl.Sender)
		fmt.Fprintf(info, " Sender=%s", pl.Sender.Value)
		if pl.CountSpan.Length > 0 {
			addField(rec, FieldRecipientCount, strconv.Itoa(len(pl.Recipients)), pl.CountSpan.Offset, pl.CountSpan.Length)
		}
		for _, r := range pl.Recipients {
			addText(rec, FieldRecipient, r)
		}
		switch n := len(pl.Recipients); {
		case n == 1:
			fmt.Fprintf(info, " Recipient=%s", pl.Recipients[0].Value)
		case n > 1:
			fmt.Fprintf(info, " Recipients=%s...", pl.Recipients[0].Value)
		}
		addText(rec, FieldMessage, pl.Body)
	case protocol.Count:
		addField(rec, FieldListLength, strconv.FormatUint(uint64(pl.Count), 10), pl.Span.Offset, pl.Span.Length)
		fmt.Fprintf(info, " List_Length=%d", pl.Count)
	}
}

func addText(rec *message.Record, f FieldInfo, t protocol.Text) {
	addField(rec, f, t.Value, t.Span.Offset, t.Span.Length)
}

func addField(rec *message.Record, f FieldInfo, value string, offset, length int) {
	rec.Fields = append(rec.Fields, message.Field{
		Abbrev: f.Abbrev,
		Name:   f.Name,
		Value:  value,
		Offset: offset,
		Length: length,
	})
}

func errorSummary(err error) string {
	var de *protocol.DecodeError
	if !errors.As(err, &de) {
		return "[" + err.Error() + "]"
	}
	switch de.Kind {
	case protocol.KindTruncated:
		return fmt.Sprintf("[Truncated: %s]", de.Field)
	case protocol.KindMalformed:
		return fmt.Sprintf("[Malformed: declared %d, consumed %d]", de.Need, de.Have)
	default:
		return "[" + err.Error() + "]"
	}
}
