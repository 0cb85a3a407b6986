package dissect

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/polychat-monitor/internal/message"
	"github.com/polychat-monitor/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSource = Source{Stream: "test", Direction: message.FromClient}

func mustEncode(t *testing.T, p *protocol.Pdu) []byte {
	t.Helper()
	raw, err := protocol.Encode(p)
	require.NoError(t, err)
	return raw
}

func fieldValues(rec *message.Record, abbrev string) []string {
	var out []string
	for _, f := range rec.Fields {
		if f.Abbrev == abbrev {
			out = append(out, f.Value)
		}
	}
	return out
}

func TestDissectInfoColumn(t *testing.T) {
	cases := []struct {
		pdu  *protocol.Pdu
		info string
	}{
		{protocol.Register("bob"), "Register Length=7 Handle=bob"},
		{protocol.Signal(protocol.TypeRegisterSuccess), "Register Success Length=3"},
		{protocol.Broadcast("bob", "hi"), "Broadcast Length=10 Sender=bob"},
		{protocol.Direct("bob", []string{"amy"}, "yo"), "Direct Length=15 Sender=bob Recipient=amy"},
		{protocol.Multicast("bob", []string{"amy", "cid"}, "yo"), "Multicast Length=19 Sender=bob Recipients=amy..."},
		{protocol.ListLen(5), "List Length Length=7 List_Length=5"},
		{&protocol.Pdu{Type: 0x2A}, "Unknown (0x2a) Length=3"},
	}
	d := New()
	for _, tc := range cases {
		rec := d.Dissect(testSource, 0, 0, mustEncode(t, tc.pdu))
		assert.Equal(t, tc.info, rec.Info)
		assert.Empty(t, rec.Error)
		assert.False(t, rec.Failed())
	}
}

func TestDissectDirectFields(t *testing.T) {
	raw := mustEncode(t, protocol.Direct("bob", []string{"amy", "cid"}, "yo"))
	rec := New(WithRaw()).Dissect(testSource, 4, 100, raw)

	assert.Equal(t, uint64(4), rec.Seq)
	assert.Equal(t, int64(100), rec.Offset)
	assert.Equal(t, len(raw), rec.Length)
	assert.Equal(t, raw, rec.Raw)
	assert.Equal(t, "Direct", rec.Type)
	assert.Equal(t, uint8(protocol.TypeDirect), rec.TypeCode)

	assert.Equal(t, []string{"19"}, fieldValues(rec, FieldLength.Abbrev))
	assert.Equal(t, []string{"Direct (5)"}, fieldValues(rec, FieldFlag.Abbrev))
	assert.Equal(t, []string{"bob"}, fieldValues(rec, FieldSender.Abbrev))
	assert.Equal(t, []string{"2"}, fieldValues(rec, FieldRecipientCount.Abbrev))
	assert.Equal(t, []string{"amy", "cid"}, fieldValues(rec, FieldRecipient.Abbrev))
	assert.Equal(t, []string{"yo"}, fieldValues(rec, FieldMessage.Abbrev))

	// Byte ranges point back into the PDU.
	for _, f := range rec.Fields {
		if f.Abbrev == FieldRecipient.Abbrev || f.Abbrev == FieldSender.Abbrev {
			assert.Equal(t, f.Value, string(raw[f.Offset:f.Offset+f.Length]))
		}
	}
}

func TestDissectBroadcastHasNoCountField(t *testing.T) {
	rec := New().Dissect(testSource, 0, 0, mustEncode(t, protocol.Broadcast("bob", "hi")))
	assert.Empty(t, fieldValues(rec, FieldRecipientCount.Abbrev))
	assert.Empty(t, fieldValues(rec, FieldRecipient.Abbrev))
}

func TestDissectTruncated(t *testing.T) {
	raw := []byte{0x00, 0x08, 0x05, 0xC8, 'b', 'o', 'b', 0x00}
	rec := New().Dissect(testSource, 0, 0, raw)

	assert.True(t, rec.Failed())
	assert.Equal(t, "truncated", rec.ErrorKind)
	assert.Equal(t, "Direct Length=8 [Truncated: sender]", rec.Info)
	assert.Equal(t, []string{"Direct (5)"}, fieldValues(rec, FieldFlag.Abbrev))
	assert.Empty(t, fieldValues(rec, FieldSender.Abbrev))
}

func TestDissectMalformedKeepsFields(t *testing.T) {
	raw := []byte{0x00, 0x0E, 0x04, 0x03, 'b', 'o', 'b', 'h', 'i', 0x00}
	rec := New().Dissect(testSource, 0, 0, raw)

	assert.Equal(t, "malformed", rec.ErrorKind)
	assert.Equal(t, "Broadcast Length=14 Sender=bob [Malformed: declared 14, consumed 10]", rec.Info)
	assert.Equal(t, []string{"hi"}, fieldValues(rec, FieldMessage.Abbrev))
}

func TestDissectShortPDU(t *testing.T) {
	rec := New().Dissect(testSource, 0, 0, []byte{0x00, 0x02})
	assert.Equal(t, "truncated", rec.ErrorKind)
	assert.Equal(t, "[Truncated: header]", rec.Info)
	assert.Equal(t, []string{"2"}, fieldValues(rec, FieldLength.Abbrev))
}

func TestRender(t *testing.T) {
	rec := New().Dissect(testSource, 0, 0, mustEncode(t, protocol.Register("bob")))
	want := "POLYCHAT Protocol, Register Length=7 Handle=bob\n" +
		"    Length: 7\n" +
		"    Flag: Register (1)\n" +
		"    Handle: bob\n"
	assert.Equal(t, want, Render(rec))

	bad := New().Dissect(testSource, 0, 0, []byte{0x00, 0x06, 0x0B, 0x00})
	assert.Contains(t, Render(bad), "[Expert Info: ")
}

func TestFieldRegistry(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Fields() {
		assert.True(t, strings.HasPrefix(f.Abbrev, ProtocolAbbr+"."), f.Abbrev)
		assert.False(t, seen[f.Abbrev], "duplicate %s", f.Abbrev)
		seen[f.Abbrev] = true
	}
	f, ok := LookupField("polychat.msg")
	require.True(t, ok)
	assert.Equal(t, KindStringz, f.Kind)
	_, ok = LookupField("polychat.nope")
	assert.False(t, ok)
}

func TestInspectStream(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(mustEncode(t, protocol.Register("bob")))
	stream.Write([]byte{0x00, 0x08, 0x05, 0xC8, 'b', 'o', 'b', 0x00})
	stream.Write(mustEncode(t, protocol.Direct("amy", []string{"bob"}, "ok")))
	stream.Write([]byte{0x00, 0x04, 0x02, 0xFF})

	var recs []*message.Record
	sum, err := New().Inspect(context.Background(), testSource, iotest.OneByteReader(&stream), func(r *message.Record) {
		recs = append(recs, r)
	})
	require.NoError(t, err)

	require.Len(t, recs, 4)
	assert.Equal(t, uint64(4), sum.PDUs)
	assert.Equal(t, uint64(1), sum.Truncated)
	assert.Equal(t, uint64(1), sum.Malformed)
	assert.Equal(t, int64(7+8+15+4), sum.Bytes)

	assert.Equal(t, "Direct Length=15 Sender=amy Recipient=bob", recs[2].Info)
	assert.Equal(t, int64(15), recs[2].Offset)
	for i, r := range recs {
		assert.Equal(t, uint64(i), r.Seq)
	}
}

func TestInspectStallDrainsReader(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(mustEncode(t, protocol.Register("bob")))
	stream.Write([]byte{0x00, 0x00, 0x01, 0x02, 0x03})

	var recs int
	r := bytes.NewReader(stream.Bytes())
	sum, err := New().Inspect(context.Background(), testSource, r, func(*message.Record) { recs++ })
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrBadLength))
	assert.Equal(t, 1, recs)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, int64(12), sum.Bytes)
}

func TestInspectStreamEndsMidPDU(t *testing.T) {
	raw := mustEncode(t, protocol.Broadcast("bob", "hello"))
	_, err := New().Inspect(context.Background(), testSource, bytes.NewReader(raw[:5]), func(*message.Record) {})
	assert.Error(t, err)
}

func TestInspectHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	raw := mustEncode(t, protocol.Register("bob"))
	_, err := New().Inspect(ctx, testSource, bytes.NewReader(raw), func(*message.Record) {
		t.Fatal("no record expected after cancel")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
