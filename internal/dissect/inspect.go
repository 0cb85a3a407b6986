package dissect

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/polychat-monitor/internal/message"
	"github.com/polychat-monitor/internal/protocol"
)

// Summary counts what Inspect saw on one stream.
type Summary struct {
	PDUs      uint64
	Truncated uint64
	Malformed uint64
	Bytes     int64
}

// Inspect frames r into PDUs and emits one record per PDU until r is
// exhausted. A PDU that fails to decode is emitted and the stream carries on
// at the next boundary. If a length field is too small to advance the stream,
// the rest of r is drained so upstream tees keep flowing, and ErrBadLength is
// returned.
func (d *Dissector) Inspect(ctx context.Context, src Source, r io.Reader, emit func(*message.Record)) (Summary, error) {
	var (
		sum Summary
		buf []byte
	)
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		raw, err := protocol.ReadPDU(r, buf)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return sum, nil
		case errors.Is(err, protocol.ErrBadLength):
			at := sum.Bytes
			n, _ := io.Copy(io.Discard, r)
			sum.Bytes += n + protocol.LengthFieldSize
			return sum, fmt.Errorf("stream %s stalled at offset %d: %w", src.Stream, at, err)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return sum, fmt.Errorf("stream %s ended inside a pdu at offset %d: %w", src.Stream, sum.Bytes, err)
		default:
			return sum, err
		}
		buf = raw

		rec := d.Dissect(src, sum.PDUs, sum.Bytes, raw)
		switch rec.ErrorKind {
		case protocol.KindTruncated.String():
			sum.Truncated++
		case protocol.KindMalformed.String():
			sum.Malformed++
		}
		sum.PDUs++
		sum.Bytes += int64(len(raw))
		emit(rec)
	}
}
