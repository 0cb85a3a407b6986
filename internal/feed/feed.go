// Package feed carries dissected records from the monitor to subscribers as
// 4-byte big-endian length-prefixed JSON frames.
package feed

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/polychat-monitor/internal/message"
)

const maxFrameSize = 1024 * 1024 // 1MB

// RoleConsumer is the handshake line a subscriber sends after connecting.
const RoleConsumer = "CONSUMER"

var (
	ErrFrameTooLarge = errors.New("feed: frame too large")
	ErrBadRecord     = errors.New("feed: invalid record")
)

// WriteFrame writes len(body) as 4-byte BE then body to w.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > maxFrameSize {
		return ErrFrameTooLarge
	}
	var h [4]byte
	binary.BigEndian.PutUint32(h[:], uint32(len(body)))
	if _, err := w.Write(h[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadFrame reads one frame from r into buf and returns the body slice.
func ReadFrame(r io.Reader, buf []byte) ([]byte, error) {
	var h [4]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(h[:])
	if n > maxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if cap(buf) < int(n) {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
	}
	_, err := io.ReadFull(r, buf)
	return buf, err
}

// EncodeRecord marshals rec into a frame body.
func EncodeRecord(rec *message.Record) ([]byte, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return body, nil
}

// WriteRecord writes rec as one frame.
func WriteRecord(w io.Writer, rec *message.Record) error {
	body, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	return WriteFrame(w, body)
}

// ReadRecord reads one frame and unmarshals it. The returned slice is the
// frame body, to be passed back as buf on the next call.
func ReadRecord(r io.Reader, buf []byte) (message.Record, []byte, error) {
	body, err := ReadFrame(r, buf)
	if err != nil {
		return message.Record{}, buf, err
	}
	var rec message.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return message.Record{}, body, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	return rec, body, nil
}
