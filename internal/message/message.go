package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Direction tells which side of a connection sent a PDU.
type Direction string

const (
	FromClient Direction = "client"
	FromServer Direction = "server"
)

// Field is one rendered protocol field and the bytes it came from.
type Field struct {
	Abbrev string `json:"abbrev" bson:"abbrev"`
	Name   string `json:"name" bson:"name"`
	Value  string `json:"value" bson:"value"`
	Offset int    `json:"offset" bson:"offset"`
	Length int    `json:"length" bson:"length"`
}

// Record is one dissected PDU as handed to subscribers, storage and printers.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	Stream    string    `json:"stream" bson:"stream"`
	Direction Direction `json:"direction,omitempty" bson:"direction,omitempty"`
	Seq       uint64    `json:"seq" bson:"seq"`
	// Offset is the position of the PDU's first byte within its stream.
	Offset    int64     `json:"offset" bson:"offset"`
	Length    int       `json:"length" bson:"length"`
	TypeCode  uint8     `json:"type_code" bson:"type_code"`
	Type      string    `json:"type" bson:"type"`
	Info      string    `json:"info" bson:"info"`
	Fields    []Field   `json:"fields,omitempty" bson:"fields,omitempty"`
	Error     string    `json:"error,omitempty" bson:"error,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	Raw       []byte    `json:"raw,omitempty" bson:"raw,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// New creates a record with a generated ID and the current time.
func New(stream string, dir Direction, seq uint64) *Record {
	return &Record{
		ID:        uuid.New().String(),
		Stream:    stream,
		Direction: dir,
		Seq:       seq,
		Timestamp: time.Now().UTC(),
	}
}

// Failed reports whether the PDU could not be decoded cleanly.
func (r Record) Failed() bool {
	return r.ErrorKind != ""
}

// MarshalJSON implements json.Marshaler so Timestamp is RFC3339.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{
		alias:     alias(r),
		Timestamp: r.Timestamp.Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON implements json.Unmarshaler for RFC3339 timestamp.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	aux := struct {
		*alias
		Timestamp string `json:"timestamp"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Timestamp != "" {
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, aux.Timestamp)
	}
	return nil
}
