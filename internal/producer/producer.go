package producer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/polychat-monitor/internal/protocol"
)

// Producer replays chat scripts against a Polychat endpoint
type Producer struct {
	conn        net.Conn
	logger      *slog.Logger
	transformer RowTransformer
	chunkSize   int
	delay       time.Duration
}

// Option configures a Producer.
type Option func(*Producer)

// WithChunkSize splits every write into pieces of at most n bytes. Zero or
// negative writes each PDU whole.
func WithChunkSize(n int) Option {
	return func(p *Producer) { p.chunkSize = n }
}

// WithDelay pauses between chunks and between PDUs.
func WithDelay(d time.Duration) Option {
	return func(p *Producer) { p.delay = d }
}

// NewProducer creates a new Producer instance
func NewProducer(conn net.Conn, logger *slog.Logger, opts ...Option) *Producer {
	p := &Producer{
		conn:        conn,
		logger:      logger,
		transformer: NewScriptTransformer(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Send encodes and writes one PDU
func (p *Producer) Send(pdu *protocol.Pdu) error {
	data, err := protocol.Encode(pdu)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", pdu.Type, err)
	}
	return p.WriteBytes(data)
}

// WriteBytes writes data to the connection, chunked if configured
func (p *Producer) WriteBytes(data []byte) error {
	if p.chunkSize <= 0 {
		if _, err := p.conn.Write(data); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		p.pause()
		return nil
	}

	for len(data) > 0 {
		n := min(p.chunkSize, len(data))
		if _, err := p.conn.Write(data[:n]); err != nil {
			return fmt.Errorf("failed to write chunk: %w", err)
		}
		data = data[n:]
		p.pause()
	}
	return nil
}

func (p *Producer) pause() {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
}

// StreamScript reads a CSV chat script and sends one PDU per row. Rows that
// cannot be built are logged and skipped; a write failure stops the script.
func (p *Producer) StreamScript(csvPath string) (int, error) {
	csvReader, err := NewScriptCSVReader(csvPath, p.logger)
	if err != nil {
		return 0, fmt.Errorf("failed to create CSV reader: %w", err)
	}
	defer csvReader.Close()

	return p.stream(csvReader)
}

func (p *Producer) stream(csvReader CSVReader) (int, error) {
	sent := 0
	for csvReader.HasNextRow() {
		row, err := csvReader.GetNextRow()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return sent, fmt.Errorf("failed to read row: %w", err)
		}

		step, err := p.transformer.TransformRow(row)
		if err != nil {
			p.logger.Warn("skipping row", "row", csvReader.RowCount(), "error", err)
			continue
		}

		if err := p.WriteBytes(step.Data); err != nil {
			return sent, fmt.Errorf("row %d: %w", csvReader.RowCount(), err)
		}
		p.logger.Debug("sent pdu", "row", csvReader.RowCount(), "type", step.Type.String(), "bytes", len(step.Data))
		sent++
	}

	p.logger.Info("script streamed", "pdus", sent, "rows", csvReader.RowCount())
	return sent, nil
}

// Close gracefully closes the connection
func (p *Producer) Close() error {
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && err != io.EOF {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
