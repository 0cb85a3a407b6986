// Package capture replays Polychat traffic from pcap files through the
// dissector. TCP flows on the configured ports are reassembled and each
// direction is inspected as its own stream.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/gopacket/tcpassembly"
	"github.com/google/gopacket/tcpassembly/tcpreader"

	"github.com/polychat-monitor/internal/dissect"
	"github.com/polychat-monitor/internal/message"
)

// DefaultPort is the registered Polychat port.
const DefaultPort uint16 = 8000

var ErrNoPorts = errors.New("capture: no ports configured")

// Result summarises one capture.
type Result struct {
	Packets   int
	Segments  int
	Streams   int
	PDUs      uint64
	Truncated uint64
	Malformed uint64
	// Incomplete counts streams that stalled or ended inside a PDU.
	Incomplete int
}

// Reader dissects Polychat streams found in a capture.
type Reader struct {
	dissector *dissect.Dissector
	ports     map[uint16]bool
	logger    *slog.Logger
}

// NewReader creates a reader matching TCP segments whose source or
// destination port is one of ports.
func NewReader(d *dissect.Dissector, logger *slog.Logger, ports ...uint16) (*Reader, error) {
	if len(ports) == 0 {
		return nil, ErrNoPorts
	}
	r := &Reader{dissector: d, ports: make(map[uint16]bool, len(ports)), logger: logger}
	for _, p := range ports {
		r.ports[p] = true
	}
	return r, nil
}

// ReadFile opens a pcap file and calls Read on it.
func (r *Reader) ReadFile(ctx context.Context, path string, emit func(*message.Record)) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	return r.Read(ctx, f, emit)
}

// Read decodes every packet in src. emit is called from one goroutine at a
// time; records of one stream arrive in stream order, records of different
// streams interleave.
func (r *Reader) Read(ctx context.Context, src io.Reader, emit func(*message.Record)) (Result, error) {
	pr, err := pcapgo.NewReader(src)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read pcap header: %w", err)
	}

	factory := &streamFactory{reader: r, ctx: ctx, emit: emit}
	assembler := tcpassembly.NewAssembler(tcpassembly.NewStreamPool(factory))

	source := gopacket.NewPacketSource(pr, pr.LinkType())
	source.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	var res Result
	var readErr error
	for {
		if err := ctx.Err(); err != nil {
			readErr = err
			break
		}
		packet, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.logger.Warn("skipping unreadable packet", "packet", res.Packets+1, "error", err)
			res.Packets++
			continue
		}
		res.Packets++

		network := packet.NetworkLayer()
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if network == nil || tcpLayer == nil {
			continue
		}
		tcp := tcpLayer.(*layers.TCP)
		if !r.ports[uint16(tcp.SrcPort)] && !r.ports[uint16(tcp.DstPort)] {
			continue
		}
		res.Segments++
		assembler.AssembleWithTimestamp(network.NetworkFlow(), tcp, packet.Metadata().Timestamp)
	}

	assembler.FlushAll()
	factory.wg.Wait()

	factory.mu.Lock()
	defer factory.mu.Unlock()
	res.Streams = factory.streams
	res.PDUs = factory.sum.PDUs
	res.Truncated = factory.sum.Truncated
	res.Malformed = factory.sum.Malformed
	res.Incomplete = factory.incomplete
	return res, readErr
}

// direction treats the side listening on a configured port as the server.
func (r *Reader) direction(tcpFlow gopacket.Flow) message.Direction {
	dst := tcpFlow.Dst().Raw()
	if len(dst) == 2 && r.ports[uint16(dst[0])<<8|uint16(dst[1])] {
		return message.FromClient
	}
	return message.FromServer
}

type streamFactory struct {
	reader *Reader
	ctx    context.Context
	emit   func(*message.Record)
	wg     sync.WaitGroup

	mu         sync.Mutex
	streams    int
	incomplete int
	sum        dissect.Summary
}

func (f *streamFactory) New(netFlow, tcpFlow gopacket.Flow) tcpassembly.Stream {
	s := tcpreader.NewReaderStream()
	src := dissect.Source{
		Stream:    fmt.Sprintf("%s:%s->%s:%s", netFlow.Src(), tcpFlow.Src(), netFlow.Dst(), tcpFlow.Dst()),
		Direction: f.reader.direction(tcpFlow),
	}

	f.mu.Lock()
	f.streams++
	f.mu.Unlock()

	f.wg.Go(func() { f.inspect(src, &s) })
	return &s
}

func (f *streamFactory) inspect(src dissect.Source, s *tcpreader.ReaderStream) {
	logger := f.reader.logger.With("stream", src.Stream, "direction", string(src.Direction))

	sum, err := f.reader.dissector.Inspect(f.ctx, src, s, func(rec *message.Record) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.emit(rec)
	})
	// the assembler blocks until every byte handed to a stream is read
	io.Copy(io.Discard, s)

	f.mu.Lock()
	f.sum.PDUs += sum.PDUs
	f.sum.Truncated += sum.Truncated
	f.sum.Malformed += sum.Malformed
	if err != nil && !errors.Is(err, context.Canceled) {
		f.incomplete++
	}
	f.mu.Unlock()

	if err != nil {
		logger.Warn("stream ended abnormally", "pdus", sum.PDUs, "bytes", sum.Bytes, "error", err)
		return
	}
	logger.Debug("stream complete", "pdus", sum.PDUs, "bytes", sum.Bytes)
}
