// Package monitor taps Polychat connections, dissects every PDU in both
// directions and publishes the resulting records to feed subscribers.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polychat-monitor/internal/dissect"
	"github.com/polychat-monitor/internal/feed"
	"github.com/polychat-monitor/internal/message"
	"github.com/polychat-monitor/internal/protocol"
)

const subscriberBufferSize = 64

// Config holds monitor settings.
type Config struct {
	Mode         DeliveryMode
	QueueSize    int
	UpstreamAddr string // empty: terminate client streams instead of proxying
	DialTimeout  time.Duration
	KeepRaw      bool

	// Queue and Registry replace the in-memory defaults when set. Queue is
	// only used in queue mode.
	Queue    RecordQueue
	Registry ConsumerRegistry
}

// Monitor accepts Polychat streams and feed subscribers.
type Monitor struct {
	mode      DeliveryMode
	logger    Logger
	dissector *dissect.Dissector
	registry  ConsumerRegistry
	queue     RecordQueue
	upstream  string
	dialer    net.Dialer
	stats     *Stats
	streams   atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMonitor returns a Monitor configured by cfg.
func NewMonitor(cfg Config, logger Logger) *Monitor {
	var opts []dissect.Option
	if cfg.KeepRaw {
		opts = append(opts, dissect.WithRaw())
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		mode:      cfg.Mode,
		logger:    logger,
		dissector: dissect.New(opts...),
		registry:  cfg.Registry,
		upstream:  cfg.UpstreamAddr,
		dialer:    net.Dialer{Timeout: timeout},
		stats:     newStats(),
		ctx:       ctx,
		cancel:    cancel,
	}
	if m.registry == nil {
		m.registry = NewBroadcastRegistry(logger)
	}
	if cfg.Mode == Queue {
		m.queue = cfg.Queue
		if m.queue == nil {
			m.queue = NewMemoryRecordQueue(cfg.QueueSize, logger)
		}
	}
	return m
}

// HandleConn handles one Polychat connection. With an upstream configured the
// connection is proxied and both directions are dissected; otherwise only the
// client direction is read.
func (m *Monitor) HandleConn(conn net.Conn) {
	defer conn.Close()

	stream := m.streamID(conn)
	m.stats.streamOpened()
	defer m.stats.streamClosed()

	if m.upstream == "" {
		m.inspect(stream, message.FromClient, conn)
		return
	}

	up, err := m.dialer.DialContext(m.ctx, "tcp", m.upstream)
	if err != nil {
		m.logger.Error("failed to dial upstream", "stream", stream, "upstream", m.upstream, "error", err)
		return
	}
	defer up.Close()

	var wg sync.WaitGroup
	wg.Go(func() {
		m.inspect(stream, message.FromServer, io.TeeReader(up, conn))
		closeWrite(conn)
	})
	m.inspect(stream, message.FromClient, io.TeeReader(conn, up))
	closeWrite(up)
	wg.Wait()
}

func (m *Monitor) inspect(stream string, dir message.Direction, r io.Reader) {
	src := dissect.Source{Stream: stream, Direction: dir}
	sum, err := m.dissector.Inspect(m.ctx, src, r, m.Publish)
	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrBadLength):
		m.stats.streamStalled()
		m.logger.Warn("stream stalled", "stream", stream, "direction", dir, "error", err)
	case errors.Is(err, net.ErrClosed), errors.Is(err, context.Canceled):
	default:
		m.logger.Warn("stream read failed", "stream", stream, "direction", dir, "error", err)
	}
	m.logger.Info("stream finished",
		"stream", stream,
		"direction", dir,
		"pdus", sum.PDUs,
		"truncated", sum.Truncated,
		"malformed", sum.Malformed,
		"bytes", sum.Bytes,
	)
}

// Publish counts rec and hands it to subscribers. Live subscribers always see
// every record; in queue mode feed subscribers compete for it.
func (m *Monitor) Publish(rec *message.Record) {
	m.stats.record(rec)
	if rec.Failed() {
		m.logger.Warn("pdu decode failed", "stream", rec.Stream, "seq", rec.Seq, "info", rec.Info, "error", rec.Error)
	} else {
		m.logger.Debug("pdu", "stream", rec.Stream, "seq", rec.Seq, "info", rec.Info)
	}

	body, err := feed.EncodeRecord(rec)
	if err != nil {
		m.logger.Error("failed to encode record", "stream", rec.Stream, "error", err)
		return
	}

	frame := Frame(body)
	if missed := m.registry.Broadcast(frame); missed > 0 {
		m.stats.subscribersLagged(missed)
	}
	if m.mode == Queue {
		if err := m.queue.Enqueue(frame); err != nil {
			m.stats.recordDropped()
		}
	}
}

// HandleSubscriber serves one feed connection. The first line must be CONSUMER.
func (m *Monitor) HandleSubscriber(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)

	line, err := br.ReadString('\n')
	if err != nil {
		m.logger.Error("failed to read role", "error", err)
		return
	}
	role := trimLine(line)
	if role != feed.RoleConsumer {
		m.logger.Warn("unknown role", "role", role)
		return
	}

	switch m.mode {
	case Broadcast:
		m.serveBroadcast(conn, br)
	case Queue:
		m.serveQueue(conn, br)
	}
}

func trimLine(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\r' || s[len(s)-1] == '\n') {
		s = s[:len(s)-1]
	}
	return s
}

// serveBroadcast gives the subscriber its own channel carrying every record.
func (m *Monitor) serveBroadcast(conn net.Conn, br *bufio.Reader) {
	id, ch := m.Subscribe(subscriberBufferSize)
	defer m.Unsubscribe(id)

	// the subscriber never sends after the handshake; a read returning means it left
	go func() {
		_, _ = io.Copy(io.Discard, br)
		m.Unsubscribe(id)
	}()

	for frame := range ch {
		if err := feed.WriteFrame(conn, frame); err != nil {
			m.logger.Error("failed to write to subscriber", "subscriber_id", id, "error", err)
			return
		}
	}
}

// serveQueue delivers each queued record to whichever subscriber takes it first.
func (m *Monitor) serveQueue(conn net.Conn, br *bufio.Reader) {
	ctx, cancel := context.WithCancel(m.ctx)
	defer cancel()
	go func() {
		_, _ = io.Copy(io.Discard, br)
		cancel()
	}()

	for {
		frame, err := m.queue.Next(ctx)
		if err != nil {
			return
		}
		if err := feed.WriteFrame(conn, frame); err != nil {
			m.logger.Error("failed to write to subscriber", "error", err)
			// hand the frame to the next subscriber
			if err := m.queue.Enqueue(frame); err != nil {
				m.logger.Warn("failed to requeue record", "error", err)
				m.stats.recordDropped()
			}
			return
		}
	}
}

// Subscribe registers a live subscriber receiving every published record.
func (m *Monitor) Subscribe(buffer int) (string, <-chan Frame) {
	return m.registry.Register(buffer)
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Monitor) Unsubscribe(id string) {
	m.registry.Unregister(id)
}

// Stats returns a snapshot of the monitor counters.
func (m *Monitor) Stats() StatsSnapshot {
	s := m.stats.snapshot()
	s.DeliveryMode = m.mode.String()
	s.Subscribers = m.registry.Count()
	if m.queue != nil {
		s.QueueDepth = m.queue.Len()
		s.QueueFull = m.queue.IsFull()
	}
	return s
}

// Close stops dissection and disconnects all subscribers.
func (m *Monitor) Close() error {
	m.cancel()
	_ = m.registry.Close()
	if m.queue != nil {
		_ = m.queue.Close()
	}
	return nil
}

func (m *Monitor) streamID(conn net.Conn) string {
	n := m.streams.Add(1)
	return fmt.Sprintf("%s->%s#%d", addrString(conn.RemoteAddr()), addrString(conn.LocalAddr()), n)
}

func addrString(a net.Addr) string {
	if a == nil {
		return "unknown"
	}
	return a.String()
}

func closeWrite(c io.Closer) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
		return
	}
	_ = c.Close()
}
