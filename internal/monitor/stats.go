package monitor

import (
	"sync"
	"time"

	"github.com/polychat-monitor/internal/message"
)

// Stats counts traffic seen by the monitor.
type Stats struct {
	mu            sync.Mutex
	started       time.Time
	activeStreams int64
	totalStreams  int64
	pdus          uint64
	truncated     uint64
	malformed     uint64
	stalled       uint64
	dropped       uint64
	lagged        uint64
	byType        map[string]uint64
}

// StatsSnapshot is the JSON shape served on /stats.
type StatsSnapshot struct {
	Uptime        string            `json:"uptime"`
	DeliveryMode  string            `json:"delivery_mode"`
	ActiveStreams int64             `json:"active_streams"`
	TotalStreams  int64             `json:"total_streams"`
	PDUs          uint64            `json:"pdus"`
	Truncated     uint64            `json:"truncated"`
	Malformed     uint64            `json:"malformed"`
	Stalled       uint64            `json:"stalled"`
	Dropped       uint64            `json:"dropped"`
	Lagged        uint64            `json:"lagged"`
	ByType        map[string]uint64 `json:"by_type"`
	Subscribers   int               `json:"subscribers"`
	QueueDepth    int               `json:"queue_depth"`
	QueueFull     bool              `json:"queue_full"`
}

func newStats() *Stats {
	return &Stats{started: time.Now(), byType: make(map[string]uint64)}
}

func (s *Stats) streamOpened() {
	s.mu.Lock()
	s.activeStreams++
	s.totalStreams++
	s.mu.Unlock()
}

func (s *Stats) streamClosed() {
	s.mu.Lock()
	s.activeStreams--
	s.mu.Unlock()
}

func (s *Stats) record(rec *message.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pdus++
	if rec.Type != "" {
		s.byType[rec.Type]++
	}
	switch rec.ErrorKind {
	case "truncated":
		s.truncated++
	case "malformed":
		s.malformed++
	}
}

func (s *Stats) streamStalled() {
	s.mu.Lock()
	s.stalled++
	s.mu.Unlock()
}

func (s *Stats) recordDropped() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// subscribersLagged counts records that live subscribers missed because
// their buffers were full.
func (s *Stats) subscribersLagged(n int) {
	s.mu.Lock()
	s.lagged += uint64(n)
	s.mu.Unlock()
}

func (s *Stats) snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	byType := make(map[string]uint64, len(s.byType))
	for k, v := range s.byType {
		byType[k] = v
	}
	return StatsSnapshot{
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		ActiveStreams: s.activeStreams,
		TotalStreams:  s.totalStreams,
		PDUs:          s.pdus,
		Truncated:     s.truncated,
		Malformed:     s.malformed,
		Stalled:       s.stalled,
		Dropped:       s.dropped,
		Lagged:        s.lagged,
		ByType:        byType,
	}
}
