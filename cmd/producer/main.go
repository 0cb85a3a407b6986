package main

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/polychat-monitor/internal/common"
	"github.com/polychat-monitor/internal/dissect"
	"github.com/polychat-monitor/internal/message"
	"github.com/polychat-monitor/internal/producer"
	"github.com/polychat-monitor/internal/protocol"
)

func main() {
	logger := common.NewLogger(os.Stdout)

	targetAddr := common.GetEnv("TARGET_ADDR", "localhost:8000")
	scriptPath := common.GetEnv("SCRIPT_PATH", filepath.Join("scripts", "chat.csv"))
	chunkSize := common.GetEnvInt("CHUNK_SIZE", 0)
	delay := time.Duration(common.GetEnvInt("DELAY_MS", 0)) * time.Millisecond
	linger := time.Duration(common.GetEnvInt("LINGER_MS", 500)) * time.Millisecond

	conn, err := net.Dial("tcp", targetAddr)
	if err != nil {
		logger.Error("failed to connect to target", "addr", targetAddr, "error", err)
		os.Exit(1)
	}

	absScriptPath, err := filepath.Abs(scriptPath)
	if err != nil {
		logger.Error("failed to resolve script path", "error", err)
		os.Exit(1)
	}

	replies := make(chan struct{})
	go func() {
		defer close(replies)
		n, err := readReplies(conn, targetAddr, func(rec *message.Record) {
			logger.Info("reply", "seq", rec.Seq, "type", rec.Type, "info", rec.Info, "error_kind", rec.ErrorKind)
		})
		if err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Warn("reply stream ended badly", "error", err)
		}
		logger.Debug("replies read", "pdus", n)
	}()

	prod := producer.NewProducer(conn, logger,
		producer.WithChunkSize(chunkSize),
		producer.WithDelay(delay),
	)

	sent, err := prod.StreamScript(absScriptPath)
	if err != nil {
		logger.Error("failed to stream script", "error", err)
		_ = prod.Close()
		os.Exit(1)
	}

	// give the server a moment to answer the last request
	select {
	case <-replies:
	case <-time.After(linger):
	}

	if err := prod.Close(); err != nil {
		logger.Warn("error during shutdown", "error", err)
	}
	<-replies

	logger.Info("producer shutdown complete", "pdus_sent", sent)
}

// readReplies dissects each PDU the server sends back until r ends.
func readReplies(r io.Reader, addr string, emit func(*message.Record)) (uint64, error) {
	d := dissect.New()
	src := dissect.Source{Stream: addr, Direction: message.FromServer}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), protocol.MaxPDUSize)
	sc.Split(protocol.SplitPDU)

	var (
		seq    uint64
		offset int64
	)
	for sc.Scan() {
		raw := sc.Bytes()
		emit(d.Dissect(src, seq, offset, raw))
		seq++
		offset += int64(len(raw))
	}
	return seq, sc.Err()
}
