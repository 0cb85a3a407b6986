package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/polychat-monitor/internal/common"
	"github.com/polychat-monitor/internal/feed"
	"github.com/polychat-monitor/internal/storage"
)

func main() {
	logger := common.NewLogger(os.Stdout)
	addr := common.GetEnv("FEED_ADDR", "localhost:9080")

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		logger.Error("failed to connect to feed", "addr", addr, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Identify as consumer
	if _, err := conn.Write([]byte(feed.RoleConsumer + "\n")); err != nil {
		logger.Error("failed to send role", "error", err)
		os.Exit(1)
	}
	logger.Info("connected as consumer", "addr", addr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoStore, err := storage.NewMongoStore(ctx,
		common.GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		common.GetEnv("MONGODB_DATABASE", "polychat"),
		common.GetEnv("MONGO_COLLECTION", "records"),
	)
	cancel()
	if err != nil {
		logger.Error("failed to initialize MongoDB store", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoStore.Close(ctx); err != nil {
			logger.Warn("failed to close MongoDB", "error", err)
		}
	}()

	// closing the connection unblocks the read loop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		_ = conn.Close()
	}()

	var (
		buf    []byte
		stored int
	)
	for {
		rec, body, err := feed.ReadRecord(conn, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Info("feed closed", "stored", stored)
				return
			}
			if errors.Is(err, feed.ErrBadRecord) {
				logger.Warn("skipping invalid record", "error", err)
				buf = body
				continue
			}
			logger.Error("feed read failed", "error", err)
			return
		}
		buf = body

		logger.Info("record",
			"stream", rec.Stream,
			"direction", string(rec.Direction),
			"seq", rec.Seq,
			"type", rec.Type,
			"info", rec.Info,
			"error_kind", rec.ErrorKind,
		)

		// Continue processing even if the store fails
		if err := mongoStore.StoreRecord(context.Background(), &rec); err != nil {
			logger.Error("failed to store record", "id", rec.ID, "error", err)
			continue
		}
		stored++
	}
}
