package main

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/polychat-monitor/internal/common"
	"github.com/polychat-monitor/internal/monitor"
)

func main() {
	logger := common.NewLogger(os.Stdout)

	cfg := monitor.Config{
		Mode:         monitor.ParseDeliveryMode(common.GetEnv("DELIVERY_MODE", "broadcast")),
		QueueSize:    common.GetEnvInt("QUEUE_SIZE", 10000),
		UpstreamAddr: common.GetEnv("UPSTREAM_ADDR", ""),
		DialTimeout:  time.Duration(common.GetEnvInt("DIAL_TIMEOUT_SECONDS", 5)) * time.Second,
		KeepRaw:      common.GetEnvBool("KEEP_RAW", false),
	}
	polychatPort := common.GetEnv("POLYCHAT_PORT", "8000")
	feedPort := common.GetEnv("FEED_PORT", "9080")
	httpPort := common.GetEnv("HTTP_PORT", "8080")

	mon := monitor.NewMonitor(cfg, logger)

	chatLn, err := net.Listen("tcp", ":"+polychatPort)
	if err != nil {
		logger.Error("failed to listen", "addr", polychatPort, "error", err)
		os.Exit(1)
	}
	feedLn, err := net.Listen("tcp", ":"+feedPort)
	if err != nil {
		logger.Error("failed to listen", "addr", feedPort, "error", err)
		os.Exit(1)
	}
	logger.Info("monitor started",
		"polychat_addr", chatLn.Addr().String(),
		"feed_addr", feedLn.Addr().String(),
		"delivery_mode", cfg.Mode.String(),
		"upstream", cfg.UpstreamAddr,
	)
	srvHTTP := startHTTPServer(httpPort, mon, logger)

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go acceptLoop(chatLn, "polychat", mon.HandleConn, logger)
	go acceptLoop(feedLn, "feed", mon.HandleSubscriber, logger)

	<-stop
	logger.Info("shutting down")

	_ = chatLn.Close()
	_ = feedLn.Close()

	shutdownHTTPServer(srvHTTP, logger)

	_ = mon.Close()

	// wait briefly for ongoing handlers to finish
	time.Sleep(1 * time.Second)

	logger.Info("shutdown complete", "stats", mon.Stats())
}

func acceptLoop(ln net.Listener, name string, handle func(net.Conn), logger *slog.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error("failed to accept connection", "listener", name, "error", err)
			continue
		}
		logger.Debug("accepted connection", "listener", name, "remote_addr", conn.RemoteAddr().String())
		go handle(conn)
	}
}
