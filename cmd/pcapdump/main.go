package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/spf13/pflag"

	"github.com/polychat-monitor/internal/capture"
	"github.com/polychat-monitor/internal/common"
	"github.com/polychat-monitor/internal/dissect"
)

func main() {
	ports := pflag.UintSliceP("port", "p", []uint{uint(capture.DefaultPort)}, "TCP ports carrying Polychat")
	asJSON := pflag.BoolP("json", "j", false, "Print one JSON record per line")
	asTree := pflag.BoolP("tree", "t", false, "Print the field tree of every PDU")
	noColor := pflag.Bool("no-color", false, "Disable colour output")
	keepRaw := pflag.Bool("raw", false, "Include PDU bytes in JSON output")
	errorsOnly := pflag.BoolP("errors", "e", false, "Only print PDUs that failed to decode")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <capture.pcap>...\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}
	if *noColor {
		color.Enable = false
	}

	// logs go to stderr so they do not mix with the dump
	logger := common.NewLogger(os.Stderr)

	var opts []dissect.Option
	if *keepRaw {
		opts = append(opts, dissect.WithRaw())
	}
	portList := make([]uint16, 0, len(*ports))
	for _, p := range *ports {
		if p == 0 || p > 0xFFFF {
			fmt.Fprintf(os.Stderr, "invalid port %d\n", p)
			os.Exit(2)
		}
		portList = append(portList, uint16(p))
	}
	reader, err := capture.NewReader(dissect.New(opts...), logger, portList...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}

	mode := modeLine
	switch {
	case *asJSON:
		mode = modeJSON
	case *asTree:
		mode = modeTree
	}
	p := newPrinter(os.Stdout, mode, *errorsOnly)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	for _, path := range pflag.Args() {
		res, err := reader.ReadFile(ctx, path, p.print)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, err)
			exitCode = 1
			continue
		}
		logger.Info("capture read",
			"file", path,
			"packets", res.Packets,
			"segments", res.Segments,
			"streams", res.Streams,
			"pdus", res.PDUs,
			"truncated", res.Truncated,
			"malformed", res.Malformed,
			"incomplete", res.Incomplete,
		)
		if res.Truncated+res.Malformed > 0 || res.Incomplete > 0 {
			exitCode = max(exitCode, 3)
		}
	}
	if err := p.err; err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}
