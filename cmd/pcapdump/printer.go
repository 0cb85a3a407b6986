package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/gookit/color"

	"github.com/polychat-monitor/internal/dissect"
	"github.com/polychat-monitor/internal/message"
)

type outputMode int

const (
	modeLine outputMode = iota
	modeJSON
	modeTree
)

var streamColors = []string{
	"#e21400", "#91580f", "#f8a700", "#f78b00",
	"#58dc00", "#287b00", "#a8f07a", "#4ae8c4",
	"#3b88eb", "#3824aa", "#a700ff", "#d300e7",
}

func streamColor(stream string) color.RGBColor {
	hash := 7
	for _, r := range stream {
		hash = int(r) + (hash << 5) - hash
	}
	index := int(math.Abs(float64(hash % len(streamColors))))
	return color.Hex(streamColors[index])
}

// printer writes records to w. The first write error is kept and later
// records are dropped.
type printer struct {
	w          io.Writer
	mode       outputMode
	errorsOnly bool
	enc        *json.Encoder
	err        error
}

func newPrinter(w io.Writer, mode outputMode, errorsOnly bool) *printer {
	return &printer{w: w, mode: mode, errorsOnly: errorsOnly, enc: json.NewEncoder(w)}
}

func (p *printer) print(rec *message.Record) {
	if p.err != nil || (p.errorsOnly && !rec.Failed()) {
		return
	}
	switch p.mode {
	case modeJSON:
		p.err = p.enc.Encode(rec)
	case modeTree:
		_, p.err = fmt.Fprintf(p.w, "%s %s\n%s\n", streamColor(rec.Stream).Sprint(rec.Stream), arrow(rec.Direction), dissect.Render(rec))
	default:
		_, p.err = fmt.Fprintln(p.w, formatLine(rec))
	}
}

func formatLine(rec *message.Record) string {
	info := rec.Info
	if rec.Failed() {
		info = color.Red.Sprint(info)
	}
	return fmt.Sprintf("%s %s #%-3d %6d  %s",
		streamColor(rec.Stream).Sprint(rec.Stream),
		arrow(rec.Direction),
		rec.Seq,
		rec.Offset,
		info,
	)
}

func arrow(dir message.Direction) string {
	switch dir {
	case message.FromClient:
		return color.Cyan.Sprint("C>S")
	case message.FromServer:
		return color.Yellow.Sprint("S>C")
	default:
		return "   "
	}
}
