package dissect

import (
	"fmt"
	"strings"

	"github.com/polychat-monitor/internal/message"
)

// Render formats a record as an indented detail tree:
//
//	POLYCHAT Protocol, Register Length=7 Handle=bob
//	    Length: 7
//	    Flag: Register (1)
//	    Handle: bob
func Render(rec *message.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\n", ProtocolName, rec.Info)
	for _, f := range rec.Fields {
		fmt.Fprintf(&b, "    %s: %s\n", f.Name, f.Value)
	}
	if rec.Error != "" {
		fmt.Fprintf(&b, "    [Expert Info: %s]\n", rec.Error)
	}
	return b.String()
}
