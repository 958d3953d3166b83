package parser

import (
	"fmt"
	"io"
	"strings"
)

const dumpRowSize = 16

// Dump renders data as rows of 16 hex bytes followed by their printable ASCII.
func Dump(data []byte) string {
	var sb strings.Builder
	_ = WriteDump(&sb, data)
	return sb.String()
}

// WriteDump writes the Dump rendering to w.
func WriteDump(w io.Writer, data []byte) error {
	for row := 0; row < len(data); row += dumpRowSize {
		var line strings.Builder
		fmt.Fprintf(&line, "%03X: ", row)
		for j := 0; j < dumpRowSize; j++ {
			if row+j < len(data) {
				fmt.Fprintf(&line, "%02X ", data[row+j])
			} else {
				line.WriteString("   ")
			}
		}
		line.WriteByte(' ')
		for j := 0; j < dumpRowSize && row+j < len(data); j++ {
			c := data[row+j]
			if c >= 32 && c < 127 {
				line.WriteByte(c)
			} else {
				line.WriteByte('.')
			}
		}
		line.WriteByte('\n')
		if _, err := io.WriteString(w, line.String()); err != nil {
			return err
		}
	}
	return nil
}
