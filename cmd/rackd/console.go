package main

import (
	"bytes"
	"io"
	"sync/atomic"
)

// consoleWriter writes to w, turning LF into CRLF while raw is set so log
// lines stay aligned in a raw-mode terminal.
type consoleWriter struct {
	w   io.Writer
	raw atomic.Bool
}

func (c *consoleWriter) Write(p []byte) (int, error) {
	if !c.raw.Load() {
		return c.w.Write(p)
	}
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
