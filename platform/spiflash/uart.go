package spiflash

import (
	"fmt"
	"io"

	"github.com/tarm/serial"
)

// UARTLogger frames log lines out a debug UART, the way
// mjolnir.Open dials a serial.Config for the engraver's command
// channel — here the channel carries human-readable progress lines
// instead of machine commands.
type UARTLogger struct {
	w io.Writer
}

// OpenUARTLogger opens dev at the given baud rate for log output.
func OpenUARTLogger(dev string, baud int) (*UARTLogger, error) {
	c := &serial.Config{Name: dev, Baud: baud}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("spiflash: opening log UART %s: %w", dev, err)
	}
	return &UARTLogger{w: s}, nil
}

// Logf writes one CRLF-terminated log line, matching the line discipline
// most debug-UART consoles expect.
func (l *UARTLogger) Logf(format string, args ...any) {
	fmt.Fprintf(l.w, format+"\r\n", args...)
}
