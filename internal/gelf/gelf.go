// Package gelf ships log lines to a Graylog input as GELF 1.1 over UDP.
package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Syslog severities used in GELF messages.
const (
	LevelError   = 3
	LevelWarning = 4
	LevelInfo    = 6
)

// Writer implements io.Writer so it can sit behind log.SetOutput.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New dials addr (e.g. "172.17.0.1:12201"). Messages carry service in the
// _service field.
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}
	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// Write sends one message per call. Send errors are dropped so logging never
// fails the caller.
func (w *Writer) Write(p []byte) (int, error) {
	short := stripLogPrefix(strings.TrimRight(string(p), "\n"))

	msg := map[string]any{
		"version":       "1.1",
		"host":          w.hostname,
		"short_message": short,
		"timestamp":     float64(time.Now().UnixNano()) / 1e9,
		"level":         Level(short),
		"_service":      w.service,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return len(p), nil
	}
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Close() error {
	return w.conn.Close()
}

// stripLogPrefix removes the "2006/01/02 15:04:05 " stamp of the standard
// logger.
func stripLogPrefix(msg string) string {
	if len(msg) > 20 && msg[4] == '/' && msg[7] == '/' && msg[10] == ' ' && msg[13] == ':' {
		return msg[20:]
	}
	return msg
}

// Level maps the log line conventions used across the service to a syslog
// severity.
func Level(msg string) int {
	switch {
	case strings.Contains(msg, "PANIC:"), strings.Contains(msg, "Fatal"), strings.HasPrefix(msg, "Error"):
		return LevelError
	case strings.HasPrefix(msg, "Warning:"):
		return LevelWarning
	}
	return LevelInfo
}
