package gelf

import (
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestLevel(t *testing.T) {
	cases := map[string]int{
		"PANIC: runtime error":              LevelError,
		"Error sending email: status 400":   LevelError,
		"Warning: upload of validId failed": LevelWarning,
		"GET / 200 3ms":                     LevelInfo,
	}
	for msg, want := range cases {
		if got := Level(msg); got != want {
			t.Fatalf("Level(%q) = %d, want %d", msg, got, want)
		}
	}
}

func TestWriteSendsGELF(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	w, err := New(pc.LocalAddr().String(), "cablevision-form")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer w.Close()

	line := "2026/02/19 18:43:52 Warning: trimmed signature unavailable\n"
	if n, err := w.Write([]byte(line)); err != nil || n != len(line) {
		t.Fatalf("write = %d, %v", n, err)
	}

	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(buf[:n], &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg["short_message"] != "Warning: trimmed signature unavailable" {
		t.Fatalf("short_message = %q", msg["short_message"])
	}
	if msg["level"] != float64(LevelWarning) || msg["_service"] != "cablevision-form" || msg["version"] != "1.1" {
		t.Fatalf("unexpected message %v", msg)
	}
}
