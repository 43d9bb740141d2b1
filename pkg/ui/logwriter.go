package ui

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

// LogWriter is an io.Writer for the JSON logger while the dashboard owns
// the terminal. Warnings and errors go to the activity feed; everything
// else is dropped.
type LogWriter struct {
	send func(any)
}

// NewLogWriter forwards to the running program.
func NewLogWriter() *LogWriter {
	return &LogWriter{send: func(m any) { Send(m) }}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(p))
	for sc.Scan() {
		var rec struct {
			Level string `json:"level"`
			Msg   string `json:"msg"`
			Error string `json:"error"`
		}
		if json.Unmarshal(sc.Bytes(), &rec) != nil {
			continue
		}
		level := strings.ToLower(rec.Level)
		if level != "warn" && level != "error" {
			continue
		}
		msg := rec.Msg
		if rec.Error != "" {
			msg += ": " + rec.Error
		}
		w.send(LogMsg{Level: level, Message: msg})
	}
	return len(p), nil
}
