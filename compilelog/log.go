// Package compilelog collects the diagnostics of a compile pass.
package compilelog

import (
	"context"
	"fmt"
	"log/slog"
)

// Severity of a compile message.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s Severity) level() slog.Level {
	switch s {
	case Warning:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Message is one diagnostic entry.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
	// NodeID is the graph node the message refers to, if any.
	NodeID string `json:"node_id,omitempty"`
	Event  string `json:"event,omitempty"`
}

func (m Message) String() string {
	if m.NodeID == "" {
		return fmt.Sprintf("%s: %s", m.Severity, m.Text)
	}
	return fmt.Sprintf("%s: %s [%s]", m.Severity, m.Text, m.NodeID)
}

// Log is an ordered sequence of messages scoped to a named event. A Log is
// not safe for concurrent use.
type Log struct {
	logger     *slog.Logger
	event      string
	sourcePath string
	messages   []Message
	errors     int
	warnings   int
}

// New returns an empty log that mirrors every message to logger. A nil
// logger means slog.Default.
func New(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// BeginEvent starts a named event. Messages recorded until EndEvent carry it.
func (l *Log) BeginEvent(name string) {
	l.event = name
	l.logger.Debug("compile event started", "event", name)
}

// EndEvent closes the current event.
func (l *Log) EndEvent() {
	if l.event == "" {
		return
	}
	l.logger.Debug("compile event finished",
		"event", l.event, "errors", l.errors, "warnings", l.warnings)
	l.event = ""
}

// SetSourcePath records the asset path the messages refer to.
func (l *Log) SetSourcePath(path string) { l.sourcePath = path }

// SourcePath returns the path set by SetSourcePath.
func (l *Log) SourcePath() string { return l.sourcePath }

// Event returns the name of the open event.
func (l *Log) Event() string { return l.event }

func (l *Log) Note(msg string, nodeID ...string)    { l.add(Note, msg, nodeID) }
func (l *Log) Warning(msg string, nodeID ...string) { l.add(Warning, msg, nodeID) }
func (l *Log) Error(msg string, nodeID ...string)   { l.add(Error, msg, nodeID) }

func (l *Log) add(sev Severity, text string, nodeID []string) {
	m := Message{Severity: sev, Text: text, Event: l.event}
	if len(nodeID) > 0 {
		m.NodeID = nodeID[0]
	}
	l.messages = append(l.messages, m)
	switch sev {
	case Error:
		l.errors++
	case Warning:
		l.warnings++
	}

	attrs := []any{"event", l.event}
	if l.sourcePath != "" {
		attrs = append(attrs, "path", l.sourcePath)
	}
	if m.NodeID != "" {
		attrs = append(attrs, "node_id", m.NodeID)
	}
	l.logger.Log(context.Background(), sev.level(), text, attrs...)
}

// Messages returns a copy of the recorded messages in order.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Errors returns only the Error messages.
func (l *Log) Errors() []Message {
	var out []Message
	for _, m := range l.messages {
		if m.Severity == Error {
			out = append(out, m)
		}
	}
	return out
}

func (l *Log) NumErrors() int   { return l.errors }
func (l *Log) NumWarnings() int { return l.warnings }
func (l *Log) HasErrors() bool  { return l.errors > 0 }
