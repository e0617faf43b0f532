package renderpass

import (
	"fmt"
	"strings"
)

// Log collects validation messages. A nil *Log discards messages, so
// passes can call Addf unconditionally.
type Log struct {
	msgs []string
}

// Addf appends a formatted message.
func (l *Log) Addf(format string, args ...any) {
	if l == nil {
		return
	}
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

// Add appends a message.
func (l *Log) Add(msg string) {
	if l == nil {
		return
	}
	l.msgs = append(l.msgs, msg)
}

// Messages returns the collected messages in order.
func (l *Log) Messages() []string {
	if l == nil {
		return nil
	}
	return l.msgs
}

// Len returns the number of messages.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.msgs)
}

// Contains reports whether any message contains substr.
func (l *Log) Contains(substr string) bool {
	for _, m := range l.Messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// Reset drops all messages.
func (l *Log) Reset() {
	if l != nil {
		l.msgs = l.msgs[:0]
	}
}

// String joins the messages with newlines.
func (l *Log) String() string {
	return strings.Join(l.Messages(), "\n")
}
