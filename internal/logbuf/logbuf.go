// Package logbuf keeps a bounded ring of recent log lines so the web API
// can show diagnostics without a serial cable attached.
package logbuf

import (
	"strings"
	"sync"
)

// DefaultSize is the number of lines retained.
const DefaultSize = 100

// Buffer is a fixed-size ring of log lines. It implements io.Writer and is
// meant to be installed alongside stderr via io.MultiWriter and
// log.SetOutput.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	total int
}

// New creates a buffer retaining up to size lines.
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{lines: make([]string, size)}
}

// Write stores one log line. The standard logger writes each entry in a
// single call with a trailing newline; anything multi-line is stored as
// separate entries.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		b.lines[b.next] = line
		b.next = (b.next + 1) % len(b.lines)
		b.total++
	}
	return len(p), nil
}

// Contents returns the retained lines, oldest first, newline separated.
func (b *Buffer) Contents() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := b.total
	if count > len(b.lines) {
		count = len(b.lines)
	}
	start := 0
	if b.total >= len(b.lines) {
		start = b.next
	}

	var sb strings.Builder
	for i := 0; i < count; i++ {
		sb.WriteString(b.lines[(start+i)%len(b.lines)])
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Total returns the number of lines written since startup or the last
// Clear, including lines that have since been evicted.
func (b *Buffer) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Size returns the ring capacity.
func (b *Buffer) Size() int {
	return len(b.lines)
}

// Clear discards all retained lines.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i] = ""
	}
	b.next = 0
	b.total = 0
}
