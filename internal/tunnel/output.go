// internal/tunnel/output.go

package tunnel

import (
	"bytes"
	"sync"
)

// lineBuffer keeps the last max lines written to it.
type lineBuffer struct {
	mu      sync.RWMutex
	max     int
	lines   []string
	partial []byte
}

func newLineBuffer(max int) *lineBuffer {
	if max <= 0 {
		max = 1
	}
	return &lineBuffer{max: max}
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := append(b.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		b.push(string(bytes.TrimRight(data[:i], "\r")))
		data = data[i+1:]
	}
	b.partial = append([]byte(nil), data...)
	return len(p), nil
}

func (b *lineBuffer) push(line string) {
	if line == "" {
		return
	}
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *lineBuffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Last returns the most recent line, including an unterminated one.
func (b *lineBuffer) Last() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.partial) > 0 {
		return string(b.partial)
	}
	if len(b.lines) == 0 {
		return ""
	}
	return b.lines[len(b.lines)-1]
}
