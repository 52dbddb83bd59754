package logging

import (
	"sync"
	"time"
)

// DefaultBufferSize is the number of entries kept for TUI display.
const DefaultBufferSize = 100

// Entry is a log line captured for display inside a TUI.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Buffer is a fixed-size ring of recent entries.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	start   int // index of the oldest entry
	count   int
}

// NewBuffer creates a buffer holding up to size entries.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Add appends entry, overwriting the oldest when full.
func (b *Buffer) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[(b.start+b.count)%len(b.entries)] = entry
	if b.count < len(b.entries) {
		b.count++
	} else {
		b.start = (b.start + 1) % len(b.entries)
	}
}

// Last returns up to n of the newest entries at or above minLevel, oldest
// first. n <= 0 returns every matching entry.
func (b *Buffer) Last(n int, minLevel Level) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Entry
	for i := b.count - 1; i >= 0; i-- {
		e := b.entries[(b.start+i)%len(b.entries)]
		if e.Level < minLevel {
			continue
		}
		out = append(out, e)
		if n > 0 && len(out) == n {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}
