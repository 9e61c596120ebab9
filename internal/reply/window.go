package reply

import (
	"sync"

	"github.com/heartline/heartline/internal/memory"
)

// DefaultWindowSize is the number of turns kept in the rolling window.
const DefaultWindowSize = 10

// Window is a fixed-capacity ring of conversation turns. Appending to a
// full window overwrites the oldest turn.
type Window struct {
	mu    sync.Mutex
	buf   []memory.Turn
	start int
	n     int
}

// NewWindow returns a Window holding at most size turns.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]memory.Turn, size)}
}

// Append adds turns in order, evicting the oldest when full.
func (w *Window) Append(turns ...memory.Turn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range turns {
		w.push(t)
	}
}

func (w *Window) push(t memory.Turn) {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = t
		w.n++
		return
	}
	w.buf[w.start] = t
	w.start = (w.start + 1) % len(w.buf)
}

// Snapshot returns the turns oldest first.
func (w *Window) Snapshot() []memory.Turn {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]memory.Turn, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Restore replaces the contents with turns, keeping the newest that fit.
func (w *Window) Restore(turns []memory.Turn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
	if len(turns) > len(w.buf) {
		turns = turns[len(turns)-len(w.buf):]
	}
	for _, t := range turns {
		w.push(t)
	}
}

// Clear empties the window.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
}

func (w *Window) reset() {
	for i := range w.buf {
		w.buf[i] = memory.Turn{}
	}
	w.start, w.n = 0, 0
}

// Len returns the number of turns held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }
