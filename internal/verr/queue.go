package verr

import "sync"

// Entry is one message queued onto an ErrorQueue. ERROR and above never
// reach a queue — they propagate as a *CoreError return value instead;
// an Entry only ever carries WARNING and below.
type Entry struct {
	Level   Level
	Kind    Kind
	Message string
	Source  string // file:line of the raise site, when known
}

// Sink receives flushed Entry values. Console and syslog sinks both
// satisfy this, matching spec.md §7 ("queued to sinks (console,
// syslog)").
type Sink interface {
	Levels() []Level
	Flush(Entry)
}

// ErrorQueue buffers Entry values and fans them out to registered
// Sinks immediately on Push, while retaining the most recent entries
// for later inspection (e.g. by a CatalogContext's diagnostics).
//
// Grounded on original_source/src/io/utils/EQueue.c's queue-of-sinks
// shape, and on the teacher's health_monitor.go accumulate-then-drain
// bookkeeping pattern for tracking recent failures.
type ErrorQueue struct {
	mu      sync.Mutex
	sinks   []Sink
	history []Entry
	cap     int
}

// NewErrorQueue creates an ErrorQueue retaining up to historyCap most
// recent entries (0 means unbounded retention is disabled — only sinks
// receive entries).
func NewErrorQueue(historyCap int) *ErrorQueue {
	return &ErrorQueue{cap: historyCap}
}

// RegisterSink adds a Sink that will receive every future Push whose
// Level is in sink.Levels().
func (eq *ErrorQueue) RegisterSink(s Sink) {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	eq.sinks = append(eq.sinks, s)
}

// Push queues an Entry, flushing it to every registered Sink that
// accepts its level and retaining it in history.
func (eq *ErrorQueue) Push(e Entry) {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if eq.cap > 0 {
		eq.history = append(eq.history, e)
		if len(eq.history) > eq.cap {
			eq.history = eq.history[len(eq.history)-eq.cap:]
		}
	}

	for _, s := range eq.sinks {
		for _, lv := range s.Levels() {
			if lv == e.Level {
				s.Flush(e)
				break
			}
		}
	}
}

// History returns a copy of the most recently retained entries, oldest
// first.
func (eq *ErrorQueue) History() []Entry {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	out := make([]Entry, len(eq.history))
	copy(out, eq.history)
	return out
}

// Len reports how many entries are currently retained.
func (eq *ErrorQueue) Len() int {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return len(eq.history)
}
