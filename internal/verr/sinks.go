package verr

import (
	"fmt"
	"io"
)

// allLevels is the full severity range a Sink may subscribe to.
var allLevels = []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelFatal, LevelPanic}

// WriterSink is a Sink that formats each Entry as a single line and
// writes it to an io.Writer. It stands in for both the "console" and
// "syslog" sinks spec.md §7 names: a syslog sink is any WriterSink
// wrapping a connection that implements io.Writer (e.g. log/syslog on
// platforms that support it).
type WriterSink struct {
	W      io.Writer
	Accept []Level
}

// Levels implements Sink.
func (s *WriterSink) Levels() []Level {
	if len(s.Accept) == 0 {
		return allLevels
	}
	return s.Accept
}

// Flush implements Sink.
func (s *WriterSink) Flush(e Entry) {
	if s.W == nil {
		return
	}
	fmt.Fprintf(s.W, "[%s] %s %s\n", e.Level, e.Kind, e.Message)
}
