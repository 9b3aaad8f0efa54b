// FILE: sink.go
package hotwire

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Sink receives formatted log statements from the backend worker. Sinks are
// driven only by the backend goroutine, so implementations need no locking
// unless they are shared with other writers. Write must not block
// indefinitely. location is the statement's short source location
// ("file.go:123"), empty for synthetic statements such as heartbeats;
// rendering it is the sink's choice.
type Sink interface {
	Write(ts time.Time, level Level, loggerName, location, msg string) error
	Flush() error
}

// ANSI color per level, console output only
var levelColors = [...]string{
	LevelDebug:     "\x1b[36m", // cyan
	LevelInfo:      "\x1b[32m", // green
	LevelWarn:      "\x1b[33m", // yellow
	LevelError:     "\x1b[31m", // red
	LevelCritical:  "\x1b[35m", // magenta
	LevelBacktrace: "\x1b[34m", // blue
	LevelNone:      "",
}

const colorReset = "\x1b[0m"

// appendLine renders the standard line layout: timestamp, level, logger
// name, optional source location, message, newline.
func appendLine(buf []byte, ts time.Time, level Level, loggerName, location, msg, timestampFormat string, color bool) []byte {
	buf = ts.AppendFormat(buf, timestampFormat)
	buf = append(buf, ' ')
	if color {
		buf = append(buf, levelColors[level]...)
	}
	buf = append(buf, level.String()...)
	if color {
		buf = append(buf, colorReset...)
	}
	buf = append(buf, ' ')
	buf = append(buf, loggerName...)
	buf = append(buf, ' ')
	if location != "" {
		buf = append(buf, location...)
		buf = append(buf, ' ')
	}
	buf = append(buf, msg...)
	buf = append(buf, '\n')
	return buf
}

// WriterSink writes rendered lines to an io.Writer. Colors are enabled
// automatically when the writer is a terminal.
type WriterSink struct {
	mu              sync.Mutex
	w               io.Writer
	buf             []byte
	color           bool
	source          bool
	timestampFormat string
}

// WriterSinkOption customizes a WriterSink.
type WriterSinkOption func(*WriterSink)

// WithColor forces colored output on or off, overriding terminal detection.
func WithColor(enabled bool) WriterSinkOption {
	return func(s *WriterSink) {
		s.color = enabled
	}
}

// WithSourceLocation includes each statement's file:line in rendered lines.
func WithSourceLocation(enabled bool) WriterSinkOption {
	return func(s *WriterSink) {
		s.source = enabled
	}
}

// WithTimestampFormat sets the time layout used for rendered lines.
func WithTimestampFormat(layout string) WriterSinkOption {
	return func(s *WriterSink) {
		if layout != "" {
			s.timestampFormat = layout
		}
	}
}

// NewWriterSink creates a sink over w. When w is a terminal, level names are
// colored.
func NewWriterSink(w io.Writer, opts ...WriterSinkOption) *WriterSink {
	s := &WriterSink{
		w:               w,
		buf:             make([]byte, 0, 512),
		timestampFormat: time.RFC3339Nano,
	}
	if f, ok := w.(*os.File); ok {
		s.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WriterSink) Write(ts time.Time, level Level, loggerName, location, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.source {
		location = ""
	}
	s.buf = appendLine(s.buf[:0], ts, level, loggerName, location, msg, s.timestampFormat, s.color)
	_, err := s.w.Write(s.buf)
	return err
}

func (s *WriterSink) Flush() error {
	f, ok := s.w.(*os.File)
	if !ok {
		return nil
	}
	// Sync on a terminal fails with EINVAL
	if isatty.IsTerminal(f.Fd()) {
		return nil
	}
	return f.Sync()
}
