// FILE: logger.go
package hotwire

import (
	"sync/atomic"
	"time"
)

// LoggerDetails is the immutable identity of a logger: id, name, and sink
// list. The backend resolves logger ids from queue records against an
// append-only table, so details never move or change after creation. The
// backtrace flush level is the only mutable field and is atomic.
type LoggerDetails struct {
	id    uint32
	name  string
	sinks []Sink

	backtraceFlushLevel atomic.Uint32 // Level; LevelNone disables auto-flush
}

// Name returns the logger's registered name.
func (d *LoggerDetails) Name() string { return d.name }

// Logger is the frontend handle. The logging methods encode arguments into
// the calling goroutine's queue and return; they take no lock and never
// block. All formatting and I/O happens on the backend goroutine.
type Logger struct {
	details *LoggerDetails
	engine  *Engine
	level   atomic.Uint32 // Level threshold
}

// ShouldLog reports whether a statement at the given level passes the
// logger's threshold.
func (l *Logger) ShouldLog(level Level) bool {
	threshold := Level(l.level.Load())
	return level >= threshold && threshold != LevelNone && level != LevelNone
}

// GetLevel returns the current threshold.
func (l *Logger) GetLevel() Level {
	return Level(l.level.Load())
}

// SetLevel changes the threshold. LevelBacktrace is a statement level, not a
// threshold, and is rejected.
func (l *Logger) SetLevel(level Level) error {
	if level == LevelBacktrace {
		return fmtErrorf("backtrace is not a valid logger threshold")
	}
	if level > LevelNone {
		return fmtErrorf("invalid level %d", uint8(level))
	}
	l.level.Store(uint32(level))
	return nil
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.ShouldLog(LevelDebug) {
		return
	}
	l.enqueue(LevelDebug, eventLog, format, args)
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) {
	if !l.ShouldLog(LevelInfo) {
		return
	}
	l.enqueue(LevelInfo, eventLog, format, args)
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	if !l.ShouldLog(LevelWarn) {
		return
	}
	l.enqueue(LevelWarn, eventLog, format, args)
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	if !l.ShouldLog(LevelError) {
		return
	}
	l.enqueue(LevelError, eventLog, format, args)
}

// Criticalf logs a formatted message at critical level.
func (l *Logger) Criticalf(format string, args ...any) {
	if !l.ShouldLog(LevelCritical) {
		return
	}
	l.enqueue(LevelCritical, eventLog, format, args)
}

// Backtracef records a formatted message into the logger's backtrace buffer
// instead of dispatching it. Buffered statements are emitted oldest first
// when FlushBacktrace is called or when a statement at or above the
// configured flush level is dispatched. InitBacktrace must run first or the
// statement is discarded by the backend.
func (l *Logger) Backtracef(format string, args ...any) {
	if !l.ShouldLog(LevelBacktrace) {
		return
	}
	l.enqueue(LevelBacktrace, eventLog, format, args)
}

// InitBacktrace creates (or resizes) the backtrace buffer holding the last
// capacity Backtracef statements. Statements at or above flushLevel trigger
// an automatic flush; LevelNone leaves flushing to FlushBacktrace only.
func (l *Logger) InitBacktrace(capacity uint32, flushLevel Level) error {
	if capacity == 0 {
		return fmtErrorf("backtrace capacity must be positive")
	}
	if flushLevel == LevelBacktrace {
		return fmtErrorf("backtrace is not a valid flush level")
	}
	l.details.backtraceFlushLevel.Store(uint32(flushLevel))
	l.enqueue(LevelNone, eventInitBacktrace, "", []any{capacity})
	return nil
}

// FlushBacktrace asks the backend to emit and clear the backtrace buffer.
func (l *Logger) FlushBacktrace() {
	l.enqueue(LevelNone, eventFlushBacktrace, "", nil)
}

// Flush blocks until every statement enqueued by any goroutine before this
// call has been handed to the sinks, or the timeout expires.
func (l *Logger) Flush(timeout time.Duration) error {
	e := l.engine
	if !e.state.IsInitialized.Load() || e.state.ShutdownCalled.Load() {
		return fmtErrorf("engine not initialized or already shut down")
	}
	if !e.state.Started.Load() {
		return fmtErrorf("engine not started")
	}

	token, confirmChan := e.newFlushToken()
	if !l.enqueue(LevelNone, eventFlush, "", []any{token}) {
		e.dropFlushToken(token)
		return fmtErrorf("failed to enqueue flush request (queue full)")
	}

	select {
	case <-confirmChan:
		return nil
	case <-time.After(timeout):
		e.dropFlushToken(token)
		return fmtErrorf("timeout waiting for flush confirmation (%v)", timeout)
	}
}

// enqueue is the hot path: classify arguments, look up call-site metadata,
// reserve queue space, encode, publish. Returns false when the record was
// dropped.
func (l *Logger) enqueue(level Level, kind eventKind, format string, args []any) bool {
	e := l.engine
	if !e.state.IsInitialized.Load() || e.state.ShutdownCalled.Load() {
		return false
	}

	kinds := make([]argKind, len(args))
	rendered, payloadSize := classifyArgs(args, kinds)

	pc := callerPC(2)
	md := metadataFor(pc, signatureHash(kinds), format, level, kind, kinds)

	ctx := e.contexts.local()
	buf := ctx.queue.prepareWrite(recordHeaderSize + payloadSize)
	if buf == nil {
		ctx.dropped.Add(1)
		return false
	}
	putRecordHeader(buf, md.ID, l.details.id, e.now())
	encodeArgs(buf[recordHeaderSize:], args, kinds, rendered)
	ctx.queue.commitWrite()
	return true
}
