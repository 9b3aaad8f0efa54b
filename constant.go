// FILE: constant.go
package hotwire

import (
	"time"
)

// Level is the severity of a log statement. Backtrace sits above Critical so
// backtrace statements pass every threshold except LevelNone; it is only valid
// as a statement level, never as a logger threshold.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelBacktrace
	LevelNone
)

// eventKind discriminates queue records on the backend side
type eventKind uint8

const (
	eventLog eventKind = iota
	eventInitBacktrace
	eventFlushBacktrace
	eventFlush
)

// Queue framing
const (
	// Record header: metadata id (u32), logger id (u32), timestamp (i64)
	recordHeaderSize = 16
	// Length prefix written before each record
	lengthPrefixSize = 4
	// Marker in the length-prefix slot telling the reader the rest of the
	// ring is padding and the next record starts at position zero
	wrapMarker uint32 = 0xFFFFFFFF
)

// Queue sizing
const (
	minQueueCapacity     = 4 * 1024
	defaultQueueCapacity = 128 * 1024
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Backend idle backoff: spin, then yield, then sleep
	idleSpinRounds  = 64
	idleYieldRounds = 16
)
