// FILE: utility.go
package hotwire

import (
	"fmt"
	"os"
	"strings"
)

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "hotwire: ") {
		format = "hotwire: " + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors helper
func combineErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	return fmt.Errorf("%v; %w", err1, err2)
}

// parseKeyValue splits a "key=value" string.
func parseKeyValue(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "=", 2)
	if len(parts) != 2 {
		return "", "", fmtErrorf("invalid format in override string '%s', expected key=value", arg)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" {
		return "", "", fmtErrorf("key cannot be empty in override string '%s'", arg)
	}
	return key, value, nil
}

// ParseLevel converts a level string to its Level constant.
func ParseLevel(levelStr string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	case "none":
		return LevelNone, nil
	default:
		return 0, fmtErrorf("invalid level string: '%s' (use debug, info, warn, error, critical, none)", levelStr)
	}
}

// String returns the canonical upper-case name used in rendered output.
func (lv Level) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	case LevelBacktrace:
		return "BACKTRACE"
	case LevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("LEVEL(%d)", uint8(lv))
	}
}

// internalLog reports pipeline-internal problems to stderr when enabled.
// Failures inside the backend must never panic or recurse into the pipeline.
func (e *Engine) internalLog(format string, args ...any) {
	cfg := e.getConfig()
	if cfg == nil || !cfg.InternalErrorsToStderr {
		return
	}
	fmt.Fprintf(os.Stderr, "hotwire: "+format+"\n", args...)
}

func alignUp(off, align int) int {
	return (off + align - 1) &^ (align - 1)
}

// nextPowerOfTwo rounds n up to a power of two, at least minQueueCapacity.
func nextPowerOfTwo(n uint64) uint64 {
	if n < minQueueCapacity {
		n = minQueueCapacity
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
