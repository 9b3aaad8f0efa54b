// FILE: compat/fasthttp.go
package compat

import (
	"strings"

	"github.com/hotwire-log/hotwire"
)

// FastHTTPAdapter wraps hotwire.Logger to implement fasthttp Logger interface
type FastHTTPAdapter struct {
	logger        *hotwire.Logger
	defaultLevel  hotwire.Level
	levelDetector func(string) (hotwire.Level, bool) // Function to detect log level from message
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger *hotwire.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger,
		defaultLevel:  hotwire.LevelInfo,
		levelDetector: DetectLogLevel, // Default level detection
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the default log level for Printf calls
func WithDefaultLevel(level hotwire.Level) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content
func WithLevelDetector(detector func(string) (hotwire.Level, bool)) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	// Detect log level from message content
	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected, ok := a.levelDetector(format); ok {
			level = detected
		}
	}

	switch level {
	case hotwire.LevelDebug:
		a.logger.Debugf(format, args...)
	case hotwire.LevelWarn:
		a.logger.Warnf(format, args...)
	case hotwire.LevelError:
		a.logger.Errorf(format, args...)
	default:
		a.logger.Infof(format, args...)
	}
}

// DetectLogLevel attempts to detect log level from message content
func DetectLogLevel(msg string) (hotwire.Level, bool) {
	msgLower := strings.ToLower(msg)

	// Check for error indicators
	if strings.Contains(msgLower, "error") ||
		strings.Contains(msgLower, "failed") ||
		strings.Contains(msgLower, "fatal") ||
		strings.Contains(msgLower, "panic") {
		return hotwire.LevelError, true
	}

	// Check for warning indicators
	if strings.Contains(msgLower, "warn") ||
		strings.Contains(msgLower, "warning") ||
		strings.Contains(msgLower, "deprecated") {
		return hotwire.LevelWarn, true
	}

	// Check for debug indicators
	if strings.Contains(msgLower, "debug") ||
		strings.Contains(msgLower, "trace") {
		return hotwire.LevelDebug, true
	}

	return hotwire.LevelInfo, false
}
