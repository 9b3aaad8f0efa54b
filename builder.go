// FILE: builder.go
package hotwire

// Builder provides a fluent API for building engine configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg *Config
	err error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build creates a new Engine instance with the specified configuration.
// The engine is configured but not started.
func (b *Builder) Build() (*Engine, error) {
	if b.err != nil {
		return nil, b.err
	}

	engine := NewEngine()

	// ApplyConfig handles all initialization and validation.
	if err := engine.ApplyConfig(b.cfg); err != nil {
		return nil, err
	}

	return engine, nil
}

// ConfigFile loads settings from a TOML file before the chained overrides.
func (b *Builder) ConfigFile(path string) *Builder {
	if b.err != nil {
		return b
	}
	cfg, err := NewConfigFromFile(path)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg = cfg
	return b
}

// LevelString sets the default logger threshold from a string.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := ParseLevel(level); err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = level
	return b
}

// QueueCapacityKB sets the per-goroutine queue size.
func (b *Builder) QueueCapacityKB(size int64) *Builder {
	b.cfg.QueueCapacityKB = size
	return b
}

// Bounded makes queues drop on overflow.
func (b *Builder) Bounded() *Builder {
	b.cfg.QueuePolicy = QueuePolicyBounded
	return b
}

// Unbounded makes queues grow on overflow.
func (b *Builder) Unbounded() *Builder {
	b.cfg.QueuePolicy = QueuePolicyUnbounded
	return b
}

// IdleSleepUs sets the backend sleep length once its idle backoff bottoms out.
func (b *Builder) IdleSleepUs(us int64) *Builder {
	b.cfg.IdleSleepUs = us
	return b
}

// HeartbeatIntervalS enables the periodic stats heartbeat.
func (b *Builder) HeartbeatIntervalS(interval int64) *Builder {
	b.cfg.HeartbeatIntervalS = interval
	return b
}

// InternalErrorsToStderr surfaces backend-internal problems on stderr.
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// Example usage:
// engine, err := hotwire.NewBuilder().
//
//	LevelString("debug").
//	QueueCapacityKB(256).
//	Unbounded().
//	Build()
//
// if err == nil {
//
//	 engine.Start()
//	 defer engine.Shutdown()
//	 logger := engine.Logger("app", hotwire.NewWriterSink(os.Stdout))
//	 logger.Infof("engine initialized, queue=%dKB", 256)
//
// }
