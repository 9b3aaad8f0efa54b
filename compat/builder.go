// FILE: compat/builder.go
package compat

import (
	"fmt"

	"github.com/hotwire-log/hotwire"
)

// Builder provides a flexible way to create configured logger adapters for
// gnet and fasthttp. It can use an existing *hotwire.Logger instance or
// create one from a *hotwire.Config.
type Builder struct {
	logger *hotwire.Logger
	engine *hotwire.Engine
	logCfg *hotwire.Config
	name   string
	sinks  []hotwire.Sink
	err    error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{name: "server"}
}

// WithLogger specifies an existing logger to use for the adapters.
// Recommended for applications that already have a central engine.
// If this is set WithConfig, WithName and WithSinks are ignored.
func (b *Builder) WithLogger(l *hotwire.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("hotwire/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// WithConfig provides a configuration for a new engine instance.
// This is used only if an existing logger is NOT provided via WithLogger.
func (b *Builder) WithConfig(cfg *hotwire.Config) *Builder {
	b.logCfg = cfg
	return b
}

// WithName sets the logger name used when the builder creates its own engine.
func (b *Builder) WithName(name string) *Builder {
	if name != "" {
		b.name = name
	}
	return b
}

// WithSinks sets the sinks used when the builder creates its own engine.
func (b *Builder) WithSinks(sinks ...hotwire.Sink) *Builder {
	b.sinks = sinks
	return b
}

// getLogger resolves the logger to be used, creating an engine if necessary
func (b *Builder) getLogger() (*hotwire.Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	// An existing logger was provided, so we use it
	if b.logger != nil {
		return b.logger, nil
	}

	engine := hotwire.NewEngine()
	cfg := b.logCfg
	if cfg == nil {
		cfg = hotwire.DefaultConfig()
	}
	if err := engine.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	if err := engine.Start(); err != nil {
		return nil, err
	}

	// Cache for subsequent builds with this builder
	b.engine = engine
	b.logger = engine.Logger(b.name, b.sinks...)
	return b.logger, nil
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// GetLogger returns the underlying *hotwire.Logger instance.
// If a logger has not been provided or created yet, it will be initialized.
func (b *Builder) GetLogger() (*hotwire.Logger, error) {
	return b.getLogger()
}

// GetEngine returns the engine created by the builder, or nil when an
// existing logger was supplied via WithLogger. Callers that let the builder
// create the engine own its shutdown.
func (b *Builder) GetEngine() *hotwire.Engine {
	return b.engine
}
