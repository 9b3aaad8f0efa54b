// FILE: engine.go
package hotwire

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// State encapsulates the runtime state of the engine
type State struct {
	IsInitialized  atomic.Bool
	Started        atomic.Bool
	ShutdownCalled atomic.Bool
	WorkerExited   atomic.Bool // Tracks if the backend goroutine is running or has exited

	EngineStartTime atomic.Value // stores time.Time for uptime calculation

	// Backend statistics
	HeartbeatSequence atomic.Uint64
	TotalDispatched   atomic.Uint64 // statements handed to sinks
	TotalBacktraced   atomic.Uint64 // statements stored into backtrace buffers
	TotalFlushes      atomic.Uint64 // completed flush barriers
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	Dispatched        uint64
	Backtraced        uint64
	Dropped           uint64
	Flushes           uint64
	ActiveContexts    int
	ReclaimedContexts uint64
}

// Engine owns the goroutine context registry, the logger collection, and
// the single backend worker goroutine.
type Engine struct {
	currentConfig atomic.Value // stores *Config
	state         State
	initMu        sync.Mutex

	contexts *contextRegistry
	stopChan chan struct{}

	// Timestamps are baseWall + elapsed monotonic time, so they are
	// globally monotonic within the process.
	baseWall int64
	baseTime time.Time

	loggerMu    sync.Mutex
	loggersByID atomic.Pointer[[]*LoggerDetails]
	loggers     map[string]*Logger

	flushSeq     atomic.Uint64
	flushPending sync.Map // uint64 -> chan struct{}
}

// NewEngine creates an engine with default settings. ApplyConfig and Start
// must run before statements flow to sinks; statements logged in between are
// buffered in their goroutine queues.
func NewEngine() *Engine {
	e := &Engine{
		loggers:  make(map[string]*Logger),
		baseTime: time.Now(),
	}
	e.baseWall = e.baseTime.UnixNano()

	e.currentConfig.Store(DefaultConfig())

	e.state.IsInitialized.Store(false)
	e.state.Started.Store(false)
	e.state.ShutdownCalled.Store(false)
	e.state.WorkerExited.Store(true)
	e.state.EngineStartTime.Store(time.Now())

	return e
}

// now returns the engine-relative timestamp in wall-clock nanoseconds.
// time.Since reads the monotonic clock, so timestamps never step backwards.
func (e *Engine) now() int64 {
	return e.baseWall + int64(time.Since(e.baseTime))
}

// ApplyConfig applies a validated configuration to the engine.
// This is the primary way applications should configure the engine.
func (e *Engine) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmtErrorf("invalid configuration: %w", err)
	}

	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.state.Started.Load() {
		return fmtErrorf("configuration cannot change while the backend is running, call Stop first")
	}

	cfg = cfg.Clone()
	e.currentConfig.Store(cfg)

	if e.contexts == nil {
		e.contexts = newContextRegistry(uint64(cfg.QueueCapacityKB)*1024, cfg.QueuePolicy == QueuePolicyBounded)
	}

	e.state.IsInitialized.Store(true)
	e.state.ShutdownCalled.Store(false)
	return nil
}

// ApplyConfigString applies string key-value overrides to the engine's
// current configuration. Each override should be in the format "key=value".
func (e *Engine) ApplyConfigString(overrides ...string) error {
	cfg := e.GetConfig()

	var errs error
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errs = combineErrors(errs, err)
			continue
		}
		if err := applyConfigField(cfg, key, value); err != nil {
			errs = combineErrors(errs, err)
		}
	}
	if errs != nil {
		return errs
	}
	return e.ApplyConfig(cfg)
}

// GetConfig returns a copy of current configuration.
func (e *Engine) GetConfig() *Config {
	return e.getConfig().Clone()
}

func (e *Engine) getConfig() *Config {
	cfg, _ := e.currentConfig.Load().(*Config)
	return cfg
}

// Start launches the backend worker. Safe to call multiple times.
func (e *Engine) Start() error {
	if !e.state.IsInitialized.Load() {
		return fmtErrorf("engine not initialized, call ApplyConfig first")
	}

	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.state.Started.CompareAndSwap(false, true) {
		e.stopChan = make(chan struct{})
		e.state.WorkerExited.Store(false)
		e.state.EngineStartTime.Store(time.Now())
		go e.processEvents(e.stopChan)
	}
	return nil
}

// Stop halts the backend after draining every queue to a fixed point and
// completing outstanding flush barriers. Can be restarted with Start.
// initMu spans the drain wait so a concurrent Start cannot launch a second
// worker while the first is still reading the queues.
func (e *Engine) Stop(timeout ...time.Duration) error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if !e.state.Started.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	effectiveTimeout := 5 * time.Second
	if len(timeout) > 0 {
		effectiveTimeout = timeout[0]
	}

	close(e.stopChan)

	deadline := time.Now().Add(effectiveTimeout)
	for time.Now().Before(deadline) {
		if e.state.WorkerExited.Load() {
			return nil
		}
		time.Sleep(minWaitTime)
	}
	return fmtErrorf("backend worker did not exit within timeout (%v)", effectiveTimeout)
}

// Shutdown stops the backend and closes every sink that implements
// io.Closer. The engine cannot be restarted afterwards.
func (e *Engine) Shutdown(timeout ...time.Duration) error {
	if !e.state.ShutdownCalled.CompareAndSwap(false, true) {
		return nil
	}

	var finalErr error
	if e.state.Started.Load() {
		finalErr = e.Stop(timeout...)
	}
	e.state.IsInitialized.Store(false)

	for _, details := range e.allLoggerDetails() {
		for _, s := range details.sinks {
			if err := s.Flush(); err != nil {
				finalErr = combineErrors(finalErr, err)
			}
			if closer, ok := s.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					finalErr = combineErrors(finalErr, err)
				}
			}
		}
	}
	return finalErr
}

// Logger returns the named logger, creating it with the given sinks and the
// configured default level on first use. Sinks passed for an existing name
// are ignored; logger identity is the name.
func (e *Engine) Logger(name string, sinks ...Sink) *Logger {
	e.loggerMu.Lock()
	defer e.loggerMu.Unlock()

	if l, ok := e.loggers[name]; ok {
		return l
	}

	old := e.loggersByID.Load()
	var tbl []*LoggerDetails
	if old != nil {
		tbl = append(tbl, *old...)
	}
	details := &LoggerDetails{
		id:    uint32(len(tbl)),
		name:  name,
		sinks: sinks,
	}
	details.backtraceFlushLevel.Store(uint32(LevelNone))
	tbl = append(tbl, details)
	e.loggersByID.Store(&tbl)

	l := &Logger{details: details, engine: e}
	defaultLevel := LevelInfo
	if cfg := e.getConfig(); cfg != nil {
		if lv, err := ParseLevel(cfg.Level); err == nil {
			defaultLevel = lv
		}
	}
	l.level.Store(uint32(defaultLevel))
	e.loggers[name] = l
	return l
}

// loggerDetailsByID resolves a logger id read back out of a queue record.
func (e *Engine) loggerDetailsByID(id uint32) *LoggerDetails {
	tbl := e.loggersByID.Load()
	if tbl == nil || id >= uint32(len(*tbl)) {
		return nil
	}
	return (*tbl)[id]
}

func (e *Engine) allLoggerDetails() []*LoggerDetails {
	tbl := e.loggersByID.Load()
	if tbl == nil {
		return nil
	}
	return *tbl
}

// distinctSinks returns every sink registered across all loggers, each once.
func (e *Engine) distinctSinks() []Sink {
	seen := make(map[Sink]struct{})
	var sinks []Sink
	for _, details := range e.allLoggerDetails() {
		for _, s := range details.sinks {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			sinks = append(sinks, s)
		}
	}
	return sinks
}

// ReleaseContext invalidates the calling goroutine's queue. Worker pools
// call this before returning a goroutine; the backend reclaims the queue
// after draining it. Logging again from the same goroutine is safe and
// allocates a fresh queue.
func (e *Engine) ReleaseContext() {
	if e.contexts != nil {
		e.contexts.release()
	}
}

// Stats returns a snapshot of the pipeline counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		Dispatched: e.state.TotalDispatched.Load(),
		Backtraced: e.state.TotalBacktraced.Load(),
		Flushes:    e.state.TotalFlushes.Load(),
	}
	if e.contexts != nil {
		s.Dropped = e.contexts.totalDropped()
		s.ActiveContexts = e.contexts.count()
		s.ReclaimedContexts = e.contexts.reclaimedCount.Load()
	}
	return s
}

// newFlushToken registers a flush barrier and returns its token and the
// channel the backend closes once the barrier completes.
func (e *Engine) newFlushToken() (uint64, chan struct{}) {
	token := e.flushSeq.Add(1)
	ch := make(chan struct{})
	e.flushPending.Store(token, ch)
	return token, ch
}

// dropFlushToken abandons a barrier that could not be enqueued or timed out.
func (e *Engine) dropFlushToken(token uint64) {
	e.flushPending.Delete(token)
}

// completeFlush closes the barrier channel, waking the Flush caller.
func (e *Engine) completeFlush(token uint64) {
	if v, ok := e.flushPending.LoadAndDelete(token); ok {
		close(v.(chan struct{}))
		e.state.TotalFlushes.Add(1)
	}
}
