// FILE: logger_test.go
package hotwire

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sinkLine is one statement as received by a test sink
type sinkLine struct {
	ts       time.Time
	level    Level
	logger   string
	location string
	msg      string
}

// collectSink records every statement it receives
type collectSink struct {
	mu      sync.Mutex
	lines   []sinkLine
	flushes int
}

func (s *collectSink) Write(ts time.Time, level Level, loggerName, location, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, sinkLine{ts: ts, level: level, logger: loggerName, location: location, msg: msg})
	return nil
}

func (s *collectSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *collectSink) snapshot() []sinkLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkLine(nil), s.lines...)
}

// createTestEngine creates a started engine with an unbounded queue policy
func createTestEngine(t *testing.T) (*Engine, *collectSink) {
	t.Helper()
	engine := NewEngine()

	cfg := DefaultConfig()
	cfg.QueuePolicy = QueuePolicyUnbounded
	cfg.QueueCapacityKB = 16
	cfg.IdleSleepUs = 50

	err := engine.ApplyConfig(cfg)
	require.NoError(t, err)

	err = engine.Start()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = engine.Shutdown(2 * time.Second)
	})

	return engine, &collectSink{}
}

// TestNewEngine verifies that a new engine is created with the correct initial state
func TestNewEngine(t *testing.T) {
	engine := NewEngine()

	assert.NotNil(t, engine)
	assert.False(t, engine.state.IsInitialized.Load())
	assert.False(t, engine.state.Started.Load())
	assert.True(t, engine.state.WorkerExited.Load())
}

// TestLoggerGetOrCreate verifies that logger identity is the name
func TestLoggerGetOrCreate(t *testing.T) {
	engine, sink := createTestEngine(t)

	l1 := engine.Logger("app", sink)
	l2 := engine.Logger("app")
	l3 := engine.Logger("other", sink)

	assert.Same(t, l1, l2)
	assert.NotSame(t, l1, l3)
	assert.Equal(t, "app", l1.details.Name())
	assert.NotEqual(t, l1.details.id, l3.details.id)
}

// TestShouldLog verifies threshold semantics for every level pair
func TestShouldLog(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)

	require.NoError(t, logger.SetLevel(LevelWarn))
	assert.False(t, logger.ShouldLog(LevelDebug))
	assert.False(t, logger.ShouldLog(LevelInfo))
	assert.True(t, logger.ShouldLog(LevelWarn))
	assert.True(t, logger.ShouldLog(LevelError))
	assert.True(t, logger.ShouldLog(LevelCritical))
	assert.True(t, logger.ShouldLog(LevelBacktrace))

	require.NoError(t, logger.SetLevel(LevelNone))
	assert.False(t, logger.ShouldLog(LevelCritical))
	assert.False(t, logger.ShouldLog(LevelBacktrace))
}

// TestSetLevelRejectsBacktrace verifies that the internal backtrace level is
// not a valid threshold
func TestSetLevelRejectsBacktrace(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)

	before := logger.GetLevel()
	err := logger.SetLevel(LevelBacktrace)
	require.Error(t, err)
	assert.Equal(t, before, logger.GetLevel())
}

// TestSeverityFiltering verifies that statements below the threshold never
// reach the sink
func TestSeverityFiltering(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)
	require.NoError(t, logger.SetLevel(LevelError))

	logger.Debugf("dropped %d", 1)
	logger.Infof("dropped %d", 2)
	logger.Warnf("dropped %d", 3)
	logger.Errorf("kept %d", 4)
	logger.Criticalf("kept %d", 5)

	require.NoError(t, logger.Flush(2*time.Second))

	lines := sink.snapshot()
	require.Len(t, lines, 2)
	assert.Equal(t, "kept 4", lines[0].msg)
	assert.Equal(t, LevelError, lines[0].level)
	assert.Equal(t, "kept 5", lines[1].msg)
	assert.Equal(t, LevelCritical, lines[1].level)
}

// TestInfoThenError reproduces the canonical two-statement sequence: both
// appear, in order, with non-decreasing timestamps
func TestInfoThenError(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)

	x := 5
	logger.Infof("x=%d", x)
	logger.Errorf("boom")

	require.NoError(t, logger.Flush(2*time.Second))

	lines := sink.snapshot()
	require.Len(t, lines, 2)
	assert.Equal(t, "x=5", lines[0].msg)
	assert.Equal(t, LevelInfo, lines[0].level)
	assert.Equal(t, "boom", lines[1].msg)
	assert.Equal(t, LevelError, lines[1].level)
	assert.False(t, lines[1].ts.Before(lines[0].ts))
}

// TestPerGoroutineFIFO verifies that one goroutine's statements arrive in
// call order
func TestPerGoroutineFIFO(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)

	const n = 200
	for i := 0; i < n; i++ {
		logger.Infof("seq %d", i)
	}
	require.NoError(t, logger.Flush(2*time.Second))

	lines := sink.snapshot()
	require.Len(t, lines, n)
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("seq %d", i), line.msg)
	}
}

// TestMergeOrdering verifies that events buffered before the backend starts
// dispatch in timestamp order across goroutines
func TestMergeOrdering(t *testing.T) {
	engine := NewEngine()
	cfg := DefaultConfig()
	cfg.QueuePolicy = QueuePolicyUnbounded
	require.NoError(t, engine.ApplyConfig(cfg))

	sink := &collectSink{}
	logger := engine.Logger("app", sink)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				logger.Infof("g=%d n=%d", g, i)
			}
		}(g)
	}
	wg.Wait()

	require.NoError(t, engine.Start())
	defer engine.Shutdown(2 * time.Second)
	require.NoError(t, logger.Flush(2*time.Second))

	lines := sink.snapshot()
	require.Len(t, lines, 200)
	for i := 1; i < len(lines); i++ {
		assert.False(t, lines[i].ts.Before(lines[i-1].ts),
			"timestamps regressed at line %d", i)
	}
}

// TestFlushIdempotent verifies repeated flushes succeed with nothing pending
func TestFlushIdempotent(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)

	logger.Infof("once")
	require.NoError(t, logger.Flush(2*time.Second))
	require.NoError(t, logger.Flush(2*time.Second))
	require.NoError(t, logger.Flush(2*time.Second))

	assert.Len(t, sink.snapshot(), 1)
}

// TestFlushRequiresStart verifies flush fails cleanly on a stopped engine
func TestFlushRequiresStart(t *testing.T) {
	engine := NewEngine()
	require.NoError(t, engine.ApplyConfig(DefaultConfig()))
	logger := engine.Logger("app", &collectSink{})

	err := logger.Flush(100 * time.Millisecond)
	require.Error(t, err)
}

// TestBoundedDropAccounting floods a small bounded queue and verifies
// dropped + dispatched equals the number of statements attempted
func TestBoundedDropAccounting(t *testing.T) {
	engine := NewEngine()
	cfg := DefaultConfig()
	cfg.QueuePolicy = QueuePolicyBounded
	cfg.QueueCapacityKB = 4
	require.NoError(t, engine.ApplyConfig(cfg))

	sink := &collectSink{}
	logger := engine.Logger("app", sink)

	// Flood before starting the backend so nothing drains mid-flood
	const attempted = 1000
	for i := 0; i < attempted; i++ {
		logger.Infof("flood message with some padding %d", i)
	}
	require.Greater(t, engine.Stats().Dropped, uint64(0))

	require.NoError(t, engine.Start())
	defer engine.Shutdown(2 * time.Second)

	assert.Eventually(t, func() bool {
		stats := engine.Stats()
		return stats.Dispatched+stats.Dropped == attempted
	}, 5*time.Second, 10*time.Millisecond)

	stats := engine.Stats()
	assert.Equal(t, uint64(attempted), stats.Dispatched+stats.Dropped)
	assert.Equal(t, int(stats.Dispatched), len(sink.snapshot()))
}

// TestLoggingBeforeApplyConfigIsNoop ensures the hot path is safe on an
// unconfigured engine
func TestLoggingBeforeApplyConfigIsNoop(t *testing.T) {
	engine := NewEngine()
	logger := engine.Logger("app", &collectSink{})

	assert.NotPanics(t, func() {
		logger.Infof("ignored %d", 1)
	})
}

// TestReleaseContext verifies a released goroutine queue is drained and
// reclaimed, and that logging again allocates a fresh one
func TestReleaseContext(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Infof("from worker")
		engine.ReleaseContext()
	}()
	<-done

	require.NoError(t, logger.Flush(2*time.Second))
	assert.Eventually(t, func() bool {
		return engine.Stats().ReclaimedContexts >= 1
	}, 5*time.Second, 10*time.Millisecond)

	lines := sink.snapshot()
	require.Len(t, lines, 1)
	assert.Equal(t, "from worker", lines[0].msg)
}

// TestSourceLocationReachesSinks verifies each dispatched statement carries
// its call site's file:line
func TestSourceLocationReachesSinks(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)

	logger.Infof("locate me")
	require.NoError(t, logger.Flush(2*time.Second))

	lines := sink.snapshot()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0].location, "logger_test.go:"),
		"location was %q", lines[0].location)
}

// TestConcurrentStartStop hammers the lifecycle from many goroutines and
// verifies the engine ends up consistent and usable
func TestConcurrentStartStop(t *testing.T) {
	engine := NewEngine()
	cfg := DefaultConfig()
	cfg.QueuePolicy = QueuePolicyUnbounded
	require.NoError(t, engine.ApplyConfig(cfg))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_ = engine.Start()
				_ = engine.Stop(2 * time.Second)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, engine.Stop(2*time.Second))
	assert.True(t, engine.state.WorkerExited.Load())

	sink := &collectSink{}
	logger := engine.Logger("app", sink)
	require.NoError(t, engine.Start())
	logger.Infof("alive")
	require.NoError(t, logger.Flush(2*time.Second))
	require.Len(t, sink.snapshot(), 1)

	require.NoError(t, engine.Shutdown(2*time.Second))
}

// TestRenderedArguments verifies errors, Stringers and aggregates survive the
// trip through the byte queue
func TestRenderedArguments(t *testing.T) {
	engine, sink := createTestEngine(t)
	logger := engine.Logger("app", sink)

	logger.Errorf("failed: %v", errors.New("connection refused"))
	logger.Infof("took %v", 1500*time.Millisecond)
	logger.Infof("blob %v", []byte{1, 2, 3})

	require.NoError(t, logger.Flush(2*time.Second))

	lines := sink.snapshot()
	require.Len(t, lines, 3)
	assert.Equal(t, "failed: connection refused", lines[0].msg)
	assert.Equal(t, "took 1.5s", lines[1].msg)
	assert.Equal(t, "blob [1 2 3]", lines[2].msg)
}
