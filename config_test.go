// FILE: config_test.go
package hotwire

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig verifies defaults validate and are returned by copy
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, int64(128), cfg.QueueCapacityKB)
	assert.Equal(t, QueuePolicyBounded, cfg.QueuePolicy)

	cfg.Level = "debug"
	assert.Equal(t, "info", DefaultConfig().Level)
}

// TestConfigValidate covers each rejected field value
func TestConfigValidate(t *testing.T) {
	base := DefaultConfig()

	cfg := base.Clone()
	cfg.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = base.Clone()
	cfg.QueueCapacityKB = 0
	assert.Error(t, cfg.Validate())

	cfg = base.Clone()
	cfg.QueuePolicy = "elastic"
	assert.Error(t, cfg.Validate())

	cfg = base.Clone()
	cfg.IdleSleepUs = 0
	assert.Error(t, cfg.Validate())

	cfg = base.Clone()
	cfg.HeartbeatIntervalS = -1
	assert.Error(t, cfg.Validate())
}

// TestConfigClone verifies the clone is independent
func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.QueueCapacityKB = 999

	assert.Equal(t, int64(128), cfg.QueueCapacityKB)
	assert.Equal(t, int64(999), clone.QueueCapacityKB)
}

// TestNewConfigFromFile loads a TOML file and keeps defaults for absent keys
func TestNewConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hotwire.toml")
	content := `
[hotwire]
  level = "warn"
  queue_capacity_kb = 64
  queue_policy = "unbounded"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, int64(64), cfg.QueueCapacityKB)
	assert.Equal(t, QueuePolicyUnbounded, cfg.QueuePolicy)
	assert.Equal(t, int64(100), cfg.IdleSleepUs)
}

// TestNewConfigFromFileMissing falls back to defaults when no file exists
func TestNewConfigFromFileMissing(t *testing.T) {
	cfg, err := NewConfigFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

// TestNewConfigFromFileInvalid verifies invalid file contents are rejected
func TestNewConfigFromFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hotwire.toml")
	content := `
[hotwire]
  level = "nope"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := NewConfigFromFile(path)
	require.Error(t, err)
}

// TestNewConfigFromDefaults applies map overrides
func TestNewConfigFromDefaults(t *testing.T) {
	cfg, err := NewConfigFromDefaults(map[string]any{
		"level":             "error",
		"queue_capacity_kb": 32,
	})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, int64(32), cfg.QueueCapacityKB)

	_, err = NewConfigFromDefaults(map[string]any{"no_such_key": 1})
	require.Error(t, err)

	_, err = NewConfigFromDefaults(map[string]any{"level": 42})
	require.Error(t, err)
}

// TestApplyConfigString verifies string overrides on a live engine
func TestApplyConfigString(t *testing.T) {
	engine := NewEngine()

	require.NoError(t, engine.ApplyConfigString("level=debug", "idle_sleep_us=250"))
	cfg := engine.GetConfig()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, int64(250), cfg.IdleSleepUs)

	assert.Error(t, engine.ApplyConfigString("level"))
	assert.Error(t, engine.ApplyConfigString("bogus_key=1"))
	assert.Error(t, engine.ApplyConfigString("level=nope"))
	assert.Error(t, engine.ApplyConfigString("queue_capacity_kb=abc"))
}

// TestApplyConfigRejectedWhileStarted verifies configuration is frozen while
// the backend runs
func TestApplyConfigRejectedWhileStarted(t *testing.T) {
	engine := NewEngine()
	require.NoError(t, engine.ApplyConfig(DefaultConfig()))
	require.NoError(t, engine.Start())
	defer engine.Shutdown(2 * time.Second)

	err := engine.ApplyConfig(DefaultConfig())
	require.Error(t, err)
}

// TestApplyConfigNil rejects a nil configuration
func TestApplyConfigNil(t *testing.T) {
	engine := NewEngine()
	require.Error(t, engine.ApplyConfig(nil))
}

// TestBuilder verifies the fluent construction path
func TestBuilder(t *testing.T) {
	engine, err := NewBuilder().
		LevelString("debug").
		QueueCapacityKB(32).
		Unbounded().
		IdleSleepUs(50).
		HeartbeatIntervalS(0).
		InternalErrorsToStderr(false).
		Build()
	require.NoError(t, err)
	require.NotNil(t, engine)

	cfg := engine.GetConfig()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, int64(32), cfg.QueueCapacityKB)
	assert.Equal(t, QueuePolicyUnbounded, cfg.QueuePolicy)
	assert.True(t, engine.state.IsInitialized.Load())
	assert.False(t, engine.state.Started.Load())
}

// TestBuilderErrorPropagation verifies the first error wins and Build fails
func TestBuilderErrorPropagation(t *testing.T) {
	_, err := NewBuilder().
		LevelString("nope").
		QueueCapacityKB(32).
		Build()
	require.Error(t, err)

	_, err = NewBuilder().
		QueueCapacityKB(-1).
		Build()
	require.Error(t, err)
}

// TestParseLevel covers the accepted spellings and the failure path
func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":    LevelDebug,
		"info":     LevelInfo,
		"warn":     LevelWarn,
		"error":    LevelError,
		"critical": LevelCritical,
		"none":     LevelNone,
		"INFO":     LevelInfo,
		"Error":    LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseLevel("trace")
	require.Error(t, err)
	_, err = ParseLevel("")
	require.Error(t, err)
}
