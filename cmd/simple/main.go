// FILE: cmd/simple/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hotwire-log/hotwire"
)

const configFile = "simple_config.toml"

// Example TOML content
var tomlContent = `
# Example simple_config.toml
[hotwire]
  level = "debug"
  queue_capacity_kb = 64
  queue_policy = "unbounded"
  idle_sleep_us = 100
  heartbeat_interval_s = 0
  internal_errors_to_stderr = true
`

func main() {
	fmt.Println("--- Simple Pipeline Example ---")

	// Create dummy config file
	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write dummy config: %v\n", err)
	} else {
		fmt.Printf("Created dummy config file: %s\n", configFile)
	}

	// --- Initialize Engine ---
	engine, err := hotwire.NewBuilder().
		ConfigFile(configFile).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure engine: %v\n", err)
		os.Exit(1)
	}
	if err := engine.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start engine: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Engine started.")

	fileSink, err := hotwire.NewFileSink("./simple_logs",
		hotwire.WithMaxSizeKB(1024),
		hotwire.WithRetentionPeriod(24*time.Hour),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open file sink: %v\n", err)
		os.Exit(1)
	}

	consoleSink := hotwire.NewWriterSink(os.Stdout, hotwire.WithSourceLocation(true))
	logger := engine.Logger("app", fileSink, consoleSink)

	// --- Logging ---
	logger.Debugf("this is a debug message, user_id=%d", 123)
	logger.Infof("application starting")
	logger.Warnf("potential issue detected, threshold=%.2f", 0.95)
	logger.Errorf("an error occurred: %v", errors.New("code 500"))

	// Backtrace: buffer debug detail, emit it only when something goes wrong
	if err := logger.InitBacktrace(8, hotwire.LevelError); err != nil {
		fmt.Fprintf(os.Stderr, "InitBacktrace: %v\n", err)
	}
	for i := 0; i < 12; i++ {
		logger.Backtracef("step %d of warmup", i)
	}
	logger.Errorf("warmup failed, last steps above")

	// Logging from goroutines
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer engine.ReleaseContext()
			logger.Infof("goroutine %d started", id)
			time.Sleep(time.Duration(50+id*50) * time.Millisecond)
			logger.Infof("goroutine %d finished", id)
		}(i)
	}

	wg.Wait()
	fmt.Println("Goroutines finished.")

	if err := logger.Flush(2 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Flush error: %v\n", err)
	}
	fmt.Printf("Stats: %+v\n", engine.Stats())

	// --- Shutdown Engine ---
	fmt.Println("Shutting down engine...")
	if err := engine.Shutdown(2 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Engine shutdown error: %v\n", err)
	} else {
		fmt.Println("Engine shutdown complete.")
	}

	fmt.Println("--- Example Finished ---")
	fmt.Println("Check log files in './simple_logs'.")
}
