// FILE: example/fasthttp/main.go
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hotwire-log/hotwire"
	"github.com/hotwire-log/hotwire/compat"
	"github.com/valyala/fasthttp"
)

func main() {
	// Create and configure engine
	engine, err := hotwire.NewBuilder().
		LevelString("debug").
		QueueCapacityKB(256).
		Unbounded().
		Build()
	if err != nil {
		panic(err)
	}
	if err := engine.Start(); err != nil {
		panic(err)
	}
	defer engine.Shutdown()

	fileSink, err := hotwire.NewFileSink("/var/log/fasthttp",
		hotwire.WithMaxSizeKB(10*1024),
		hotwire.WithMaxTotalSizeKB(50*1024),
	)
	if err != nil {
		panic(err)
	}
	logger := engine.Logger("http", fileSink, hotwire.NewWriterSink(os.Stdout))

	// Create fasthttp adapter with custom level detection
	fasthttpAdapter := compat.NewFastHTTPAdapter(
		logger,
		compat.WithDefaultLevel(hotwire.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	// Configure fasthttp server
	server := &fasthttp.Server{
		Handler: requestHandler,
		Logger:  fasthttpAdapter,

		// Other server settings
		Name:              "MyServer",
		Concurrency:       fasthttp.DefaultConcurrency,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		TCPKeepalive:      true,
		ReduceMemoryUsage: true,
	}

	// Start server
	logger.Infof("starting server on %s", ":8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain")
	fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
}

func customLevelDetector(msg string) (hotwire.Level, bool) {
	// Custom logic to detect log levels
	// Can inspect specific fasthttp message patterns

	if strings.Contains(msg, "connection cannot be served") {
		return hotwire.LevelWarn, true
	}
	if strings.Contains(msg, "error when serving connection") {
		return hotwire.LevelError, true
	}

	// Use default detection
	return compat.DetectLogLevel(msg)
}
