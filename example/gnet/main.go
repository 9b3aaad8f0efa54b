// FILE: example/gnet/main.go
package main

import (
	"github.com/hotwire-log/hotwire"
	"github.com/hotwire-log/hotwire/compat"
	"github.com/panjf2000/gnet/v2"
)

// Example gnet event handler
type echoServer struct {
	gnet.BuiltinEventEngine
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	c.Write(buf)
	return gnet.None
}

func main() {
	fileSink, err := hotwire.NewFileSink("/var/log/gnet")
	if err != nil {
		panic(err)
	}

	// Let the adapter builder own the engine
	builder := compat.NewBuilder().
		WithName("gnet").
		WithSinks(fileSink)

	gnetAdapter, err := builder.BuildGnet()
	if err != nil {
		panic(err)
	}
	defer builder.GetEngine().Shutdown()

	// Configure gnet server with the logger
	err = gnet.Run(
		&echoServer{},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(gnetAdapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		panic(err)
	}
}
