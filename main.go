/*
Sylva loads the forest's assets, analyzes the authored map and serves the
instanced scene description.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sylvagraph/sylva/engine"
	"github.com/sylvagraph/sylva/engine/config"
)

func main() {
	configPath := flag.String("config", "sylva.toml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = eng.Shutdown()
	}()

	// run engine
	if err := eng.Run(); err != nil {
		panic(err)
	}
}
