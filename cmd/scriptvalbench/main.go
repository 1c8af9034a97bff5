package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/infrastructure/os/signal"
	"github.com/cruxnet/cruxd/util/profiling"
	"github.com/cruxnet/cruxd/version"
)

func main() {
	defer panicHandler()
	interrupt := signal.InterruptListener()

	cfg, err := parseConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing command-line arguments: %s\n", err)
		os.Exit(1)
	}

	// Show version at startup.
	log.Infof("Version %s", version.Version())

	// Enable http profiling server if requested.
	if cfg.Profile != "" {
		profiling.Start(cfg.Profile, log)
	}

	doneChan := make(chan struct{})
	spawn("benchLoop", func() {
		err := benchLoop(cfg, interrupt)
		if err != nil {
			panic(errors.Wrap(err, "error in bench loop"))
		}
		doneChan <- struct{}{}
	})

	select {
	case <-doneChan:
	case <-interrupt:
	}
}

func panicHandler() {
	err := recover()
	if err == nil {
		return
	}
	log.Criticalf("Fatal error: %+v", err)
	log.Backend().Close()
	os.Exit(1)
}
