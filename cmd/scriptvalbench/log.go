package main

import (
	"fmt"
	"os"

	"github.com/cruxnet/cruxd/infrastructure/logger"
	"github.com/cruxnet/cruxd/util/panics"
)

var log = logger.RegisterSubSystem("SVBN")
var spawn = panics.GoroutineWrapperFunc(log)

func initLog(logFile, errLogFile, logLevel string) {
	logger.InitLog(logFile, errLogFile)
	err := logger.SetLogLevels(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting log levels: %s\n", err)
		os.Exit(1)
	}
}
