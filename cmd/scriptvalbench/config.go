package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/version"
)

const (
	defaultLogFilename    = "scriptvalbench.log"
	defaultErrLogFilename = "scriptvalbench_err.log"

	defaultTransactionCount = 5000
	defaultInputsPerTx      = 2
	defaultCacheMebibytes   = 32
)

type configFlags struct {
	ShowVersion      bool   `short:"V" long:"version" description:"Display version information and exit"`
	TransactionCount uint64 `short:"n" long:"numtxs" description:"Number of transactions to validate per pass"`
	InputsPerTx      int    `long:"inputs" description:"Number of inputs per generated transaction"`
	CacheMebibytes   uint64 `long:"cachesize" description:"Script cache size in mebibytes. 0 disables the cache"`
	LogLevel         string `short:"d" long:"loglevel" description:"Set log level {trace, debug, info, warn, error, critical}"`
	Profile          string `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`
}

func parseConfig() (*configFlags, error) {
	cfg := &configFlags{
		TransactionCount: defaultTransactionCount,
		InputsPerTx:      defaultInputsPerTx,
		CacheMebibytes:   defaultCacheMebibytes,
		LogLevel:         "info",
	}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.Parse()

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		appName = strings.TrimSuffix(appName, filepath.Ext(appName))
		fmt.Println(appName, "version", version.Version())
		os.Exit(0)
	}

	if err != nil {
		return nil, err
	}

	if cfg.InputsPerTx < 1 {
		return nil, errors.New("--inputs must be at least 1")
	}
	if cfg.TransactionCount < 1 {
		return nil, errors.New("--numtxs must be at least 1")
	}
	if cfg.Profile != "" {
		profilePort, err := strconv.Atoi(cfg.Profile)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			return nil, errors.New("The profile port must be between 1024 and 65535")
		}
	}

	initLog(defaultLogFilename, defaultErrLogFilename, cfg.LogLevel)

	return cfg, nil
}
