package main

import (
	"fmt"
	"os"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/logging"
	"github.com/core-tools/hsu-launcher-go/pkg/orchestrator"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	ConfigFile   string `long:"config" description:"path to the topology configuration file" required:"true"`
	ValidateOnly bool   `long:"validate-only" description:"validate the topology configuration and exit"`
	LogLevel     string `long:"log-level" description:"log level: debug, info, warn, error" default:"info"`
	LogFormat    string `long:"log-format" description:"log format: console, json" default:"console"`
}

// Exit codes reported to the calling shell
const (
	exitOK       = 0
	exitConfig   = 2
	exitLaunch   = 3
	exitAbnormal = 4
)

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(exitConfig)
	}

	zapConfig := logging.DefaultZapConfig()
	zapConfig.Level = opts.LogLevel
	zapConfig.Format = opts.LogFormat

	zapLogger, err := logging.NewZapLogger(zapConfig)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(exitAbnormal)
	}
	defer zapLogger.Sync()

	logger := logging.NewLogger(logPrefix("hsu-launcher"), zapLogger.LogFuncs())

	logger.Infof("opts: %+v", opts)

	if opts.ValidateOnly {
		if err := orchestrator.ValidateConfigFile(opts.ConfigFile); err != nil {
			logger.Errorf("Topology validation failed: %v", err)
			os.Exit(exitConfig)
		}
		logger.Infof("Topology is valid: %s", opts.ConfigFile)
		return
	}

	err = orchestrator.Run(opts.ConfigFile, logger)
	if err != nil {
		logger.Errorf("Launcher run failed: %v", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.IsConfigError(err) || errors.IsValidationError(err):
		return exitConfig
	case errors.IsLaunchError(err) || errors.IsReadinessTimeoutError(err):
		return exitLaunch
	default:
		// unexpected exits, interrupts and anything else
		return exitAbnormal
	}
}
