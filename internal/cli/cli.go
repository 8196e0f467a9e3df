// Package cli parses the kubegraph command line into an app config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SmartX-Team/OpenARK-sub002/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("kubegraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
kubegraph - A declarative resource-flow orchestration engine.

Usage:
  kubegraph [options] [RESOURCES_PATH]

Arguments:
  RESOURCES_PATH
    Path to a directory containing .hcl resource files declaring
    connectors, functions, and problems.

Options:
`)
		flagSet.PrintDefaults()
	}

	resourcesFlag := flagSet.String("resources", "", "Path to the resource directory.")
	rFlag := flagSet.String("r", "", "Path to the resource directory (shorthand).")
	storePathFlag := flagSet.String("store-path", "", "Directory for the persistent graph store. Empty keeps graphs in memory.")
	metricsPortFlag := flagSet.Int("metrics-port", 0, "Port for the HTTP metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	tickFlag := flagSet.Duration("tick-interval", 5*time.Second, "Period of the solve loop.")
	watchFlag := flagSet.Bool("watch", false, "Reload the resource directory when its files change.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *resourcesFlag != "" {
		path = *resourcesFlag
	} else if *rFlag != "" {
		path = *rFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ResourcesPath: path,
		StorePath:     *storePathFlag,
		MetricsPort:   *metricsPortFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		TickInterval:  *tickFlag,
		Watch:         *watchFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}
