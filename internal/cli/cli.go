package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vk/tsquery/internal/app"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("tsquery", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
tsquery - plan time-series queries against the local factory registry.

Usage:
  tsquery [options] [QUERY_PATH]

Arguments:
  QUERY_PATH
    Path to a query definition file (.hcl).

Options:
`)
		flagSet.PrintDefaults()
	}

	queryFlag := flagSet.String("query", "", "Path to the query definition file.")
	qFlag := flagSet.String("q", "", "Path to the query definition file (shorthand).")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	emitURLFlag := flagSet.String("emit-url", "", "Optional socket.io endpoint to emit the finished plan to.")
	emitTimeoutFlag := flagSet.Duration("emit-timeout", 10*time.Second, "Timeout for the plan emission exchange.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	queryPath := *queryFlag
	if queryPath == "" {
		queryPath = *qFlag
	}
	if queryPath == "" && flagSet.NArg() > 0 {
		queryPath = flagSet.Arg(0)
	}
	if queryPath == "" {
		flagSet.Usage()
		return nil, false, &ExitError{Code: 2, Message: "a query definition file is required"}
	}

	cfg, err := app.NewConfig(app.Config{
		QueryPath:   queryPath,
		LogFormat:   *logFormatFlag,
		LogLevel:    *logLevelFlag,
		EmitURL:     *emitURLFlag,
		EmitTimeout: *emitTimeoutFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished.")
	return cfg, false, nil
}
