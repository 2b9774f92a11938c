package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/layerstage/internal/app"
	"github.com/specialistvlad/layerstage/internal/report"
)

// Exit codes understood by the build orchestrator.
const (
	ExitOK      = 0
	ExitFailed  = 1 // the report is not ok, or the run was cancelled
	ExitInvalid = 2 // usage or configuration error
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

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		parsed    *app.Config
		parseErr  error
		flags     app.Config
		logFormat string
		logLevel  string
	)

	verifyCmd := &cobra.Command{
		Use:   "verify LAYER_PATH...",
		Short: "Verify and stage the dependencies of a layer",
		Long: `Verify that every dependency declared in the layer manifest imports from the
staging directory, fetch the data assets they need, and check compiled
extension modules against the target platform.

LAYER_PATH is a .hcl file or a directory of .hcl files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateLogFlags(logFormat, logLevel); err != nil {
				parseErr = err
				return nil
			}
			flags.LayerPaths = args
			flags.LogFormat = strings.ToLower(logFormat)
			flags.LogLevel = strings.ToLower(logLevel)
			cfg, err := app.NewConfig(flags)
			if err != nil {
				parseErr = &ExitError{Code: ExitInvalid, Message: err.Error()}
				return nil
			}
			parsed = cfg
			return nil
		},
	}
	verifyCmd.Flags().StringVarP(&flags.Output, "output", "o", report.FormatTable, "Report format. Options: "+strings.Join(report.Formats, ", ")+".")
	verifyCmd.Flags().StringVar(&flags.ReportFile, "report-file", "", "Also write the JSON report to this file.")
	verifyCmd.Flags().StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this file.")
	verifyCmd.Flags().StringVar(&flags.EnvFile, "env-file", ".env", "Read environment variables from this file if it exists.")
	verifyCmd.Flags().IntVar(&flags.Concurrency, "concurrency", 0, "Number of dependencies processed at once. Overrides the manifest.")
	verifyCmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Abort the whole run after this long. 0 disables the limit.")
	verifyCmd.Flags().StringVar(&logFormat, "log-format", "", "Log output format. Options: 'text' or 'json'. Default from "+app.EnvLogFormat+", else 'text'.")
	verifyCmd.Flags().StringVar(&logLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Default from "+app.EnvLogLevel+", else 'info'.")

	rootCmd := &cobra.Command{
		Use:   "layerstage",
		Short: "Layerstage - verify and stage dependency layers before packaging.",
		Long: `Layerstage checks a staged dependency layer before it is zipped and shipped:
every dependency must import, its data assets must be present at their
runtime paths, and its compiled extensions must match the target platform.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(verifyCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(output)
	rootCmd.SetErr(output)

	if err := rootCmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: ExitInvalid, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if parseErr != nil {
		return nil, false, parseErr
	}
	if parsed == nil {
		// Help, or no subcommand at all.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", parsed)
	return parsed, false, nil
}

func validateLogFlags(format, level string) error {
	switch strings.ToLower(format) {
	case "", "text", "json":
	default:
		return &ExitError{Code: ExitInvalid, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn", "error":
	default:
		return &ExitError{Code: ExitInvalid, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return nil
}
